// Package replay maintains the historical record used to reject resubmitted
// or cloned transactions across blocks.
package replay

import (
	"sync"

	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// Record is the historical entry kept for one committed (nonce, sender)
// pair, in the shape the snapshot file persists it as.
type Record struct {
	TxID          types.Hash `json:"txId"`
	BlockHeight   uint64     `json:"blockHeight"`
	Timestamp     int64      `json:"timestamp"`
	Nonce         string     `json:"nonce"`
	SenderAddress string     `json:"senderAddress"` // sender fingerprint; see pkg/tx.SenderFingerprint.
}

// key identifies a (nonce, sender fingerprint) pair.
type key struct {
	nonce  string
	sender string
}

// Index is the set of transaction ids ever committed, plus the map of
// (nonce, sender fingerprint) pairs ever committed. Safe for concurrent use:
// Chain.AddBlock records under its own write lock while
// Chain.AddPendingTransaction and the mempool's replay check read without
// it, so the index guards itself.
type Index struct {
	mu      sync.RWMutex
	txIDs   map[types.Hash]struct{}
	byNonce map[key]Record
}

// New creates an empty replay index.
func New() *Index {
	return &Index{
		txIDs:   make(map[types.Hash]struct{}),
		byNonce: make(map[key]Record),
	}
}

// Record adds the id of every non-coinbase transaction in b to the index,
// and, for those with a nonce, its (nonce, sender fingerprint) record.
func (idx *Index) Record(b *block.Block) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, t := range b.Transactions {
		if t.IsCoinbase {
			continue
		}
		idx.txIDs[t.ID] = struct{}{}
		if t.Nonce == "" {
			continue
		}
		fp := t.SenderFingerprint()
		idx.byNonce[key{nonce: t.Nonce, sender: fp}] = Record{
			TxID:          t.ID,
			BlockHeight:   b.Index,
			Timestamp:     t.Timestamp,
			Nonce:         t.Nonce,
			SenderAddress: fp,
		}
	}
}

// IsReplay reports whether t is a replay: coinbase transactions are never
// replays; a non-coinbase transaction missing a nonce, or whose id or
// (nonce, sender fingerprint) has already been committed, is.
func (idx *Index) IsReplay(t *tx.Transaction) bool {
	if t.IsCoinbase {
		return false
	}
	if t.Nonce == "" {
		return true
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if _, ok := idx.txIDs[t.ID]; ok {
		return true
	}
	_, ok := idx.byNonce[key{nonce: t.Nonce, sender: t.SenderFingerprint()}]
	return ok
}

// Rebuild clears the index and re-records every block of chain in order.
func (idx *Index) Rebuild(chain []*block.Block) {
	idx.mu.Lock()
	idx.txIDs = make(map[types.Hash]struct{})
	idx.byNonce = make(map[key]Record)
	idx.mu.Unlock()
	for _, b := range chain {
		idx.Record(b)
	}
}

// TxIDs returns every committed transaction id, for snapshotting.
func (idx *Index) TxIDs() []types.Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]types.Hash, 0, len(idx.txIDs))
	for id := range idx.txIDs {
		out = append(out, id)
	}
	return out
}

// Records returns every (nonce, sender) record, for snapshotting.
func (idx *Index) Records() []Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Record, 0, len(idx.byNonce))
	for _, r := range idx.byNonce {
		out = append(out, r)
	}
	return out
}

// Load restores the index from a previously persisted snapshot.
func Load(txIDs []types.Hash, records []Record) *Index {
	idx := New()
	for _, id := range txIDs {
		idx.txIDs[id] = struct{}{}
	}
	for _, r := range records {
		idx.byNonce[key{nonce: r.Nonce, sender: r.SenderAddress}] = r
	}
	return idx
}

// Len reports the number of committed transaction ids tracked.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.txIDs)
}
