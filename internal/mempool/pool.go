// Package mempool manages pending transactions waiting for block inclusion.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists      = errors.New("transaction already in mempool")
	ErrPoolFull           = errors.New("mempool is full")
	ErrPoolMemoryExceeded = errors.New("mempool memory limit exceeded")
	ErrValidation         = errors.New("transaction failed validation")
	ErrRateLimited        = errors.New("rate limited")
	ErrReplayDetected     = errors.New("replay detected")
)

// SpamChecker is consulted for every non-coinbase admission. Implemented by
// *spam.Limiter; declared locally so this package does not need to import
// internal/spam.
type SpamChecker interface {
	Allow(sender string, now int64) error
}

// ReplayChecker is consulted for every non-coinbase admission. Implemented
// by *replay.Index.
type ReplayChecker interface {
	IsReplay(t *tx.Transaction) bool
}

// entry wraps an admitted transaction with its accounted size.
type entry struct {
	tx   *tx.Transaction
	size int
}

// Pool holds unconfirmed transactions ordered for priority selection.
type Pool struct {
	mu sync.RWMutex

	txs         map[types.Hash]*entry
	memoryBytes int

	maxPoolSize    int
	maxMemoryBytes int
}

// New creates an empty mempool bounded by the given pool-size and memory
// limits.
func New(maxPoolSize, maxMemoryBytes int) *Pool {
	return &Pool{
		txs:            make(map[types.Hash]*entry),
		maxPoolSize:    maxPoolSize,
		maxMemoryBytes: maxMemoryBytes,
	}
}

// Add admits a transaction: id not already present, tx passes
// structural validation, pool-size and memory bounds are respected, and
// (for non-coinbase transactions) spam protection and replay checks pass.
func (p *Pool) Add(t *tx.Transaction, params tx.Params, spam SpamChecker, replay ReplayChecker) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[t.ID]; exists {
		return ErrAlreadyExists
	}
	if err := t.Validate(params); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if !t.IsCoinbase {
		if spam != nil {
			if err := spam.Allow(t.SenderFingerprint(), params.Now); err != nil {
				return fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
		}
		if replay != nil && replay.IsReplay(t) {
			return ErrReplayDetected
		}
	}

	size := t.Size()
	if len(p.txs) >= p.maxPoolSize {
		return ErrPoolFull
	}
	if p.memoryBytes+size > p.maxMemoryBytes {
		return ErrPoolMemoryExceeded
	}

	p.txs[t.ID] = &entry{tx: t, size: size}
	p.memoryBytes += size
	return nil
}

func (p *Pool) removeLocked(id types.Hash) {
	e, ok := p.txs[id]
	if !ok {
		return
	}
	p.memoryBytes -= e.size
	delete(p.txs, id)
}

// RemoveIncluded drops every transaction id contained in the block.
func (p *Pool) RemoveIncluded(b *block.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range b.Transactions {
		p.removeLocked(t.ID)
	}
}

// CleanupExpired drops transactions whose expiry has passed as of now, and
// returns how many were removed.
func (p *Pool) CleanupExpired(now int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for id, e := range p.txs {
		if e.tx.IsExpired(now) {
			p.removeLocked(id)
			removed++
		}
	}
	return removed
}

// sortedLocked returns pool entries ordered by (fee desc, timestamp asc, id
// hex asc). Caller must hold p.mu.
func (p *Pool) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].tx, entries[j].tx
		if a.Fee != b.Fee {
			return a.Fee > b.Fee
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ID.String() < b.ID.String()
	})
	return entries
}

// Manage enforces pool bounds: if count exceeds maxPoolSize, the
// lowest-fee transactions are dropped first; if memory exceeds
// maxMemoryBytes, the oldest 10% by timestamp are dropped.
func (p *Pool) Manage() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.txs) > p.maxPoolSize {
		entries := p.sortedLocked()
		for i := p.maxPoolSize; i < len(entries); i++ {
			p.removeLocked(entries[i].tx.ID)
		}
	}

	if p.memoryBytes > p.maxMemoryBytes {
		entries := make([]*entry, 0, len(p.txs))
		for _, e := range p.txs {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].tx.Timestamp < entries[j].tx.Timestamp
		})
		toDrop := (len(entries) + 9) / 10 // oldest 10%, rounded up.
		for i := 0; i < toDrop && i < len(entries); i++ {
			p.removeLocked(entries[i].tx.ID)
		}
	}
}

// SelectForBlock returns transactions in priority order, stopping once the
// accumulated serialized size would exceed maxBlockSize.
func (p *Pool) SelectForBlock(maxBlockSize int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.sortedLocked()
	result := make([]*tx.Transaction, 0, len(entries))
	total := 0
	for _, e := range entries {
		if total+e.size > maxBlockSize {
			break
		}
		total += e.size
		result = append(result, e.tx)
	}
	return result
}

// Count returns the number of transactions in the pool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// MemoryBytes returns the current accounted memory usage.
func (p *Pool) MemoryBytes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.memoryBytes
}

// Has reports whether id is present in the pool.
func (p *Pool) Has(id types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.txs[id]
	return ok
}

// Get retrieves a pooled transaction by id, or nil if absent.
func (p *Pool) Get(id types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.txs[id]
	if !ok {
		return nil
	}
	return e.tx
}

// All returns every pooled transaction, unordered. Used for snapshotting.
func (p *Pool) All() []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*tx.Transaction, 0, len(p.txs))
	for _, e := range p.txs {
		out = append(out, e.tx)
	}
	return out
}

// LoadAll repopulates the pool from a previously saved set of transactions,
// bypassing spam/replay/validation checks since they already passed
// admission once before being snapshotted.
func (p *Pool) LoadAll(txs []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = make(map[types.Hash]*entry, len(txs))
	p.memoryBytes = 0
	for _, t := range txs {
		size := t.Size()
		p.txs[t.ID] = &entry{tx: t, size: size}
		p.memoryBytes += size
	}
}
