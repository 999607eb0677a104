package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/kawchain/core/internal/storage"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO = []byte("u/") // u/<txid><index> -> UTXO JSON
	prefixAddr = []byte("a/") // a/<address><txid><index> -> empty (index)
)

// Store is the keyed ledger of unspent outputs, backed by a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize+4)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixUTXO)+types.HashSize:], op.OutputIndex)
	return key
}

// addrKey builds an address index key: "a/" + addr + txid(32) + index(4).
func addrKey(addr types.Address, op types.Outpoint) []byte {
	a := []byte(addr)
	key := make([]byte, len(prefixAddr)+len(a)+types.HashSize+4)
	copy(key, prefixAddr)
	off := len(prefixAddr)
	copy(key[off:], a)
	off += len(a)
	copy(key[off:], op.TxID[:])
	binary.BigEndian.PutUint32(key[off+types.HashSize:], op.OutputIndex)
	return key
}

// Find retrieves a UTXO by its outpoint. ok is false if it does not exist
// (either never created, or already spent).
func (s *Store) Find(txID types.Hash, outputIndex uint32) (u *UTXO, ok bool) {
	data, err := s.db.Get(utxoKey(types.Outpoint{TxID: txID, OutputIndex: outputIndex}))
	if err != nil {
		return nil, false
	}
	var out UTXO
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return &out, true
}

// IsSpent reports whether the outpoint has no corresponding UTXO.
func (s *Store) IsSpent(txID types.Hash, outputIndex uint32) bool {
	_, ok := s.Find(txID, outputIndex)
	return !ok
}

func (s *Store) put(u *UTXO) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := s.db.Put(utxoKey(u.Outpoint), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	if !u.Address.IsZero() {
		if err := s.db.Put(addrKey(u.Address, u.Outpoint), []byte{}); err != nil {
			return fmt.Errorf("utxo index put: %w", err)
		}
	}
	return nil
}

func (s *Store) delete(op types.Outpoint) error {
	u, ok := s.Find(op.TxID, op.OutputIndex)
	if ok && !u.Address.IsZero() {
		_ = s.db.Delete(addrKey(u.Address, op))
	}
	if err := s.db.Delete(utxoKey(op)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// ApplyBlock applies every transaction in the block in order: each input's
// referenced UTXO is removed, then each output is inserted as a new UTXO
// keyed by (tx.id, output_index).
func (s *Store) ApplyBlock(b *block.Block) error {
	for _, t := range b.Transactions {
		for _, in := range t.Inputs {
			if err := s.delete(types.Outpoint{TxID: in.PrevTxID, OutputIndex: in.OutputIndex}); err != nil {
				return err
			}
		}
		for i := range t.Outputs {
			if err := s.put(fromOutput(t, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// RewindBlock is the inverse of ApplyBlock: every output the block created is
// removed, and every input's spent UTXO is restored by looking up the
// transaction it came from via resolvePrev. Used only by tests; the engine
// never reorganizes the chain.
func (s *Store) RewindBlock(b *block.Block, resolvePrev func(txID types.Hash) (*tx.Transaction, bool)) error {
	for i := len(b.Transactions) - 1; i >= 0; i-- {
		t := b.Transactions[i]
		for j := range t.Outputs {
			if err := s.delete(types.Outpoint{TxID: t.ID, OutputIndex: uint32(j)}); err != nil {
				return err
			}
		}
		for _, in := range t.Inputs {
			prev, ok := resolvePrev(in.PrevTxID)
			if !ok {
				continue
			}
			if err := s.put(fromOutput(prev, int(in.OutputIndex))); err != nil {
				return err
			}
		}
	}
	return nil
}

// Balance sums the amounts of every UTXO owned by addr.
func (s *Store) Balance(addr types.Address) (uint64, error) {
	utxos, err := s.UTXOsOf(addr)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, u := range utxos {
		total += u.Amount
	}
	return total, nil
}

// UTXOsOf returns every unspent output owned by addr.
func (s *Store) UTXOsOf(addr types.Address) ([]*UTXO, error) {
	prefix := append(append([]byte{}, prefixAddr...), []byte(addr)...)
	var out []*UTXO
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		off := len(prefix)
		if len(key) < off+types.HashSize+4 {
			return nil
		}
		var op types.Outpoint
		copy(op.TxID[:], key[off:off+types.HashSize])
		op.OutputIndex = binary.BigEndian.Uint32(key[off+types.HashSize:])
		u, ok := s.Find(op.TxID, op.OutputIndex)
		if !ok {
			return nil
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return out, nil
}

// Clear removes every UTXO and index entry, for Rebuild.
func (s *Store) Clear() error {
	var keys [][]byte
	for _, prefix := range [][]byte{prefixUTXO, prefixAddr} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("delete utxo key: %w", err)
		}
	}
	return nil
}

// Rebuild resets the ledger and replays every block in order.
func (s *Store) Rebuild(blocks []*block.Block) error {
	if err := s.Clear(); err != nil {
		return err
	}
	for _, b := range blocks {
		if err := s.ApplyBlock(b); err != nil {
			return fmt.Errorf("rebuild at index %d: %w", b.Index, err)
		}
	}
	return nil
}
