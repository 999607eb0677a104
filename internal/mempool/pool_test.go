package mempool

import (
	"errors"
	"testing"

	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/crypto"
	"github.com/kawchain/core/pkg/tx"
)

func signedTx(t *testing.T, fee uint64, timestamp int64, nonce string) *tx.Transaction {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	txn := tx.New(
		[]tx.Input{{PrevTxID: [32]byte{0x01}, OutputIndex: 0}},
		[]tx.Output{{Address: "addr_Y", Amount: 100}},
		fee, tx.TagTransaction, timestamp, nonce, "",
	)
	if err := txn.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	txn.ComputeID()
	return txn
}

func params(now int64) tx.Params {
	return tx.Params{MinFee: 0, Now: now}
}

func TestPool_Add_RejectsDuplicate(t *testing.T) {
	p := New(10, 1_000_000)
	txn := signedTx(t, 5, 1700000000000, "n1")
	if err := p.Add(txn, params(txn.Timestamp), nil, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := p.Add(txn, params(txn.Timestamp), nil, nil); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPool_Add_RejectsWhenPoolFull(t *testing.T) {
	p := New(1, 1_000_000)
	a := signedTx(t, 5, 1700000000000, "n1")
	b := signedTx(t, 10, 1700000000001, "n2")
	if err := p.Add(a, params(a.Timestamp), nil, nil); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := p.Add(b, params(b.Timestamp), nil, nil); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
}

type rejectingReplay struct{}

func (rejectingReplay) IsReplay(*tx.Transaction) bool { return true }

func TestPool_Add_ReplayRejected(t *testing.T) {
	p := New(10, 1_000_000)
	txn := signedTx(t, 5, 1700000000000, "n1")
	if err := p.Add(txn, params(txn.Timestamp), nil, rejectingReplay{}); !errors.Is(err, ErrReplayDetected) {
		t.Fatalf("expected ErrReplayDetected, got %v", err)
	}
}

func TestPool_SelectForBlock_FeeDescending(t *testing.T) {
	p := New(10, 1_000_000)
	low := signedTx(t, 1, 1700000000000, "n1")
	high := signedTx(t, 10, 1700000000001, "n2")
	mid := signedTx(t, 5, 1700000000002, "n3")
	for _, txn := range []*tx.Transaction{low, high, mid} {
		if err := p.Add(txn, params(txn.Timestamp), nil, nil); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	selected := p.SelectForBlock(1_000_000)
	if len(selected) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(selected))
	}
	if selected[0].ID != high.ID || selected[1].ID != mid.ID || selected[2].ID != low.ID {
		t.Errorf("expected fee-descending order, got %v", selected)
	}
}

func TestPool_RemoveIncluded(t *testing.T) {
	p := New(10, 1_000_000)
	txn := signedTx(t, 5, 1700000000000, "n1")
	if err := p.Add(txn, params(txn.Timestamp), nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	b := &block.Block{Transactions: []*tx.Transaction{txn}}
	p.RemoveIncluded(b)
	if p.Has(txn.ID) {
		t.Errorf("expected transaction removed after RemoveIncluded")
	}
}

func TestPool_CleanupExpired(t *testing.T) {
	p := New(10, 1_000_000)
	txn := signedTx(t, 5, 1700000000000, "n1")
	removed := p.CleanupExpired(txn.ExpiresAt + 1)
	if removed != 0 {
		t.Fatalf("nothing added yet, expected 0 removed")
	}
	if err := p.Add(txn, params(txn.Timestamp), nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	removed = p.CleanupExpired(txn.ExpiresAt + 1)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
}

func TestPool_Manage_DropsLowestFeeWhenOverCount(t *testing.T) {
	p := New(2, 1_000_000)
	a := signedTx(t, 1, 1700000000000, "n1")
	b := signedTx(t, 10, 1700000000001, "n2")
	if err := p.Add(a, params(a.Timestamp), nil, nil); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := p.Add(b, params(b.Timestamp), nil, nil); err != nil {
		t.Fatalf("add b: %v", err)
	}
	p.maxPoolSize = 1
	p.Manage()
	if p.Count() != 1 {
		t.Fatalf("expected 1 tx after manage, got %d", p.Count())
	}
	if !p.Has(b.ID) {
		t.Errorf("expected higher-fee transaction to survive")
	}
}
