package block

import (
	"errors"
	"testing"

	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

func testCoinbase(t *testing.T) *tx.Transaction {
	t.Helper()
	outputs := []tx.Output{{Address: "kaw1test", Amount: 1000}}
	coinbase := tx.New(nil, outputs, 0, tx.TagCoinbase, 1700000000000, "", "")
	coinbase.ComputeID()
	return coinbase
}

func validBlock(t *testing.T) *Block {
	t.Helper()
	coinbase := testCoinbase(t)
	root := ComputeMerkleRoot([]types.Hash{coinbase.ID})
	return &Block{
		Index:        1,
		Timestamp:    1700000010000,
		PreviousHash: types.Hash{0xaa},
		Transactions: []*tx.Transaction{coinbase},
		Difficulty:   1,
		MerkleRoot:   root,
		Algorithm:    AlgoSHA256,
	}
}

func params() tx.Params {
	return tx.Params{MinFee: 0, Now: 1700000010000}
}

func TestBlock_HasValidTransactions_Valid(t *testing.T) {
	blk := validBlock(t)
	if err := blk.HasValidTransactions(params()); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestBlock_HasValidTransactions_Empty(t *testing.T) {
	blk := &Block{}
	if err := blk.HasValidTransactions(params()); !errors.Is(err, ErrNoTransactions) {
		t.Fatalf("expected ErrNoTransactions, got %v", err)
	}
}

func TestBlock_HasValidTransactions_NoCoinbase(t *testing.T) {
	blk := validBlock(t)
	blk.Transactions[0].IsCoinbase = false
	if err := blk.HasValidTransactions(params()); !errors.Is(err, ErrNoCoinbase) {
		t.Fatalf("expected ErrNoCoinbase, got %v", err)
	}
}

func TestBlock_HasValidTransactions_MultipleCoinbase(t *testing.T) {
	blk := validBlock(t)
	second := testCoinbase(t)
	blk.Transactions = append(blk.Transactions, second)
	if err := blk.HasValidTransactions(params()); !errors.Is(err, ErrMultipleCoinbase) {
		t.Fatalf("expected ErrMultipleCoinbase, got %v", err)
	}
}

func TestBlock_IsValid_BadMerkleRoot(t *testing.T) {
	blk := validBlock(t)
	blk.MerkleRoot = types.Hash{0xff}
	if err := blk.IsValid(params(), nil); !errors.Is(err, ErrBadMerkleRoot) {
		t.Fatalf("expected ErrBadMerkleRoot, got %v", err)
	}
}

func TestBlock_IsValid_Genesis(t *testing.T) {
	blk := validBlock(t)
	blk.Index = 0
	// Genesis PoW is trusted regardless of Hash/Difficulty contents.
	if err := blk.IsValid(params(), nil); err != nil {
		t.Fatalf("expected genesis block valid, got %v", err)
	}
}

func TestBlock_ValidateTimestamp_TooClose(t *testing.T) {
	prev := &Block{Index: 0, Timestamp: 1700000000000}
	blk := &Block{Index: 1, Timestamp: 1700000000000}
	if err := blk.ValidateTimestamp(prev, 1700000000000); !errors.Is(err, ErrTimestampTooCloseToPrev) {
		t.Fatalf("expected ErrTimestampTooCloseToPrev, got %v", err)
	}
}

func TestBlock_ValidateTimestamp_IntervalTooLarge(t *testing.T) {
	prev := &Block{Index: 0, Timestamp: 1700000000000}
	blk := &Block{Index: 1, Timestamp: prev.Timestamp + maxInterBlockMS + 1000}
	now := blk.Timestamp
	if err := blk.ValidateTimestamp(prev, now); !errors.Is(err, ErrTimestampOutOfBounds) {
		t.Fatalf("expected ErrTimestampOutOfBounds, got %v", err)
	}
}

func TestBlock_ValidateTimestamp_Valid(t *testing.T) {
	prev := &Block{Index: 0, Timestamp: 1700000000000}
	blk := &Block{Index: 1, Timestamp: prev.Timestamp + 10000}
	if err := blk.ValidateTimestamp(prev, blk.Timestamp+1000); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestBlock_ValidateTimestamp_GenesisExempt(t *testing.T) {
	blk := &Block{Index: 0, Timestamp: 0}
	if err := blk.ValidateTimestamp(nil, 9999999999999); err != nil {
		t.Fatalf("genesis should be exempt, got %v", err)
	}
}
