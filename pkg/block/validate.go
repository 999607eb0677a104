package block

import (
	"errors"
	"fmt"

	"github.com/kawchain/core/pkg/tx"
)

// Validation errors.
var (
	ErrNoTransactions        = errors.New("block has no transactions")
	ErrBadMerkleRoot         = errors.New("merkle root mismatch")
	ErrNoCoinbase            = errors.New("first transaction must be coinbase")
	ErrMultipleCoinbase      = errors.New("later transaction marked coinbase")
	ErrTimestampOutOfBounds  = errors.New("block timestamp out of bounds")
	ErrTimestampTooCloseToPrev = errors.New("block timestamp too close to or before previous block")
	ErrPoWInsufficient       = errors.New("block hash does not satisfy proof of work")
)

const (
	minInterBlockMS   = 1000            // 1 s
	maxInterBlockMS   = 60 * 60 * 1000  // 1 h
	maxFutureDriftMS  = 2 * 60 * 1000   // 2 min
	maxPastDriftMS    = 24 * 60 * 60 * 1000
)

// ValidateTimestamp enforces the ordering and drift rules. prev is nil
// for the genesis block, which is exempt. now is milliseconds since epoch.
func (b *Block) ValidateTimestamp(prev *Block, now int64) error {
	if b.Index == 0 {
		return nil
	}
	if prev == nil {
		return fmt.Errorf("%w: missing previous block for index %d", ErrTimestampOutOfBounds, b.Index)
	}
	if b.Timestamp <= prev.Timestamp {
		return fmt.Errorf("%w: %d <= previous %d", ErrTimestampTooCloseToPrev, b.Timestamp, prev.Timestamp)
	}
	delta := b.Timestamp - prev.Timestamp
	if delta < minInterBlockMS || delta > maxInterBlockMS {
		return fmt.Errorf("%w: inter-block interval %dms outside [%d,%d]", ErrTimestampOutOfBounds, delta, minInterBlockMS, maxInterBlockMS)
	}
	drift := now - b.Timestamp
	if drift < -maxFutureDriftMS || drift > maxPastDriftMS {
		return fmt.Errorf("%w: drift %dms from now", ErrTimestampOutOfBounds, drift)
	}
	return nil
}

// HasValidTransactions checks that the first transaction is a coinbase, all
// others are not, and each passes Validate(params).
func (b *Block) HasValidTransactions(p tx.Params) error {
	if len(b.Transactions) == 0 {
		return ErrNoTransactions
	}
	if !b.Transactions[0].IsCoinbase {
		return ErrNoCoinbase
	}
	for i, t := range b.Transactions {
		if i > 0 && t.IsCoinbase {
			return fmt.Errorf("tx %d: %w", i, ErrMultipleCoinbase)
		}
		if err := t.Validate(p); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}
	return nil
}

// IsValid runs the full structural check: transactions, merkle root, and
// (for non-genesis blocks) proof of work. Timestamp bounds are checked
// separately by ValidateTimestamp since they require the previous block and
// wall-clock time, not just the block itself.
func (b *Block) IsValid(p tx.Params, kawpow KawPowHasher) error {
	if err := b.HasValidTransactions(p); err != nil {
		return err
	}
	expected := ComputeMerkleRoot(b.TxHashes())
	if b.MerkleRoot != expected {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.MerkleRoot, expected)
	}
	if !b.HasValidPoW(kawpow) {
		return ErrPoWInsufficient
	}
	return nil
}
