// Package validation implements block validation in full, fast, and
// ultra-fast modes, guarded by a CPU-time rate limiter.
package validation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kawchain/core/internal/log"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
)

// Validation errors not already defined by pkg/block.
var (
	ErrRateLimited            = errors.New("validation: rate limited")
	ErrBatchTooLarge          = errors.New("validation: batch too large")
	ErrCoinbaseAmountMismatch = errors.New("validation: coinbase amount mismatch")
	ErrLinkageMismatch        = errors.New("validation: previous_hash or index linkage mismatch")
)

// Defaults for the validator.
const (
	DefaultRateLimitPerSecond = 100
	DefaultMaxExecutionMS     = 5000
	DefaultMaxTxPerBatch      = 100
)

// Params carries the configuration validation needs.
type Params struct {
	CoinbaseReward     uint64
	RateLimitPerSecond int
	MaxExecutionMS     int64
	MaxTxPerBatch      int
}

// rateGuard is a rolling-one-second call counter, reset each time a second
// boundary is crossed.
type rateGuard struct {
	mu          sync.Mutex
	windowStart int64
	count       int
	limit       int
}

func (r *rateGuard) allow(nowMS int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nowMS-r.windowStart >= 1000 {
		r.windowStart = nowMS
		r.count = 0
	}
	if r.count >= r.limit {
		return false
	}
	r.count++
	return true
}

// Validator validates blocks in full, fast, or ultra-fast mode.
type Validator struct {
	params Params
	guard  *rateGuard
	kawpow block.KawPowHasher
}

// New creates a validator. kawpow may be nil; only KawPow-algorithm blocks
// in Full mode require it.
func New(params Params, kawpow block.KawPowHasher) *Validator {
	if params.RateLimitPerSecond <= 0 {
		params.RateLimitPerSecond = DefaultRateLimitPerSecond
	}
	if params.MaxExecutionMS <= 0 {
		params.MaxExecutionMS = DefaultMaxExecutionMS
	}
	if params.MaxTxPerBatch <= 0 {
		params.MaxTxPerBatch = DefaultMaxTxPerBatch
	}
	return &Validator{
		params: params,
		guard:  &rateGuard{limit: params.RateLimitPerSecond},
		kawpow: kawpow,
	}
}

// Full runs structural, merkle, PoW, and transaction validation
// (block.IsValid), the timestamp ordering/drift rules against prev, then
// checks the coinbase value: it must equal the configured reward plus the
// sum of non-coinbase fees. prev is the current tip, or nil for genesis.
func (v *Validator) Full(b *block.Block, txParams tx.Params, prev *block.Block, nowMS int64) error {
	if !v.guard.allow(nowMS) {
		return ErrRateLimited
	}
	if len(b.Transactions) > v.params.MaxTxPerBatch {
		return fmt.Errorf("%w: %d txs, max %d", ErrBatchTooLarge, len(b.Transactions), v.params.MaxTxPerBatch)
	}

	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed.Milliseconds() > v.params.MaxExecutionMS {
			log.Validation.Warn().
				Uint64("index", b.Index).
				Dur("elapsed", elapsed).
				Msg("block validation exceeded max execution time")
		}
	}()

	if err := b.IsValid(txParams, v.kawpow); err != nil {
		return err
	}
	if err := b.ValidateTimestamp(prev, nowMS); err != nil {
		return err
	}

	var fees uint64
	for _, t := range b.Transactions[1:] {
		fees += t.Fee
	}
	var coinbaseTotal uint64
	for _, out := range b.Transactions[0].Outputs {
		coinbaseTotal += out.Amount
	}
	expected := v.params.CoinbaseReward + fees
	if coinbaseTotal != expected {
		return fmt.Errorf("%w: coinbase pays %d, want %d (reward %d + fees %d)",
			ErrCoinbaseAmountMismatch, coinbaseTotal, expected, v.params.CoinbaseReward, fees)
	}
	return nil
}

// Fast verifies structural integrity and chain linkage, skipping PoW and
// signature checks. Used for bulk import.
func (v *Validator) Fast(b *block.Block, prev *block.Block) error {
	if len(b.Transactions) == 0 {
		return block.ErrNoTransactions
	}
	if !b.Transactions[0].IsCoinbase {
		return block.ErrNoCoinbase
	}
	expected := block.ComputeMerkleRoot(b.TxHashes())
	if b.MerkleRoot != expected {
		return fmt.Errorf("%w: header=%s computed=%s", block.ErrBadMerkleRoot, b.MerkleRoot, expected)
	}
	return v.checkLinkage(b, prev)
}

// UltraFast verifies only previous_hash/index linkage. Used for
// catastrophic-speed rechecks.
func (v *Validator) UltraFast(b *block.Block, prev *block.Block) error {
	return v.checkLinkage(b, prev)
}

func (v *Validator) checkLinkage(b, prev *block.Block) error {
	if b.Index == 0 {
		return nil
	}
	if prev == nil || b.PreviousHash != prev.Hash || b.Index != prev.Index+1 {
		return ErrLinkageMismatch
	}
	return nil
}
