package config

import (
	"fmt"
	"time"

	"github.com/kawchain/core/internal/chain"
	"github.com/kawchain/core/internal/validation"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/types"
)

// ToChainParams converts configuration into the shape internal/chain needs.
func (c *Config) ToChainParams() (chain.Params, error) {
	algo := block.Algorithm(c.Blockchain.Genesis.Algorithm)
	if algo == "" {
		algo = block.AlgoSHA256
	}
	if !algo.Valid() {
		return chain.Params{}, fmt.Errorf("config: unknown genesis algorithm %q", c.Blockchain.Genesis.Algorithm)
	}

	genesis := chain.GenesisParams{
		Timestamp:              c.Blockchain.Genesis.Timestamp,
		Difficulty:             c.Blockchain.Genesis.Difficulty,
		PremineAmount:          c.Blockchain.Genesis.PremineAmount,
		PremineAddress:         types.Address(c.Blockchain.Genesis.PremineAddress),
		Nonce:                  c.Blockchain.Genesis.Nonce,
		Algorithm:              algo,
		CoinbaseNonce:          c.Blockchain.Genesis.CoinbaseNonce,
		CoinbaseAtomicSequence: c.Blockchain.Genesis.CoinbaseAtomicSequence,
	}
	if c.Blockchain.Genesis.Hash != "" {
		h, err := types.HexToHash(c.Blockchain.Genesis.Hash)
		if err != nil {
			return chain.Params{}, fmt.Errorf("config: invalid genesis hash: %w", err)
		}
		genesis.Hash = h
	}

	return chain.Params{
		BlockTime:            c.Blockchain.BlockTime,
		CoinbaseReward:       c.Blockchain.CoinbaseReward,
		DifficultyBlocks:     c.Blockchain.DifficultyBlocks,
		DifficultyMinimum:    c.Blockchain.DifficultyMinimum,
		MaxBlockSize:         c.Memory.MaxTransactionSizeKiB * 1024 * c.BatchProcessing.MaxTransactionsPerBatch,
		MinFee:               c.Wallet.MinFee,
		MaxPoolSize:          c.Memory.MaxPoolSize,
		MaxMemoryBytes:       c.Memory.MaxMemoryUsageMiB * 1024 * 1024,
		MaxTxPerAddress:      c.SpamProtection.MaxTransactionsPerAddress,
		MaxTxPerMinute:       c.SpamProtection.MaxTransactionsPerMinute,
		AddressBanDurationMS: c.SpamProtection.AddressBanDuration,
		LockTimeout:          30 * time.Second,
		Genesis:              genesis,
		Validation: validation.Params{
			RateLimitPerSecond: validation.DefaultRateLimitPerSecond,
			MaxExecutionMS:     validation.DefaultMaxExecutionMS,
			MaxTxPerBatch:      c.BatchProcessing.MaxTransactionsPerBatch,
		},
	}, nil
}
