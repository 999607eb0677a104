// Package config handles node configuration: the operational settings a
// kawchaind instance is started with, as distinct from the consensus rules
// baked into the chain's genesis block.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// BlockchainConfig holds the chain engine's tunable parameters.
type BlockchainConfig struct {
	BlockTime           int64  `conf:"blockchain.blockTime"` // target seconds between blocks.
	CoinbaseReward      uint64 `conf:"blockchain.coinbaseReward"`
	DifficultyAlgorithm string `conf:"blockchain.difficultyAlgorithm"`
	DifficultyBlocks    uint64 `conf:"blockchain.difficultyBlocks"`
	DifficultyMinimum   uint64 `conf:"blockchain.difficultyMinimum"`
	Genesis             GenesisConfig
}

// GenesisConfig mirrors blockchain.genesis.*: the values needed to
// construct or verify the chain's genesis block.
type GenesisConfig struct {
	Timestamp              int64  `conf:"blockchain.genesis.timestamp"`
	Difficulty             uint64 `conf:"blockchain.genesis.difficulty"`
	PremineAmount          uint64 `conf:"blockchain.genesis.premineAmount"`
	PremineAddress         string `conf:"blockchain.genesis.premineAddress"`
	Nonce                  uint64 `conf:"blockchain.genesis.nonce"`
	Hash                   string `conf:"blockchain.genesis.hash"`
	Algorithm              string `conf:"blockchain.genesis.algorithm"`
	CoinbaseNonce          string `conf:"blockchain.genesis.coinbaseNonce"`
	CoinbaseAtomicSequence string `conf:"blockchain.genesis.coinbaseAtomicSequence"`
}

// SpamProtectionConfig holds per-sender admission limits.
type SpamProtectionConfig struct {
	MaxTransactionsPerAddress int   `conf:"spamProtection.maxTransactionsPerAddress"`
	MaxTransactionsPerMinute  int   `conf:"spamProtection.maxTransactionsPerMinute"`
	AddressBanDuration        int64 `conf:"spamProtection.addressBanDuration"` // milliseconds.
}

// CPUProtectionConfig holds the memory.cpuProtection.* settings. Only
// CleanupInterval is consumed (as the spam-limiter maintenance interval in
// cmd/kawchaind); the validation rate limiter does not read these fields.
type CPUProtectionConfig struct {
	Enabled            bool  `conf:"memory.cpuProtection.enabled"`
	MaxCPUUsage        int   `conf:"memory.cpuProtection.maxCpuUsage"`
	MonitoringInterval int64 `conf:"memory.cpuProtection.monitoringInterval"` // seconds.
	CleanupInterval    int64 `conf:"memory.cpuProtection.cleanupInterval"`    // seconds.
}

// MemoryConfig holds mempool sizing limits.
type MemoryConfig struct {
	MaxMemoryUsageMiB     int             `conf:"memory.maxMemoryUsage"`
	MaxTransactionSizeKiB int             `conf:"memory.maxTransactionSize"`
	MaxPoolSize           int             `conf:"memory.maxPoolSize"`
	MemoryThreshold       float64         `conf:"memory.memoryThreshold"`
	CPUProtection         CPUProtectionConfig
}

// BatchProcessingConfig holds batch-validation limits.
type BatchProcessingConfig struct {
	MaxBatchSize            int   `conf:"batchProcessing.maxBatchSize"`
	MaxTransactionsPerBatch int   `conf:"batchProcessing.maxTransactionsPerBatch"`
	CleanupInterval         int64 `conf:"batchProcessing.cleanupInterval"` // seconds.
}

// WalletConfig holds the minimum fee the engine requires of a transaction
// the (out-of-scope) wallet/signer collaborator submits.
type WalletConfig struct {
	MinFee uint64 `conf:"wallet.minFee"`
}

// StorageConfig holds on-disk paths.
type StorageConfig struct {
	DataDir        string `conf:"storage.dataDir"`
	BlockchainFile string `conf:"storage.blockchainFile"`
}

// LogConfig holds logging settings carried alongside the consensus config.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Config holds every node-operational setting kawchaind is started with.
type Config struct {
	Blockchain      BlockchainConfig
	SpamProtection  SpamProtectionConfig
	Memory          MemoryConfig
	BatchProcessing BatchProcessingConfig
	Wallet          WalletConfig
	Storage         StorageConfig
	Log             LogConfig
}

// CheckpointsFile returns the path checkpoints.json is read from, alongside
// the chain snapshot in the same data directory.
func (c *Config) CheckpointsFile() string {
	return filepath.Join(c.Storage.DataDir, "checkpoints.json")
}

// SnapshotFile returns the full path to the chain snapshot file.
func (c *Config) SnapshotFile() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.BlockchainFile)
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.kawchain
//	macOS:   ~/Library/Application Support/Kawchain
//	Windows: %APPDATA%\Kawchain
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kawchain"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Kawchain")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Kawchain")
		}
		return filepath.Join(home, "AppData", "Roaming", "Kawchain")
	default:
		return filepath.Join(home, ".kawchain")
	}
}
