package config

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Blockchain: BlockchainConfig{
			BlockTime:           60,
			CoinbaseReward:      50,
			DifficultyAlgorithm: "sha256",
			DifficultyBlocks:    60,
			DifficultyMinimum:   1,
			Genesis: GenesisConfig{
				Difficulty: 1,
				Algorithm:  "sha256",
			},
		},
		SpamProtection: SpamProtectionConfig{
			MaxTransactionsPerAddress: 20,
			MaxTransactionsPerMinute:  500,
			AddressBanDuration:        10 * 60 * 1000,
		},
		Memory: MemoryConfig{
			MaxMemoryUsageMiB:     256,
			MaxTransactionSizeKiB: 64,
			MaxPoolSize:           5000,
			MemoryThreshold:       0.9,
			CPUProtection: CPUProtectionConfig{
				Enabled:            true,
				MaxCPUUsage:        80,
				MonitoringInterval: 10,
				CleanupInterval:    300,
			},
		},
		BatchProcessing: BatchProcessingConfig{
			MaxBatchSize:            100,
			MaxTransactionsPerBatch: 100,
			CleanupInterval:         300,
		},
		Wallet: WalletConfig{
			MinFee: 1,
		},
		Storage: StorageConfig{
			DataDir:        DefaultDataDir(),
			BlockchainFile: "chain.json",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
