package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile reads a .conf file: one "key = value" pair per line, "#" comments.
// A missing file yields an empty map, not an error.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		values[key] = value
	}
	return values, scanner.Err()
}

// ApplyFileConfig applies file values onto cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// Load reads path (if present) over Default(), returning the merged config.
func Load(path string) (*Config, error) {
	cfg := Default()
	values, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "blockchain.blockTime":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.BlockTime = n
	case "blockchain.coinbaseReward":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.CoinbaseReward = n
	case "blockchain.difficultyAlgorithm":
		cfg.Blockchain.DifficultyAlgorithm = value
	case "blockchain.difficultyBlocks":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.DifficultyBlocks = n
	case "blockchain.difficultyMinimum":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.DifficultyMinimum = n

	case "blockchain.genesis.timestamp":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.Genesis.Timestamp = n
	case "blockchain.genesis.difficulty":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.Genesis.Difficulty = n
	case "blockchain.genesis.premineAmount":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.Genesis.PremineAmount = n
	case "blockchain.genesis.premineAddress":
		cfg.Blockchain.Genesis.PremineAddress = value
	case "blockchain.genesis.nonce":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Blockchain.Genesis.Nonce = n
	case "blockchain.genesis.hash":
		cfg.Blockchain.Genesis.Hash = value
	case "blockchain.genesis.algorithm":
		cfg.Blockchain.Genesis.Algorithm = value
	case "blockchain.genesis.coinbaseNonce":
		cfg.Blockchain.Genesis.CoinbaseNonce = value
	case "blockchain.genesis.coinbaseAtomicSequence":
		cfg.Blockchain.Genesis.CoinbaseAtomicSequence = value

	case "spamProtection.maxTransactionsPerAddress":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.SpamProtection.MaxTransactionsPerAddress = n
	case "spamProtection.maxTransactionsPerMinute":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.SpamProtection.MaxTransactionsPerMinute = n
	case "spamProtection.addressBanDuration":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.SpamProtection.AddressBanDuration = n

	case "memory.maxMemoryUsage":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Memory.MaxMemoryUsageMiB = n
	case "memory.maxTransactionSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Memory.MaxTransactionSizeKiB = n
	case "memory.maxPoolSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Memory.MaxPoolSize = n
	case "memory.memoryThreshold":
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.Memory.MemoryThreshold = n
	case "memory.cpuProtection.enabled":
		cfg.Memory.CPUProtection.Enabled = parseBool(value)
	case "memory.cpuProtection.maxCpuUsage":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Memory.CPUProtection.MaxCPUUsage = n
	case "memory.cpuProtection.monitoringInterval":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Memory.CPUProtection.MonitoringInterval = n
	case "memory.cpuProtection.cleanupInterval":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Memory.CPUProtection.CleanupInterval = n

	case "batchProcessing.maxBatchSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.BatchProcessing.MaxBatchSize = n
	case "batchProcessing.maxTransactionsPerBatch":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.BatchProcessing.MaxTransactionsPerBatch = n
	case "batchProcessing.cleanupInterval":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.BatchProcessing.CleanupInterval = n

	case "wallet.minFee":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Wallet.MinFee = n

	case "storage.dataDir":
		cfg.Storage.DataDir = value
	case "storage.blockchainFile":
		cfg.Storage.BlockchainFile = value

	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored.
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a commented default configuration file to path.
func WriteDefaultConfig(path string) error {
	const content = `# kawchaind node configuration
#
# Protocol rules (block time, coinbase reward, difficulty retarget, genesis)
# are consensus-relevant: every node on the same chain must agree on them.

blockchain.blockTime = 60
blockchain.coinbaseReward = 50
blockchain.difficultyAlgorithm = sha256
blockchain.difficultyBlocks = 60
blockchain.difficultyMinimum = 1

blockchain.genesis.difficulty = 1
blockchain.genesis.algorithm = sha256

spamProtection.maxTransactionsPerAddress = 20
spamProtection.maxTransactionsPerMinute = 500
spamProtection.addressBanDuration = 600000

memory.maxMemoryUsage = 256
memory.maxTransactionSize = 64
memory.maxPoolSize = 5000
memory.memoryThreshold = 0.9
memory.cpuProtection.enabled = true
memory.cpuProtection.maxCpuUsage = 80
memory.cpuProtection.monitoringInterval = 10
memory.cpuProtection.cleanupInterval = 300

batchProcessing.maxBatchSize = 100
batchProcessing.maxTransactionsPerBatch = 100
batchProcessing.cleanupInterval = 300

wallet.minFee = 1

storage.dataDir = ` + DefaultDataDir() + `
storage.blockchainFile = chain.json

log.level = info
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
