// kawchaind is the thin process wrapper around the chain engine: it loads
// configuration, opens the in-memory UTXO store, restores state from the
// snapshot file if present, applies any genesis-payout address given on the
// command line, and then runs mempool/spam-limiter maintenance until
// signaled to stop, at which point it writes a fresh snapshot and exits.
//
// Usage:
//
//	kawchaind [--config=path] [--address=kaw1...]
//	kawchaind --help
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kawchain/core/config"
	"github.com/kawchain/core/internal/chain"
	"github.com/kawchain/core/internal/checkpoint"
	klog "github.com/kawchain/core/internal/log"
	"github.com/kawchain/core/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a kawchaind .conf file")
	address := flag.String("address", "", "genesis coinbase/premine payout address, if the chain has not been initialized yet")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.Chain

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.DataDir).Msg("failed to create data directory")
	}

	if *address != "" && cfg.Blockchain.Genesis.PremineAddress == "" {
		cfg.Blockchain.Genesis.PremineAddress = *address
	}

	params, err := cfg.ToChainParams()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	engine := chain.New(storage.NewMemory(), params, nil)
	snapshot := cfg.SnapshotFile()

	if _, statErr := os.Stat(snapshot); statErr == nil {
		if err := engine.LoadCheckpoints(cfg.CheckpointsFile()); err != nil {
			logger.Fatal().Err(err).Msg("failed to load checkpoints")
		}
		if err := engine.LoadFromFile(snapshot); err != nil {
			exitOnCheckpointViolation(err)
			logger.Fatal().Err(err).Str("path", snapshot).Msg("failed to load chain snapshot")
		}
		logger.Info().Uint64("height", engine.Height()).Msg("chain restored from snapshot")
	} else {
		if cfg.Blockchain.Genesis.PremineAddress == "" {
			logger.Fatal().Msg("no chain snapshot found and no genesis payout address given (--address)")
		}
		if err := engine.Initialize(cfg.CheckpointsFile()); err != nil {
			exitOnCheckpointViolation(err)
			logger.Fatal().Err(err).Msg("failed to initialize chain")
		}
		logger.Info().Uint64("height", engine.Height()).Msg("chain initialized from genesis")
	}

	logger.Info().
		Uint64("height", engine.Height()).
		Uint64("difficulty", engine.Difficulty()).
		Msg("kawchaind ready")

	done := make(chan struct{})
	go engine.RunMempoolMaintenance(done, time.Duration(cfg.BatchProcessing.CleanupInterval)*time.Second)
	go engine.RunSpamMaintenance(done, time.Duration(cfg.Memory.CPUProtection.CleanupInterval)*time.Second)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	close(done)

	if err := engine.SaveToFile(snapshot); err != nil {
		logger.Fatal().Err(err).Str("path", snapshot).Msg("failed to write chain snapshot")
	}
	logger.Info().Str("path", snapshot).Msg("chain snapshot written, exiting")
}

// exitOnCheckpointViolation terminates the process with exit code 1 when
// err wraps a checkpoint mismatch, the node's fail-stop trigger. The
// core library itself never calls os.Exit or terminates the process; only
// this binary type-asserts for the violation and does so.
func exitOnCheckpointViolation(err error) {
	var violation *checkpoint.ViolationError
	if errors.As(err, &violation) {
		fmt.Fprintf(os.Stderr, "checkpoint violation at height %d: expected %s, got %s\n",
			violation.Height, violation.Expected, violation.Actual)
		os.Exit(1)
	}
}
