package chain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kawchain/core/internal/mempool"
	"github.com/kawchain/core/internal/replay"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
)

// historicalEntry mirrors one [key, record] pair of the snapshot's
// historicalTransactions map, persisted as a list of pairs since JSON object
// keys cannot hold the (nonce, sender) composite key directly.
type historicalEntry struct {
	Key    string        `json:"key"`
	Record replay.Record `json:"record"`
}

// snapshotJSON is the exact wire shape of the on-disk snapshot file.
type snapshotJSON struct {
	Chain                    []*block.Block    `json:"chain"`
	Difficulty               uint64            `json:"difficulty"`
	MiningReward             uint64            `json:"miningReward"`
	BlockTime                int64             `json:"blockTime"`
	PendingTransactions      []*tx.Transaction `json:"pendingTransactions"`
	HistoricalTransactions   []historicalEntry `json:"historicalTransactions"`
	HistoricalTransactionIDs []string          `json:"historicalTransactionIds"`
}

// SaveToFile writes the chain, difficulty, mining reward, block time,
// mempool contents, and replay index to path as JSON.
func (c *Chain) SaveToFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.replayIdx.Records()
	entries := make([]historicalEntry, len(records))
	for i, r := range records {
		entries[i] = historicalEntry{Key: r.Nonce + ":" + r.SenderAddress, Record: r}
	}
	ids := c.replayIdx.TxIDs()
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	snap := snapshotJSON{
		Chain:                    c.blocks,
		Difficulty:               c.difficulty,
		MiningReward:             c.params.CoinbaseReward,
		BlockTime:                c.params.BlockTime,
		PendingTransactions:      c.pool.All(),
		HistoricalTransactions:   entries,
		HistoricalTransactionIDs: idStrs,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadFromFile restores chain state from path: the block list, difficulty,
// and mempool are replaced verbatim, the UTXO ledger is rebuilt by
// replaying the loaded chain, the replay index is rebuilt from the loaded
// chain (the persisted historical entries are informational only — a replay
// from the chain itself is authoritative and self-consistent), and
// checkpoint validation runs last, refusing the load on any mismatch.
func (c *Chain) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshotJSON
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.utxos.Clear(); err != nil {
		return fmt.Errorf("clear utxo ledger before reload: %w", err)
	}
	for _, b := range snap.Chain {
		if err := c.utxos.ApplyBlock(b); err != nil {
			return fmt.Errorf("rebuild utxo ledger at block %d: %w", b.Index, err)
		}
	}

	c.blocks = snap.Chain
	c.difficulty = snap.Difficulty
	if snap.MiningReward > 0 {
		c.params.CoinbaseReward = snap.MiningReward
	}
	if snap.BlockTime > 0 {
		c.params.BlockTime = snap.BlockTime
	}

	c.pool = mempool.New(c.params.MaxPoolSize, c.params.MaxMemoryBytes)
	c.pool.LoadAll(snap.PendingTransactions)
	c.replayIdx = replay.New()
	c.replayIdx.Rebuild(c.blocks)

	if err := c.checkpoints.Validate(c.blocks); err != nil {
		return fmt.Errorf("refusing to load: %w", err)
	}
	return nil
}
