package chain

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kawchain/core/internal/checkpoint"
	"github.com/kawchain/core/internal/storage"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/crypto"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

func testParams(addr types.Address) Params {
	return Params{
		BlockTime:            60,
		CoinbaseReward:       50,
		DifficultyBlocks:     10,
		DifficultyMinimum:    1,
		MaxBlockSize:         1 << 20,
		MinFee:               0,
		MaxPoolSize:          1000,
		MaxMemoryBytes:       1 << 20,
		MaxTxPerAddress:      100,
		MaxTxPerMinute:       1000,
		AddressBanDurationMS: 60000,
		Genesis: GenesisParams{
			Timestamp:      1700000000000,
			Difficulty:     1,
			PremineAddress: addr,
			Algorithm:      block.AlgoSHA256,
		},
	}
}

func newTestChain(t *testing.T) (*Chain, types.Address) {
	t.Helper()
	addr := types.Address("kaw1genesis")
	c := New(storage.NewMemory(), testParams(addr), nil)
	if err := c.Initialize(""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, addr
}

func mineNext(t *testing.T, c *Chain, txs []*tx.Transaction, timestamp int64) *block.Block {
	t.Helper()
	tip := c.Tip()
	ids := make([]types.Hash, len(txs))
	for i, tr := range txs {
		ids[i] = tr.ID
	}
	b := &block.Block{
		Index:        tip.Index + 1,
		Timestamp:    timestamp,
		PreviousHash: tip.Hash,
		Transactions: txs,
		Difficulty:   c.Difficulty(),
		MerkleRoot:   block.ComputeMerkleRoot(ids),
		Algorithm:    block.AlgoSHA256,
	}
	if err := b.Seal(nil); err != nil {
		t.Fatalf("seal block: %v", err)
	}
	return b
}

func coinbase(t *testing.T, to types.Address, amount uint64, timestamp int64) *tx.Transaction {
	t.Helper()
	c := tx.New(nil, []tx.Output{{Address: to, Amount: amount}}, 0, tx.TagCoinbase, timestamp, "", "")
	c.ComputeID()
	return c
}

func TestInitialize_CreatesGenesisAndAppliesPayout(t *testing.T) {
	c, addr := newTestChain(t)
	if c.Height() != 0 {
		t.Fatalf("expected height 0, got %d", c.Height())
	}
	bal, err := c.GetBalance(addr)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 0 {
		t.Fatalf("genesis coinbase had zero amount, expected balance 0, got %d", bal)
	}
}

func TestAddBlock_ExtendsTipAndUpdatesUTXOs(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)

	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatalf("add block: %v", err)
	}
	if c.Height() != 1 {
		t.Fatalf("expected height 1, got %d", c.Height())
	}
	bal, err := c.GetBalance(miner)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 50 {
		t.Fatalf("expected balance 50, got %d", bal)
	}
}

func TestAddBlock_RejectsDuplicateHash(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}
	if err := c.AddBlock(b, false, 1700000060000); !errors.Is(err, ErrDuplicateBlock) {
		t.Fatalf("expected ErrDuplicateBlock, got %v", err)
	}
}

func TestAddBlock_RejectsBrokenLinkage(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	b.PreviousHash = types.Hash{0x42}
	if err := b.Seal(nil); err != nil {
		t.Fatal(err)
	}
	if err := c.AddBlock(b, false, 1700000060000); err == nil {
		t.Fatal("expected linkage error")
	}
}

func TestCreateTransaction_SelectsUTXOsAndReturnsUnsigned(t *testing.T) {
	c, _ := newTestChain(t)
	sender := types.Address("kaw1sender")
	recipient := types.Address("kaw1recipient")

	cb := coinbase(t, sender, 100, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}

	draft, err := c.CreateTransaction(sender, recipient, 40, 1, 1700000070000)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if draft.Frozen() {
		t.Fatal("expected draft transaction to be unfrozen")
	}
	if len(draft.Outputs) != 2 {
		t.Fatalf("expected payout + change outputs, got %d", len(draft.Outputs))
	}
	var total uint64
	for _, out := range draft.Outputs {
		total += out.Amount
	}
	if total+draft.Fee != 100 {
		t.Fatalf("expected outputs+fee to account for 100, got %d", total+draft.Fee)
	}
}

func TestCreateTransaction_InsufficientBalance(t *testing.T) {
	c, _ := newTestChain(t)
	sender := types.Address("kaw1sender")
	if _, err := c.CreateTransaction(sender, types.Address("kaw1x"), 10, 0, 1700000070000); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestAddPendingTransaction_RejectsReplay(t *testing.T) {
	c, _ := newTestChain(t)
	sender := types.Address("kaw1sender")
	recipient := types.Address("kaw1recipient")

	cb := coinbase(t, sender, 100, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}

	draft, err := c.CreateTransaction(sender, recipient, 10, 1, 1700000070000)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := draft.Sign(priv); err != nil {
		t.Fatal(err)
	}
	draft.ComputeID()
	if err := c.AddPendingTransaction(draft, 1700000070000); err != nil {
		t.Fatalf("first admission: %v", err)
	}

	cb2 := coinbase(t, types.Address("kaw1miner"), 51, 1700000130000)
	b2 := mineNext(t, c, []*tx.Transaction{cb2, draft}, 1700000130000)
	if err := c.AddBlock(b2, false, 1700000130000); err != nil {
		t.Fatalf("include in block: %v", err)
	}

	if err := c.AddPendingTransaction(draft, 1700000140000); !errors.Is(err, ErrReplayDetected) {
		t.Fatalf("expected ErrReplayDetected, got %v", err)
	}
}

func TestGetTotalSupply_ScalesWithHeight(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}
	if got := c.GetTotalSupply(); got != 100 {
		t.Fatalf("expected supply 2*50=100, got %d", got)
	}
}

func TestSaveThenLoadFromFile_RoundTrips(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "chain.json")
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	addr := types.Address("kaw1genesis")
	loaded := New(storage.NewMemory(), testParams(addr), nil)
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Height() != 1 {
		t.Fatalf("expected height 1 after load, got %d", loaded.Height())
	}
	bal, err := loaded.GetBalance(miner)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 50 {
		t.Fatalf("expected rebuilt utxo balance 50, got %d", bal)
	}
}

func TestClearChain_ResetsState(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}
	c.ClearChain()
	if c.Height() != 0 || c.Tip() != nil {
		t.Fatal("expected clear to reset the chain")
	}
}

func TestLoadCheckpoints_AppliesSetBeforeRestore(t *testing.T) {
	c, _ := newTestChain(t)
	tip := c.Tip()

	mgr := checkpoint.New()
	if err := mgr.Add(checkpoint.Checkpoint{Height: tip.Index, Hash: tip.Hash}); err != nil {
		t.Fatalf("add checkpoint: %v", err)
	}
	path := filepath.Join(t.TempDir(), "checkpoints.json")
	if err := mgr.Save(path); err != nil {
		t.Fatalf("save checkpoints: %v", err)
	}

	if err := c.LoadCheckpoints(path); err != nil {
		t.Fatalf("load checkpoints: %v", err)
	}
	loaded := c.ListCheckpoints()
	if len(loaded) != 1 || loaded[0].Height != tip.Index || loaded[0].Hash != tip.Hash {
		t.Fatalf("expected the saved checkpoint to be loaded, got %+v", loaded)
	}
}

func TestLoadCheckpoints_MissingFileYieldsEmptySet(t *testing.T) {
	c, _ := newTestChain(t)
	if err := c.LoadCheckpoints(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("expected a missing checkpoints file to load as empty, got %v", err)
	}
	if got := c.ListCheckpoints(); len(got) != 0 {
		t.Fatalf("expected no checkpoints, got %+v", got)
	}
}

func TestRunMempoolMaintenance_PrunesExpiredTransactions(t *testing.T) {
	c, _ := newTestChain(t)
	expired := coinbase(t, types.Address("kaw1miner"), 50, 1700000000000)
	expired.ExpiresAt = 1700000000001 // long past by the time this test runs.
	c.pool.LoadAll([]*tx.Transaction{expired})

	done := make(chan struct{})
	go c.RunMempoolMaintenance(done, time.Millisecond)
	defer close(done)

	deadline := time.Now().Add(time.Second)
	for c.pool.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.pool.Count() != 0 {
		t.Fatalf("expected maintenance to prune the expired transaction, pool has %d", c.pool.Count())
	}
}

func TestRunSpamMaintenance_PrunesExpiredBans(t *testing.T) {
	c, _ := newTestChain(t)
	for i := 0; i < 1000; i++ {
		c.spamLimiter.Allow("kaw1spammer", 1700000000000)
	}
	if !c.spamLimiter.IsBanned("kaw1spammer", 1700000000000) {
		t.Fatal("expected sender to be banned after exceeding the rate")
	}

	done := make(chan struct{})
	go c.RunSpamMaintenance(done, time.Millisecond)
	defer close(done)

	future := time.Now().Add(48 * time.Hour).UnixMilli()
	deadline := time.Now().Add(time.Second)
	for c.spamLimiter.IsBanned("kaw1spammer", future) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.spamLimiter.IsBanned("kaw1spammer", future) {
		t.Fatal("expected maintenance to clear the expired ban")
	}
}

func TestIsValidChainUltraFast_AcceptsLinkedChain(t *testing.T) {
	c, _ := newTestChain(t)
	miner := types.Address("kaw1miner")
	cb := coinbase(t, miner, 50, 1700000060000)
	b := mineNext(t, c, []*tx.Transaction{cb}, 1700000060000)
	if err := c.AddBlock(b, false, 1700000060000); err != nil {
		t.Fatal(err)
	}
	if err := c.IsValidChainUltraFast(); err != nil {
		t.Fatalf("expected valid chain, got %v", err)
	}
}
