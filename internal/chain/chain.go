// Package chain implements the append-only blockchain state machine: tip
// management, block admission, difficulty adjustment, and coordination of
// the UTXO ledger, mempool, spam protection, replay index, and checkpoint
// manager that sit behind it.
package chain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kawchain/core/internal/checkpoint"
	"github.com/kawchain/core/internal/log"
	"github.com/kawchain/core/internal/mempool"
	"github.com/kawchain/core/internal/replay"
	"github.com/kawchain/core/internal/spam"
	"github.com/kawchain/core/internal/storage"
	"github.com/kawchain/core/internal/utxo"
	"github.com/kawchain/core/internal/validation"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// Chain engine errors.
var (
	ErrAlreadyInitialized  = errors.New("chain: already initialized")
	ErrDuplicateBlock      = errors.New("chain: block hash already present")
	ErrLinkageMismatch     = errors.New("chain: previous_hash does not match current tip")
	ErrInsufficientBalance = errors.New("chain: insufficient balance")
	ErrReservedTag         = errors.New("chain: tag is reserved, user transactions must use TRANSACTION")
	ErrLockTimeout         = errors.New("chain: failed to acquire transaction lock")
	ErrReplayDetected      = errors.New("chain: transaction replays committed state")
)

// Params carries the subset of chain configuration the engine needs,
// decoupling this package from the config package the way pkg/tx.Params and
// internal/validation.Params already do.
type Params struct {
	BlockTime            int64 // seconds, LWMA target inter-block time.
	CoinbaseReward       uint64
	DifficultyBlocks     uint64
	DifficultyMinimum    uint64
	MaxBlockSize         int
	MinFee               uint64
	MaxPoolSize          int
	MaxMemoryBytes       int
	MaxTxPerAddress      int
	MaxTxPerMinute       int
	AddressBanDurationMS int64
	LockTimeout          time.Duration
	Genesis              GenesisParams
	Validation           validation.Params
}

// Chain is the single-writer blockchain engine. All mutating operations
// flow through it; it exclusively owns the chain slice, the UTXO ledger,
// the mempool, spam state, the replay index, and the checkpoint set.
type Chain struct {
	mu sync.Mutex

	params     Params
	blocks     []*block.Block
	difficulty uint64

	utxos       *utxo.Store
	pool        *mempool.Pool
	spamLimiter *spam.Limiter
	replayIdx   *replay.Index
	checkpoints *checkpoint.Manager
	validator   *validation.Validator
	kawpow      block.KawPowHasher
	locks       *lockManager
}

// New constructs a chain engine over db. kawpow may be nil; only KawPow
// blocks in full-validation mode require it.
func New(db storage.DB, params Params, kawpow block.KawPowHasher) *Chain {
	if params.LockTimeout <= 0 {
		params.LockTimeout = DefaultLockTimeout
	}
	params.Validation.CoinbaseReward = params.CoinbaseReward
	return &Chain{
		params:      params,
		difficulty:  params.Genesis.Difficulty,
		utxos:       utxo.NewStore(db),
		pool:        mempool.New(params.MaxPoolSize, params.MaxMemoryBytes),
		spamLimiter: spam.New(params.MaxTxPerAddress, params.MaxTxPerMinute, 60*1000, params.AddressBanDurationMS),
		replayIdx:   replay.New(),
		checkpoints: checkpoint.New(),
		validator:   validation.New(params.Validation, kawpow),
		kawpow:      kawpow,
		locks:       newLockManager(),
	}
}

// Initialize bootstraps the chain: if it is empty, a genesis block is
// constructed from params.Genesis and its payout applied to the UTXO
// ledger. Checkpoints are then loaded from checkpointsPath (if non-empty)
// and validated against the chain; a mismatch refuses startup.
func (c *Chain) Initialize(checkpointsPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		g, err := CreateGenesisBlock(c.params.Genesis, c.kawpow)
		if err != nil {
			return fmt.Errorf("create genesis: %w", err)
		}
		if err := c.utxos.ApplyBlock(g); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		c.blocks = append(c.blocks, g)
		if c.difficulty == 0 {
			c.difficulty = g.Difficulty
		}
		log.Chain.Info().Uint64("difficulty", g.Difficulty).Str("hash", g.Hash.String()).Msg("genesis block created")
	}

	if checkpointsPath != "" {
		mgr, err := checkpoint.Load(checkpointsPath)
		if err != nil {
			return fmt.Errorf("load checkpoints: %w", err)
		}
		c.checkpoints = mgr
	}

	if err := c.checkpoints.Validate(c.blocks); err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}
	return nil
}

// AddBlock validates and appends b. When skipValidation is false, full
// full validation runs; otherwise only structural and linkage checks run.
// On success the UTXO ledger is updated, included transactions are pruned
// from the mempool, the replay index records the block, and difficulty is
// recomputed. A checkpoint mismatch at b.Index is fatal and returned as a
// *checkpoint.ViolationError without mutating any state.
func (c *Chain) AddBlock(b *block.Block, skipValidation bool, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.blocks {
		if existing.Hash == b.Hash {
			return ErrDuplicateBlock
		}
	}

	var tip *block.Block
	if len(c.blocks) > 0 {
		tip = c.blocks[len(c.blocks)-1]
	}

	if skipValidation {
		if err := c.validator.Fast(b, tip); err != nil {
			return err
		}
	} else {
		if err := c.validator.Full(b, tx.Params{MinFee: c.params.MinFee, Now: now}, tip, now); err != nil {
			return err
		}
		if b.Index != 0 {
			if tip == nil || b.PreviousHash != tip.Hash || b.Index != tip.Index+1 {
				return ErrLinkageMismatch
			}
		}
	}

	if err := c.checkpoints.CheckAt(b.Index, b.Hash, b.Timestamp); err != nil {
		return err
	}

	if err := c.utxos.ApplyBlock(b); err != nil {
		return fmt.Errorf("apply block to utxo ledger: %w", err)
	}
	c.blocks = append(c.blocks, b)
	c.pool.RemoveIncluded(b)
	c.replayIdx.Record(b)
	c.adjustDifficulty()

	log.Chain.Info().Uint64("index", b.Index).Int("txs", len(b.Transactions)).Msg("block added")
	return nil
}

// randomToken returns a hex-encoded random token, used for transaction
// nonces and atomic-sequence values the engine generates on the caller's
// behalf.
func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateTransaction selects from's UTXOs in deterministic order until their
// sum covers amount+fee, builds an output to `to` plus a change output back
// to `from` if any remains, and returns an unsigned, unfrozen draft
// transaction — signing is left to the wallet/signer collaborator, which
// must call Sign before ComputeID freezes it.
func (c *Chain) CreateTransaction(from, to types.Address, amount, fee uint64, now int64) (*tx.Transaction, error) {
	c.mu.Lock()
	utxos, err := c.utxos.UTXOsOf(from)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list utxos for %s: %w", from, err)
	}
	sort.Slice(utxos, func(i, j int) bool {
		a, b := utxos[i].Outpoint, utxos[j].Outpoint
		if a.TxID != b.TxID {
			return a.TxID.String() < b.TxID.String()
		}
		return a.OutputIndex < b.OutputIndex
	})

	need := amount + fee
	var selected []*utxo.UTXO
	var sum uint64
	for _, u := range utxos {
		if sum >= need {
			break
		}
		selected = append(selected, u)
		sum += u.Amount
	}
	if sum < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sum, need)
	}

	inputs := make([]tx.Input, len(selected))
	for i, u := range selected {
		inputs[i] = tx.Input{PrevTxID: u.Outpoint.TxID, OutputIndex: u.Outpoint.OutputIndex}
	}
	outputs := []tx.Output{{Address: to, Amount: amount}}
	if change := sum - need; change > 0 {
		outputs = append(outputs, tx.Output{Address: from, Amount: change})
	}

	nonce, err := randomToken()
	if err != nil {
		return nil, err
	}
	atomicSeq, err := randomToken()
	if err != nil {
		return nil, err
	}

	return tx.New(inputs, outputs, fee, tx.TagTransaction, now, nonce, atomicSeq), nil
}

// AddPendingTransaction acquires the per-id transaction lock, checks the
// committed-state replay index, and delegates admission to the mempool.
func (c *Chain) AddPendingTransaction(t *tx.Transaction, now int64) error {
	release, ok := c.locks.acquire(t.ID, c.params.LockTimeout)
	if !ok {
		return ErrLockTimeout
	}
	defer release()

	if !t.IsCoinbase && c.replayIdx.IsReplay(t) {
		return ErrReplayDetected
	}

	params := tx.Params{MinFee: c.params.MinFee, Now: now}
	return c.pool.Add(t, params, c.spamLimiter, c.replayIdx)
}

// ClearChain resets all engine state. Testing only.
func (c *Chain) ClearChain() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks = nil
	c.difficulty = c.params.Genesis.Difficulty
	_ = c.utxos.Clear()
	c.pool = mempool.New(c.params.MaxPoolSize, c.params.MaxMemoryBytes)
	c.replayIdx = replay.New()
	c.checkpoints = checkpoint.New()
	c.locks = newLockManager()
}

// GetTotalSupply returns len(chain) × coinbase_reward, the coarse estimate
// blocks mined so far (premine and fees are not separately counted).
func (c *Chain) GetTotalSupply() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.blocks)) * c.params.CoinbaseReward
}

// Status is the coarse health summary an RPC collaborator polls.
type Status struct {
	Height          uint64
	Difficulty      uint64
	TipHash         types.Hash
	PendingCount    int
	ReplayIndexSize int
}

// Status reports the engine's current height, difficulty, tip, and pool size.
func (c *Chain) Status() Status {
	c.mu.Lock()
	var tip types.Hash
	var height uint64
	if len(c.blocks) > 0 {
		last := c.blocks[len(c.blocks)-1]
		tip = last.Hash
		height = last.Index
	}
	difficulty := c.difficulty
	replaySize := c.replayIdx.Len()
	c.mu.Unlock()

	return Status{
		Height:          height,
		Difficulty:      difficulty,
		TipHash:         tip,
		PendingCount:    c.pool.Count(),
		ReplayIndexSize: replaySize,
	}
}

// AddTransactionBatch admits each transaction in order, collecting one
// error per index; a failure for one transaction does not block the rest.
func (c *Chain) AddTransactionBatch(txs []*tx.Transaction, now int64) []error {
	errs := make([]error, len(txs))
	for i, t := range txs {
		errs[i] = c.AddPendingTransaction(t, now)
	}
	return errs
}

// LoadCheckpoints replaces the engine's checkpoint set with the one parsed
// from path, for callers that need checkpoints in place before LoadFromFile
// validates a restored chain against them.
func (c *Chain) LoadCheckpoints(path string) error {
	mgr, err := checkpoint.Load(path)
	if err != nil {
		return fmt.Errorf("load checkpoints: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoints = mgr
	return nil
}

// AddCheckpoint registers a trusted (height, hash) assertion.
func (c *Chain) AddCheckpoint(cp checkpoint.Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoints.Add(cp)
}

// UpdateCheckpoint replaces the checkpoint at cp.Height.
func (c *Chain) UpdateCheckpoint(cp checkpoint.Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoints.Update(cp)
}

// RemoveCheckpoint drops the checkpoint at height.
func (c *Chain) RemoveCheckpoint(height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoints.Remove(height)
}

// GetCheckpoint returns the checkpoint at height, if any.
func (c *Chain) GetCheckpoint(height uint64) (checkpoint.Checkpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoints.Get(height)
}

// ListCheckpoints returns every registered checkpoint.
func (c *Chain) ListCheckpoints() []checkpoint.Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoints.All()
}

// ClearCheckpoints removes every registered checkpoint.
func (c *Chain) ClearCheckpoints() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoints.Clear()
}

// Height returns the index of the current tip.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) == 0 {
		return 0
	}
	return c.blocks[len(c.blocks)-1].Index
}

// Difficulty returns the current mining difficulty.
func (c *Chain) Difficulty() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.difficulty
}

// Tip returns the current tip block, or nil if the chain is empty.
func (c *Chain) Tip() *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// GetBlock returns the block at index, or nil if out of range.
func (c *Chain) GetBlock(index uint64) *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= uint64(len(c.blocks)) {
		return nil
	}
	return c.blocks[index]
}

// GetBlocks returns up to limit blocks, most recent first.
func (c *Chain) GetBlocks(limit int) []*block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.blocks)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*block.Block, limit)
	for i := 0; i < limit; i++ {
		out[i] = c.blocks[n-1-i]
	}
	return out
}

// GetBalance returns addr's confirmed UTXO balance. The UTXO store is not
// itself safe for concurrent access, so this takes the same engine lock
// AddBlock does rather than reading through unsynchronized.
func (c *Chain) GetBalance(addr types.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utxos.Balance(addr)
}

// GetUTXOs returns addr's unspent outputs.
func (c *Chain) GetUTXOs(addr types.Address) ([]*utxo.UTXO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utxos.UTXOsOf(addr)
}

// GetPendingTransactions returns every transaction currently in the mempool.
func (c *Chain) GetPendingTransactions() []*tx.Transaction {
	return c.pool.All()
}

// ReplayStats reports the size of the committed-transaction replay set, for
// RPC/observability consumers as replay-protection stats.
func (c *Chain) ReplayStats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replayIdx.Len()
}

// IsValidChain re-validates every block in full mode, in order.
func (c *Chain) IsValidChain(now int64) error {
	c.mu.Lock()
	blocks := append([]*block.Block{}, c.blocks...)
	c.mu.Unlock()

	for i, b := range blocks {
		if i == 0 {
			continue
		}
		if err := c.validator.Full(b, tx.Params{MinFee: c.params.MinFee, Now: now}, blocks[i-1], now); err != nil {
			return fmt.Errorf("block %d: %w", b.Index, err)
		}
	}
	return nil
}

// IsValidChainFast re-validates every block's structure and linkage only.
func (c *Chain) IsValidChainFast() error {
	c.mu.Lock()
	blocks := append([]*block.Block{}, c.blocks...)
	c.mu.Unlock()

	var prev *block.Block
	for _, b := range blocks {
		if err := c.validator.Fast(b, prev); err != nil {
			return fmt.Errorf("block %d: %w", b.Index, err)
		}
		prev = b
	}
	return nil
}

// IsValidChainUltraFast re-validates every block's linkage only.
func (c *Chain) IsValidChainUltraFast() error {
	c.mu.Lock()
	blocks := append([]*block.Block{}, c.blocks...)
	c.mu.Unlock()

	var prev *block.Block
	for _, b := range blocks {
		if err := c.validator.UltraFast(b, prev); err != nil {
			return fmt.Errorf("block %d: %w", b.Index, err)
		}
		prev = b
	}
	return nil
}

// RunMempoolMaintenance periodically enforces pool bounds and drops expired
// transactions. Call in a goroutine; stops when done is closed. The pool
// guards itself, so this runs without c.mu.
func (c *Chain) RunMempoolMaintenance(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.pool.Manage()
			c.pool.CleanupExpired(time.Now().UnixMilli())
		}
	}
}

// RunSpamMaintenance periodically prunes the spam limiter's per-sender
// state. Call in a goroutine; stops when done is closed. The limiter
// guards itself, so this runs without c.mu.
func (c *Chain) RunSpamMaintenance(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.spamLimiter.Cleanup(time.Now().UnixMilli())
		}
	}
}
