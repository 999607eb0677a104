// Package engineapi declares the contract the chain engine exposes to an
// out-of-process RPC/P2P collaborator. Neither collaborator is
// implemented here — this package only pins the shape *chain.Chain must
// keep satisfying so that surface can be built against a stable interface.
package engineapi

import (
	"github.com/kawchain/core/internal/checkpoint"
	"github.com/kawchain/core/internal/chain"
	"github.com/kawchain/core/internal/utxo"
	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// Engine is every operation an RPC/P2P surface is allowed to drive. It is
// satisfied by *chain.Chain; a server package built against this interface
// can be tested against a fake without touching the real engine.
type Engine interface {
	Status() chain.Status
	Height() uint64
	Tip() *block.Block
	GetBlock(index uint64) *block.Block
	GetBlocks(limit int) []*block.Block
	GetTotalSupply() uint64

	GetBalance(addr types.Address) (uint64, error)
	GetUTXOs(addr types.Address) ([]*utxo.UTXO, error)

	AddPendingTransaction(t *tx.Transaction, now int64) error
	AddTransactionBatch(txs []*tx.Transaction, now int64) []error
	GetPendingTransactions() []*tx.Transaction
	CreateTransaction(from, to types.Address, amount, fee uint64, now int64) (*tx.Transaction, error)

	AddBlock(b *block.Block, skipValidation bool, now int64) error

	IsValidChain(now int64) error
	IsValidChainFast() error
	IsValidChainUltraFast() error

	ClearChain()
	SaveToFile(path string) error
	LoadFromFile(path string) error

	AddCheckpoint(cp checkpoint.Checkpoint) error
	UpdateCheckpoint(cp checkpoint.Checkpoint) error
	RemoveCheckpoint(height uint64) error
	GetCheckpoint(height uint64) (checkpoint.Checkpoint, bool)
	ListCheckpoints() []checkpoint.Checkpoint
	ClearCheckpoints()

	ReplayStats() int
}

var _ Engine = (*chain.Chain)(nil)
