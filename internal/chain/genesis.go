package chain

import (
	"fmt"

	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// GenesisMaxMiningDifficulty is the effective difficulty cap used only when
// a fresh genesis block must be sealed locally: for index 0, the effective
// difficulty is capped at 1000 for mining purposes only.
const GenesisMaxMiningDifficulty = 1000

// GenesisParams configures the genesis block, mirroring the
// blockchain.genesis.* configuration keys.
type GenesisParams struct {
	Timestamp              int64
	Difficulty             uint64
	PremineAmount          uint64
	PremineAddress         types.Address
	Nonce                  uint64
	Hash                   types.Hash // if non-zero, used directly instead of recomputed.
	Algorithm              block.Algorithm
	CoinbaseNonce          string
	CoinbaseAtomicSequence string
}

// DefaultGenesisParams returns the genesis configuration used when
// blockchain.genesis is absent from configuration.
func DefaultGenesisParams() GenesisParams {
	return GenesisParams{
		Timestamp:  0,
		Difficulty: 1,
		Algorithm:  block.AlgoSHA256,
	}
}

// CreateGenesisBlock builds the genesis block: its sole transaction is a
// coinbase (no premine configured) or premine (premine amount/address
// configured) payout, and its hash is either taken verbatim from
// configuration or computed with kawpow/sha256 as appropriate.
func CreateGenesisBlock(p GenesisParams, kawpow block.KawPowHasher) (*block.Block, error) {
	algo := p.Algorithm
	if algo == "" {
		algo = block.AlgoSHA256
	}

	tag := tx.TagCoinbase
	var outAddr types.Address
	var outAmount uint64
	if p.PremineAmount > 0 {
		if p.PremineAddress.IsZero() {
			return nil, fmt.Errorf("chain: premine amount configured without premine address")
		}
		tag = tx.TagPremine
		outAddr = p.PremineAddress
		outAmount = p.PremineAmount
	} else {
		outAddr = p.PremineAddress
		if outAddr.IsZero() {
			return nil, fmt.Errorf("chain: genesis requires a premine or coinbase payout address")
		}
	}

	genesisTx := tx.New(nil, []tx.Output{{Address: outAddr, Amount: outAmount}}, 0, tag, p.Timestamp, p.CoinbaseNonce, p.CoinbaseAtomicSequence)
	genesisTx.ComputeID()

	difficulty := p.Difficulty
	if difficulty == 0 {
		difficulty = 1
	}

	b := &block.Block{
		Index:        0,
		Timestamp:    p.Timestamp,
		PreviousHash: types.Hash{},
		Transactions: []*tx.Transaction{genesisTx},
		Nonce:        p.Nonce,
		Difficulty:   difficulty,
		MerkleRoot:   block.ComputeMerkleRoot([]types.Hash{genesisTx.ID}),
		Algorithm:    algo,
	}

	if !p.Hash.IsZero() {
		b.Hash = p.Hash
		return b, nil
	}

	h, err := b.ComputeHash(kawpow)
	if err != nil {
		return nil, fmt.Errorf("compute genesis hash: %w", err)
	}
	b.Hash = h
	return b, nil
}
