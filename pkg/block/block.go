// Package block defines the block type, merkle computation, and validation.
package block

import (
	"encoding/json"
	"math/big"

	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// Algorithm identifies which proof-of-work hash function sealed a block.
type Algorithm string

const (
	AlgoSHA256 Algorithm = "sha256"
	AlgoKawPow Algorithm = "kawpow"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a == AlgoSHA256 || a == AlgoKawPow
}

// Block is the flat, ordered unit of chain state.
type Block struct {
	Index        uint64
	Timestamp    int64 // milliseconds since epoch.
	PreviousHash types.Hash
	Transactions []*tx.Transaction
	Nonce        uint64
	Difficulty   uint64
	MerkleRoot   types.Hash
	Hash         types.Hash
	Algorithm    Algorithm
}

// blockJSON is the wire representation, with previousHash
// using the literal sentinel "0" for the genesis block instead of 64 zero
// hex characters.
type blockJSON struct {
	Index        uint64             `json:"index"`
	Timestamp    int64              `json:"timestamp"`
	Transactions []*tx.Transaction  `json:"transactions"`
	PreviousHash string             `json:"previousHash"`
	Nonce        uint64             `json:"nonce"`
	Difficulty   uint64             `json:"difficulty"`
	Hash         types.Hash         `json:"hash"`
	MerkleRoot   types.Hash         `json:"merkleRoot"`
	Algorithm    Algorithm          `json:"algorithm"`
}

// MarshalJSON encodes the block using the genesis previous-hash sentinel.
func (b *Block) MarshalJSON() ([]byte, error) {
	prev := b.PreviousHash.String()
	if b.Index == 0 {
		prev = types.GenesisPrevHashSentinel
	}
	return json.Marshal(blockJSON{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		PreviousHash: prev,
		Nonce:        b.Nonce,
		Difficulty:   b.Difficulty,
		Hash:         b.Hash,
		MerkleRoot:   b.MerkleRoot,
		Algorithm:    b.Algorithm,
	})
}

// UnmarshalJSON decodes a block, translating the genesis sentinel back to
// the zero hash.
func (b *Block) UnmarshalJSON(data []byte) error {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	b.Index = j.Index
	b.Timestamp = j.Timestamp
	b.Transactions = j.Transactions
	b.Nonce = j.Nonce
	b.Difficulty = j.Difficulty
	b.Hash = j.Hash
	b.MerkleRoot = j.MerkleRoot
	b.Algorithm = j.Algorithm
	if j.PreviousHash != "" && j.PreviousHash != types.GenesisPrevHashSentinel {
		h, err := types.HexToHash(j.PreviousHash)
		if err != nil {
			return err
		}
		b.PreviousHash = h
	}
	return nil
}

// maxUint256 is 2^256 - 1.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TargetFor computes floor((2^256-1) / max(1, difficulty)) as a 32-byte
// big-endian value.
func TargetFor(difficulty uint64) types.Hash {
	if difficulty == 0 {
		difficulty = 1
	}
	t := new(big.Int).Div(maxUint256, new(big.Int).SetUint64(difficulty))
	var out types.Hash
	t.FillBytes(out[:])
	return out
}

// MeetsTarget reports whether hash, read as a big-endian integer, is at or
// below the target for difficulty.
func MeetsTarget(hash types.Hash, difficulty uint64) bool {
	target := new(big.Int).SetBytes(TargetFor(difficulty).Bytes())
	h := new(big.Int).SetBytes(hash.Bytes())
	return h.Cmp(target) <= 0
}

// TxHashes returns the ordered hashes of the block's transactions.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.ID
	}
	return hashes
}
