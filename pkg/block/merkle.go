package block

import (
	"github.com/kawchain/core/pkg/crypto"
	"github.com/kawchain/core/pkg/types"
)

// ComputeMerkleRoot calculates the merkle root of an ordered list of
// transaction hashes (see crypto.MerkleRoot for the algorithm).
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	return crypto.MerkleRoot(txHashes)
}
