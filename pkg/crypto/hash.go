// Package crypto provides cryptographic primitives for the kawchain core.
package crypto

import (
	"github.com/kawchain/core/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// AddressFromPubKey derives a canonical bech32 address from a compressed
// public key: address = bech32(hrp, BLAKE3(pubkey)[:20]).
func AddressFromPubKey(hrp string, pubKey []byte) (types.Address, error) {
	h := Hash(pubKey)
	return types.EncodeAddress(hrp, h[:types.AddressSize])
}

// HashConcat hashes the concatenation of two hashes. Used to build merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}

// MerkleRoot computes the merkle root of a list of hashes.
//
// Rule: empty input returns the zero hash; a single hash passes through
// unchanged; otherwise hashes are paired and combined layer by layer,
// duplicating the last hash of a layer with an odd count.
func MerkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.Hash{}
	}
	if len(hashes) == 1 {
		return hashes[0]
	}

	level := make([]types.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = HashConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}
