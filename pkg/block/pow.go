package block

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/kawchain/core/pkg/types"
)

// ErrKawPowUnavailable is returned by the default KawPowHasher, which has no
// real hashing collaborator wired in. A node binary is expected to install a
// real implementation before accepting KawPow-sealed blocks.
var ErrKawPowUnavailable = errors.New("block: kawpow hashing collaborator not configured")

// KawPowHasher is the black-box collaborator contract for the KawPow
// algorithm: given the inputs that seed a block's proof of work, it returns
// the expected hash. The core never implements KawPow itself.
type KawPowHasher interface {
	Hash(index uint64, previousHash types.Hash, nonce uint64) (types.Hash, error)
}

// stubKawPowHasher is installed by default and always fails, making it
// impossible to silently accept a KawPow block without a real collaborator.
type stubKawPowHasher struct{}

func (stubKawPowHasher) Hash(uint64, types.Hash, uint64) (types.Hash, error) {
	return types.Hash{}, ErrKawPowUnavailable
}

// headerPreimage returns the canonical bytes hashed to produce a block's
// proof-of-work hash under the SHA-256 algorithm.
func (b *Block) headerPreimage() []byte {
	buf := make([]byte, 0, 8+8+types.HashSize+types.HashSize+8+8)
	buf = binary.LittleEndian.AppendUint64(buf, b.Index)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Timestamp))
	buf = append(buf, b.PreviousHash[:]...)
	buf = append(buf, b.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, b.Nonce)
	buf = binary.LittleEndian.AppendUint64(buf, b.Difficulty)
	return buf
}

// ComputeHash derives the block's proof-of-work hash for its Algorithm.
// For sha256 this is computed directly; for kawpow it is delegated to the
// supplied collaborator (nil uses the always-failing stub).
func (b *Block) ComputeHash(kawpow KawPowHasher) (types.Hash, error) {
	switch b.Algorithm {
	case AlgoSHA256:
		sum := sha256.Sum256(b.headerPreimage())
		return types.Hash(sum), nil
	case AlgoKawPow:
		if kawpow == nil {
			kawpow = stubKawPowHasher{}
		}
		return kawpow.Hash(b.Index, b.PreviousHash, b.Nonce)
	default:
		return types.Hash{}, errors.New("block: unknown algorithm")
	}
}

// HasValidPoW checks the block's proof of work:
//   - index 0 (genesis) accepts any well-formed hash, no recomputation.
//   - kawpow: recompute via the collaborator, require equality with the
//     stored hash, then check the target.
//   - sha256: check the target only, since the hash is already verifiable
//     as our own computation via ComputeHash.
func (b *Block) HasValidPoW(kawpow KawPowHasher) bool {
	if b.Index == 0 {
		return true // genesis hash is trusted configuration, not recomputed.
	}
	if b.Algorithm == AlgoKawPow {
		expected, err := b.ComputeHash(kawpow)
		if err != nil || expected != b.Hash {
			return false
		}
	}
	return MeetsTarget(b.Hash, b.Difficulty)
}
