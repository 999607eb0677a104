package block

import (
	"testing"

	"github.com/kawchain/core/pkg/types"
)

func TestComputeMerkleRoot_Empty(t *testing.T) {
	root := ComputeMerkleRoot(nil)
	if !root.IsZero() {
		t.Errorf("expected zero root for empty input, got %s", root)
	}
}

func TestComputeMerkleRoot_Single(t *testing.T) {
	h := types.Hash{0x01}
	root := ComputeMerkleRoot([]types.Hash{h})
	if root != h {
		t.Errorf("single-hash root should pass through unchanged")
	}
}

func TestComputeMerkleRoot_Deterministic(t *testing.T) {
	hashes := []types.Hash{{0x01}, {0x02}, {0x03}}
	a := ComputeMerkleRoot(hashes)
	b := ComputeMerkleRoot(hashes)
	if a != b {
		t.Errorf("merkle root must be deterministic for the same input")
	}
}

func TestComputeMerkleRoot_OddCountDuplicatesLast(t *testing.T) {
	odd := []types.Hash{{0x01}, {0x02}, {0x03}}
	even := []types.Hash{{0x01}, {0x02}, {0x03}, {0x03}}
	if ComputeMerkleRoot(odd) != ComputeMerkleRoot(even) {
		t.Errorf("odd-count root should equal duplicating the last hash")
	}
}
