package crypto

import (
	"testing"

	"github.com/kawchain/core/pkg/types"
)

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("hello"))
	b := Hash([]byte("hello"))
	if a != b {
		t.Fatal("hash of the same input must be deterministic")
	}
}

func TestHash_DifferentInputsDiffer(t *testing.T) {
	a := Hash([]byte("hello"))
	b := Hash([]byte("world"))
	if a == b {
		t.Fatal("hash of different inputs should not collide")
	}
}

func TestDoubleHash_IsHashOfHash(t *testing.T) {
	data := []byte("payload")
	first := Hash(data)
	want := Hash(first[:])
	if got := DoubleHash(data); got != want {
		t.Fatalf("DoubleHash mismatch: got %s want %s", got, want)
	}
}

func TestAddressFromPubKey_Deterministic(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	pub := key.PublicKey()

	a, err := AddressFromPubKey("kaw", pub)
	if err != nil {
		t.Fatal(err)
	}
	b, err := AddressFromPubKey("kaw", pub)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("address derivation must be deterministic for the same key")
	}
}

func TestMerkleRoot_EmptyIsZero(t *testing.T) {
	if got := MerkleRoot(nil); !got.IsZero() {
		t.Fatalf("expected zero hash for empty input, got %s", got)
	}
}

func TestMerkleRoot_SingleHashPassesThrough(t *testing.T) {
	h := Hash([]byte("solo"))
	if got := MerkleRoot([]types.Hash{h}); got != h {
		t.Fatalf("expected single hash to pass through unchanged, got %s want %s", got, h)
	}
}

func TestMerkleRoot_OddCountDuplicatesLast(t *testing.T) {
	a := Hash([]byte("a"))
	b := Hash([]byte("b"))
	c := Hash([]byte("c"))

	odd := MerkleRoot([]types.Hash{a, b, c})
	padded := MerkleRoot([]types.Hash{a, b, c, c})
	if odd != padded {
		t.Fatal("odd-count merkle root should duplicate the last hash, matching the padded even case")
	}
}

func TestMerkleRoot_OrderSensitive(t *testing.T) {
	a := Hash([]byte("a"))
	b := Hash([]byte("b"))
	if MerkleRoot([]types.Hash{a, b}) == MerkleRoot([]types.Hash{b, a}) {
		t.Fatal("merkle root must depend on leaf order")
	}
}
