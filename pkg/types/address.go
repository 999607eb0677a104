package types

import "fmt"

// AddressSize is the length in bytes of the public-key hash an address encodes.
const AddressSize = 20

// MainnetHRP is the bech32 human-readable part for mainnet addresses.
const MainnetHRP = "kaw"

// TestnetHRP is the bech32 human-readable part for testnet addresses.
const TestnetHRP = "tkaw"

// Address is a canonical, opaque string identifying the owner of a UTXO.
// The core treats it as a comparable value; it does not decode addresses
// to recover the underlying public-key hash during validation.
type Address string

// String returns the address as a plain string.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is the empty string.
func (a Address) IsZero() bool {
	return a == ""
}

// EncodeAddress bech32-encodes a public-key hash into a canonical address
// string under the given human-readable part (MainnetHRP or TestnetHRP).
func EncodeAddress(hrp string, pubKeyHash []byte) (Address, error) {
	if len(pubKeyHash) != AddressSize {
		return "", fmt.Errorf("address: pubkey hash must be %d bytes, got %d", AddressSize, len(pubKeyHash))
	}
	s, err := Bech32Encode(hrp, pubKeyHash)
	if err != nil {
		return "", fmt.Errorf("address: %w", err)
	}
	return Address(s), nil
}

// DecodeAddress recovers the human-readable part and public-key hash from a
// canonical address string.
func DecodeAddress(addr Address) (hrp string, pubKeyHash []byte, err error) {
	hrp, data, err := Bech32Decode(string(addr))
	if err != nil {
		return "", nil, fmt.Errorf("address: %w", err)
	}
	if len(data) != AddressSize {
		return "", nil, fmt.Errorf("address: decoded payload must be %d bytes, got %d", AddressSize, len(data))
	}
	return hrp, data, nil
}
