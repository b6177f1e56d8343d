// Package types defines the core data structures of the MegaEVM execution
// core: addresses, hashes, accounts, logs, transactions, and receipts.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/params"
)

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
)

// Hash represents the 32-byte Keccak256 hash of data.
type Hash [HashLength]byte

// Address represents the 20-byte address of an account.
type Address [AddressLength]byte

// Bloom represents a 2048-bit log bloom filter.
type Bloom [BloomLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Uint64ToHash converts a uint64 to a 32-byte big-endian hash.
func Uint64ToHash(v uint64) Hash {
	var h Hash
	u := uint256.NewInt(v)
	u.WriteToSlice(h[:])
	return h
}

// HashToU256 interprets the hash bytes as a big-endian 256-bit integer.
func HashToU256(h Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// U256ToHash renders a 256-bit integer as a 32-byte big-endian hash.
func U256ToHash(v *uint256.Int) Hash {
	return Hash(v.Bytes32())
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool { return h == Hash{} }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// BytesToAddress converts bytes to Address, left-padding if shorter than 20
// bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the hex string representation of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// Hash returns the address left-padded to 32 bytes.
func (a Address) Hash() Hash { return BytesToHash(a[:]) }

// SetBytes sets the address from a byte slice.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero returns whether the address is all zeros.
func (a Address) IsZero() bool { return a == Address{} }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// Keccak256Hash computes the keccak256 hash of the input and returns it as a
// Hash.
func Keccak256Hash(data ...[]byte) Hash {
	return BytesToHash(crypto.Keccak256(data...))
}

var (
	// EmptyCodeHash is keccak256 of empty bytecode.
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

	// EmptyRootHash is the root of an empty state trie.
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// SystemAddress is the caller of pre-block system calls.
	SystemAddress = Address(params.SystemAddressBytes)

	// OracleContractAddress is the MegaETH oracle system contract.
	OracleContractAddress = Address(params.OracleContractAddressBytes)

	// HistoryStorageAddress is the EIP-2935 history storage contract.
	HistoryStorageAddress = Address(params.HistoryStorageAddressBytes)

	// BeaconRootsAddress is the EIP-4788 beacon roots contract.
	BeaconRootsAddress = Address(params.BeaconRootsAddressBytes)
)

// fromHex decodes a hex string, stripping an optional "0x" prefix.
func fromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}
