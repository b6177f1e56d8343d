package types

import (
	"testing"

	"github.com/holiman/uint256"
)

// TestTransactionHashStable verifies hashing is deterministic and
// type-sensitive.
func TestTransactionHashStable(t *testing.T) {
	to := BytesToAddress([]byte{2})
	tx := &Transaction{
		Type:     DynamicFeeTxType,
		ChainID:  6342,
		From:     BytesToAddress([]byte{1}),
		To:       &to,
		GasLimit: 21000,
		Value:    uint256.NewInt(5),
	}
	h1 := tx.Hash()
	if h1.IsZero() {
		t.Fatal("hash must not be zero")
	}

	legacy := *tx
	legacy.Type = LegacyTxType
	legacy.hash = nil
	if legacy.Hash() == h1 {
		t.Fatal("type byte must affect the envelope hash")
	}
}

// TestTransactionSizeGrowsWithData verifies Size reflects calldata.
func TestTransactionSizeGrowsWithData(t *testing.T) {
	tx := &Transaction{Type: LegacyTxType}
	base := tx.Size()

	tx2 := &Transaction{Type: LegacyTxType, Data: make([]byte, 100)}
	if tx2.Size() <= base {
		t.Fatalf("size with data = %d, want > %d", tx2.Size(), base)
	}
}

// TestDepositDASizeZero verifies deposits post nothing to L1.
func TestDepositDASizeZero(t *testing.T) {
	tx := &Transaction{Type: DepositTxType, Data: make([]byte, 1000)}
	if got := tx.EstimatedDASize(); got != 0 {
		t.Fatalf("deposit DA size = %d, want 0", got)
	}
	user := &Transaction{Type: LegacyTxType, Data: []byte{1, 2, 3}}
	if got := user.EstimatedDASize(); got == 0 {
		t.Fatal("user tx DA size must be positive")
	}
}

// TestEffectiveGasPrice verifies the EIP-1559 price selection.
func TestEffectiveGasPrice(t *testing.T) {
	tx := &Transaction{
		Type:      DynamicFeeTxType,
		GasFeeCap: uint256.NewInt(10),
		GasTipCap: uint256.NewInt(3),
	}
	base := uint256.NewInt(5)
	if got := tx.EffectiveGasPrice(base); !got.Eq(uint256.NewInt(8)) {
		t.Fatalf("price = %s, want 8 (base+tip)", got)
	}
	if got := tx.EffectiveTip(base); !got.Eq(uint256.NewInt(3)) {
		t.Fatalf("tip = %s, want 3", got)
	}

	// Cap binds when base+tip exceeds it.
	tx.GasTipCap = uint256.NewInt(20)
	if got := tx.EffectiveGasPrice(base); !got.Eq(uint256.NewInt(10)) {
		t.Fatalf("price = %s, want cap 10", got)
	}
}

// TestDelegationRoundTrip verifies the designator encoding.
func TestDelegationRoundTrip(t *testing.T) {
	target := BytesToAddress([]byte{0xbb})
	code := AddressToDelegation(target)
	got, ok := ParseDelegation(code)
	if !ok || got != target {
		t.Fatalf("parse = (%s, %v), want (%s, true)", got, ok, target)
	}
	if _, ok := ParseDelegation([]byte{0xef, 0x01}); ok {
		t.Fatal("short code must not parse as delegation")
	}
}
