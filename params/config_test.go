package params

import "testing"

// TestSpecOrdering verifies MiniRex includes Equivalence.
func TestSpecOrdering(t *testing.T) {
	if !MiniRex.Enabled(Equivalence) {
		t.Fatal("MiniRex must enable Equivalence")
	}
	if Equivalence.Enabled(MiniRex) {
		t.Fatal("Equivalence must not enable MiniRex")
	}
}

// TestSpecIDFromTimestamp verifies the hardfork schedule picks the spec.
func TestSpecIDFromTimestamp(t *testing.T) {
	minirex := uint64(1000)
	cfg := &ChainConfig{
		ChainID:      1,
		RegolithTime: newUint64(0),
		CanyonTime:   newUint64(0),
		IsthmusTime:  newUint64(0),
		MiniRexTime:  &minirex,
	}
	if got := cfg.SpecID(999); got != Equivalence {
		t.Fatalf("spec at 999 = %s, want EQUIVALENCE", got)
	}
	if got := cfg.SpecID(1000); got != MiniRex {
		t.Fatalf("spec at 1000 = %s, want MINI_REX", got)
	}
}

// TestNilForkNeverActivates verifies a nil timestamp means disabled.
func TestNilForkNeverActivates(t *testing.T) {
	cfg := &ChainConfig{ChainID: 1}
	if cfg.IsMiniRex(^uint64(0)) {
		t.Fatal("nil MiniRexTime must never activate")
	}
}

// TestTxLimitsDerivedFromBlock verifies the per-tx defaults are a quarter
// of the block limits.
func TestTxLimitsDerivedFromBlock(t *testing.T) {
	if TxDataLimit != BlockDataLimit/4 {
		t.Fatalf("TxDataLimit = %d, want %d", TxDataLimit, BlockDataLimit/4)
	}
	if TxKVUpdateLimit != BlockKVUpdateLimit/4 {
		t.Fatalf("TxKVUpdateLimit = %d, want %d", TxKVUpdateLimit, BlockKVUpdateLimit/4)
	}
	if BlockDataLimit != 3_276_800 {
		t.Fatalf("BlockDataLimit = %d, want 3276800", BlockDataLimit)
	}
}
