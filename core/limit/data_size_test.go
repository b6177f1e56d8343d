package limit

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

func addr(b byte) types.Address {
	return types.BytesToAddress([]byte{b})
}

// TestDataSizeTxIntrinsic verifies the fixed contributions recorded before
// the first frame: 110 base bytes, calldata, and the caller update.
func TestDataSizeTxIntrinsic(t *testing.T) {
	l := NewAdditionalLimit()
	tx := &types.Transaction{
		From:  addr(1),
		Data:  []byte{1, 2, 3, 0},
		Value: new(uint256.Int),
	}
	l.BeforeTxStart(tx)

	want := params.BaseTxDataSize + 4 + params.AccountInfoWriteSize
	if got := l.Data.CurrentSize(); got != want {
		t.Fatalf("data size = %d, want %d", got, want)
	}
	if got := l.KVUpdate.CurrentCount(); got != 1 {
		t.Fatalf("kv updates = %d, want 1", got)
	}
}

// TestDataSizeTransferCall verifies the spec's empty-call scenario: a
// value-transferring call contributes caller + callee account updates, for
// 110 + 2*40 = 190 bytes and 2 KV updates.
func TestDataSizeTransferCall(t *testing.T) {
	l := NewAdditionalLimit()
	tx := &types.Transaction{From: addr(1)}
	l.BeforeTxStart(tx)

	l.OnCall(addr(2), true)
	l.EndFrame(true, true)

	if got := l.Data.CurrentSize(); got != 190 {
		t.Fatalf("data size = %d, want 190", got)
	}
	if got := l.KVUpdate.CurrentCount(); got != 2 {
		t.Fatalf("kv updates = %d, want 2", got)
	}
	if depth := l.Data.FrameDepth(); depth != 0 {
		t.Fatalf("frame stack depth = %d after tx, want 0", depth)
	}
}

// TestDataSizeZeroValueCall verifies the no-transfer case: only the caller
// update is counted, 110 + 40 = 150 bytes and 1 KV update.
func TestDataSizeZeroValueCall(t *testing.T) {
	l := NewAdditionalLimit()
	l.BeforeTxStart(&types.Transaction{From: addr(1)})

	l.OnCall(addr(2), false)
	l.EndFrame(true, true)

	if got := l.Data.CurrentSize(); got != 150 {
		t.Fatalf("data size = %d, want 150", got)
	}
	if got := l.KVUpdate.CurrentCount(); got != 1 {
		t.Fatalf("kv updates = %d, want 1", got)
	}
}

// TestDataSizeRevertDiscards verifies that a reverted frame's discardable
// contributions disappear while the permanent tx contributions stay.
func TestDataSizeRevertDiscards(t *testing.T) {
	l := NewAdditionalLimit()
	l.BeforeTxStart(&types.Transaction{From: addr(1)})
	base := l.Data.CurrentSize()

	l.OnCall(addr(2), true)
	l.OnLog(2, 100)
	l.EndFrame(false, true)

	if got := l.Data.CurrentSize(); got != base {
		t.Fatalf("data size after revert = %d, want %d", got, base)
	}
	if got := l.KVUpdate.CurrentCount(); got != 1 {
		t.Fatalf("kv updates after revert = %d, want 1 (caller only)", got)
	}
}

// TestDataSizeNestedMerge verifies that an inner frame's contributions fold
// into the parent on success and survive the parent's own successful end.
func TestDataSizeNestedMerge(t *testing.T) {
	l := NewAdditionalLimit()
	l.BeforeTxStart(&types.Transaction{From: addr(1)})
	base := l.Data.CurrentSize()

	l.OnCall(addr(2), false)
	l.OnCall(addr(3), false)
	l.OnLog(1, 10) // 42 bytes in the inner frame
	l.EndFrame(true, false)
	l.EndFrame(true, true)

	if got := l.Data.CurrentSize(); got != base+42 {
		t.Fatalf("data size = %d, want %d", got, base+42)
	}
}

// TestDataSizeNestedRevertInParent verifies that an inner frame's merged
// data is still discarded when the parent later reverts.
func TestDataSizeNestedRevertInParent(t *testing.T) {
	l := NewAdditionalLimit()
	l.BeforeTxStart(&types.Transaction{From: addr(1)})
	base := l.Data.CurrentSize()

	l.OnCall(addr(2), false)
	l.OnCall(addr(3), false)
	l.OnLog(1, 10)
	l.EndFrame(true, false) // inner succeeds, folds into parent
	l.EndFrame(false, true) // parent reverts

	if got := l.Data.CurrentSize(); got != base {
		t.Fatalf("data size = %d, want %d", got, base)
	}
}

// TestDataSizeSStoreRoundTrip verifies the storage write accounting:
// writing a fresh value adds 40 bytes, restoring the original refunds
// them, and a rewrite between non-original values adds nothing.
func TestDataSizeSStoreRoundTrip(t *testing.T) {
	l := NewAdditionalLimit()
	l.OnCall(addr(2), false)

	zero := types.Hash{}
	v1 := types.Uint64ToHash(7)
	v2 := types.Uint64ToHash(9)

	l.OnSStore(SStoreResult{Original: zero, Present: zero, New: v1})
	if got := l.Data.CurrentSize(); got != params.StorageSlotWriteSize {
		t.Fatalf("after first write: %d, want %d", got, params.StorageSlotWriteSize)
	}

	l.OnSStore(SStoreResult{Original: zero, Present: v1, New: v2})
	if got := l.Data.CurrentSize(); got != params.StorageSlotWriteSize {
		t.Fatalf("after rewrite: %d, want %d", got, params.StorageSlotWriteSize)
	}

	l.OnSStore(SStoreResult{Original: zero, Present: v2, New: zero})
	if got := l.Data.CurrentSize(); got != 0 {
		t.Fatalf("after restore: %d, want 0", got)
	}
	if got := l.KVUpdate.CurrentCount(); got != 0 {
		t.Fatalf("kv updates after restore: %d, want 0", got)
	}

	l.EndFrame(true, true)
}

// TestDataSizeRefundRestoredOnRevert verifies that a refund taken inside a
// frame is re-applied when that frame reverts: the original +40 write from
// an outer frame must come back.
func TestDataSizeRefundRestoredOnRevert(t *testing.T) {
	l := NewAdditionalLimit()
	zero := types.Hash{}
	v1 := types.Uint64ToHash(7)

	l.OnCall(addr(2), false)
	l.OnSStore(SStoreResult{Original: zero, Present: zero, New: v1}) // +40

	l.OnCall(addr(3), false)
	l.OnSStore(SStoreResult{Original: zero, Present: v1, New: zero}) // -40 inside child
	if got := l.Data.CurrentSize(); got != 0 {
		t.Fatalf("mid-child size = %d, want 0", got)
	}
	l.EndFrame(false, false) // child reverts; the refund must be undone

	if got := l.Data.CurrentSize(); got != params.StorageSlotWriteSize {
		t.Fatalf("after child revert = %d, want %d", got, params.StorageSlotWriteSize)
	}
	l.EndFrame(true, true)
}

// TestEndFrameDoubleFinalize verifies the guard for the last frame being
// finalized twice: EndFrame on an empty stack is a no-op.
func TestEndFrameDoubleFinalize(t *testing.T) {
	l := NewAdditionalLimit()
	l.OnCall(addr(2), false)
	l.EndFrame(true, true)
	l.EndFrame(true, true) // second finalize of the last frame

	if depth := l.Data.FrameDepth(); depth != 0 {
		t.Fatalf("frame depth = %d, want 0", depth)
	}
}

// TestDataLimitExceededSticky verifies that once the data limit trips, the
// stored result survives later counter motion.
func TestDataLimitExceededSticky(t *testing.T) {
	l := NewAdditionalLimit()
	l.DataLimit = 100

	l.OnCall(addr(2), false)
	res := l.OnLog(0, 200)
	if !res.ExceededLimit() || res.Kind != ExceedsDataLimit {
		t.Fatalf("expected data limit exceeded, got %+v", res)
	}
	l.EndFrame(false, true) // revert discards the log bytes

	if !l.ExceededLimit() {
		t.Fatal("exceeded flag must be sticky across the revert")
	}
}

// TestCheckLimitOrdering verifies the data limit is reported before the KV
// limit when both are exceeded.
func TestCheckLimitOrdering(t *testing.T) {
	l := NewAdditionalLimit()
	l.DataLimit = 1
	l.KVUpdateLimit = 0

	l.OnCall(addr(2), true) // callee update: 40 bytes, 1 kv
	res := l.CheckLimit()
	if res.Kind != ExceedsDataLimit {
		t.Fatalf("expected data limit first, got kind %d", res.Kind)
	}
	l.EndFrame(false, true)
}
