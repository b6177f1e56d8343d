// Package limit implements the MegaEVM resource-limit subsystem: frame-aware
// tracking of generated data size, key-value update counts and compute gas,
// plus volatile-data access detection with gas detention.
package limit

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// frameInfo is the per-frame bookkeeping shared by the data-size tracker and
// the KV-update counter.
type frameInfo struct {
	// discardable is the contribution attached to this frame; it is
	// subtracted from the running total when the frame reverts and folded
	// into the parent when it returns successfully.
	discardable int64

	// target is the frame's target address. Nil for a create frame until
	// the engine has computed the created address.
	target *types.Address

	// targetUpdated records whether the target's account info has already
	// been counted as updated in this frame.
	targetUpdated bool
}

// DataSizeTracker tracks the total data size (in bytes) a transaction
// generates, with revert-correct frame accounting. The running total is
// signed: restoring a slot to its original value refunds bytes, and a
// refund inside a frame that later reverts is re-applied.
type DataSizeTracker struct {
	totalSize  int64
	frameStack []frameInfo
}

// NewDataSizeTracker returns an empty tracker.
func NewDataSizeTracker() *DataSizeTracker {
	return &DataSizeTracker{}
}

// Reset clears the tracker for a new transaction.
func (t *DataSizeTracker) Reset() {
	t.totalSize = 0
	t.frameStack = t.frameStack[:0]
}

// CurrentSize returns the running total, floored at zero.
func (t *DataSizeTracker) CurrentSize() uint64 {
	if t.totalSize < 0 {
		return 0
	}
	return uint64(t.totalSize)
}

// ExceedsLimit reports whether the running total exceeds the given limit.
func (t *DataSizeTracker) ExceedsLimit(limit uint64) bool {
	return t.CurrentSize() > limit
}

// FrameDepth returns the number of open frames. After every transaction it
// must be zero.
func (t *DataSizeTracker) FrameDepth() int {
	return len(t.frameStack)
}

func (t *DataSizeTracker) currentFrame() *frameInfo {
	if len(t.frameStack) == 0 {
		return nil
	}
	return &t.frameStack[len(t.frameStack)-1]
}

func (t *DataSizeTracker) parentFrame() *frameInfo {
	if len(t.frameStack) < 2 {
		return nil
	}
	return &t.frameStack[len(t.frameStack)-2]
}

// addDiscardable attributes size to the innermost open frame. Outside any
// frame (transaction prologue/epilogue) the contribution is permanent: the
// caller's nonce bump survives even a full revert.
func (t *DataSizeTracker) addDiscardable(size int64) {
	if frame := t.currentFrame(); frame != nil {
		frame.discardable += size
	}
}

// addToFrame attributes size to a specific frame (used for the
// parent-attributed caller update on value-transferring calls).
func (t *DataSizeTracker) addToFrame(frame *frameInfo, size int64) {
	if frame != nil {
		frame.discardable += size
	}
}

// RecordTxData records the intrinsic data of the transaction itself:
// 110 bytes base, plus calldata, access list, and EIP-7702 authorizations.
// These bytes are never discardable.
func (t *DataSizeTracker) RecordTxData(tx *types.Transaction) {
	size := params.BaseTxDataSize
	size += uint64(len(tx.Data))
	size += tx.AccessList.SerializedSize()
	size += uint64(len(tx.AuthList)) * params.AuthorizationSize
	t.totalSize += int64(size)
}

// RecordAuthorityUpdates records one account-info update per recovered
// EIP-7702 authority.
func (t *DataSizeTracker) RecordAuthorityUpdates(tx *types.Transaction) {
	for _, auth := range tx.AuthList {
		if auth.Authority != nil {
			t.RecordAccountInfoUpdate(*auth.Authority)
		}
	}
}

// RecordCall pushes a frame for a call to target. If value is transferred,
// the caller (the parent frame's target) is counted as updated if it was
// not already, attributed to the parent, and the callee is counted in the
// new frame.
func (t *DataSizeTracker) RecordCall(target types.Address, transfer bool) {
	t.frameStack = append(t.frameStack, frameInfo{
		target:        &target,
		targetUpdated: transfer,
	})
	if !transfer {
		return
	}
	if parent := t.parentFrame(); parent != nil && !parent.targetUpdated {
		parent.targetUpdated = true
		t.totalSize += int64(params.AccountInfoWriteSize)
		t.addToFrame(parent, int64(params.AccountInfoWriteSize))
	}
	t.RecordAccountInfoUpdate(target)
}

// RecordCreate pushes a frame for a create. The created address is unknown
// until the engine computes it; RecordCreatedAccount fills it in. The
// creator (the parent frame's target) always incurs a nonce bump.
func (t *DataSizeTracker) RecordCreate() {
	t.frameStack = append(t.frameStack, frameInfo{targetUpdated: true})
	if parent := t.parentFrame(); parent != nil && !parent.targetUpdated {
		parent.targetUpdated = true
		t.totalSize += int64(params.AccountInfoWriteSize)
		t.addToFrame(parent, int64(params.AccountInfoWriteSize))
	}
}

// RecordCreatedAccount fills in the created address on the current create
// frame and counts its account-info update.
func (t *DataSizeTracker) RecordCreatedAccount(created types.Address) {
	frame := t.currentFrame()
	if frame == nil || frame.target != nil {
		return
	}
	frame.target = &created
	t.RecordAccountInfoUpdate(created)
}

// RecordCreatedContractCode records the deployed bytecode size. When the
// stack is already empty the transaction is finishing and cannot revert, so
// the bytes are permanent.
func (t *DataSizeTracker) RecordCreatedContractCode(size uint64) {
	t.totalSize += int64(size)
	t.addDiscardable(int64(size))
}

// RecordLog records the bytes of a LOG: 32 per topic plus the data length.
func (t *DataSizeTracker) RecordLog(numTopics, dataSize uint64) {
	size := int64(numTopics*params.LogTopicSize + dataSize)
	t.totalSize += size
	t.addDiscardable(size)
}

// RecordSStore records the data effect of a storage write. The first write
// moving a slot away from its original value contributes 40 bytes; a write
// restoring the original value refunds them; rewrites between two
// non-original values contribute nothing.
func (t *DataSizeTracker) RecordSStore(res SStoreResult) {
	switch {
	case res.OriginalEqPresent() && !res.OriginalEqNew():
		size := int64(params.StorageSlotWriteSize)
		t.totalSize += size
		t.addDiscardable(size)
	case !res.OriginalEqPresent() && res.OriginalEqNew():
		size := int64(params.StorageSlotWriteSize)
		t.totalSize -= size
		t.addDiscardable(-size)
	}
}

// RecordAccountInfoUpdate records a 40-byte account info write (balance,
// nonce or code hash change).
func (t *DataSizeTracker) RecordAccountInfoUpdate(_ types.Address) {
	t.totalSize += int64(params.AccountInfoWriteSize)
	t.addDiscardable(int64(params.AccountInfoWriteSize))
}

// EndFrame pops the current frame. On success its discardable total is
// folded into the parent; on revert it is subtracted from the running
// total. The last frame of a transaction may be finalized twice on some
// paths; an EndFrame on an empty stack is therefore a no-op when lastFrame
// is set.
func (t *DataSizeTracker) EndFrame(ok bool, lastFrame bool) {
	if len(t.frameStack) == 0 {
		// Double-finalized last frame, or a stray pop; nothing to do.
		return
	}
	frame := t.frameStack[len(t.frameStack)-1]
	t.frameStack = t.frameStack[:len(t.frameStack)-1]
	if ok {
		t.addDiscardable(frame.discardable)
	} else {
		t.totalSize -= frame.discardable
	}
}
