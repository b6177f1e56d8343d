package limit

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// KVUpdateCounter counts logical key-value mutations with the same
// frame-aware accounting as the data-size tracker: one unit per account
// info update, one per storage slot moved away from its original value
// (refunded when restored), one per created account.
type KVUpdateCounter struct {
	totalCount int64
	frameStack []frameInfo
}

// NewKVUpdateCounter returns an empty counter.
func NewKVUpdateCounter() *KVUpdateCounter {
	return &KVUpdateCounter{}
}

// Reset clears the counter for a new transaction.
func (c *KVUpdateCounter) Reset() {
	c.totalCount = 0
	c.frameStack = c.frameStack[:0]
}

// CurrentCount returns the running count, floored at zero.
func (c *KVUpdateCounter) CurrentCount() uint64 {
	if c.totalCount < 0 {
		return 0
	}
	return uint64(c.totalCount)
}

// ExceedsLimit reports whether the count exceeds the given limit.
func (c *KVUpdateCounter) ExceedsLimit(limit uint64) bool {
	return c.CurrentCount() > limit
}

// FrameDepth returns the number of open frames.
func (c *KVUpdateCounter) FrameDepth() int {
	return len(c.frameStack)
}

func (c *KVUpdateCounter) currentFrame() *frameInfo {
	if len(c.frameStack) == 0 {
		return nil
	}
	return &c.frameStack[len(c.frameStack)-1]
}

func (c *KVUpdateCounter) parentFrame() *frameInfo {
	if len(c.frameStack) < 2 {
		return nil
	}
	return &c.frameStack[len(c.frameStack)-2]
}

func (c *KVUpdateCounter) addDiscardable(n int64) {
	if frame := c.currentFrame(); frame != nil {
		frame.discardable += n
	}
}

// RecordAuthorityUpdates counts one update per recovered EIP-7702 authority.
func (c *KVUpdateCounter) RecordAuthorityUpdates(tx *types.Transaction) {
	for _, auth := range tx.AuthList {
		if auth.Authority != nil {
			c.RecordAccountInfoUpdate(*auth.Authority)
		}
	}
}

// RecordCall mirrors DataSizeTracker.RecordCall in units of KV updates.
func (c *KVUpdateCounter) RecordCall(target types.Address, transfer bool) {
	c.frameStack = append(c.frameStack, frameInfo{
		target:        &target,
		targetUpdated: transfer,
	})
	if !transfer {
		return
	}
	if parent := c.parentFrame(); parent != nil && !parent.targetUpdated {
		parent.targetUpdated = true
		c.totalCount++
		parent.discardable++
	}
	c.RecordAccountInfoUpdate(target)
}

// RecordCreate mirrors DataSizeTracker.RecordCreate.
func (c *KVUpdateCounter) RecordCreate() {
	c.frameStack = append(c.frameStack, frameInfo{targetUpdated: true})
	if parent := c.parentFrame(); parent != nil && !parent.targetUpdated {
		parent.targetUpdated = true
		c.totalCount++
		parent.discardable++
	}
}

// RecordCreatedAccount fills in the created address and counts it.
func (c *KVUpdateCounter) RecordCreatedAccount(created types.Address) {
	frame := c.currentFrame()
	if frame == nil || frame.target != nil {
		return
	}
	frame.target = &created
	c.RecordAccountInfoUpdate(created)
}

// RecordSStore counts +1 when a slot first moves away from its original
// value and -1 when it is restored; rewrites between non-original values
// count zero.
func (c *KVUpdateCounter) RecordSStore(res SStoreResult) {
	switch {
	case res.OriginalEqPresent() && !res.OriginalEqNew():
		c.totalCount++
		c.addDiscardable(1)
	case !res.OriginalEqPresent() && res.OriginalEqNew():
		c.totalCount--
		c.addDiscardable(-1)
	}
}

// RecordAccountInfoUpdate counts one account-info mutation.
func (c *KVUpdateCounter) RecordAccountInfoUpdate(_ types.Address) {
	c.totalCount++
	c.addDiscardable(1)
}

// EndFrame pops the current frame, merging on success and discarding on
// revert. Empty stack with lastFrame set is the double-finalize no-op.
func (c *KVUpdateCounter) EndFrame(ok bool, lastFrame bool) {
	if len(c.frameStack) == 0 {
		return
	}
	frame := c.frameStack[len(c.frameStack)-1]
	c.frameStack = c.frameStack[:len(c.frameStack)-1]
	if ok {
		c.addDiscardable(frame.discardable)
	} else {
		c.totalCount -= frame.discardable
	}
}
