package limit

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// SStoreResult carries the three storage values an SSTORE observed, as
// needed for the data/KV accounting rules.
type SStoreResult struct {
	Original types.Hash // value at the start of the transaction
	Present  types.Hash // value before this write
	New      types.Hash // value written
}

// OriginalEqPresent reports whether the slot was untouched this transaction.
func (r SStoreResult) OriginalEqPresent() bool { return r.Original == r.Present }

// OriginalEqNew reports whether the write restores the original value.
func (r SStoreResult) OriginalEqNew() bool { return r.Original == r.New }

// OriginalIsZero reports whether the slot was originally empty.
func (r SStoreResult) OriginalIsZero() bool { return r.Original.IsZero() }

// ResultKind classifies which limit, if any, has been exceeded.
type ResultKind uint8

const (
	WithinLimit ResultKind = iota
	ExceedsDataLimit
	ExceedsKVUpdateLimit
)

// Result reports the outcome of a limit check. Limit and Used are
// meaningful only when Kind is not WithinLimit.
type Result struct {
	Kind  ResultKind
	Limit uint64
	Used  uint64
}

// ExceededLimit reports whether any limit has been exceeded.
func (r Result) ExceededLimit() bool { return r.Kind != WithinLimit }

// Usage is the per-transaction resource usage surfaced on every outcome.
type Usage struct {
	DataSize   uint64
	KVUpdates  uint64
	ComputeGas uint64
}

// AdditionalLimit coordinates the MegaEVM resource limits beyond the
// standard gas limit: generated-data size, key-value update count, compute
// gas, and volatile-data gas detention. The exceeded result is sticky: the
// frame reverts that follow a violation discard counter contributions, so
// the counters alone are unreliable once a limit trips.
type AdditionalLimit struct {
	exceeded Result

	DataLimit       uint64
	KVUpdateLimit   uint64
	ComputeGasLimit uint64

	Data     *DataSizeTracker
	KVUpdate *KVUpdateCounter
	Compute  *ComputeGasTracker
	Volatile *VolatileTracker
}

// NewAdditionalLimit returns a limiter with the MiniRex defaults.
func NewAdditionalLimit() *AdditionalLimit {
	return &AdditionalLimit{
		DataLimit:       params.TxDataLimit,
		KVUpdateLimit:   params.TxKVUpdateLimit,
		ComputeGasLimit: params.TxComputeGasLimit,
		Data:            NewDataSizeTracker(),
		KVUpdate:        NewKVUpdateCounter(),
		Compute:         NewComputeGasTracker(),
		Volatile:        NewVolatileTracker(),
	}
}

// Reset clears all trackers for a new transaction.
func (l *AdditionalLimit) Reset() {
	l.exceeded = Result{}
	l.Data.Reset()
	l.KVUpdate.Reset()
	l.Compute.Reset()
	l.Volatile.Reset()
}

// CheckLimit examines the data and KV counters against their limits. The
// data limit is checked first; once a limit has tripped the stored result
// is returned unchanged.
func (l *AdditionalLimit) CheckLimit() Result {
	if l.exceeded.ExceededLimit() {
		return l.exceeded
	}
	if l.Data.ExceedsLimit(l.DataLimit) {
		l.exceeded = Result{Kind: ExceedsDataLimit, Limit: l.DataLimit, Used: l.Data.CurrentSize()}
	} else if l.KVUpdate.ExceedsLimit(l.KVUpdateLimit) {
		l.exceeded = Result{Kind: ExceedsKVUpdateLimit, Limit: l.KVUpdateLimit, Used: l.KVUpdate.CurrentCount()}
	}
	return l.exceeded
}

// ExceededLimit reports whether a data or KV limit has tripped.
func (l *AdditionalLimit) ExceededLimit() bool {
	return l.CheckLimit().ExceededLimit()
}

// Usage returns the current resource usage.
func (l *AdditionalLimit) Usage() Usage {
	return Usage{
		DataSize:   l.Data.CurrentSize(),
		KVUpdates:  l.KVUpdate.CurrentCount(),
		ComputeGas: l.Compute.Used(),
	}
}

// --- Transaction lifecycle hooks ---

// BeforeTxStart records the intrinsic contributions of the transaction:
// its own data, the EIP-7702 authority updates, and the caller's account
// update (nonce bump), none of which are discardable.
func (l *AdditionalLimit) BeforeTxStart(tx *types.Transaction) Result {
	l.Data.RecordTxData(tx)
	l.Data.RecordAuthorityUpdates(tx)
	l.Data.RecordAccountInfoUpdate(tx.From)

	l.KVUpdate.RecordAuthorityUpdates(tx)
	l.KVUpdate.RecordAccountInfoUpdate(tx.From)

	return l.CheckLimit()
}

// OnCall pushes a call frame on both counters and applies the
// value-transfer account updates.
func (l *AdditionalLimit) OnCall(target types.Address, transfer bool) Result {
	l.Data.RecordCall(target, transfer)
	l.KVUpdate.RecordCall(target, transfer)
	return l.CheckLimit()
}

// OnCreate pushes a create frame on both counters.
func (l *AdditionalLimit) OnCreate() Result {
	l.Data.RecordCreate()
	l.KVUpdate.RecordCreate()
	return l.CheckLimit()
}

// OnCreatedAccount records the created address once the engine has
// computed it.
func (l *AdditionalLimit) OnCreatedAccount(created types.Address) Result {
	l.Data.RecordCreatedAccount(created)
	l.KVUpdate.RecordCreatedAccount(created)
	return l.CheckLimit()
}

// OnCreatedContractCode records the deployed bytecode size.
func (l *AdditionalLimit) OnCreatedContractCode(size uint64) Result {
	if l.exceeded.ExceededLimit() {
		return l.exceeded
	}
	l.Data.RecordCreatedContractCode(size)
	return l.CheckLimit()
}

// OnLog records the data generated by a LOG opcode.
func (l *AdditionalLimit) OnLog(numTopics, dataSize uint64) Result {
	l.Data.RecordLog(numTopics, dataSize)
	return l.CheckLimit()
}

// OnSStore records the data and KV effects of a storage write.
func (l *AdditionalLimit) OnSStore(res SStoreResult) Result {
	l.Data.RecordSStore(res)
	l.KVUpdate.RecordSStore(res)
	return l.CheckLimit()
}

// EndFrame pops one frame on both counters.
func (l *AdditionalLimit) EndFrame(ok bool, lastFrame bool) Result {
	l.Data.EndFrame(ok, lastFrame)
	l.KVUpdate.EndFrame(ok, lastFrame)
	return l.CheckLimit()
}
