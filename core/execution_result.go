package core

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// ResultStatus classifies how a transaction finished.
type ResultStatus uint8

const (
	StatusSuccess ResultStatus = iota
	StatusRevert
	StatusHalt
)

// HaltReason records why execution halted. The MegaETH-specific variants
// are produced by the post-execution rewriting in the handler: the
// interpreter only raises the generic out-of-gas sentinel.
type HaltReason uint8

const (
	HaltNone HaltReason = iota
	HaltOutOfGas
	HaltInvalidOpcode
	HaltInvalidJump
	HaltStackError
	HaltWriteProtection
	HaltReentrancySentry
	HaltInitCodeSizeLimit
	HaltCodeSizeLimit
	HaltCreateCollision
	HaltDepthLimit
	HaltDataLimitExceeded
	HaltKVUpdateLimitExceeded
	HaltComputeGasLimitExceeded
	HaltOther
)

func (r HaltReason) String() string {
	switch r {
	case HaltNone:
		return "none"
	case HaltOutOfGas:
		return "out of gas"
	case HaltInvalidOpcode:
		return "invalid opcode"
	case HaltInvalidJump:
		return "invalid jump"
	case HaltStackError:
		return "stack error"
	case HaltWriteProtection:
		return "write protection"
	case HaltReentrancySentry:
		return "reentrancy sentry"
	case HaltInitCodeSizeLimit:
		return "initcode size limit"
	case HaltCodeSizeLimit:
		return "code size limit"
	case HaltCreateCollision:
		return "create collision"
	case HaltDepthLimit:
		return "call depth limit"
	case HaltDataLimitExceeded:
		return "data limit exceeded"
	case HaltKVUpdateLimitExceeded:
		return "kv update limit exceeded"
	case HaltComputeGasLimitExceeded:
		return "compute gas limit exceeded"
	default:
		return "halted"
	}
}

// LimitInfo carries the limit and actual usage of a MegaETH-specific halt.
type LimitInfo struct {
	Limit  uint64
	Actual uint64
}

// ExecutionResult is the outcome of one transaction's execution.
type ExecutionResult struct {
	Status  ResultStatus
	Output  []byte
	GasUsed uint64
	Logs    []*types.Log

	HaltReason HaltReason
	LimitInfo  *LimitInfo // set for the limit-exceeded halt reasons

	ContractAddress *types.Address // set for successful creations
}

// Succeeded reports whether the transaction succeeded.
func (r *ExecutionResult) Succeeded() bool { return r.Status == StatusSuccess }

// MegaTransactionOutcome bundles the execution result with the resource
// usage the block limiter consumes.
type MegaTransactionOutcome struct {
	Result *ExecutionResult

	DataSize       uint64
	KVUpdates      uint64
	ComputeGasUsed uint64
}

// Usage returns the limit usage of this outcome.
func (o *MegaTransactionOutcome) Usage() limit.Usage {
	return limit.Usage{
		DataSize:   o.DataSize,
		KVUpdates:  o.KVUpdates,
		ComputeGas: o.ComputeGasUsed,
	}
}
