package core

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// BlockLimits configures the block-level resource caps. The zero value of
// a field means "set it explicitly"; DefaultBlockLimits returns the
// MiniRex defaults with the size caps left unbounded.
type BlockLimits struct {
	// Checked before transaction execution.
	SingleTxGasLimit    uint64
	BlockGasLimit       uint64
	SingleTxSizeLimit   uint64
	BlockTxSizeLimit    uint64
	SingleTxDASizeLimit uint64
	BlockDASizeLimit    uint64

	// Checked after transaction execution. The corresponding per-tx
	// limits are enforced inside the EVM: a transaction that exceeds
	// them still lands in the block, halted.
	BlockDataLimit     uint64
	BlockKVUpdateLimit uint64
}

// DefaultBlockLimits returns the MiniRex defaults.
func DefaultBlockLimits() BlockLimits {
	maxU64 := ^uint64(0)
	return BlockLimits{
		SingleTxGasLimit:    maxU64,
		BlockGasLimit:       maxU64,
		SingleTxSizeLimit:   maxU64,
		BlockTxSizeLimit:    maxU64,
		SingleTxDASizeLimit: maxU64,
		BlockDASizeLimit:    maxU64,
		BlockDataLimit:      params.BlockDataLimit,
		BlockKVUpdateLimit:  params.BlockKVUpdateLimit,
	}
}

// WithSingleTxGasLimit sets the per-transaction gas cap.
func (l BlockLimits) WithSingleTxGasLimit(limit uint64) BlockLimits {
	l.SingleTxGasLimit = limit
	return l
}

// WithBlockGasLimit sets the block gas cap.
func (l BlockLimits) WithBlockGasLimit(limit uint64) BlockLimits {
	l.BlockGasLimit = limit
	return l
}

// WithSingleTxSizeLimit sets the per-transaction encoded-size cap.
func (l BlockLimits) WithSingleTxSizeLimit(limit uint64) BlockLimits {
	l.SingleTxSizeLimit = limit
	return l
}

// WithBlockTxSizeLimit sets the block encoded-size cap.
func (l BlockLimits) WithBlockTxSizeLimit(limit uint64) BlockLimits {
	l.BlockTxSizeLimit = limit
	return l
}

// WithSingleTxDASizeLimit sets the per-transaction DA-size cap.
func (l BlockLimits) WithSingleTxDASizeLimit(limit uint64) BlockLimits {
	l.SingleTxDASizeLimit = limit
	return l
}

// WithBlockDASizeLimit sets the block DA-size cap.
func (l BlockLimits) WithBlockDASizeLimit(limit uint64) BlockLimits {
	l.BlockDASizeLimit = limit
	return l
}

// WithBlockDataLimit sets the block generated-data cap.
func (l BlockLimits) WithBlockDataLimit(limit uint64) BlockLimits {
	l.BlockDataLimit = limit
	return l
}

// WithBlockKVUpdateLimit sets the block KV-update cap.
func (l BlockLimits) WithBlockKVUpdateLimit(limit uint64) BlockLimits {
	l.BlockKVUpdateLimit = limit
	return l
}

// NewBlockLimiter creates the running limiter for one block.
func (l BlockLimits) NewBlockLimiter() *BlockLimiter {
	return &BlockLimiter{Limits: l}
}

// BlockLimiter accumulates per-block resource usage and enforces the
// BlockLimits. Its counters are touched only by the (single-threaded)
// block executor.
type BlockLimiter struct {
	Limits BlockLimits

	BlockGasUsed       uint64
	BlockTxSizeUsed    uint64
	BlockDASizeUsed    uint64
	BlockDataUsed      uint64
	BlockKVUpdatesUsed uint64
}

// PreExecutionCheck validates a transaction's declared resources against
// the limits, in order: single-tx gas, block gas, single-tx size, block tx
// size, single-tx DA size, block DA size. The DA checks are skipped for
// deposits, which post nothing to L1. No counters are advanced.
func (bl *BlockLimiter) PreExecutionCheck(txHash types.Hash, gasLimit, txSize, daSize uint64, isDeposit bool) error {
	if gasLimit > bl.Limits.SingleTxGasLimit {
		return &InvalidTxError{Hash: txHash, Err: &TxLimitExceededError{
			Kind: TxLimitGas, TxUsed: gasLimit, Limit: bl.Limits.SingleTxGasLimit,
		}}
	}
	if bl.BlockGasUsed+gasLimit > bl.Limits.BlockGasLimit {
		return &GasLimitReachedError{
			TxGasLimit:        gasLimit,
			BlockAvailableGas: bl.Limits.BlockGasLimit - bl.BlockGasUsed,
		}
	}
	if txSize > bl.Limits.SingleTxSizeLimit {
		return &InvalidTxError{Hash: txHash, Err: &TxLimitExceededError{
			Kind: TxLimitSize, TxUsed: txSize, Limit: bl.Limits.SingleTxSizeLimit,
		}}
	}
	if bl.BlockTxSizeUsed+txSize > bl.Limits.BlockTxSizeLimit {
		return &InvalidTxError{Hash: txHash, Err: &BlockLimitExceededError{
			Kind: BlockLimitTxSize, BlockUsed: bl.BlockTxSizeUsed, TxUsed: txSize, Limit: bl.Limits.BlockTxSizeLimit,
		}}
	}
	if !isDeposit {
		if daSize > bl.Limits.SingleTxDASizeLimit {
			return &InvalidTxError{Hash: txHash, Err: &TxLimitExceededError{
				Kind: TxLimitDASize, TxUsed: daSize, Limit: bl.Limits.SingleTxDASizeLimit,
			}}
		}
		if bl.BlockDASizeUsed+daSize > bl.Limits.BlockDASizeLimit {
			return &InvalidTxError{Hash: txHash, Err: &BlockLimitExceededError{
				Kind: BlockLimitDASize, BlockUsed: bl.BlockDASizeUsed, TxUsed: daSize, Limit: bl.Limits.BlockDASizeLimit,
			}}
		}
	}
	return nil
}

// PostExecutionCheck validates the generated data size and KV-update count
// against the block limits, then advances every counter. A failed check
// advances nothing; the caller discards the transaction.
func (bl *BlockLimiter) PostExecutionCheck(txHash types.Hash, gasUsed, txSize, daSize, dataSize, kvUpdates uint64) error {
	if bl.BlockDataUsed+dataSize > bl.Limits.BlockDataLimit {
		return &InvalidTxError{Hash: txHash, Err: &BlockLimitExceededError{
			Kind: BlockLimitData, BlockUsed: bl.BlockDataUsed, TxUsed: dataSize, Limit: bl.Limits.BlockDataLimit,
		}}
	}
	if bl.BlockKVUpdatesUsed+kvUpdates > bl.Limits.BlockKVUpdateLimit {
		return &InvalidTxError{Hash: txHash, Err: &BlockLimitExceededError{
			Kind: BlockLimitKVUpdates, BlockUsed: bl.BlockKVUpdatesUsed, TxUsed: kvUpdates, Limit: bl.Limits.BlockKVUpdateLimit,
		}}
	}
	bl.BlockGasUsed += gasUsed
	bl.BlockTxSizeUsed += txSize
	bl.BlockDASizeUsed += daSize
	bl.BlockDataUsed += dataSize
	bl.BlockKVUpdatesUsed += kvUpdates
	return nil
}
