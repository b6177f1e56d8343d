// Package core implements the MegaEVM transaction handler and block
// executor: per-transaction validation and gas accounting, the block-level
// resource limiter, pre-block system calls, and receipt construction.
package core

import (
	"errors"
	"fmt"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// Pre-execution transaction validation errors.
var (
	ErrNonceTooLow         = errors.New("nonce too low")
	ErrNonceTooHigh        = errors.New("nonce too high")
	ErrInsufficientFunds   = errors.New("insufficient funds for gas * price + value")
	ErrIntrinsicGas        = errors.New("intrinsic gas too low")
	ErrFloorDataGas        = errors.New("insufficient gas for floor data gas cost")
	ErrGasLimitTooHigh     = errors.New("transaction gas limit exceeds block gas limit")
	ErrTipAboveFeeCap      = errors.New("max priority fee per gas higher than max fee per gas")
	ErrFeeCapTooLow        = errors.New("max fee per gas less than block base fee")
	ErrSenderNoEOA         = errors.New("sender not an EOA")
	ErrInvalidChainID      = errors.New("invalid chain id for signer")
	ErrBlobTxNotSupported  = errors.New("blob transactions are not supported")
)

// System-call failures; these fail the whole block.
var (
	ErrMissingParentBeaconRoot        = errors.New("missing parent beacon block root")
	ErrCancunGenesisBeaconRootNotZero = errors.New("parent beacon block root must be zero at cancun genesis")
	ErrBlockHashContractCall          = errors.New("block hashes contract call failed")
	ErrBeaconRootContractCall         = errors.New("beacon root contract call failed")
)

// TxLimitKind identifies which single-transaction limit was exceeded.
type TxLimitKind uint8

const (
	TxLimitGas TxLimitKind = iota
	TxLimitSize
	TxLimitDASize
)

func (k TxLimitKind) String() string {
	switch k {
	case TxLimitGas:
		return "gas limit"
	case TxLimitSize:
		return "tx size"
	case TxLimitDASize:
		return "da size"
	default:
		return "unknown"
	}
}

// TxLimitExceededError reports a single-transaction limit violation found
// before execution.
type TxLimitExceededError struct {
	Kind   TxLimitKind
	TxUsed uint64
	Limit  uint64
}

func (e *TxLimitExceededError) Error() string {
	return fmt.Sprintf("transaction exceeds single-tx %s limit: used %d, limit %d", e.Kind, e.TxUsed, e.Limit)
}

// BlockLimitKind identifies which block-level limit was exceeded.
type BlockLimitKind uint8

const (
	BlockLimitTxSize BlockLimitKind = iota
	BlockLimitDASize
	BlockLimitData
	BlockLimitKVUpdates
)

func (k BlockLimitKind) String() string {
	switch k {
	case BlockLimitTxSize:
		return "tx size"
	case BlockLimitDASize:
		return "da size"
	case BlockLimitData:
		return "data"
	case BlockLimitKVUpdates:
		return "kv update"
	default:
		return "unknown"
	}
}

// BlockLimitExceededError reports a block-level limit violation.
type BlockLimitExceededError struct {
	Kind      BlockLimitKind
	BlockUsed uint64
	TxUsed    uint64
	Limit     uint64
}

func (e *BlockLimitExceededError) Error() string {
	return fmt.Sprintf("transaction exceeds block %s limit: block used %d, tx used %d, limit %d",
		e.Kind, e.BlockUsed, e.TxUsed, e.Limit)
}

// GasLimitReachedError is raised when a transaction's gas limit does not
// fit into the remaining block gas.
type GasLimitReachedError struct {
	TxGasLimit        uint64
	BlockAvailableGas uint64
}

func (e *GasLimitReachedError) Error() string {
	return fmt.Sprintf("transaction gas limit %d more than available block gas %d",
		e.TxGasLimit, e.BlockAvailableGas)
}

// InvalidTxError wraps a per-transaction rejection with the offending hash.
// The transaction is skipped; the block proceeds.
type InvalidTxError struct {
	Hash types.Hash
	Err  error
}

func (e *InvalidTxError) Error() string {
	return fmt.Sprintf("invalid transaction %s: %v", e.Hash, e.Err)
}

func (e *InvalidTxError) Unwrap() error { return e.Err }
