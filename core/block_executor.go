package core

import (
	"fmt"

	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/core/vm"
	"github.com/megaeth-labs/mega-evm-sub001/log"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// BlockExecutionResult is the aggregate outcome of one block.
type BlockExecutionResult struct {
	Receipts []*types.Receipt
	Requests [][]byte // always empty for MegaETH
	GasUsed  uint64
}

// BlockExecutionContext carries the per-block inputs beyond the EVM block
// environment.
type BlockExecutionContext struct {
	ParentHash       types.Hash
	ParentBeaconRoot *types.Hash
	Limits           BlockLimits
}

// BlockExecutor sequences the transactions of one block: pre-block system
// calls, per-transaction execution with block-level limit enforcement,
// receipt aggregation, and the final commit. Single-threaded; one
// transaction executes at a time.
type BlockExecutor struct {
	config  *params.ChainConfig
	rules   params.Rules
	statedb *state.StateDB
	evm     *vm.EVM
	limiter *BlockLimiter
	gasPool GasPool
	logger  *log.Logger

	ctx      BlockExecutionContext
	receipts []*types.Receipt
	txs      []*types.Transaction
	txIndex  int
}

// NewBlockExecutor builds the executor for one block. The spec id derived
// from the block timestamp must match the EVM configuration, and the
// assumed Optimism hardforks must be active.
func NewBlockExecutor(config *params.ChainConfig, blockCtx vm.BlockContext, ctx BlockExecutionContext, statedb *state.StateDB, envs vm.ExternalEnvs) (*BlockExecutor, error) {
	rules := config.Rules(blockCtx.Time)
	if !rules.IsRegolith {
		return nil, fmt.Errorf("block executor requires the Regolith hardfork at time %d", blockCtx.Time)
	}
	if !rules.IsCanyon {
		return nil, fmt.Errorf("block executor requires the Canyon hardfork at time %d", blockCtx.Time)
	}
	if !rules.IsIsthmus {
		return nil, fmt.Errorf("block executor requires the Isthmus hardfork at time %d", blockCtx.Time)
	}

	evm := vm.NewEVM(blockCtx, vm.TxContext{}, vm.Config{
		Spec:    rules.Spec,
		ChainID: config.ChainID,
	}, statedb)
	if envs != nil {
		evm.SetExternalEnvs(envs)
	}
	if rules.Spec.Enabled(params.MiniRex) {
		evm.SetLimits(limit.NewAdditionalLimit())
	}

	limits := ctx.Limits
	limits.BlockGasLimit = blockCtx.GasLimit

	be := &BlockExecutor{
		config:  config,
		rules:   rules,
		statedb: statedb,
		evm:     evm,
		limiter: limits.NewBlockLimiter(),
		logger:  log.Default().Module("executor"),
		ctx:     ctx,
	}
	be.gasPool.AddGas(blockCtx.GasLimit)
	return be, nil
}

// EVM returns the executor's EVM instance.
func (be *BlockExecutor) EVM() *vm.EVM { return be.evm }

// Limiter returns the running block limiter.
func (be *BlockExecutor) Limiter() *BlockLimiter { return be.limiter }

// ApplyPreExecutionChanges runs the pre-block system calls in order:
// EIP-2935 parent hash, EIP-4788 beacon root, and the MiniRex oracle
// deploy. Each delta is folded into the journaled state; no receipts are
// emitted. Any failure fails the whole block.
func (be *BlockExecutor) ApplyPreExecutionChanges() error {
	number := be.evm.Context.BlockNumber

	if be.rules.IsPrague && number > 0 {
		if err := ProcessParentBlockHash(be.statedb, number-1, be.ctx.ParentHash); err != nil {
			return err
		}
	}

	if be.rules.IsCancun {
		if number == 0 {
			if be.ctx.ParentBeaconRoot != nil && !be.ctx.ParentBeaconRoot.IsZero() {
				return ErrCancunGenesisBeaconRootNotZero
			}
		} else if err := ProcessBeaconBlockRoot(be.statedb, be.evm.Context.Time, be.ctx.ParentBeaconRoot); err != nil {
			return err
		}
	}

	if be.rules.IsMiniRex {
		if err := DeployOracleContract(be.statedb); err != nil {
			return err
		}
	}

	be.statedb.Finalise()
	return nil
}

// ExecuteTransaction runs one transaction through the limiter and the
// handler. A rejected transaction (limit or validity) returns an error
// with no state change and no receipt; the block proceeds. A database
// failure is returned raw and aborts the block.
func (be *BlockExecutor) ExecuteTransaction(tx *types.Transaction) (*types.Receipt, error) {
	var (
		txHash    = tx.Hash()
		txSize    = tx.Size()
		daSize    = tx.EstimatedDASize()
		isDeposit = tx.IsDeposit()
	)

	if err := be.limiter.PreExecutionCheck(txHash, tx.GasLimit, txSize, daSize, isDeposit); err != nil {
		return nil, err
	}

	// The deposit receipt needs the depositor's nonce before execution.
	var depositNonce *uint64
	if isDeposit {
		n := be.statedb.GetNonce(tx.From)
		depositNonce = &n
	}

	be.statedb.Prepare(txHash, be.txIndex)
	snapshot := be.statedb.Snapshot()

	outcome, err := ApplyTransaction(be.evm, be.statedb, tx, &be.gasPool)
	if err != nil {
		be.statedb.RevertToSnapshot(snapshot)
		return nil, &InvalidTxError{Hash: txHash, Err: err}
	}
	if dbErr := be.statedb.Error(); dbErr != nil {
		return nil, dbErr
	}

	gasUsed := outcome.Result.GasUsed
	if err := be.limiter.PostExecutionCheck(txHash, gasUsed, txSize, daSize, outcome.DataSize, outcome.KVUpdates); err != nil {
		be.statedb.RevertToSnapshot(snapshot)
		be.gasPool.AddGas(gasUsed)
		return nil, err
	}

	be.statedb.Finalise()

	status := types.ReceiptStatusFailed
	if outcome.Result.Succeeded() {
		status = types.ReceiptStatusSuccessful
	}
	receipt := types.NewReceipt(tx.Type, status, be.limiter.BlockGasUsed)
	receipt.TxHash = txHash
	receipt.GasUsed = gasUsed
	receipt.Logs = outcome.Result.Logs
	receipt.Bloom = types.LogsBloom(receipt.Logs)
	if outcome.Result.ContractAddress != nil {
		receipt.ContractAddress = *outcome.Result.ContractAddress
	}
	if isDeposit {
		// Canyon is always active here, so the deposit receipt version
		// is always 1 and the nonce is the pre-execution value.
		version := uint64(1)
		receipt.DepositNonce = depositNonce
		receipt.DepositReceiptVersion = &version
	}

	be.receipts = append(be.receipts, receipt)
	be.txs = append(be.txs, tx)
	be.txIndex++

	be.logger.Debug("executed transaction",
		"hash", txHash.Hex(),
		"gasUsed", gasUsed,
		"dataSize", outcome.DataSize,
		"kvUpdates", outcome.KVUpdates,
		"status", status)

	return receipt, nil
}

// ExecuteTransactions runs a sequence of transactions, skipping the ones
// rejected by validity or limit checks and aborting on database errors.
// Returns the skipped transactions' errors keyed by index.
func (be *BlockExecutor) ExecuteTransactions(txs []*types.Transaction) (map[int]error, error) {
	skipped := make(map[int]error)
	for i, tx := range txs {
		if _, err := be.ExecuteTransaction(tx); err != nil {
			if isBlockAbort(err) {
				return skipped, err
			}
			be.logger.Warn("rejected transaction", "index", i, "err", err)
			skipped[i] = err
		}
	}
	return skipped, nil
}

// isBlockAbort distinguishes recoverable per-transaction rejections from
// failures that abort the block.
func isBlockAbort(err error) bool {
	switch err.(type) {
	case *InvalidTxError, *GasLimitReachedError:
		return false
	}
	if err == ErrGasPoolExhausted {
		return false
	}
	return true
}

// Finish applies the post-block balance increments (none for MegaETH
// beyond the beneficiary rewards already paid), commits the state, and
// returns the aggregate result.
func (be *BlockExecutor) Finish() (*BlockExecutionResult, error) {
	if err := be.statedb.Commit(); err != nil {
		return nil, err
	}
	types.DeriveReceiptFields(be.receipts, types.Hash{}, be.evm.Context.BlockNumber, be.txs)
	return &BlockExecutionResult{
		Receipts: be.receipts,
		Requests: nil,
		GasUsed:  be.limiter.BlockGasUsed,
	}, nil
}
