package core

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/core/vm"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// IntrinsicGas computes the gas owed before any opcode runs: the 21000
// base, calldata bytes, access list, EIP-7702 authorizations, the create
// surcharge with EIP-3860 word gas, and the MegaETH per-byte calldata
// additive under MiniRex.
func IntrinsicGas(tx *types.Transaction, spec params.SpecID) uint64 {
	gas := params.TxGas
	if tx.IsCreate() {
		gas += params.TxGasContractCreate - params.TxGas
		gas += toWordSize(uint64(len(tx.Data))) * params.InitCodeWordGas
	}
	for _, b := range tx.Data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGas
		}
	}
	for _, tuple := range tx.AccessList {
		gas += params.TxAccessListAddress
		gas += uint64(len(tuple.StorageKeys)) * params.TxAccessListStorage
	}
	gas += uint64(len(tx.AuthList)) * params.TxAuthEmptyAccount
	if spec.Enabled(params.MiniRex) {
		gas += params.CalldataAdditionalGas * uint64(len(tx.Data))
	}
	return gas
}

// FloorDataGas computes the EIP-7623 calldata floor: tokens are one per
// zero byte and four per non-zero byte.
func FloorDataGas(data []byte) uint64 {
	var tokens uint64
	for _, b := range data {
		if b == 0 {
			tokens++
		} else {
			tokens += 4
		}
	}
	return params.TxGas + tokens*params.FloorCostPerToken
}

func toWordSize(n uint64) uint64 {
	return (n + 31) / 32
}

// validateTransaction performs the stateful pre-execution checks of §4.5:
// chain id, fee caps, nonce, EOA sender, and balance coverage. Deposits
// skip all of them; their validity was established on L1.
func validateTransaction(evm *vm.EVM, statedb *state.StateDB, tx *types.Transaction, baseFee *uint256.Int) error {
	if tx.IsDeposit() {
		return nil
	}
	if tx.Type == types.BlobTxType {
		return ErrBlobTxNotSupported
	}
	if tx.ChainID != 0 && tx.ChainID != evm.Config.ChainID {
		return fmt.Errorf("%w: have %d, want %d", ErrInvalidChainID, tx.ChainID, evm.Config.ChainID)
	}
	if tx.GasFeeCap != nil {
		if tx.GasTipCap != nil && tx.GasFeeCap.Cmp(tx.GasTipCap) < 0 {
			return fmt.Errorf("%w: tip %s, cap %s", ErrTipAboveFeeCap, tx.GasTipCap, tx.GasFeeCap)
		}
		if baseFee != nil && tx.GasFeeCap.Cmp(baseFee) < 0 {
			return fmt.Errorf("%w: cap %s, base fee %s", ErrFeeCapTooLow, tx.GasFeeCap, baseFee)
		}
	}

	stateNonce := statedb.GetNonce(tx.From)
	if tx.Nonce < stateNonce {
		return fmt.Errorf("%w: address %s, tx nonce %d, state nonce %d", ErrNonceTooLow, tx.From, tx.Nonce, stateNonce)
	}
	if tx.Nonce > stateNonce {
		return fmt.Errorf("%w: address %s, tx nonce %d, state nonce %d", ErrNonceTooHigh, tx.From, tx.Nonce, stateNonce)
	}

	// EIP-3607, with the EIP-7702 delegation exception.
	if codeHash := statedb.GetCodeHash(tx.From); !codeHash.IsZero() && codeHash != types.EmptyCodeHash {
		if !types.HasDelegationPrefix(statedb.GetCode(tx.From)) {
			return fmt.Errorf("%w: address %s", ErrSenderNoEOA, tx.From)
		}
	}

	// Balance must cover value plus the worst-case fee.
	feeCap := tx.GasFeeCap
	if feeCap == nil {
		feeCap = tx.GasPrice
	}
	if feeCap == nil {
		feeCap = new(uint256.Int)
	}
	cost := new(uint256.Int).Mul(feeCap, uint256.NewInt(tx.GasLimit))
	if tx.Value != nil {
		cost.Add(cost, tx.Value)
	}
	if statedb.GetBalance(tx.From).Cmp(cost) < 0 {
		return fmt.Errorf("%w: address %s, have %s, want %s", ErrInsufficientFunds, tx.From, statedb.GetBalance(tx.From), cost)
	}
	return nil
}

// ApplyTransaction runs one transaction through the MegaEVM per the §4.5
// lifecycle and returns its outcome. The caller commits or discards the
// state delta afterwards.
func ApplyTransaction(evm *vm.EVM, statedb *state.StateDB, tx *types.Transaction, gp *GasPool) (*MegaTransactionOutcome, error) {
	isDeposit := tx.IsDeposit()
	baseFee := evm.Context.BaseFee

	if err := gp.SubGas(tx.GasLimit); err != nil {
		return nil, err
	}
	if err := validateTransaction(evm, statedb, tx, baseFee); err != nil {
		gp.AddGas(tx.GasLimit)
		return nil, err
	}

	gasPrice := tx.EffectiveGasPrice(baseFee)
	evm.TxContext = vm.TxContext{
		Origin:     tx.From,
		GasPrice:   gasPrice,
		BlobHashes: tx.BlobHashes,
	}

	// Deposits mint their value on L2 before anything else.
	if isDeposit && tx.Mint != nil && !tx.Mint.IsZero() {
		statedb.AddBalance(tx.From, tx.Mint)
	}

	// Deduct the upfront gas purchase.
	if !isDeposit {
		upfront := new(uint256.Int).Mul(gasPrice, uint256.NewInt(tx.GasLimit))
		statedb.SubBalance(tx.From, upfront)
	}

	// Intrinsic and floor gas.
	intrinsic := IntrinsicGas(tx, evm.Config.Spec)
	if intrinsic > tx.GasLimit {
		gp.AddGas(tx.GasLimit)
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.GasLimit, intrinsic)
	}
	floorGas := FloorDataGas(tx.Data)
	if !isDeposit && floorGas > tx.GasLimit {
		gp.AddGas(tx.GasLimit)
		return nil, fmt.Errorf("%w: have %d, want %d", ErrFloorDataGas, tx.GasLimit, floorGas)
	}

	// EIP-7702 authorizations mutate state before the first frame.
	if tx.Type == types.SetCodeTxType && len(tx.AuthList) > 0 {
		if refund := ApplyAuthorizations(statedb, tx, evm.Config.ChainID); refund > 0 {
			statedb.AddRefund(refund)
		}
	}

	// Reset the tracker and record the intrinsic contributions.
	if evm.Limits != nil {
		evm.Limits.Reset()
		evm.Limits.BeforeTxStart(tx)
	}

	// Pre-warm the EIP-2929 access list: sender, target, coinbase,
	// precompiles, and the declared access list.
	statedb.AddAddressToAccessList(tx.From)
	if tx.To != nil {
		statedb.AddAddressToAccessList(*tx.To)
	}
	statedb.AddAddressToAccessList(evm.Context.Coinbase)
	for _, addr := range vm.PrecompileAddresses(evm.Config.Spec) {
		statedb.AddAddressToAccessList(addr)
	}
	for _, tuple := range tx.AccessList {
		statedb.AddAddressToAccessList(tuple.Address)
		for _, key := range tuple.StorageKeys {
			statedb.AddSlotToAccessList(tuple.Address, key)
		}
	}

	// The caller's nonce is bumped before the frame; for creates the EVM
	// consumes the pre-bump value to derive the address, so the bump
	// happens inside Create instead.
	if !tx.IsCreate() {
		statedb.SetNonce(tx.From, statedb.GetNonce(tx.From)+1)
	}

	gasLeft := tx.GasLimit - intrinsic

	var (
		ret          []byte
		gasRemaining uint64
		execErr      error
		createdAddr  *types.Address
	)
	if tx.IsCreate() {
		var addr types.Address
		ret, addr, gasRemaining, execErr = evm.Create(tx.From, tx.Data, gasLeft, txValue(tx))
		if execErr == nil {
			createdAddr = &addr
		}
	} else {
		ret, gasRemaining, execErr = evm.Call(tx.From, *tx.To, tx.Data, gasLeft, txValue(tx))
	}

	// Limit-exceeded frames spend everything: remaining gas, refund, and
	// output are all zeroed.
	limitExceeded := evm.Limits != nil && evm.Limits.ExceededLimit()
	if limitExceeded {
		gasRemaining = 0
		ret = nil
	}

	gasUsed := intrinsic + (gasLeft - gasRemaining)

	// EIP-7623: bill at least the calldata floor. Deposits pay no fees
	// and are exempt.
	if !isDeposit && gasUsed < floorGas {
		gasUsed = floorGas
	}

	// EIP-3529 refund, applied only on success: suppressed when a limit
	// tripped, on reverts, and on halts.
	if execErr == nil || errors.Is(execErr, vm.ErrExecutionReverted) {
		if !limitExceeded && execErr == nil {
			refund := statedb.GetRefund()
			if maxRefund := gasUsed / params.MaxRefundQuotient; refund > maxRefund {
				refund = maxRefund
			}
			gasUsed -= refund
		}
	}

	// Refund detained gas: erase the cost of everything the volatile
	// tracker held back.
	if evm.Limits != nil {
		detained := evm.Limits.Volatile.RefundDetained()
		if detained > gasUsed {
			detained = gasUsed
		}
		gasUsed -= detained
	}

	// Reimburse the caller and return the unused gas to the pool.
	gasRemainingTotal := tx.GasLimit - gasUsed
	if !isDeposit && gasRemainingTotal > 0 {
		reimburse := new(uint256.Int).Mul(gasPrice, uint256.NewInt(gasRemainingTotal))
		statedb.AddBalance(tx.From, reimburse)
	}
	gp.AddGas(gasRemainingTotal)

	// Reward the beneficiary with the priority fee.
	if !isDeposit && !evm.Config.DisableBeneficiary {
		tip := tx.EffectiveTip(baseFee)
		if !tip.IsZero() {
			statedb.AddBalance(evm.Context.Coinbase, new(uint256.Int).Mul(tip, uint256.NewInt(gasUsed)))
		}
	}

	result := buildExecutionResult(evm, statedb, tx, ret, gasUsed, execErr, createdAddr)

	outcome := &MegaTransactionOutcome{Result: result}
	if evm.Limits != nil {
		usage := evm.Limits.Usage()
		outcome.DataSize = usage.DataSize
		outcome.KVUpdates = usage.KVUpdates
		outcome.ComputeGasUsed = usage.ComputeGas
	}
	return outcome, nil
}

func txValue(tx *types.Transaction) *uint256.Int {
	if tx.Value == nil {
		return new(uint256.Int)
	}
	return tx.Value
}

// buildExecutionResult maps the frame outcome to an ExecutionResult,
// rewriting generic out-of-gas halts to the specific MegaETH limit
// variants when the tracker reports a violation (§4.5 error-mapping rule:
// data limit first, then KV updates, then compute gas).
func buildExecutionResult(evm *vm.EVM, statedb *state.StateDB, tx *types.Transaction, ret []byte, gasUsed uint64, execErr error, createdAddr *types.Address) *ExecutionResult {
	result := &ExecutionResult{
		GasUsed:         gasUsed,
		Output:          ret,
		ContractAddress: createdAddr,
	}

	switch {
	case execErr == nil:
		result.Status = StatusSuccess
		result.Logs = statedb.Logs()
	case errors.Is(execErr, vm.ErrExecutionReverted):
		result.Status = StatusRevert
	default:
		result.Status = StatusHalt
		result.HaltReason = haltReasonFromError(execErr)
	}

	if result.HaltReason == HaltOutOfGas && evm.Limits != nil {
		res := evm.Limits.CheckLimit()
		switch res.Kind {
		case limit.ExceedsDataLimit:
			result.HaltReason = HaltDataLimitExceeded
			result.LimitInfo = &LimitInfo{Limit: res.Limit, Actual: res.Used}
			result.Output = nil
		case limit.ExceedsKVUpdateLimit:
			result.HaltReason = HaltKVUpdateLimitExceeded
			result.LimitInfo = &LimitInfo{Limit: res.Limit, Actual: res.Used}
			result.Output = nil
		default:
			if evm.Limits.Compute.ExceedsLimit(evm.Limits.ComputeGasLimit) {
				result.HaltReason = HaltComputeGasLimitExceeded
				result.LimitInfo = &LimitInfo{
					Limit:  evm.Limits.ComputeGasLimit,
					Actual: evm.Limits.Compute.Used(),
				}
			}
		}
	}
	return result
}

func haltReasonFromError(err error) HaltReason {
	switch {
	case errors.Is(err, vm.ErrOutOfGas):
		return HaltOutOfGas
	case errors.Is(err, vm.ErrInvalidOpCode):
		return HaltInvalidOpcode
	case errors.Is(err, vm.ErrInvalidJump):
		return HaltInvalidJump
	case errors.Is(err, vm.ErrStackOverflow), errors.Is(err, vm.ErrStackUnderflow):
		return HaltStackError
	case errors.Is(err, vm.ErrWriteProtection):
		return HaltWriteProtection
	case errors.Is(err, vm.ErrReentrancySentry):
		return HaltReentrancySentry
	case errors.Is(err, vm.ErrMaxInitCodeSizeExceeded):
		return HaltInitCodeSizeLimit
	case errors.Is(err, vm.ErrMaxCodeSizeExceeded):
		return HaltCodeSizeLimit
	case errors.Is(err, vm.ErrContractAddressCollision):
		return HaltCreateCollision
	case errors.Is(err, vm.ErrMaxCallDepthExceeded):
		return HaltDepthLimit
	default:
		return HaltOther
	}
}
