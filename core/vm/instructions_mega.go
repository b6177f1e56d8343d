package vm

// instructions_mega.go holds the MiniRex opcode overrides: LOG with the data
// bomb, SSTORE with the bucket-dependent set cost, SLOAD with the oracle
// intercept, and SELFDESTRUCT disabled. CREATE/CREATE2 and the call family
// pick up their MiniRex behavior (raised size caps, dynamic new-account gas,
// limit hooks, volatile marking) through the spec gate in the shared
// handlers.

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// makeLogMiniRex wraps the standard LOG handler with the data-size hook.
// When the hook reports the limit exceeded, the frame halts with the
// out-of-gas sentinel; the handler rewrites the reason afterwards.
func makeLogMiniRex(numTopics int) executionFunc {
	std := makeLog(numTopics)
	return func(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
		dataLen := stack.Back(1).Uint64()
		ret, err := std(pc, evm, contract, mem, stack)
		if err != nil {
			return ret, err
		}
		if evm.Limits != nil && evm.Limits.OnLog(uint64(numTopics), dataLen).ExceededLimit() {
			return nil, ErrOutOfGas
		}
		return ret, nil
	}
}

// opSstoreMiniRex is SSTORE with the MiniRex changes: the zero-to-nonzero
// set cost is the current cost of the slot's SALT bucket, the reentrancy
// sentry is enforced unconditionally, and the data/KV hook runs after the
// write.
func opSstoreMiniRex(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	if evm.readOnly {
		return nil, ErrWriteProtection
	}
	loc := stack.Pop()
	val := stack.Pop()
	key := types.U256ToHash(&loc)
	value := types.U256ToHash(&val)

	if contract.Gas <= params.SstoreSentryGas {
		return nil, ErrReentrancySentry
	}

	coldCost := gasEIP2929SlotCheck(evm, contract.Address, key)

	current := evm.StateDB.GetState(contract.Address, key)
	original := evm.StateDB.GetCommittedState(contract.Address, key)
	setGas := evm.sstoreSetGas(contract.Address, key)
	gas, refund := sstoreGasAndRefund(original, current, value, setGas)
	if !contract.UseGas(gas + coldCost) {
		return nil, ErrOutOfGas
	}
	applyRefund(evm, refund)
	evm.StateDB.SetState(contract.Address, key, value)

	if evm.Limits != nil {
		res := limit.SStoreResult{Original: original, Present: current, New: value}
		if evm.Limits.OnSStore(res).ExceededLimit() {
			return nil, ErrOutOfGas
		}
	}
	return nil, nil
}

// opSloadMiniRex is SLOAD with the oracle intercept: reads of the oracle
// contract's storage consult ExternalEnvs first and are always priced cold,
// since a replay cannot tell whether the payload builder served the slot
// from the outside world.
func opSloadMiniRex(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Peek()
	key := types.U256ToHash(loc)

	if contract.Address == types.OracleContractAddress {
		evm.markOracleTouch(contract.Address)
		// Warm the slot for bookkeeping, but always charge the cold cost.
		gasEIP2929SlotCheck(evm, contract.Address, key)
		if !contract.UseGas(params.ColdSloadCost - params.WarmStorageReadCost) {
			return nil, ErrOutOfGas
		}
		if val, ok := evm.ExternalEnvs.OracleStorage(key); ok {
			loc.SetBytes(val.Bytes())
			return nil, nil
		}
		val := evm.StateDB.GetState(contract.Address, key)
		loc.SetBytes(val.Bytes())
		return nil, nil
	}

	if !contract.UseGas(gasEIP2929SlotCheck(evm, contract.Address, key)) {
		return nil, ErrOutOfGas
	}
	val := evm.StateDB.GetState(contract.Address, key)
	loc.SetBytes(val.Bytes())
	return nil, nil
}
