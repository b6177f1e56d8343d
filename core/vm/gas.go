package vm

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// memoryGasCost returns the cost of expanding memory to newSize bytes
// (word-aligned quadratic schedule). Returns overflow=true when the size is
// too large to price.
func memoryGasCost(mem *Memory, newSize uint64) (uint64, bool) {
	if newSize == 0 {
		return 0, false
	}
	// Anything above 2^32 words cannot be paid for anyway.
	if newSize > 0x1FFFFFFFE0 {
		return 0, true
	}
	words := (newSize + 31) / 32
	newCost := words*params.MemoryGas + words*words/512

	oldWords := (uint64(mem.Len()) + 31) / 32
	oldCost := oldWords*params.MemoryGas + oldWords*oldWords/512
	if newCost > oldCost {
		return newCost - oldCost, false
	}
	return 0, false
}

// toWordSize returns the number of 32-byte words required for n bytes.
func toWordSize(n uint64) uint64 {
	return (n + 31) / 32
}

// gasEIP2929AccountCheck charges nothing for a warm address and returns the
// cold surcharge for a cold one, warming it. The constant gas of the opcode
// covers the warm read cost.
func gasEIP2929AccountCheck(evm *EVM, addr types.Address) uint64 {
	if evm.StateDB.AddressInAccessList(addr) {
		return 0
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return params.ColdAccountAccessCost - params.WarmStorageReadCost
}

// gasEIP2929SlotCheck is the slot-granular analog of the account check.
func gasEIP2929SlotCheck(evm *EVM, addr types.Address, slot types.Hash) uint64 {
	if evm.StateDB.SlotInAccessList(addr, slot) {
		return 0
	}
	evm.StateDB.AddSlotToAccessList(addr, slot)
	return params.ColdSloadCost - params.WarmStorageReadCost
}

// sstoreGasAndRefund implements the EIP-2200 (net metering) schedule with
// EIP-3529 refunds. setGas is the zero-to-nonzero cost, which MiniRex makes
// bucket-dependent. The returned refund delta may be negative.
func sstoreGasAndRefund(original, current, new types.Hash, setGas uint64) (uint64, int64) {
	if current == new {
		return params.WarmStorageReadCost, 0
	}
	if original == current {
		if original.IsZero() {
			return setGas, 0
		}
		var refund int64
		if new.IsZero() {
			refund = int64(params.SstoreClearsRefund)
		}
		return params.SstoreResetGas, refund
	}
	// Dirty slot.
	var refund int64
	if !original.IsZero() {
		if current.IsZero() {
			refund -= int64(params.SstoreClearsRefund)
		} else if new.IsZero() {
			refund += int64(params.SstoreClearsRefund)
		}
	}
	if original == new {
		if original.IsZero() {
			refund += int64(setGas - params.WarmStorageReadCost)
		} else {
			refund += int64(params.SstoreResetGas - params.WarmStorageReadCost)
		}
	}
	return params.WarmStorageReadCost, refund
}
