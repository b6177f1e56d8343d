package vm

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// executionFunc runs one opcode. A non-nil error halts the frame.
type executionFunc func(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error)

// --- Arithmetic ---

func opAdd(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Add(&x, y)
	return nil, nil
}

func opMul(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Mul(&x, y)
	return nil, nil
}

func opSub(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Sub(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.SMod(&x, y)
	return nil, nil
}

func opAddmod(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Pop()
	z := stack.Peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Pop()
	z := stack.Peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opExp(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	base := stack.Pop()
	exponent := stack.Peek()
	// Dynamic cost: 50 per byte of the exponent.
	expBytes := uint64((exponent.BitLen() + 7) / 8)
	if !contract.UseGas(expBytes * params.ExpByteGas) {
		return nil, ErrOutOfGas
	}
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	back := stack.Pop()
	num := stack.Peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

// --- Comparison and bitwise ---

func opLt(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIsZero(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	th := stack.Pop()
	val := stack.Peek()
	val.Byte(&th)
	return nil, nil
}

func opSHL(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	shift := stack.Pop()
	value := stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSHR(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	shift := stack.Pop()
	value := stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSAR(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	shift := stack.Pop()
	value := stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil, nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil, nil
}

// --- Hashing ---

func opKeccak256(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	size := stack.Peek()
	if !contract.UseGas(toWordSize(size.Uint64()) * params.Keccak256WordGas) {
		return nil, ErrOutOfGas
	}
	data := mem.GetPtr(offset.Uint64(), size.Uint64())
	size.SetBytes(crypto.Keccak256(data))
	return nil, nil
}

// --- Environment ---

func opAddress(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetBytes(contract.Address.Bytes()))
	return nil, nil
}

func opBalance(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.Address(slot.Bytes20())
	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	slot.Set(evm.StateDB.GetBalance(addr))
	return nil, nil
}

func opOrigin(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetBytes(evm.TxContext.Origin.Bytes()))
	return nil, nil
}

func opCaller(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetBytes(contract.Caller.Bytes()))
	return nil, nil
}

func opCallValue(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).Set(contract.Value))
	return nil, nil
}

func opCalldataLoad(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		x.SetBytes(getData(contract.Input, offset, 32))
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCalldataSize(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(uint64(len(contract.Input))))
	return nil, nil
}

func opCalldataCopy(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	memOffset := stack.Pop()
	dataOffset := stack.Pop()
	length := stack.Pop()
	if !contract.UseGas(toWordSize(length.Uint64()) * params.CopyGas) {
		return nil, ErrOutOfGas
	}
	dataOff, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOff = ^uint64(0)
	}
	mem.Set(memOffset.Uint64(), length.Uint64(), getData(contract.Input, dataOff, length.Uint64()))
	return nil, nil
}

func opCodeSize(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(uint64(len(contract.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	memOffset := stack.Pop()
	codeOffset := stack.Pop()
	length := stack.Pop()
	if !contract.UseGas(toWordSize(length.Uint64()) * params.CopyGas) {
		return nil, ErrOutOfGas
	}
	codeOff, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOff = ^uint64(0)
	}
	mem.Set(memOffset.Uint64(), length.Uint64(), getData(contract.Code, codeOff, length.Uint64()))
	return nil, nil
}

func opGasPrice(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	price := evm.TxContext.GasPrice
	if price == nil {
		price = new(uint256.Int)
	}
	stack.Push(new(uint256.Int).Set(price))
	return nil, nil
}

func opExtcodesize(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.Address(slot.Bytes20())
	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	slot.SetUint64(uint64(evm.StateDB.GetCodeSize(addr)))
	return nil, nil
}

func opExtcodecopy(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	a := stack.Pop()
	memOffset := stack.Pop()
	codeOffset := stack.Pop()
	length := stack.Pop()
	addr := types.Address(a.Bytes20())
	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	if !contract.UseGas(toWordSize(length.Uint64()) * params.CopyGas) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	codeOff, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOff = ^uint64(0)
	}
	mem.Set(memOffset.Uint64(), length.Uint64(), getData(evm.StateDB.GetCode(addr), codeOff, length.Uint64()))
	return nil, nil
}

func opExtcodehash(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.Address(slot.Bytes20())
	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	if evm.StateDB.Empty(addr) {
		slot.Clear()
	} else {
		slot.SetBytes(evm.StateDB.GetCodeHash(addr).Bytes())
	}
	return nil, nil
}

func opReturndataSize(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(uint64(len(evm.returnData))))
	return nil, nil
}

func opReturndataCopy(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	memOffset := stack.Pop()
	dataOffset := stack.Pop()
	length := stack.Pop()
	if !contract.UseGas(toWordSize(length.Uint64()) * params.CopyGas) {
		return nil, ErrOutOfGas
	}
	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	end := offset + length.Uint64()
	if end < offset || end > uint64(len(evm.returnData)) {
		return nil, ErrReturnDataOutOfBounds
	}
	mem.Set(memOffset.Uint64(), length.Uint64(), evm.returnData[offset:end])
	return nil, nil
}

// --- Block environment (each marks the volatile bitmap) ---

func opBlockhash(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessBlockHash)
	num := stack.Peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	upper := evm.Context.BlockNumber
	var lower uint64
	if upper > 256 {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper && evm.Context.GetHash != nil {
		num.SetBytes(evm.Context.GetHash(num64).Bytes())
	} else {
		num.Clear()
	}
	return nil, nil
}

func opCoinbase(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessCoinbase)
	stack.Push(new(uint256.Int).SetBytes(evm.Context.Coinbase.Bytes()))
	return nil, nil
}

func opTimestamp(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessTimestamp)
	stack.Push(new(uint256.Int).SetUint64(evm.Context.Time))
	return nil, nil
}

func opNumber(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessBlockNumber)
	stack.Push(new(uint256.Int).SetUint64(evm.Context.BlockNumber))
	return nil, nil
}

func opPrevRandao(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessPrevRandao)
	stack.Push(new(uint256.Int).SetBytes(evm.Context.PrevRandao.Bytes()))
	return nil, nil
}

func opGasLimit(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessGasLimit)
	stack.Push(new(uint256.Int).SetUint64(evm.Context.GasLimit))
	return nil, nil
}

func opChainID(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(evm.Config.ChainID))
	return nil, nil
}

func opSelfBalance(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBeneficiaryTouch(contract.Address)
	stack.Push(evm.StateDB.GetBalance(contract.Address))
	return nil, nil
}

func opBaseFee(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessBaseFee)
	fee := evm.Context.BaseFee
	if fee == nil {
		fee = new(uint256.Int)
	}
	stack.Push(new(uint256.Int).Set(fee))
	return nil, nil
}

func opBlobHash(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessBlobHash)
	index := stack.Peek()
	if idx, overflow := index.Uint64WithOverflow(); !overflow && idx < uint64(len(evm.TxContext.BlobHashes)) {
		index.SetBytes(evm.TxContext.BlobHashes[idx].Bytes())
	} else {
		index.Clear()
	}
	return nil, nil
}

func opBlobBaseFee(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	evm.markBlockEnvAccess(limit.AccessBlobBaseFee)
	fee := evm.Context.BlobBaseFee
	if fee == nil {
		fee = new(uint256.Int)
	}
	stack.Push(new(uint256.Int).Set(fee))
	return nil, nil
}

// --- Stack, memory, flow ---

func opPop(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	return nil, nil
}

func opMload(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	v := stack.Peek()
	offset := v.Uint64()
	v.SetBytes(mem.GetPtr(offset, 32))
	return nil, nil
}

func opMstore(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	val := stack.Pop()
	mem.Set32(offset.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	val := stack.Pop()
	mem.SetByte(offset.Uint64(), byte(val.Uint64()))
	return nil, nil
}

func opMcopy(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	dst := stack.Pop()
	src := stack.Pop()
	length := stack.Pop()
	if !contract.UseGas(toWordSize(length.Uint64()) * params.CopyGas) {
		return nil, ErrOutOfGas
	}
	data := mem.GetCopy(src.Uint64(), length.Uint64())
	mem.Set(dst.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opSload(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Peek()
	key := types.U256ToHash(loc)
	if !contract.UseGas(gasEIP2929SlotCheck(evm, contract.Address, key)) {
		return nil, ErrOutOfGas
	}
	val := evm.StateDB.GetState(contract.Address, key)
	loc.SetBytes(val.Bytes())
	return nil, nil
}

func opSstore(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	if evm.readOnly {
		return nil, ErrWriteProtection
	}
	loc := stack.Pop()
	val := stack.Pop()
	key := types.U256ToHash(&loc)
	value := types.U256ToHash(&val)

	// EIP-2200 sentry.
	if contract.Gas <= params.SstoreSentryGas {
		return nil, ErrReentrancySentry
	}

	coldCost := gasEIP2929SlotCheck(evm, contract.Address, key)

	current := evm.StateDB.GetState(contract.Address, key)
	original := evm.StateDB.GetCommittedState(contract.Address, key)
	gas, refund := sstoreGasAndRefund(original, current, value, params.SstoreSetGas)
	if !contract.UseGas(gas + coldCost) {
		return nil, ErrOutOfGas
	}
	applyRefund(evm, refund)
	evm.StateDB.SetState(contract.Address, key, value)
	return nil, nil
}

func applyRefund(evm *EVM, refund int64) {
	if refund > 0 {
		evm.StateDB.AddRefund(uint64(refund))
	} else if refund < 0 {
		evm.StateDB.SubRefund(uint64(-refund))
	}
}

func opTload(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Peek()
	key := types.U256ToHash(loc)
	val := evm.StateDB.GetTransientState(contract.Address, key)
	loc.SetBytes(val.Bytes())
	return nil, nil
}

func opTstore(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	if evm.readOnly {
		return nil, ErrWriteProtection
	}
	loc := stack.Pop()
	val := stack.Pop()
	evm.StateDB.SetTransientState(contract.Address, types.U256ToHash(&loc), types.U256ToHash(&val))
	return nil, nil
}

func opJump(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	dest := stack.Pop()
	if !contract.ValidJumpdest(&dest) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	dest := stack.Pop()
	cond := stack.Pop()
	if !cond.IsZero() {
		if !contract.ValidJumpdest(&dest) {
			return nil, ErrInvalidJump
		}
		*pc = dest.Uint64()
	} else {
		*pc++
	}
	return nil, nil
}

func opPc(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(*pc))
	return nil, nil
}

func opMsize(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(uint64(mem.Len())))
	return nil, nil
}

func opGas(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int).SetUint64(contract.Gas))
	return nil, nil
}

func opJumpdest(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	return nil, nil
}

func opPush0(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	stack.Push(new(uint256.Int))
	return nil, nil
}

// makePush builds the PUSH1..PUSH32 handlers.
func makePush(size uint64) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
		start := *pc + 1
		stack.Push(new(uint256.Int).SetBytes(getData(contract.Code, start, size)))
		*pc += size
		return nil, nil
	}
}

// makeDup builds the DUP1..DUP16 handlers.
func makeDup(n int) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
		stack.Dup(n)
		return nil, nil
	}
}

// makeSwap builds the SWAP1..SWAP16 handlers.
func makeSwap(n int) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
		stack.Swap(n)
		return nil, nil
	}
}

// --- Logging ---

// makeLog builds the LOG0..LOG4 handlers. Topic and data gas are charged
// here; memory expansion is charged by the jump table.
func makeLog(numTopics int) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
		if evm.readOnly {
			return nil, ErrWriteProtection
		}
		offset := stack.Pop()
		size := stack.Pop()
		dataLen := size.Uint64()
		cost := uint64(numTopics)*params.LogTopicGas + dataLen*params.LogDataGas
		if !contract.UseGas(cost) {
			return nil, ErrOutOfGas
		}
		topics := make([]types.Hash, numTopics)
		for i := 0; i < numTopics; i++ {
			t := stack.Pop()
			topics[i] = types.U256ToHash(&t)
		}
		data := mem.GetCopy(offset.Uint64(), dataLen)
		evm.StateDB.AddLog(&types.Log{
			Address: contract.Address,
			Topics:  topics,
			Data:    data,
		})
		return nil, nil
	}
}

// --- Calls and creates ---

// callGas applies the EIP-150 63/64 rule.
func callGas(available, requested uint64) uint64 {
	maxForward := available - available/params.CallGasFraction
	if requested > maxForward {
		return maxForward
	}
	return requested
}

func opCall(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	gasReq := stack.Pop()
	addrWord := stack.Pop()
	value := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	addr := types.Address(addrWord.Bytes20())
	hasTransfer := !value.IsZero()
	if evm.readOnly && hasTransfer {
		return nil, ErrWriteProtection
	}

	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	evm.markOracleTouch(addr)

	var extra uint64
	if hasTransfer {
		extra += params.CallValueGas
		if !evm.StateDB.Exist(addr) {
			extra += evm.newAccountGas(addr)
		}
	}
	if !contract.UseGas(extra) {
		return nil, ErrOutOfGas
	}

	gasLimit := callGas(contract.Gas, capUint64(&gasReq))
	if !contract.UseGas(gasLimit) {
		return nil, ErrOutOfGas
	}
	if hasTransfer {
		gasLimit += params.CallStipend
	}

	args := mem.GetCopy(inOffset.Uint64(), inSize.Uint64())
	ret, returnGas, err := evm.Call(contract.Address, addr, args, gasLimit, &value)

	pushCallResult(evm, contract, mem, stack, ret, returnGas, err, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

func opCallCode(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	gasReq := stack.Pop()
	addrWord := stack.Pop()
	value := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	addr := types.Address(addrWord.Bytes20())
	hasTransfer := !value.IsZero()

	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	evm.markOracleTouch(addr)

	var extra uint64
	if hasTransfer {
		extra += params.CallValueGas
	}
	if !contract.UseGas(extra) {
		return nil, ErrOutOfGas
	}

	gasLimit := callGas(contract.Gas, capUint64(&gasReq))
	if !contract.UseGas(gasLimit) {
		return nil, ErrOutOfGas
	}
	if hasTransfer {
		gasLimit += params.CallStipend
	}

	args := mem.GetCopy(inOffset.Uint64(), inSize.Uint64())
	ret, returnGas, err := evm.CallCode(contract.Address, addr, args, gasLimit, &value)

	pushCallResult(evm, contract, mem, stack, ret, returnGas, err, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

func opDelegateCall(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	gasReq := stack.Pop()
	addrWord := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	addr := types.Address(addrWord.Bytes20())

	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	evm.markOracleTouch(addr)

	gasLimit := callGas(contract.Gas, capUint64(&gasReq))
	if !contract.UseGas(gasLimit) {
		return nil, ErrOutOfGas
	}

	args := mem.GetCopy(inOffset.Uint64(), inSize.Uint64())
	ret, returnGas, err := evm.DelegateCall(contract.Caller, contract.Address, addr, args, gasLimit, contract.Value)

	pushCallResult(evm, contract, mem, stack, ret, returnGas, err, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

func opStaticCall(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	gasReq := stack.Pop()
	addrWord := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	addr := types.Address(addrWord.Bytes20())

	if !contract.UseGas(gasEIP2929AccountCheck(evm, addr)) {
		return nil, ErrOutOfGas
	}
	evm.markBeneficiaryTouch(addr)
	evm.markOracleTouch(addr)

	gasLimit := callGas(contract.Gas, capUint64(&gasReq))
	if !contract.UseGas(gasLimit) {
		return nil, ErrOutOfGas
	}

	args := mem.GetCopy(inOffset.Uint64(), inSize.Uint64())
	ret, returnGas, err := evm.StaticCall(contract.Address, addr, args, gasLimit)

	pushCallResult(evm, contract, mem, stack, ret, returnGas, err, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

// pushCallResult finalizes a call-family opcode: return gas, status word,
// return data buffer, and output memory.
func pushCallResult(evm *EVM, contract *Contract, mem *Memory, stack *Stack, ret []byte, returnGas uint64, err error, retOffset, retSize uint64) {
	contract.RefundGas(returnGas)
	if err != nil {
		stack.Push(new(uint256.Int))
	} else {
		stack.Push(new(uint256.Int).SetOne())
	}
	if len(ret) > 0 {
		n := uint64(len(ret))
		if n > retSize {
			n = retSize
		}
		mem.Set(retOffset, n, ret)
	}
	evm.returnData = ret
}

func opCreate(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	return doCreate(evm, contract, mem, stack, false)
}

func opCreate2(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	return doCreate(evm, contract, mem, stack, true)
}

func doCreate(evm *EVM, contract *Contract, mem *Memory, stack *Stack, isCreate2 bool) ([]byte, error) {
	if evm.readOnly {
		return nil, ErrWriteProtection
	}
	value := stack.Pop()
	offset := stack.Pop()
	size := stack.Pop()
	var salt uint256.Int
	if isCreate2 {
		salt = stack.Pop()
	}

	length := size.Uint64()
	if length > uint64(evm.maxInitCodeSize()) {
		return nil, ErrMaxInitCodeSizeExceeded
	}
	// EIP-3860 initcode word gas.
	if !contract.UseGas(toWordSize(length) * params.InitCodeWordGas) {
		return nil, ErrOutOfGas
	}

	// Creation cost: dynamic new-account gas (bucket-dependent under
	// MiniRex, the flat schedule otherwise). CREATE2 also pays hashing.
	createCost := evm.newAccountGas(contract.Address)
	if !evm.Config.Spec.Enabled(params.MiniRex) {
		createCost = params.CreateGas
	}
	if isCreate2 {
		createCost += toWordSize(length) * params.Keccak256WordGas
	}
	if !contract.UseGas(createCost) {
		return nil, ErrOutOfGas
	}

	code := mem.GetCopy(offset.Uint64(), length)

	// EIP-150 rule: forward all but 1/64.
	gasLimit := contract.Gas - contract.Gas/params.CallGasFraction
	if !contract.UseGas(gasLimit) {
		return nil, ErrOutOfGas
	}

	var (
		ret     []byte
		addr    types.Address
		leftGas uint64
		err     error
	)
	if isCreate2 {
		ret, addr, leftGas, err = evm.Create2(contract.Address, code, gasLimit, &value, types.U256ToHash(&salt))
	} else {
		ret, addr, leftGas, err = evm.Create(contract.Address, code, gasLimit, &value)
	}

	contract.RefundGas(leftGas)
	if err != nil {
		stack.Push(new(uint256.Int))
		if errors.Is(err, ErrExecutionReverted) {
			evm.returnData = ret
		} else {
			evm.returnData = nil
		}
	} else {
		stack.Push(new(uint256.Int).SetBytes(addr.Bytes()))
		evm.returnData = nil
	}
	return nil, nil
}

// --- Halting ---

func opStop(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	return nil, nil
}

func opReturn(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	size := stack.Pop()
	return mem.GetCopy(offset.Uint64(), size.Uint64()), nil
}

func opRevert(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	size := stack.Pop()
	return mem.GetCopy(offset.Uint64(), size.Uint64()), ErrExecutionReverted
}

func opInvalid(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	return nil, ErrInvalidOpCode
}

// opSelfdestruct implements the Isthmus (EIP-6780) semantics: balance moves
// to the target; the account is removed only when created this transaction.
// Under MiniRex the jump table maps SELFDESTRUCT to opInvalid instead.
func opSelfdestruct(pc *uint64, evm *EVM, contract *Contract, mem *Memory, stack *Stack) ([]byte, error) {
	if evm.readOnly {
		return nil, ErrWriteProtection
	}
	beneficiaryWord := stack.Pop()
	beneficiary := types.Address(beneficiaryWord.Bytes20())
	if !contract.UseGas(gasEIP2929AccountCheck(evm, beneficiary)) {
		return nil, ErrOutOfGas
	}
	balance := evm.StateDB.GetBalance(contract.Address)
	if !balance.IsZero() && !evm.StateDB.Exist(beneficiary) {
		if !contract.UseGas(params.CallNewAccount) {
			return nil, ErrOutOfGas
		}
	}
	evm.StateDB.SubBalance(contract.Address, balance)
	evm.StateDB.AddBalance(beneficiary, balance)
	evm.StateDB.SelfDestruct6780(contract.Address)
	return nil, nil
}

// --- Helpers ---

// getData returns data[start:start+size], zero-padded.
func getData(data []byte, start, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	out := make([]byte, size)
	copy(out, data[start:end])
	return out
}

// capUint64 converts a 256-bit word to uint64, saturating on overflow.
func capUint64(v *uint256.Int) uint64 {
	n, overflow := v.Uint64WithOverflow()
	if overflow {
		return ^uint64(0)
	}
	return n
}
