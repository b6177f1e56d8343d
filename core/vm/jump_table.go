package vm

import "github.com/megaeth-labs/mega-evm-sub001/params"

// dynamicGasFunc prices the variable part of an operation (memory
// expansion); operation-specific dynamic costs are charged inside the
// handlers. overflow=true aborts with a gas overflow.
type dynamicGasFunc func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, bool)

// memorySizeFunc returns the highest memory byte an operation touches.
type memorySizeFunc func(stack *Stack) (uint64, bool)

// operation describes one opcode's dispatch metadata.
type operation struct {
	execute     executionFunc
	constantGas uint64
	minStack    int
	maxStack    int
	memorySize  memorySizeFunc
	dynamicGas  dynamicGasFunc
	halts       bool
	jumps       bool
	writes      bool
}

// JumpTable maps every opcode to its operation definition. Tables are built
// once per spec and borrowed read-only during execution.
type JumpTable [256]*operation

var (
	isthmusJumpTable *JumpTable
	miniRexJumpTable *JumpTable
)

func init() {
	isthmusJumpTable = newIsthmusJumpTable()
	miniRexJumpTable = newMiniRexJumpTable()
}

// --- Memory size functions ---

func memoryRange(offsetBack, sizeBack int) memorySizeFunc {
	return func(stack *Stack) (uint64, bool) {
		size, overflow := stack.Back(sizeBack).Uint64WithOverflow()
		if overflow {
			return 0, true
		}
		if size == 0 {
			return 0, false
		}
		offset, overflow := stack.Back(offsetBack).Uint64WithOverflow()
		if overflow {
			return 0, true
		}
		end := offset + size
		if end < offset {
			return 0, true
		}
		return end, false
	}
}

func memoryMax(a, b memorySizeFunc) memorySizeFunc {
	return func(stack *Stack) (uint64, bool) {
		x, overflow := a(stack)
		if overflow {
			return 0, true
		}
		y, overflow := b(stack)
		if overflow {
			return 0, true
		}
		if x > y {
			return x, false
		}
		return y, false
	}
}

func memoryFixed(offsetBack int, size uint64) memorySizeFunc {
	return func(stack *Stack) (uint64, bool) {
		offset, overflow := stack.Back(offsetBack).Uint64WithOverflow()
		if overflow {
			return 0, true
		}
		end := offset + size
		if end < offset {
			return 0, true
		}
		return end, false
	}
}

// gasMemExpansion prices the word-aligned memory growth.
func gasMemExpansion(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, bool) {
	return memoryGasCost(mem, memorySize)
}

// newIsthmusJumpTable builds the Equivalence table: the full Optimism
// Isthmus opcode set.
func newIsthmusJumpTable() *JumpTable {
	var tbl JumpTable
	maxS := params.StackLimit
	minSwap := func(n int) int { return n + 1 }

	// Arithmetic.
	tbl[STOP] = &operation{execute: opStop, minStack: 0, maxStack: maxS, halts: true}
	tbl[ADD] = &operation{execute: opAdd, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[MUL] = &operation{execute: opMul, constantGas: params.FastStepGas, minStack: 2, maxStack: maxS}
	tbl[SUB] = &operation{execute: opSub, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[DIV] = &operation{execute: opDiv, constantGas: params.FastStepGas, minStack: 2, maxStack: maxS}
	tbl[SDIV] = &operation{execute: opSdiv, constantGas: params.FastStepGas, minStack: 2, maxStack: maxS}
	tbl[MOD] = &operation{execute: opMod, constantGas: params.FastStepGas, minStack: 2, maxStack: maxS}
	tbl[SMOD] = &operation{execute: opSmod, constantGas: params.FastStepGas, minStack: 2, maxStack: maxS}
	tbl[ADDMOD] = &operation{execute: opAddmod, constantGas: params.MidStepGas, minStack: 3, maxStack: maxS}
	tbl[MULMOD] = &operation{execute: opMulmod, constantGas: params.MidStepGas, minStack: 3, maxStack: maxS}
	tbl[EXP] = &operation{execute: opExp, constantGas: params.ExpGas, minStack: 2, maxStack: maxS}
	tbl[SIGNEXTEND] = &operation{execute: opSignExtend, constantGas: params.FastStepGas, minStack: 2, maxStack: maxS}

	// Comparison / bitwise.
	tbl[LT] = &operation{execute: opLt, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[GT] = &operation{execute: opGt, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[SLT] = &operation{execute: opSlt, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[SGT] = &operation{execute: opSgt, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[EQ] = &operation{execute: opEq, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[ISZERO] = &operation{execute: opIsZero, constantGas: params.FastestStepGas, minStack: 1, maxStack: maxS}
	tbl[AND] = &operation{execute: opAnd, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[OR] = &operation{execute: opOr, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[XOR] = &operation{execute: opXor, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[NOT] = &operation{execute: opNot, constantGas: params.FastestStepGas, minStack: 1, maxStack: maxS}
	tbl[BYTE] = &operation{execute: opByte, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[SHL] = &operation{execute: opSHL, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[SHR] = &operation{execute: opSHR, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}
	tbl[SAR] = &operation{execute: opSAR, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS}

	// Hashing.
	tbl[KECCAK256] = &operation{execute: opKeccak256, constantGas: params.Keccak256Gas, minStack: 2, maxStack: maxS, memorySize: memoryRange(0, 1), dynamicGas: gasMemExpansion}

	// Environment.
	tbl[ADDRESS] = &operation{execute: opAddress, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[BALANCE] = &operation{execute: opBalance, constantGas: params.WarmStorageReadCost, minStack: 1, maxStack: maxS}
	tbl[ORIGIN] = &operation{execute: opOrigin, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[CALLER] = &operation{execute: opCaller, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[CALLVALUE] = &operation{execute: opCallValue, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[CALLDATALOAD] = &operation{execute: opCalldataLoad, constantGas: params.FastestStepGas, minStack: 1, maxStack: maxS}
	tbl[CALLDATASIZE] = &operation{execute: opCalldataSize, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[CALLDATACOPY] = &operation{execute: opCalldataCopy, constantGas: params.FastestStepGas, minStack: 3, maxStack: maxS, memorySize: memoryRange(0, 2), dynamicGas: gasMemExpansion}
	tbl[CODESIZE] = &operation{execute: opCodeSize, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[CODECOPY] = &operation{execute: opCodeCopy, constantGas: params.FastestStepGas, minStack: 3, maxStack: maxS, memorySize: memoryRange(0, 2), dynamicGas: gasMemExpansion}
	tbl[GASPRICE] = &operation{execute: opGasPrice, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[EXTCODESIZE] = &operation{execute: opExtcodesize, constantGas: params.WarmStorageReadCost, minStack: 1, maxStack: maxS}
	tbl[EXTCODECOPY] = &operation{execute: opExtcodecopy, constantGas: params.WarmStorageReadCost, minStack: 4, maxStack: maxS, memorySize: memoryRange(1, 3), dynamicGas: gasMemExpansion}
	tbl[RETURNDATASIZE] = &operation{execute: opReturndataSize, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[RETURNDATACOPY] = &operation{execute: opReturndataCopy, constantGas: params.FastestStepGas, minStack: 3, maxStack: maxS, memorySize: memoryRange(0, 2), dynamicGas: gasMemExpansion}
	tbl[EXTCODEHASH] = &operation{execute: opExtcodehash, constantGas: params.WarmStorageReadCost, minStack: 1, maxStack: maxS}

	// Block environment.
	tbl[BLOCKHASH] = &operation{execute: opBlockhash, constantGas: params.BlockhashGas, minStack: 1, maxStack: maxS}
	tbl[COINBASE] = &operation{execute: opCoinbase, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[TIMESTAMP] = &operation{execute: opTimestamp, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[NUMBER] = &operation{execute: opNumber, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[PREVRANDAO] = &operation{execute: opPrevRandao, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[GASLIMIT] = &operation{execute: opGasLimit, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[CHAINID] = &operation{execute: opChainID, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[SELFBALANCE] = &operation{execute: opSelfBalance, constantGas: params.FastStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[BASEFEE] = &operation{execute: opBaseFee, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[BLOBHASH] = &operation{execute: opBlobHash, constantGas: params.FastestStepGas, minStack: 1, maxStack: maxS}
	tbl[BLOBBASEFEE] = &operation{execute: opBlobBaseFee, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}

	// Stack, memory, flow.
	tbl[POP] = &operation{execute: opPop, constantGas: params.QuickStepGas, minStack: 1, maxStack: maxS}
	tbl[MLOAD] = &operation{execute: opMload, constantGas: params.FastestStepGas, minStack: 1, maxStack: maxS, memorySize: memoryFixed(0, 32), dynamicGas: gasMemExpansion}
	tbl[MSTORE] = &operation{execute: opMstore, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS, memorySize: memoryFixed(0, 32), dynamicGas: gasMemExpansion}
	tbl[MSTORE8] = &operation{execute: opMstore8, constantGas: params.FastestStepGas, minStack: 2, maxStack: maxS, memorySize: memoryFixed(0, 1), dynamicGas: gasMemExpansion}
	tbl[SLOAD] = &operation{execute: opSload, constantGas: params.WarmStorageReadCost, minStack: 1, maxStack: maxS}
	tbl[SSTORE] = &operation{execute: opSstore, constantGas: 0, minStack: 2, maxStack: maxS, writes: true}
	tbl[JUMP] = &operation{execute: opJump, constantGas: params.MidStepGas, minStack: 1, maxStack: maxS, jumps: true}
	tbl[JUMPI] = &operation{execute: opJumpi, constantGas: params.SlowStepGas, minStack: 2, maxStack: maxS, jumps: true}
	tbl[PC] = &operation{execute: opPc, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[MSIZE] = &operation{execute: opMsize, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[GAS] = &operation{execute: opGas, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	tbl[JUMPDEST] = &operation{execute: opJumpdest, constantGas: params.JumpdestGas, minStack: 0, maxStack: maxS}
	tbl[TLOAD] = &operation{execute: opTload, constantGas: params.TransientStorageGas, minStack: 1, maxStack: maxS}
	tbl[TSTORE] = &operation{execute: opTstore, constantGas: params.TransientStorageGas, minStack: 2, maxStack: maxS, writes: true}
	tbl[MCOPY] = &operation{execute: opMcopy, constantGas: params.FastestStepGas, minStack: 3, maxStack: maxS, memorySize: memoryMax(memoryRange(0, 2), memoryRange(1, 2)), dynamicGas: gasMemExpansion}

	// Push, dup, swap.
	tbl[PUSH0] = &operation{execute: opPush0, constantGas: params.QuickStepGas, minStack: 0, maxStack: maxS - 1}
	for i := 1; i <= 32; i++ {
		tbl[PUSH1+OpCode(i-1)] = &operation{
			execute:     makePush(uint64(i)),
			constantGas: params.FastestStepGas,
			minStack:    0,
			maxStack:    maxS - 1,
		}
	}
	for i := 1; i <= 16; i++ {
		tbl[DUP1+OpCode(i-1)] = &operation{
			execute:     makeDup(i),
			constantGas: params.FastestStepGas,
			minStack:    i,
			maxStack:    maxS - 1,
		}
	}
	for i := 1; i <= 16; i++ {
		tbl[SWAP1+OpCode(i-1)] = &operation{
			execute:     makeSwap(i),
			constantGas: params.FastestStepGas,
			minStack:    minSwap(i),
			maxStack:    maxS,
		}
	}

	// Logging.
	for i := 0; i <= 4; i++ {
		tbl[LOG0+OpCode(i)] = &operation{
			execute:     makeLog(i),
			constantGas: params.LogGas,
			minStack:    2 + i,
			maxStack:    maxS,
			memorySize:  memoryRange(0, 1),
			dynamicGas:  gasMemExpansion,
			writes:      true,
		}
	}

	// Calls and creates.
	tbl[CREATE] = &operation{execute: opCreate, constantGas: 0, minStack: 3, maxStack: maxS, memorySize: memoryRange(1, 2), dynamicGas: gasMemExpansion, writes: true}
	tbl[CREATE2] = &operation{execute: opCreate2, constantGas: 0, minStack: 4, maxStack: maxS, memorySize: memoryRange(1, 2), dynamicGas: gasMemExpansion, writes: true}
	tbl[CALL] = &operation{execute: opCall, constantGas: params.WarmStorageReadCost, minStack: 7, maxStack: maxS, memorySize: memoryMax(memoryRange(3, 4), memoryRange(5, 6)), dynamicGas: gasMemExpansion}
	tbl[CALLCODE] = &operation{execute: opCallCode, constantGas: params.WarmStorageReadCost, minStack: 7, maxStack: maxS, memorySize: memoryMax(memoryRange(3, 4), memoryRange(5, 6)), dynamicGas: gasMemExpansion}
	tbl[DELEGATECALL] = &operation{execute: opDelegateCall, constantGas: params.WarmStorageReadCost, minStack: 6, maxStack: maxS, memorySize: memoryMax(memoryRange(2, 3), memoryRange(4, 5)), dynamicGas: gasMemExpansion}
	tbl[STATICCALL] = &operation{execute: opStaticCall, constantGas: params.WarmStorageReadCost, minStack: 6, maxStack: maxS, memorySize: memoryMax(memoryRange(2, 3), memoryRange(4, 5)), dynamicGas: gasMemExpansion}

	// Halting.
	tbl[RETURN] = &operation{execute: opReturn, minStack: 2, maxStack: maxS, halts: true, memorySize: memoryRange(0, 1), dynamicGas: gasMemExpansion}
	tbl[REVERT] = &operation{execute: opRevert, minStack: 2, maxStack: maxS, halts: true, memorySize: memoryRange(0, 1), dynamicGas: gasMemExpansion}
	tbl[INVALID] = &operation{execute: opInvalid, minStack: 0, maxStack: maxS}
	tbl[SELFDESTRUCT] = &operation{execute: opSelfdestruct, constantGas: params.SelfdestructGas, minStack: 1, maxStack: maxS, halts: true, writes: true}

	return &tbl
}

// newMiniRexJumpTable builds the MiniRex table: Isthmus plus the MegaETH
// overrides. SELFDESTRUCT becomes an invalid opcode; LOG, SSTORE, and SLOAD
// gain the limit hooks; CREATE/CALL behavior differences flow through the
// spec gate in the shared handlers.
func newMiniRexJumpTable() *JumpTable {
	base := *newIsthmusJumpTable()
	tbl := base

	for i := 0; i <= 4; i++ {
		op := *tbl[LOG0+OpCode(i)]
		op.execute = makeLogMiniRex(i)
		tbl[LOG0+OpCode(i)] = &op
	}

	sstore := *tbl[SSTORE]
	sstore.execute = opSstoreMiniRex
	tbl[SSTORE] = &sstore

	sload := *tbl[SLOAD]
	sload.execute = opSloadMiniRex
	tbl[SLOAD] = &sload

	tbl[SELFDESTRUCT] = &operation{execute: opInvalid, minStack: 1, maxStack: params.StackLimit}

	return &tbl
}
