package vm

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// StateDB is the state interface the interpreter executes against. It is
// declared here to avoid a circular import with core/state; *state.StateDB
// satisfies it.
type StateDB interface {
	CreateAccount(addr types.Address)

	GetBalance(addr types.Address) *uint256.Int
	AddBalance(addr types.Address, amount *uint256.Int)
	SubBalance(addr types.Address, amount *uint256.Int)

	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)

	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash
	GetCodeSize(addr types.Address) int

	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key, value types.Hash)
	GetCommittedState(addr types.Address, key types.Hash) types.Hash

	GetTransientState(addr types.Address, key types.Hash) types.Hash
	SetTransientState(addr types.Address, key, value types.Hash)

	SelfDestruct6780(addr types.Address)
	HasSelfDestructed(addr types.Address) bool

	Exist(addr types.Address) bool
	Empty(addr types.Address) bool

	Snapshot() int
	RevertToSnapshot(id int)

	AddLog(l *types.Log)

	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	AddAddressToAccessList(addr types.Address)
	AddSlotToAccessList(addr types.Address, slot types.Hash)
	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, slot types.Hash) bool
}

// BlockContext provides the EVM with block-level information.
type BlockContext struct {
	GetHash     func(uint64) types.Hash
	BlockNumber uint64
	Time        uint64
	Coinbase    types.Address
	GasLimit    uint64
	BaseFee     *uint256.Int
	PrevRandao  types.Hash
	BlobBaseFee *uint256.Int
}

// TxContext provides the EVM with transaction-level information.
type TxContext struct {
	Origin     types.Address
	GasPrice   *uint256.Int
	BlobHashes []types.Hash
}

// Config holds EVM configuration.
type Config struct {
	Spec               params.SpecID
	ChainID            uint64
	DisableBeneficiary bool
}

// EVM is the execution environment for one transaction. The AdditionalLimit
// tracker (Limits) is present exactly when the MiniRex spec is active; its
// frame stack is kept in lockstep with the interpreter's call frames: every
// Call/Create entry pushes, every exit path pops.
type EVM struct {
	Context   BlockContext
	TxContext TxContext
	Config    Config
	StateDB   StateDB

	Limits       *limit.AdditionalLimit
	ExternalEnvs ExternalEnvs

	depth       int
	readOnly    bool
	jumpTable   *JumpTable
	precompiles map[types.Address]PrecompiledContract
	returnData  []byte
}

// NewEVM creates an EVM over the given state. Under MiniRex the caller is
// expected to attach an AdditionalLimit via SetLimits before executing.
func NewEVM(blockCtx BlockContext, txCtx TxContext, config Config, statedb StateDB) *EVM {
	evm := &EVM{
		Context:      blockCtx,
		TxContext:    txCtx,
		Config:       config,
		StateDB:      statedb,
		ExternalEnvs: DefaultExternalEnvs(),
	}
	if config.Spec.Enabled(params.MiniRex) {
		evm.jumpTable = miniRexJumpTable
	} else {
		evm.jumpTable = isthmusJumpTable
	}
	evm.precompiles = PrecompiledContracts(config.Spec)
	return evm
}

// SetLimits attaches the AdditionalLimit tracker.
func (evm *EVM) SetLimits(l *limit.AdditionalLimit) { evm.Limits = l }

// SetExternalEnvs replaces the external environment collaborator.
func (evm *EVM) SetExternalEnvs(envs ExternalEnvs) {
	if envs != nil {
		evm.ExternalEnvs = envs
	}
}

// Depth returns the current call depth.
func (evm *EVM) Depth() int { return evm.depth }

// maxInitCodeSize returns the initcode cap for the active spec.
func (evm *EVM) maxInitCodeSize() int {
	if evm.Config.Spec.Enabled(params.MiniRex) {
		return params.MaxInitCodeSizeMiniRex
	}
	return params.MaxInitCodeSize
}

// maxCodeSize returns the deployed-code cap for the active spec.
func (evm *EVM) maxCodeSize() int {
	if evm.Config.Spec.Enabled(params.MiniRex) {
		return params.MaxCodeSizeMiniRex
	}
	return params.MaxCodeSize
}

// markBeneficiaryTouch feeds the volatile tracker when an account read
// targets the block beneficiary.
func (evm *EVM) markBeneficiaryTouch(addr types.Address) {
	if evm.Limits != nil && addr == evm.Context.Coinbase {
		evm.Limits.Volatile.MarkBeneficiaryBalanceAccessed()
	}
}

// markBlockEnvAccess feeds the volatile tracker on block-environment reads.
func (evm *EVM) markBlockEnvAccess(flag limit.VolatileAccess) {
	if evm.Limits != nil {
		evm.Limits.Volatile.MarkBlockEnvAccessed(flag)
	}
}

// markOracleTouch feeds the volatile tracker when addr is the oracle.
func (evm *EVM) markOracleTouch(addr types.Address) {
	if evm.Limits != nil {
		evm.Limits.Volatile.CheckAndMarkOracleAccess(addr)
	}
}

// sstoreSetGas returns the zero-to-nonzero SSTORE cost: bucket-dependent
// under MiniRex, the flat schedule otherwise.
func (evm *EVM) sstoreSetGas(addr types.Address, key types.Hash) uint64 {
	if !evm.Config.Spec.Enabled(params.MiniRex) {
		return params.SstoreSetGas
	}
	capacity := evm.ExternalEnvs.SaltBucketCapacity(addr, key)
	return scaleBucketGas(params.SstoreSetGasMiniRex, capacity)
}

// newAccountGas returns the new-account cost: bucket-dependent under
// MiniRex, the flat schedule otherwise.
func (evm *EVM) newAccountGas(addr types.Address) uint64 {
	if !evm.Config.Spec.Enabled(params.MiniRex) {
		return params.CallNewAccount
	}
	capacity := evm.ExternalEnvs.SaltBucketCapacityForNewAccount(addr)
	return scaleBucketGas(params.NewAccountGasMiniRex, capacity)
}

// scaleBucketGas doubles base each time capacity doubles relative to the
// minimum bucket capacity, never going below base.
func scaleBucketGas(base, capacity uint64) uint64 {
	if capacity <= params.MinBucketCapacity {
		return base
	}
	gas := base
	for c := params.MinBucketCapacity; c < capacity; c *= 2 {
		prev := gas
		gas *= 2
		if gas < prev { // overflow clamp
			return ^uint64(0)
		}
	}
	return gas
}

// precompile looks up the precompiled contract at addr.
func (evm *EVM) precompile(addr types.Address) (PrecompiledContract, bool) {
	p, ok := evm.precompiles[addr]
	return p, ok
}

// runPrecompile executes a precompiled contract.
func runPrecompile(p PrecompiledContract, input []byte, gas uint64) ([]byte, uint64, error) {
	cost := p.RequiredGas(input)
	if gas < cost {
		return nil, 0, ErrOutOfGas
	}
	out, err := p.Run(input)
	return out, gas - cost, err
}

// endFrame pops the tracker frame matching an interpreter frame exit.
func (evm *EVM) endFrame(ok bool) {
	if evm.Limits != nil {
		evm.Limits.EndFrame(ok, evm.depth == 0)
	}
}

// Run executes contract bytecode with the interpreter loop. Gas charging
// order follows the usual sequence: constant gas, memory sizing, dynamic
// gas, resize, execute. After every step the compute-gas tracker records
// the step cost and the volatile tracker detains gas above the active
// budget (§4.3.5): detained gas is marked spent here and refunded at
// transaction finalization.
func (evm *EVM) Run(contract *Contract, input []byte) ([]byte, error) {
	contract.Input = input

	var (
		pc    uint64
		stack = NewStack()
		mem   = NewMemory()
	)

	for {
		// Clamp the frame's gas to the volatile-access budget before the
		// next opcode runs; the excess is detained, not charged.
		if evm.Limits != nil {
			contract.Gas = evm.Limits.Volatile.DetainGas(contract.Gas)
		}

		op := contract.GetOp(pc)
		operation := evm.jumpTable[op]
		if operation == nil || operation.execute == nil {
			return nil, ErrInvalidOpCode
		}

		if sLen := stack.Len(); sLen < operation.minStack {
			return nil, ErrStackUnderflow
		} else if sLen > operation.maxStack {
			return nil, ErrStackOverflow
		}

		gasBefore := contract.Gas

		if operation.constantGas > 0 {
			if !contract.UseGas(operation.constantGas) {
				return nil, ErrOutOfGas
			}
		}

		var memorySize uint64
		if operation.memorySize != nil {
			memSize, overflow := operation.memorySize(stack)
			if overflow {
				return nil, ErrGasUintOverflow
			}
			if memSize > 0 {
				memorySize = toWordSize(memSize) * 32
			}
		}

		if operation.dynamicGas != nil {
			cost, overflow := operation.dynamicGas(evm, contract, stack, mem, memorySize)
			if overflow {
				return nil, ErrGasUintOverflow
			}
			if !contract.UseGas(cost) {
				return nil, ErrOutOfGas
			}
		}

		if memorySize > 0 && uint64(mem.Len()) < memorySize {
			mem.Resize(memorySize)
		}

		ret, err := operation.execute(&pc, evm, contract, mem, stack)

		// Account the step's compute gas and ratchet the volatile budget.
		if evm.Limits != nil {
			stepCost := gasBefore - contract.Gas
			evm.Limits.Compute.Record(stepCost)
			if evm.Limits.Compute.ExceedsLimit(evm.Limits.ComputeGasLimit) {
				return nil, ErrOutOfGas
			}
			evm.Limits.Volatile.UpdateRemaining(contract.Gas)
		}

		if err != nil {
			if errors.Is(err, ErrExecutionReverted) {
				return ret, err
			}
			return nil, err
		}
		if operation.halts {
			return ret, nil
		}
		if operation.jumps {
			continue
		}
		pc++
	}
}

// Call executes a message call to addr. The tracker frame is pushed before
// any state effect and popped on every exit path.
func (evm *EVM) Call(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	if evm.depth > params.MaxCallDepth {
		return nil, gas, ErrMaxCallDepthExceeded
	}
	if evm.StateDB == nil {
		return nil, gas, ErrNoStateDB
	}

	transfersValue := value != nil && !value.IsZero()

	if evm.Limits != nil {
		if evm.Limits.OnCall(addr, transfersValue).ExceededLimit() {
			evm.endFrame(false)
			return nil, 0, ErrOutOfGas
		}
	}
	frameOK := false
	defer func() { evm.endFrame(frameOK) }()

	if transfersValue && evm.StateDB.GetBalance(caller).Cmp(value) < 0 {
		return nil, gas, ErrInsufficientBalance
	}

	snapshot := evm.StateDB.Snapshot()
	p, isPrecompile := evm.precompile(addr)

	if !evm.StateDB.Exist(addr) {
		if !isPrecompile && !transfersValue {
			// EIP-158: no empty account is created for zero-value calls.
			frameOK = true
			return nil, gas, nil
		}
		if !isPrecompile {
			evm.StateDB.CreateAccount(addr)
		}
	}

	if transfersValue {
		if evm.readOnly {
			return nil, gas, ErrWriteProtection
		}
		evm.StateDB.SubBalance(caller, value)
		evm.StateDB.AddBalance(addr, value)
	}

	if isPrecompile {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, 0, err
		}
		frameOK = true
		return ret, gasLeft, nil
	}

	code := evm.StateDB.GetCode(addr)
	codeAddr := addr
	if target, ok := types.ParseDelegation(code); ok {
		// EIP-7702: run the delegate's code in the delegating account's
		// context.
		evm.markBeneficiaryTouch(target)
		code = evm.StateDB.GetCode(target)
		codeAddr = target
	}
	if len(code) == 0 {
		frameOK = true
		return nil, gas, nil
	}

	contract := NewContract(caller, addr, value, gas)
	contract.Code = code
	contract.CodeHash = evm.StateDB.GetCodeHash(codeAddr)

	evm.depth++
	ret, err := evm.Run(contract, input)
	evm.depth--

	gasLeft := contract.Gas
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
		return ret, gasLeft, err
	}
	frameOK = true
	return ret, gasLeft, nil
}

// CallCode runs addr's code in the caller's storage context.
func (evm *EVM) CallCode(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	if evm.depth > params.MaxCallDepth {
		return nil, gas, ErrMaxCallDepthExceeded
	}
	if evm.StateDB == nil {
		return nil, gas, ErrNoStateDB
	}

	transfersValue := value != nil && !value.IsZero()
	if evm.Limits != nil {
		if evm.Limits.OnCall(caller, transfersValue).ExceededLimit() {
			evm.endFrame(false)
			return nil, 0, ErrOutOfGas
		}
	}
	frameOK := false
	defer func() { evm.endFrame(frameOK) }()

	if transfersValue && evm.StateDB.GetBalance(caller).Cmp(value) < 0 {
		return nil, gas, ErrInsufficientBalance
	}

	if p, ok := evm.precompile(addr); ok {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		frameOK = err == nil
		return ret, gasLeft, err
	}

	snapshot := evm.StateDB.Snapshot()
	code := evm.StateDB.GetCode(addr)
	if len(code) == 0 {
		frameOK = true
		return nil, gas, nil
	}

	contract := NewContract(caller, caller, value, gas)
	contract.Code = code
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	evm.depth++
	ret, err := evm.Run(contract, input)
	evm.depth--

	gasLeft := contract.Gas
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
		return ret, gasLeft, err
	}
	frameOK = true
	return ret, gasLeft, nil
}

// DelegateCall runs addr's code preserving the caller and value of the
// current context.
func (evm *EVM) DelegateCall(caller, self, addr types.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	if evm.depth > params.MaxCallDepth {
		return nil, gas, ErrMaxCallDepthExceeded
	}
	if evm.StateDB == nil {
		return nil, gas, ErrNoStateDB
	}

	if evm.Limits != nil {
		if evm.Limits.OnCall(self, false).ExceededLimit() {
			evm.endFrame(false)
			return nil, 0, ErrOutOfGas
		}
	}
	frameOK := false
	defer func() { evm.endFrame(frameOK) }()

	if p, ok := evm.precompile(addr); ok {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		frameOK = err == nil
		return ret, gasLeft, err
	}

	snapshot := evm.StateDB.Snapshot()
	code := evm.StateDB.GetCode(addr)
	if len(code) == 0 {
		frameOK = true
		return nil, gas, nil
	}

	contract := NewContract(caller, self, value, gas)
	contract.Code = code
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	evm.depth++
	ret, err := evm.Run(contract, input)
	evm.depth--

	gasLeft := contract.Gas
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
		return ret, gasLeft, err
	}
	frameOK = true
	return ret, gasLeft, nil
}

// StaticCall executes a read-only call; state mutations raise
// ErrWriteProtection.
func (evm *EVM) StaticCall(caller, addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	if evm.depth > params.MaxCallDepth {
		return nil, gas, ErrMaxCallDepthExceeded
	}
	if evm.StateDB == nil {
		return nil, gas, ErrNoStateDB
	}

	if evm.Limits != nil {
		if evm.Limits.OnCall(addr, false).ExceededLimit() {
			evm.endFrame(false)
			return nil, 0, ErrOutOfGas
		}
	}
	frameOK := false
	defer func() { evm.endFrame(frameOK) }()

	prevReadOnly := evm.readOnly
	evm.readOnly = true
	defer func() { evm.readOnly = prevReadOnly }()

	snapshot := evm.StateDB.Snapshot()

	if p, ok := evm.precompile(addr); ok {
		ret, gasLeft, err := runPrecompile(p, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, 0, err
		}
		frameOK = true
		return ret, gasLeft, nil
	}

	code := evm.StateDB.GetCode(addr)
	if len(code) == 0 {
		frameOK = true
		return nil, gas, nil
	}

	contract := NewContract(caller, addr, new(uint256.Int), gas)
	contract.Code = code
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	evm.depth++
	ret, err := evm.Run(contract, input)
	evm.depth--

	gasLeft := contract.Gas
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
		return ret, gasLeft, err
	}
	frameOK = true
	return ret, gasLeft, nil
}

// CreateAddress computes the address of a contract created with CREATE:
// keccak256(rlp([sender, nonce]))[12:].
func CreateAddress(caller types.Address, nonce uint64) types.Address {
	enc, _ := rlp.EncodeToBytes([]interface{}{caller.Bytes(), nonce})
	return types.BytesToAddress(crypto.Keccak256(enc)[12:])
}

// Create2Address computes the address of a contract created with CREATE2:
// keccak256(0xff ++ caller ++ salt ++ keccak256(initcode))[12:].
func Create2Address(caller types.Address, salt types.Hash, initCodeHash []byte) types.Address {
	data := make([]byte, 0, 85)
	data = append(data, 0xff)
	data = append(data, caller[:]...)
	data = append(data, salt[:]...)
	data = append(data, initCodeHash...)
	return types.BytesToAddress(crypto.Keccak256(data)[12:])
}

// checkCreate validates the shared preconditions of CREATE and CREATE2.
func (evm *EVM) checkCreate(code []byte) error {
	if evm.depth > params.MaxCallDepth {
		return ErrMaxCallDepthExceeded
	}
	if evm.readOnly {
		return ErrWriteProtection
	}
	if evm.StateDB == nil {
		return ErrNoStateDB
	}
	if len(code) > evm.maxInitCodeSize() {
		return ErrMaxInitCodeSizeExceeded
	}
	return nil
}

// Create creates a contract with CREATE semantics.
func (evm *EVM) Create(caller types.Address, code []byte, gas uint64, value *uint256.Int) ([]byte, types.Address, uint64, error) {
	if err := evm.checkCreate(code); err != nil {
		return nil, types.Address{}, gas, err
	}
	nonce := evm.StateDB.GetNonce(caller)
	evm.StateDB.SetNonce(caller, nonce+1)
	contractAddr := CreateAddress(caller, nonce)
	return evm.create(caller, code, gas, value, contractAddr)
}

// Create2 creates a contract with CREATE2 semantics. The caller nonce is
// still consumed.
func (evm *EVM) Create2(caller types.Address, code []byte, gas uint64, value *uint256.Int, salt types.Hash) ([]byte, types.Address, uint64, error) {
	if err := evm.checkCreate(code); err != nil {
		return nil, types.Address{}, gas, err
	}
	nonce := evm.StateDB.GetNonce(caller)
	evm.StateDB.SetNonce(caller, nonce+1)
	contractAddr := Create2Address(caller, salt, crypto.Keccak256(code))
	return evm.create(caller, code, gas, value, contractAddr)
}

// create is the shared implementation for Create and Create2.
func (evm *EVM) create(caller types.Address, code []byte, gas uint64, value *uint256.Int, contractAddr types.Address) ([]byte, types.Address, uint64, error) {
	if evm.Limits != nil {
		if evm.Limits.OnCreate().ExceededLimit() {
			evm.endFrame(false)
			return nil, types.Address{}, 0, ErrOutOfGas
		}
		if evm.Limits.OnCreatedAccount(contractAddr).ExceededLimit() {
			evm.endFrame(false)
			return nil, types.Address{}, 0, ErrOutOfGas
		}
	}
	frameOK := false
	defer func() { evm.endFrame(frameOK) }()

	// Collision check: all gas is consumed on collision.
	contractHash := evm.StateDB.GetCodeHash(contractAddr)
	if evm.StateDB.GetNonce(contractAddr) != 0 ||
		(!contractHash.IsZero() && contractHash != types.EmptyCodeHash) {
		return nil, types.Address{}, 0, ErrContractAddressCollision
	}

	// EIP-2929: the created address is warmed before the snapshot so the
	// warming survives a failed creation.
	evm.StateDB.AddAddressToAccessList(contractAddr)

	snapshot := evm.StateDB.Snapshot()

	if !evm.StateDB.Exist(contractAddr) {
		evm.StateDB.CreateAccount(contractAddr)
	}
	// EIP-161: contract nonce starts at 1.
	evm.StateDB.SetNonce(contractAddr, 1)

	if value != nil && !value.IsZero() {
		if evm.StateDB.GetBalance(caller).Cmp(value) < 0 {
			return nil, types.Address{}, gas, ErrInsufficientBalance
		}
		evm.StateDB.SubBalance(caller, value)
		evm.StateDB.AddBalance(contractAddr, value)
	}

	// EIP-150: forward all but 1/64 of the remaining gas to the initcode.
	callGas := gas - gas/params.CallGasFraction
	gas -= callGas

	contract := NewContract(caller, contractAddr, value, callGas)
	contract.Code = code

	evm.depth++
	ret, err := evm.Run(contract, nil)
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			return ret, types.Address{}, gas, err
		}
		gas += contract.Gas
		return ret, types.Address{}, gas, err
	}

	gas += contract.Gas

	if len(ret) > 0 {
		if len(ret) > evm.maxCodeSize() {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, types.Address{}, 0, ErrMaxCodeSizeExceeded
		}
		// EIP-3541: new code may not start with 0xEF.
		if ret[0] == 0xEF {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, types.Address{}, 0, ErrInvalidOpCode
		}
		depositCost := uint64(len(ret)) * params.CreateDataGas
		if gas < depositCost {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, types.Address{}, 0, ErrOutOfGas
		}
		gas -= depositCost
		evm.StateDB.SetCode(contractAddr, ret)
	}

	if evm.Limits != nil {
		if evm.Limits.OnCreatedContractCode(uint64(len(ret))).ExceededLimit() {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, types.Address{}, 0, ErrOutOfGas
		}
	}

	frameOK = true
	return ret, contractAddr, gas, nil
}
