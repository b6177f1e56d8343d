package vm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

func newTestEVM(t *testing.T, spec params.SpecID) (*EVM, *state.StateDB) {
	t.Helper()
	statedb := state.New(state.NewMemoryDB())
	evm := NewEVM(BlockContext{
		BlockNumber: 1,
		Time:        1,
		GasLimit:    30_000_000,
		BaseFee:     new(uint256.Int),
		Coinbase:    types.BytesToAddress([]byte{0xc0}),
	}, TxContext{}, Config{Spec: spec, ChainID: 6342}, statedb)
	if spec.Enabled(params.MiniRex) {
		evm.SetLimits(limit.NewAdditionalLimit())
	}
	return evm, statedb
}

func deployCode(statedb *state.StateDB, addr types.Address, code []byte) {
	statedb.CreateAccount(addr)
	statedb.SetCode(addr, code)
	statedb.Finalise()
}

// TestSimpleTransfer verifies a plain value transfer moves the balance and
// keeps the tracker frame stack balanced.
func TestSimpleTransfer(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	from := types.BytesToAddress([]byte{1})
	to := types.BytesToAddress([]byte{2})
	statedb.AddBalance(from, uint256.NewInt(1000))

	_, gasLeft, err := evm.Call(from, to, nil, 50_000, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gasLeft != 50_000 {
		t.Fatalf("gasLeft = %d, want 50000 (no code run)", gasLeft)
	}
	if got := statedb.GetBalance(to); !got.Eq(uint256.NewInt(1)) {
		t.Fatalf("receiver balance = %s, want 1", got)
	}
	if depth := evm.Limits.Data.FrameDepth(); depth != 0 {
		t.Fatalf("tracker frame depth = %d, want 0", depth)
	}
}

// TestRunArithmetic verifies the interpreter on PUSH/ADD/MSTORE/RETURN.
func TestRunArithmetic(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	addr := types.BytesToAddress([]byte{3})
	// PUSH1 2, PUSH1 3, ADD, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	code := []byte{0x60, 0x02, 0x60, 0x03, 0x01, 0x60, 0x00, 0x52, 0x60, 0x20, 0x60, 0x00, 0xf3}
	deployCode(statedb, addr, code)

	ret, _, err := evm.Call(types.Address{}, addr, nil, 100_000, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := new(uint256.Int).SetBytes(ret); !got.Eq(uint256.NewInt(5)) {
		t.Fatalf("result = %s, want 5", got)
	}
}

// TestSelfdestructInvalidUnderMiniRex verifies SELFDESTRUCT halts with an
// invalid-opcode error under MiniRex while remaining live under
// Equivalence.
func TestSelfdestructInvalidUnderMiniRex(t *testing.T) {
	addr := types.BytesToAddress([]byte{4})
	code := []byte{0x60, 0x00, 0xff} // PUSH1 0, SELFDESTRUCT

	evm, statedb := newTestEVM(t, params.MiniRex)
	deployCode(statedb, addr, code)
	_, _, err := evm.Call(types.Address{}, addr, nil, 100_000, nil)
	if !errors.Is(err, ErrInvalidOpCode) {
		t.Fatalf("MiniRex selfdestruct err = %v, want invalid opcode", err)
	}

	evm2, statedb2 := newTestEVM(t, params.Equivalence)
	deployCode(statedb2, addr, code)
	if _, _, err := evm2.Call(types.Address{}, addr, nil, 100_000, nil); err != nil {
		t.Fatalf("Equivalence selfdestruct err = %v, want nil", err)
	}
}

// TestLogDataBomb verifies a LOG exceeding the data limit halts the frame
// with the out-of-gas sentinel and the tracker reports the violation.
func TestLogDataBomb(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	evm.Limits.DataLimit = 128
	addr := types.BytesToAddress([]byte{5})
	// PUSH2 0x0200 (size 512), PUSH1 0 (offset), LOG0
	code := []byte{0x61, 0x02, 0x00, 0x60, 0x00, 0xa0}
	deployCode(statedb, addr, code)

	_, gasLeft, err := evm.Call(types.Address{}, addr, nil, 200_000, nil)
	if !errors.Is(err, ErrOutOfGas) {
		t.Fatalf("err = %v, want out-of-gas sentinel", err)
	}
	if gasLeft != 0 {
		t.Fatalf("gasLeft = %d, want 0 (all gas consumed)", gasLeft)
	}
	res := evm.Limits.CheckLimit()
	if res.Kind != limit.ExceedsDataLimit {
		t.Fatalf("tracker kind = %d, want data limit exceeded", res.Kind)
	}
	if len(statedb.Logs()) != 0 {
		t.Fatalf("logs = %d, want 0 (frame reverted)", len(statedb.Logs()))
	}
}

// TestSstoreBucketGas verifies the zero-to-nonzero SSTORE cost doubles
// with the SALT bucket capacity.
func TestSstoreBucketGas(t *testing.T) {
	evm, _ := newTestEVM(t, params.MiniRex)
	addr := types.BytesToAddress([]byte{6})
	key := types.Uint64ToHash(0)

	if got := evm.sstoreSetGas(addr, key); got != params.SstoreSetGasMiniRex {
		t.Fatalf("base set gas = %d, want %d", got, params.SstoreSetGasMiniRex)
	}

	envs := NewConfiguredExternalEnvs().
		WithBucketCapacity(SlotBucketID(addr, key), params.MinBucketCapacity*4)
	evm.SetExternalEnvs(envs)
	if got := evm.sstoreSetGas(addr, key); got != params.SstoreSetGasMiniRex*4 {
		t.Fatalf("scaled set gas = %d, want %d", got, params.SstoreSetGasMiniRex*4)
	}
}

// TestScaleBucketGas verifies the doubling schedule directly.
func TestScaleBucketGas(t *testing.T) {
	cases := []struct {
		capacity uint64
		want     uint64
	}{
		{0, 20000},
		{params.MinBucketCapacity, 20000},
		{params.MinBucketCapacity * 2, 40000},
		{params.MinBucketCapacity * 8, 160000},
	}
	for _, c := range cases {
		if got := scaleBucketGas(20000, c.capacity); got != c.want {
			t.Fatalf("scaleBucketGas(cap=%d) = %d, want %d", c.capacity, got, c.want)
		}
	}
}

// TestSstoreWritesState verifies an SSTORE through the interpreter lands
// in the journaled state and records the data/KV contributions.
func TestSstoreWritesState(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	addr := types.BytesToAddress([]byte{7})
	// PUSH1 1 (value), PUSH1 0 (key), SSTORE, STOP
	code := []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x00}
	deployCode(statedb, addr, code)

	_, _, err := evm.Call(types.Address{}, addr, nil, 100_000, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := statedb.GetState(addr, types.Uint64ToHash(0)); got != types.Uint64ToHash(1) {
		t.Fatalf("slot = %s, want 1", got)
	}
	usage := evm.Limits.Usage()
	if usage.DataSize != params.StorageSlotWriteSize {
		t.Fatalf("data size = %d, want %d", usage.DataSize, params.StorageSlotWriteSize)
	}
	if usage.KVUpdates != 1 {
		t.Fatalf("kv updates = %d, want 1", usage.KVUpdates)
	}
}

// TestSstoreReentrancySentry verifies SSTORE halts when the frame holds no
// more than the call stipend.
func TestSstoreReentrancySentry(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	addr := types.BytesToAddress([]byte{8})
	code := []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x00}
	deployCode(statedb, addr, code)

	// 2300 gas minus the PUSH costs leaves the sentry tripped at SSTORE.
	_, _, err := evm.Call(types.Address{}, addr, nil, params.CallStipend, nil)
	if !errors.Is(err, ErrReentrancySentry) {
		t.Fatalf("err = %v, want reentrancy sentry", err)
	}
}

// TestOracleSloadIntercept verifies SLOAD on the oracle contract serves
// the ExternalEnvs value, marks the oracle access, and lowers the gas
// budget to 1M.
func TestOracleSloadIntercept(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	// PUSH1 0, SLOAD, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	code := []byte{0x60, 0x00, 0x54, 0x60, 0x00, 0x52, 0x60, 0x20, 0x60, 0x00, 0xf3}
	deployCode(statedb, types.OracleContractAddress, code)

	envs := NewConfiguredExternalEnvs().
		WithOracleStorage(types.Uint64ToHash(0), types.Uint64ToHash(7))
	evm.SetExternalEnvs(envs)

	ret, _, err := evm.Call(types.Address{}, types.OracleContractAddress, nil, 5_000_000, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := new(uint256.Int).SetBytes(ret); !got.Eq(uint256.NewInt(7)) {
		t.Fatalf("oracle slot = %s, want 7", got)
	}
	if !evm.Limits.Volatile.Accesses().HasOracle() {
		t.Fatal("oracle access not marked")
	}
	if got := evm.Limits.Volatile.Global().Limit(); got != params.OracleAccessRemainingGas {
		t.Fatalf("volatile limit = %d, want 1M", got)
	}
}

// TestBlockEnvOpcodeMarksAccess verifies a TIMESTAMP read feeds the
// volatile bitmap and establishes the 20M cap.
func TestBlockEnvOpcodeMarksAccess(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	addr := types.BytesToAddress([]byte{9})
	code := []byte{0x42, 0x00} // TIMESTAMP, STOP
	deployCode(statedb, addr, code)

	if _, _, err := evm.Call(types.Address{}, addr, nil, 100_000, nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	acc := evm.Limits.Volatile.Accesses()
	if !acc.HasBlockEnv() {
		t.Fatal("block env access not marked")
	}
	if got := evm.Limits.Volatile.Global().Limit(); got != params.BlockEnvAccessRemainingGas {
		t.Fatalf("volatile limit = %d, want 20M", got)
	}
}

// TestCreateDeploysContract verifies CREATE through the EVM records the
// created account and deployed code in the tracker.
func TestCreateDeploysContract(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	from := types.BytesToAddress([]byte{0x0a})
	statedb.AddBalance(from, uint256.NewInt(1))

	// Initcode returning 2 bytes of runtime code:
	// PUSH2 0x6000, PUSH1 0, MSTORE, PUSH1 2, PUSH1 30, RETURN
	initcode := []byte{0x61, 0x60, 0x00, 0x60, 0x00, 0x52, 0x60, 0x02, 0x60, 0x1e, 0xf3}

	ret, addr, _, err := evm.Create(from, initcode, 1_000_000, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(ret) != 2 {
		t.Fatalf("deployed %d bytes, want 2", len(ret))
	}
	if got := statedb.GetCode(addr); len(got) != 2 {
		t.Fatalf("code at created address = %d bytes, want 2", len(got))
	}
	usage := evm.Limits.Usage()
	// Created account (40) plus deployed code size (2).
	if usage.DataSize != params.AccountInfoWriteSize+2 {
		t.Fatalf("data size = %d, want %d", usage.DataSize, params.AccountInfoWriteSize+2)
	}
	if usage.KVUpdates != 1 {
		t.Fatalf("kv updates = %d, want 1", usage.KVUpdates)
	}
}

// TestStaticCallWriteProtection verifies SSTORE inside STATICCALL fails.
func TestStaticCallWriteProtection(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	addr := types.BytesToAddress([]byte{0x0b})
	code := []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x00}
	deployCode(statedb, addr, code)

	_, _, err := evm.StaticCall(types.Address{}, addr, nil, 100_000)
	if !errors.Is(err, ErrWriteProtection) {
		t.Fatalf("err = %v, want write protection", err)
	}
}

// TestComputeGasLimitHalts verifies a compute-heavy loop halts once the
// compute budget is exhausted even with plenty of frame gas left.
func TestComputeGasLimitHalts(t *testing.T) {
	evm, statedb := newTestEVM(t, params.MiniRex)
	evm.Limits.ComputeGasLimit = 10_000
	addr := types.BytesToAddress([]byte{0x0c})
	// JUMPDEST, PUSH1 0, JUMP — infinite loop.
	code := []byte{0x5b, 0x60, 0x00, 0x56}
	deployCode(statedb, addr, code)

	_, _, err := evm.Call(types.Address{}, addr, nil, 5_000_000, nil)
	if !errors.Is(err, ErrOutOfGas) {
		t.Fatalf("err = %v, want out-of-gas sentinel", err)
	}
	if !evm.Limits.Compute.ExceedsLimit(evm.Limits.ComputeGasLimit) {
		t.Fatal("compute tracker must report the violation")
	}
}
