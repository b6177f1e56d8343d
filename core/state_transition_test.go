package core

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/limit"
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/core/vm"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

var (
	testSender   = types.HexToAddress("0x0000000000000000000000000000000000100000")
	testReceiver = types.HexToAddress("0x0000000000000000000000000000000000100001")
	testCoinbase = types.HexToAddress("0x0000000000000000000000000000000000000001")
)

func newTestEnv(t *testing.T) (*vm.EVM, *state.StateDB, *state.MemoryDB) {
	t.Helper()
	db := state.NewMemoryDB()
	statedb := state.New(db)
	evm := vm.NewEVM(vm.BlockContext{
		BlockNumber: 1,
		Time:        1,
		GasLimit:    30_000_000,
		BaseFee:     new(uint256.Int),
		Coinbase:    testCoinbase,
	}, vm.TxContext{}, vm.Config{Spec: params.MiniRex, ChainID: params.MegaChainConfig.ChainID}, statedb)
	evm.SetLimits(limit.NewAdditionalLimit())
	return evm, statedb, db
}

func transferTx(value uint64) *types.Transaction {
	to := testReceiver
	return &types.Transaction{
		Type:     types.LegacyTxType,
		From:     testSender,
		To:       &to,
		GasLimit: 100_000,
		GasPrice: new(uint256.Int),
		Value:    uint256.NewInt(value),
	}
}

// TestApplyTransactionEmptyCall covers the first seed scenario: a 1 wei
// transfer between existing accounts uses exactly 21000 gas, generates
// 190 bytes of data, and 2 KV updates.
func TestApplyTransactionEmptyCall(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(1000))
	db.SetBalance(testReceiver, uint256.NewInt(100))

	gp := new(GasPool).AddGas(30_000_000)
	outcome, err := ApplyTransaction(evm, statedb, transferTx(1), gp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Result.Succeeded() {
		t.Fatalf("status = %d, want success", outcome.Result.Status)
	}
	if outcome.Result.GasUsed != 21000 {
		t.Fatalf("gasUsed = %d, want 21000", outcome.Result.GasUsed)
	}
	if outcome.DataSize != 190 {
		t.Fatalf("dataSize = %d, want 190", outcome.DataSize)
	}
	if outcome.KVUpdates != 2 {
		t.Fatalf("kvUpdates = %d, want 2", outcome.KVUpdates)
	}
	if got := statedb.GetBalance(testReceiver); !got.Eq(uint256.NewInt(101)) {
		t.Fatalf("receiver balance = %s, want 101", got)
	}
	if got := statedb.GetNonce(testSender); got != 1 {
		t.Fatalf("sender nonce = %d, want 1", got)
	}
}

// TestApplyTransactionZeroValueToAbsent covers the second seed scenario:
// zero value to a non-existent account, 150 bytes, 1 KV update.
func TestApplyTransactionZeroValueToAbsent(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(1000))

	gp := new(GasPool).AddGas(30_000_000)
	outcome, err := ApplyTransaction(evm, statedb, transferTx(0), gp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Result.Succeeded() {
		t.Fatalf("status = %d, want success", outcome.Result.Status)
	}
	if outcome.Result.GasUsed != 21000 {
		t.Fatalf("gasUsed = %d, want 21000", outcome.Result.GasUsed)
	}
	if outcome.DataSize != 150 {
		t.Fatalf("dataSize = %d, want 150", outcome.DataSize)
	}
	if outcome.KVUpdates != 1 {
		t.Fatalf("kvUpdates = %d, want 1", outcome.KVUpdates)
	}
	if statedb.Exist(testReceiver) {
		t.Fatal("zero-value call must not create the receiver")
	}
}

// TestGasConservation verifies caller debit + beneficiary credit + caller
// refund equals gasLimit * gasPrice.
func TestGasConservation(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	evm.Context.BaseFee = uint256.NewInt(1)
	db.SetBalance(testSender, uint256.NewInt(10_000_000))

	to := testReceiver
	tx := &types.Transaction{
		Type:      types.DynamicFeeTxType,
		ChainID:   params.MegaChainConfig.ChainID,
		From:      testSender,
		To:        &to,
		GasLimit:  100_000,
		GasFeeCap: uint256.NewInt(3),
		GasTipCap: uint256.NewInt(2),
	}

	gp := new(GasPool).AddGas(30_000_000)
	outcome, err := ApplyTransaction(evm, statedb, tx, gp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	gasPrice := uint64(3) // min(cap, base+tip) = min(3, 1+2)
	senderBalance := statedb.GetBalance(testSender).Uint64()
	coinbaseBalance := statedb.GetBalance(testCoinbase).Uint64()

	spent := uint64(10_000_000) - senderBalance
	wantSpent := outcome.Result.GasUsed * gasPrice
	if spent != wantSpent {
		t.Fatalf("sender spent %d, want %d", spent, wantSpent)
	}
	wantTip := outcome.Result.GasUsed * 2
	if coinbaseBalance != wantTip {
		t.Fatalf("coinbase credited %d, want %d", coinbaseBalance, wantTip)
	}
}

// TestNonceMismatchRejected verifies nonce validation.
func TestNonceMismatchRejected(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(1000))

	tx := transferTx(0)
	tx.Nonce = 5
	gp := new(GasPool).AddGas(30_000_000)
	if _, err := ApplyTransaction(evm, statedb, tx, gp); err == nil {
		t.Fatal("expected nonce-too-high rejection")
	}
	if gp.Gas() != 30_000_000 {
		t.Fatalf("gas pool = %d, want restored 30M", gp.Gas())
	}
}

// TestInsufficientFundsRejected verifies the balance pre-check.
func TestInsufficientFundsRejected(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(10))

	tx := transferTx(100)
	gp := new(GasPool).AddGas(30_000_000)
	if _, err := ApplyTransaction(evm, statedb, tx, gp); err == nil {
		t.Fatal("expected insufficient-funds rejection")
	}
}

// TestIntrinsicGasTooLow verifies the intrinsic gas check, which under
// MiniRex includes the per-byte calldata additive.
func TestIntrinsicGasTooLow(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(1000))

	tx := transferTx(0)
	tx.GasLimit = 20_000
	gp := new(GasPool).AddGas(30_000_000)
	if _, err := ApplyTransaction(evm, statedb, tx, gp); err == nil {
		t.Fatal("expected intrinsic-gas rejection")
	}
}

// TestCalldataAdditiveCharged verifies the MiniRex calldata surcharge is
// billed on top of the standard intrinsic gas.
func TestCalldataAdditiveCharged(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	std := params.TxGas + 4*params.TxDataNonZeroGas
	want := std + params.CalldataAdditionalGas*4

	tx := &types.Transaction{Data: data}
	if got := IntrinsicGas(tx, params.MiniRex); got != want {
		t.Fatalf("MiniRex intrinsic = %d, want %d", got, want)
	}
	if got := IntrinsicGas(tx, params.Equivalence); got != std {
		t.Fatalf("Equivalence intrinsic = %d, want %d", got, std)
	}
}

// TestDataLimitHaltRewrite verifies a LOG-driven data bomb surfaces as
// DataLimitExceeded with all gas consumed and no logs.
func TestDataLimitHaltRewrite(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(1_000_000))
	evm.Limits.DataLimit = 256

	// Contract emitting LOG0 with 1024 bytes of data.
	code := []byte{0x61, 0x04, 0x00, 0x60, 0x00, 0xa0, 0x00}
	db.SetCode(testReceiver, code)

	tx := transferTx(0)
	gp := new(GasPool).AddGas(30_000_000)
	outcome, err := ApplyTransaction(evm, statedb, tx, gp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if outcome.Result.Status != StatusHalt {
		t.Fatalf("status = %d, want halt", outcome.Result.Status)
	}
	if outcome.Result.HaltReason != HaltDataLimitExceeded {
		t.Fatalf("halt reason = %s, want data limit exceeded", outcome.Result.HaltReason)
	}
	if outcome.Result.LimitInfo == nil || outcome.Result.LimitInfo.Limit != 256 {
		t.Fatalf("limit info = %+v, want limit 256", outcome.Result.LimitInfo)
	}
	if outcome.Result.GasUsed != tx.GasLimit {
		t.Fatalf("gasUsed = %d, want the full limit %d", outcome.Result.GasUsed, tx.GasLimit)
	}
	if len(outcome.Result.Logs) != 0 {
		t.Fatalf("logs = %d, want 0", len(outcome.Result.Logs))
	}
}

// TestDetainedGasRefunded verifies the volatile-access detention does not
// bill the user: a transaction that touches BASEFEE with a huge gas limit
// pays only for the work done.
func TestDetainedGasRefunded(t *testing.T) {
	evm, statedb, db := newTestEnv(t)
	db.SetBalance(testSender, uint256.NewInt(100_000_000))

	// BASEFEE, STOP.
	db.SetCode(testReceiver, []byte{0x48, 0x00})

	to := testReceiver
	tx := &types.Transaction{
		Type:     types.LegacyTxType,
		From:     testSender,
		To:       &to,
		GasLimit: 25_000_000, // above the 20M block-env budget
		GasPrice: new(uint256.Int),
	}
	gp := new(GasPool).AddGas(30_000_000)
	outcome, err := ApplyTransaction(evm, statedb, tx, gp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Result.Succeeded() {
		t.Fatalf("status = %d, want success", outcome.Result.Status)
	}
	// Intrinsic plus the two opcodes; everything detained must have been
	// refunded rather than billed.
	if outcome.Result.GasUsed >= 22_000 {
		t.Fatalf("gasUsed = %d, detained gas was billed", outcome.Result.GasUsed)
	}
}

// TestDepositSkipsFees verifies deposit transactions mint their value and
// pay no fees.
func TestDepositSkipsFees(t *testing.T) {
	evm, statedb, _ := newTestEnv(t)

	to := testReceiver
	tx := &types.Transaction{
		Type:     types.DepositTxType,
		From:     testSender,
		To:       &to,
		GasLimit: 100_000,
		Mint:     uint256.NewInt(500),
		Value:    uint256.NewInt(200),
	}
	gp := new(GasPool).AddGas(30_000_000)
	outcome, err := ApplyTransaction(evm, statedb, tx, gp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Result.Succeeded() {
		t.Fatalf("status = %d, want success", outcome.Result.Status)
	}
	if got := statedb.GetBalance(testSender); !got.Eq(uint256.NewInt(300)) {
		t.Fatalf("sender balance = %s, want 300 (mint 500 - value 200)", got)
	}
	if got := statedb.GetBalance(testReceiver); !got.Eq(uint256.NewInt(200)) {
		t.Fatalf("receiver balance = %s, want 200", got)
	}
	if got := statedb.GetNonce(testSender); got != 1 {
		t.Fatalf("depositor nonce = %d, want 1", got)
	}
}
