package limit

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// VolatileAccess is a bitmap over the volatile data a transaction has
// touched: block-environment fields, the beneficiary balance, and the
// oracle contract.
type VolatileAccess uint16

const (
	AccessBlockNumber VolatileAccess = 1 << iota
	AccessTimestamp
	AccessCoinbase
	AccessDifficulty
	AccessPrevRandao
	AccessGasLimit
	AccessBaseFee
	AccessBlobBaseFee
	AccessBlockHash
	AccessBlobHash
	AccessBeneficiaryBalance
	AccessOracle
)

// blockEnvMask covers every block-environment flag.
const blockEnvMask = AccessBlockNumber | AccessTimestamp | AccessCoinbase |
	AccessDifficulty | AccessPrevRandao | AccessGasLimit | AccessBaseFee |
	AccessBlobBaseFee | AccessBlockHash | AccessBlobHash

// IsEmpty reports whether no volatile data has been accessed.
func (v VolatileAccess) IsEmpty() bool { return v == 0 }

// HasBlockEnv reports whether any block-environment field was accessed.
func (v VolatileAccess) HasBlockEnv() bool { return v&blockEnvMask != 0 }

// HasBeneficiaryBalance reports whether the beneficiary balance was read.
func (v VolatileAccess) HasBeneficiaryBalance() bool {
	return v&AccessBeneficiaryBalance != 0
}

// HasOracle reports whether the oracle contract was touched.
func (v VolatileAccess) HasOracle() bool { return v&AccessOracle != 0 }

// GlobalLimitedGas is the transaction-level gas budget established on the
// first volatile-data access. remaining starts at limit and only ratchets
// downward; detained accumulates the gas clamped away from frames and is
// refunded at transaction end.
type GlobalLimitedGas struct {
	limit     uint64
	remaining uint64
	detained  uint64
}

func newGlobalLimitedGas(limit uint64) *GlobalLimitedGas {
	return &GlobalLimitedGas{limit: limit, remaining: limit}
}

// Limit returns the current (minimum observed) limit.
func (g *GlobalLimitedGas) Limit() uint64 { return g.limit }

// Remaining returns the current remaining budget.
func (g *GlobalLimitedGas) Remaining() uint64 { return g.remaining }

// Detained returns the accumulated detained gas.
func (g *GlobalLimitedGas) Detained() uint64 { return g.detained }

// applyLimit lowers the limit to min(current, new). Lowering after a
// detention is non-destructive: already-detained gas stays detained.
func (g *GlobalLimitedGas) applyLimit(limit uint64) {
	if limit < g.limit {
		g.limit = limit
	}
	if limit < g.remaining {
		g.remaining = limit
	}
}

// detain clamps gasRemaining to the budget, accumulating the excess, and
// returns the clamped value.
func (g *GlobalLimitedGas) detain(gasRemaining uint64) uint64 {
	if gasRemaining > g.remaining {
		g.detained += gasRemaining - g.remaining
		return g.remaining
	}
	return gasRemaining
}

// setRemaining ratchets the remaining budget downward as gas is consumed.
func (g *GlobalLimitedGas) setRemaining(remaining uint64) {
	if remaining < g.remaining {
		g.remaining = remaining
	}
}

// refund zeroes and returns the detained total.
func (g *GlobalLimitedGas) refund() uint64 {
	d := g.detained
	g.detained = 0
	return d
}

// VolatileTracker detects volatile-data accesses and enforces the gas
// detention mechanism of §4.3.5: once volatile data is touched, the gas
// available to the rest of the transaction is capped, and the excess is
// set aside and refunded at transaction end. When several kinds of
// volatile data are touched, the minimum cap wins regardless of order.
type VolatileTracker struct {
	accessed VolatileAccess
	global   *GlobalLimitedGas
}

// NewVolatileTracker returns an empty tracker.
func NewVolatileTracker() *VolatileTracker {
	return &VolatileTracker{}
}

// Reset clears all access tracking for a new transaction.
func (t *VolatileTracker) Reset() {
	t.accessed = 0
	t.global = nil
}

// Accessed reports whether any volatile data has been touched.
func (t *VolatileTracker) Accessed() bool { return !t.accessed.IsEmpty() }

// Accesses returns the access bitmap.
func (t *VolatileTracker) Accesses() VolatileAccess { return t.accessed }

// Global returns the active gas budget, nil before any volatile access.
func (t *VolatileTracker) Global() *GlobalLimitedGas { return t.global }

// MarkBlockEnvAccessed records a block-environment read and applies the
// 20M cap.
func (t *VolatileTracker) MarkBlockEnvAccessed(flag VolatileAccess) {
	t.accessed |= flag
	t.applyOrCreate(params.BlockEnvAccessRemainingGas)
}

// MarkBeneficiaryBalanceAccessed records a read of the beneficiary account
// and applies the 20M cap.
func (t *VolatileTracker) MarkBeneficiaryBalanceAccessed() {
	t.accessed |= AccessBeneficiaryBalance
	t.applyOrCreate(params.BlockEnvAccessRemainingGas)
}

// CheckAndMarkOracleAccess records an oracle-contract touch when addr is
// the oracle address, applying the 1M cap, and reports whether it matched.
func (t *VolatileTracker) CheckAndMarkOracleAccess(addr types.Address) bool {
	if addr != types.OracleContractAddress {
		return false
	}
	t.accessed |= AccessOracle
	t.applyOrCreate(params.OracleAccessRemainingGas)
	return true
}

func (t *VolatileTracker) applyOrCreate(limit uint64) {
	if t.global == nil {
		t.global = newGlobalLimitedGas(limit)
		return
	}
	t.global.applyLimit(limit)
}

// DetainGas clamps a frame's remaining gas to the active budget and
// returns the clamped value. A no-op (identity) before any volatile
// access.
func (t *VolatileTracker) DetainGas(gasRemaining uint64) uint64 {
	if t.global == nil {
		return gasRemaining
	}
	return t.global.detain(gasRemaining)
}

// UpdateRemaining ratchets the budget downward after gas has been
// consumed. A no-op before any volatile access.
func (t *VolatileTracker) UpdateRemaining(remaining uint64) {
	if t.global == nil {
		return
	}
	t.global.setRemaining(remaining)
}

// RefundDetained zeroes and returns the accumulated detained gas.
func (t *VolatileTracker) RefundDetained() uint64 {
	if t.global == nil {
		return 0
	}
	return t.global.refund()
}
