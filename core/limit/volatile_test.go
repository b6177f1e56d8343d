package limit

import (
	"testing"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// TestVolatileNoAccessIsIdentity verifies DetainGas passes gas through
// before any volatile access.
func TestVolatileNoAccessIsIdentity(t *testing.T) {
	tr := NewVolatileTracker()
	if got := tr.DetainGas(1_000_000_000); got != 1_000_000_000 {
		t.Fatalf("detain with no access = %d, want identity", got)
	}
	if tr.Accessed() {
		t.Fatal("tracker must start with no accesses")
	}
}

// TestVolatileBlockEnvLimit verifies the 20M budget after a block-env read
// and the detention of the excess.
func TestVolatileBlockEnvLimit(t *testing.T) {
	tr := NewVolatileTracker()
	tr.MarkBlockEnvAccessed(AccessTimestamp)

	if got := tr.Global().Limit(); got != params.BlockEnvAccessRemainingGas {
		t.Fatalf("limit = %d, want %d", got, params.BlockEnvAccessRemainingGas)
	}
	clamped := tr.DetainGas(1_000_000_000)
	if clamped != params.BlockEnvAccessRemainingGas {
		t.Fatalf("clamped = %d, want %d", clamped, params.BlockEnvAccessRemainingGas)
	}
	wantDetained := uint64(1_000_000_000) - params.BlockEnvAccessRemainingGas
	if got := tr.Global().Detained(); got != wantDetained {
		t.Fatalf("detained = %d, want %d", got, wantDetained)
	}
}

// TestVolatileOracleThenBlockEnv covers the spec scenario: oracle first
// establishes 1M; a later block-env access cannot raise it.
func TestVolatileOracleThenBlockEnv(t *testing.T) {
	tr := NewVolatileTracker()
	if !tr.CheckAndMarkOracleAccess(types.OracleContractAddress) {
		t.Fatal("oracle address not recognized")
	}
	if got := tr.Global().Limit(); got != params.OracleAccessRemainingGas {
		t.Fatalf("limit = %d, want %d", got, params.OracleAccessRemainingGas)
	}
	tr.MarkBlockEnvAccessed(AccessBaseFee)
	if got := tr.Global().Limit(); got != params.OracleAccessRemainingGas {
		t.Fatalf("limit after block env = %d, want %d (min wins)", got, params.OracleAccessRemainingGas)
	}
}

// TestVolatileBlockEnvThenOracle covers the reverse order: the limit drops
// from 20M to 1M and the extra gap moves to detained.
func TestVolatileBlockEnvThenOracle(t *testing.T) {
	tr := NewVolatileTracker()
	tr.MarkBlockEnvAccessed(AccessBaseFee)
	remaining := tr.DetainGas(30_000_000) // 10M detained
	if remaining != params.BlockEnvAccessRemainingGas {
		t.Fatalf("remaining = %d, want 20M", remaining)
	}
	tr.CheckAndMarkOracleAccess(types.OracleContractAddress)
	if got := tr.Global().Limit(); got != params.OracleAccessRemainingGas {
		t.Fatalf("limit = %d, want 1M", got)
	}
	remaining = tr.DetainGas(remaining)
	if remaining != params.OracleAccessRemainingGas {
		t.Fatalf("remaining after oracle = %d, want 1M", remaining)
	}
	// 10M from the first clamp plus 19M from the second.
	wantDetained := uint64(10_000_000 + 19_000_000)
	if got := tr.Global().Detained(); got != wantDetained {
		t.Fatalf("detained = %d, want %d", got, wantDetained)
	}
}

// TestVolatileOrderIndependence verifies both orders end at the same final
// limit and, for the same gas profile, the same total detained amount.
func TestVolatileOrderIndependence(t *testing.T) {
	run := func(oracleFirst bool) (uint64, uint64) {
		tr := NewVolatileTracker()
		gas := uint64(30_000_000)
		if oracleFirst {
			tr.CheckAndMarkOracleAccess(types.OracleContractAddress)
			gas = tr.DetainGas(gas)
			tr.MarkBlockEnvAccessed(AccessBlockNumber)
			gas = tr.DetainGas(gas)
		} else {
			tr.MarkBlockEnvAccessed(AccessBlockNumber)
			gas = tr.DetainGas(gas)
			tr.CheckAndMarkOracleAccess(types.OracleContractAddress)
			gas = tr.DetainGas(gas)
		}
		return tr.Global().Limit(), tr.Global().Detained()
	}

	limitA, detainedA := run(true)
	limitB, detainedB := run(false)
	if limitA != limitB {
		t.Fatalf("final limits differ: %d vs %d", limitA, limitB)
	}
	if detainedA != detainedB {
		t.Fatalf("detained differ: %d vs %d", detainedA, detainedB)
	}
}

// TestVolatileLimitMonotonic verifies a later, looser access never raises
// an established limit.
func TestVolatileLimitMonotonic(t *testing.T) {
	tr := NewVolatileTracker()
	tr.CheckAndMarkOracleAccess(types.OracleContractAddress)
	before := tr.Global().Limit()
	tr.MarkBlockEnvAccessed(AccessGasLimit)
	tr.MarkBeneficiaryBalanceAccessed()
	if got := tr.Global().Limit(); got > before {
		t.Fatalf("limit rose from %d to %d", before, got)
	}
}

// TestVolatileRefundDetained verifies the refund zeroes the detained total
// and returns it once.
func TestVolatileRefundDetained(t *testing.T) {
	tr := NewVolatileTracker()
	tr.MarkBlockEnvAccessed(AccessTimestamp)
	tr.DetainGas(25_000_000)

	if got := tr.RefundDetained(); got != 5_000_000 {
		t.Fatalf("refund = %d, want 5M", got)
	}
	if got := tr.RefundDetained(); got != 0 {
		t.Fatalf("second refund = %d, want 0", got)
	}
}

// TestVolatileRemainingRatchet verifies consumption lowers the budget for
// later frames.
func TestVolatileRemainingRatchet(t *testing.T) {
	tr := NewVolatileTracker()
	tr.MarkBlockEnvAccessed(AccessTimestamp)
	tr.UpdateRemaining(5_000_000)

	if got := tr.DetainGas(8_000_000); got != 5_000_000 {
		t.Fatalf("clamped = %d, want the ratcheted 5M", got)
	}
	// A higher report must not raise the budget back.
	tr.UpdateRemaining(9_000_000)
	if got := tr.DetainGas(8_000_000); got != 5_000_000 {
		t.Fatalf("clamped = %d after stale update, want 5M", got)
	}
}

// TestVolatileNonOracleAddressIgnored verifies only the oracle address
// trips the oracle bit.
func TestVolatileNonOracleAddressIgnored(t *testing.T) {
	tr := NewVolatileTracker()
	if tr.CheckAndMarkOracleAccess(types.BytesToAddress([]byte{0x42})) {
		t.Fatal("random address must not mark oracle access")
	}
	if tr.Accessed() {
		t.Fatal("no access should be recorded")
	}
}
