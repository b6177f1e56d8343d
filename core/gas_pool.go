package core

import "errors"

// ErrGasPoolExhausted is returned when the block gas pool has insufficient
// gas for the next transaction.
var ErrGasPoolExhausted = errors.New("gas pool exhausted")

// GasPool tracks the gas available to transactions during block execution.
type GasPool uint64

// AddGas returns gas to the pool.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	*gp += GasPool(amount)
	return gp
}

// SubGas removes gas from the pool, erroring when insufficient.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasPoolExhausted
	}
	*gp -= GasPool(amount)
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 {
	return uint64(*gp)
}
