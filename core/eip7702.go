package core

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// ApplyAuthorizations processes an EIP-7702 authorization list before the
// main frame runs. Each valid authorization sets the authority's code to a
// delegation designator pointing at the authorized address (or clears it
// for the zero address) and bumps the authority's nonce. Invalid tuples
// are skipped, never fatal. Returns the gas refunded for authorities that
// already existed.
func ApplyAuthorizations(statedb *state.StateDB, tx *types.Transaction, chainID uint64) uint64 {
	var refund uint64
	for _, auth := range tx.AuthList {
		if auth.Authority == nil {
			continue // signature recovery failed upstream
		}
		if auth.ChainID != 0 && auth.ChainID != chainID {
			continue
		}
		authority := *auth.Authority

		// The authority must be an EOA or an already-delegated account.
		if code := statedb.GetCode(authority); len(code) > 0 && !types.HasDelegationPrefix(code) {
			continue
		}
		if statedb.GetNonce(authority) != auth.Nonce {
			continue
		}

		// Existing accounts refund the difference between the charged
		// empty-account cost and the base tuple cost.
		if statedb.Exist(authority) && !statedb.Empty(authority) {
			refund += params.TxAuthEmptyAccount - params.TxAuthTupleGas
		}

		if auth.Address.IsZero() {
			statedb.SetCode(authority, nil)
		} else {
			statedb.SetCode(authority, types.AddressToDelegation(auth.Address))
		}
		statedb.SetNonce(authority, auth.Nonce+1)
	}
	return refund
}
