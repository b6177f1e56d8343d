package core

import (
	"testing"

	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// TestApplyAuthorizations verifies a valid authorization installs the
// delegation designator and bumps the authority's nonce.
func TestApplyAuthorizations(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	authority := types.BytesToAddress([]byte{0xaa})
	target := types.BytesToAddress([]byte{0xbb})

	tx := &types.Transaction{
		Type: types.SetCodeTxType,
		AuthList: []types.SetCodeAuthorization{
			{ChainID: 6342, Address: target, Nonce: 0, Authority: &authority},
		},
	}
	ApplyAuthorizations(statedb, tx, 6342)

	code := statedb.GetCode(authority)
	delegated, ok := types.ParseDelegation(code)
	if !ok || delegated != target {
		t.Fatalf("delegation = (%v, %v), want %s", delegated, ok, target)
	}
	if got := statedb.GetNonce(authority); got != 1 {
		t.Fatalf("authority nonce = %d, want 1", got)
	}
}

// TestAuthorizationSkipsOnNonceMismatch verifies invalid tuples are
// skipped without error.
func TestAuthorizationSkipsOnNonceMismatch(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	authority := types.BytesToAddress([]byte{0xaa})
	target := types.BytesToAddress([]byte{0xbb})

	tx := &types.Transaction{
		Type: types.SetCodeTxType,
		AuthList: []types.SetCodeAuthorization{
			{ChainID: 6342, Address: target, Nonce: 5, Authority: &authority},
		},
	}
	ApplyAuthorizations(statedb, tx, 6342)
	if len(statedb.GetCode(authority)) != 0 {
		t.Fatal("mismatched nonce must not install a delegation")
	}
}

// TestAuthorizationWrongChainSkipped verifies chain id filtering.
func TestAuthorizationWrongChainSkipped(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	authority := types.BytesToAddress([]byte{0xaa})
	target := types.BytesToAddress([]byte{0xbb})

	tx := &types.Transaction{
		Type: types.SetCodeTxType,
		AuthList: []types.SetCodeAuthorization{
			{ChainID: 1, Address: target, Nonce: 0, Authority: &authority},
		},
	}
	ApplyAuthorizations(statedb, tx, 6342)
	if len(statedb.GetCode(authority)) != 0 {
		t.Fatal("wrong-chain authorization must be skipped")
	}
}

// TestAuthorizationClearsDelegation verifies the zero-address target
// removes an existing delegation.
func TestAuthorizationClearsDelegation(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	authority := types.BytesToAddress([]byte{0xaa})
	statedb.SetCode(authority, types.AddressToDelegation(types.BytesToAddress([]byte{0xbb})))

	tx := &types.Transaction{
		Type: types.SetCodeTxType,
		AuthList: []types.SetCodeAuthorization{
			{ChainID: 0, Address: types.Address{}, Nonce: 0, Authority: &authority},
		},
	}
	refund := ApplyAuthorizations(statedb, tx, 6342)
	if len(statedb.GetCode(authority)) != 0 {
		t.Fatal("zero-address authorization must clear the delegation")
	}
	if want := params.TxAuthEmptyAccount - params.TxAuthTupleGas; refund != want {
		t.Fatalf("refund = %d, want %d for an existing authority", refund, want)
	}
}
