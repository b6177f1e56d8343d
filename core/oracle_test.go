package core

import (
	"testing"

	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// TestOracleCodeHashMatches verifies the embedded bytecode hashes to the
// pinned code hash used by the idempotency check.
func TestOracleCodeHashMatches(t *testing.T) {
	if got := types.Keccak256Hash(OracleCode()); got != OracleContractCodeHash {
		t.Fatalf("oracle code hash = %s, want %s", got, OracleContractCodeHash)
	}
}

// TestDeployOracleContract verifies the deploy writes code once and is a
// no-op when the correct code is already present.
func TestDeployOracleContract(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	if err := DeployOracleContract(statedb); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if got := statedb.GetCodeHash(types.OracleContractAddress); got != OracleContractCodeHash {
		t.Fatalf("code hash = %s, want %s", got, OracleContractCodeHash)
	}

	// Second deploy must not touch anything.
	snap := statedb.Snapshot()
	if err := DeployOracleContract(statedb); err != nil {
		t.Fatalf("second deploy: %v", err)
	}
	statedb.RevertToSnapshot(snap)
	if got := statedb.GetCodeHash(types.OracleContractAddress); got != OracleContractCodeHash {
		t.Fatal("idempotent deploy must leave the code in place")
	}
}

// TestDeployOracleReplacesWrongCode verifies a wrong-code account is
// repaired.
func TestDeployOracleReplacesWrongCode(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetCode(types.OracleContractAddress, []byte{0x60, 0x00})
	statedb := state.New(db)

	if err := DeployOracleContract(statedb); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if got := statedb.GetCodeHash(types.OracleContractAddress); got != OracleContractCodeHash {
		t.Fatalf("code hash = %s, want repaired %s", got, OracleContractCodeHash)
	}
}
