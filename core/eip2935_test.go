package core

import (
	"testing"

	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// TestParentBlockHashRingBuffer verifies the EIP-2935 slot computation and
// read-back.
func TestParentBlockHashRingBuffer(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())

	parent := uint64(params.HistoryServeWindow + 5)
	hash := types.Uint64ToHash(777)
	if err := ProcessParentBlockHash(statedb, parent, hash); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := HistoricalBlockHash(statedb, parent); got != hash {
		t.Fatalf("read back = %s, want %s", got, hash)
	}
	// The ring wraps: a number one window later shares the slot.
	if got := HistoricalBlockHash(statedb, parent+params.HistoryServeWindow); got != hash {
		t.Fatalf("wrapped read = %s, want shared slot value", got)
	}
}

// TestBeaconRootRingBuffer verifies the EIP-4788 two-slot layout.
func TestBeaconRootRingBuffer(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	root := types.Uint64ToHash(31337)
	time := uint64(1234)

	if err := ProcessBeaconBlockRoot(statedb, time, &root); err != nil {
		t.Fatalf("process: %v", err)
	}

	tsIdx := time % params.BeaconRootsHistoryBufferLength
	if got := statedb.GetState(types.BeaconRootsAddress, types.Uint64ToHash(tsIdx)); got != types.Uint64ToHash(time) {
		t.Fatalf("timestamp slot = %s, want %d", got, time)
	}
	rootIdx := tsIdx + params.BeaconRootsHistoryBufferLength
	if got := statedb.GetState(types.BeaconRootsAddress, types.Uint64ToHash(rootIdx)); got != root {
		t.Fatalf("root slot = %s, want %s", got, root)
	}
}

// TestBeaconRootMissingFails verifies a nil root is a block failure.
func TestBeaconRootMissingFails(t *testing.T) {
	statedb := state.New(state.NewMemoryDB())
	if err := ProcessBeaconBlockRoot(statedb, 1, nil); err != ErrMissingParentBeaconRoot {
		t.Fatalf("err = %v, want missing parent beacon root", err)
	}
}
