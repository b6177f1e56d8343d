package core

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// EIP-2935: serve historical block hashes from state.
//
// At the start of each block the parent's hash is written into the history
// storage contract at slot parentNumber % HISTORY_SERVE_WINDOW. The write
// happens as a system-level state change from the system address; no
// receipt is emitted.

// ProcessParentBlockHash stores the parent block hash in the EIP-2935
// history contract. Called before any user transaction of a Prague block
// with number > 0.
func ProcessParentBlockHash(statedb *state.StateDB, parentNumber uint64, parentHash types.Hash) error {
	if !statedb.Exist(types.HistoryStorageAddress) {
		statedb.CreateAccount(types.HistoryStorageAddress)
	}
	slot := types.Uint64ToHash(parentNumber % params.HistoryServeWindow)
	statedb.SetState(types.HistoryStorageAddress, slot, parentHash)
	if err := statedb.Error(); err != nil {
		return ErrBlockHashContractCall
	}
	return nil
}

// HistoricalBlockHash reads a block hash back from the history contract,
// the zero hash when unavailable.
func HistoricalBlockHash(statedb *state.StateDB, number uint64) types.Hash {
	if !statedb.Exist(types.HistoryStorageAddress) {
		return types.Hash{}
	}
	slot := types.Uint64ToHash(number % params.HistoryServeWindow)
	return statedb.GetState(types.HistoryStorageAddress, slot)
}
