package core

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// EIP-4788: the parent beacon block root is stored in a ring buffer in the
// beacon roots contract at the start of each Cancun block.
//
//	timestampIdx = time % HISTORY_BUFFER_LENGTH
//	rootIdx      = timestampIdx + HISTORY_BUFFER_LENGTH

// ProcessBeaconBlockRoot writes the parent beacon root into the EIP-4788
// contract. A nil root fails the block; at a Cancun-genesis block the root
// must be the zero hash instead.
func ProcessBeaconBlockRoot(statedb *state.StateDB, time uint64, parentBeaconRoot *types.Hash) error {
	if parentBeaconRoot == nil {
		return ErrMissingParentBeaconRoot
	}
	if !statedb.Exist(types.BeaconRootsAddress) {
		statedb.CreateAccount(types.BeaconRootsAddress)
	}
	timestampIdx := time % params.BeaconRootsHistoryBufferLength
	rootIdx := timestampIdx + params.BeaconRootsHistoryBufferLength

	statedb.SetState(types.BeaconRootsAddress, types.Uint64ToHash(timestampIdx), types.Uint64ToHash(time))
	statedb.SetState(types.BeaconRootsAddress, types.Uint64ToHash(rootIdx), *parentBeaconRoot)
	if err := statedb.Error(); err != nil {
		return ErrBeaconRootContractCall
	}
	return nil
}
