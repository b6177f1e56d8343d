package state

import (
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// journalEntry is a revertible state change. Every mutation on the StateDB
// appends one entry for the change itself; the first mutation of an account
// also appends a touchChange for its dirty mark.
type journalEntry interface {
	revert(s *StateDB)
}

// journal tracks state modifications for snapshot/revert.
type journal struct {
	entries   []journalEntry
	snapshots map[int]int // snapshot id -> entry index
	nextID    int
}

func newJournal() *journal {
	return &journal{snapshots: make(map[int]int)}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

func (j *journal) revertToSnapshot(id int, s *StateDB) {
	idx, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= idx; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:idx]

	// Invalidate snapshots taken after this one.
	for sid := range j.snapshots {
		if sid >= id {
			delete(j.snapshots, sid)
		}
	}
}

func (j *journal) reset() {
	j.entries = j.entries[:0]
	j.snapshots = make(map[int]int)
	j.nextID = 0
}

// --- Concrete journal entries ---

type createObjectChange struct {
	addr types.Address
	prev *stateObject // nil if the account didn't exist before
}

func (ch createObjectChange) revert(s *StateDB) {
	if ch.prev == nil {
		delete(s.objects, ch.addr)
	} else {
		s.objects[ch.addr] = ch.prev
	}
}

type balanceChange struct {
	addr types.Address
	prev *uint256.Int
}

func (ch balanceChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.info.Balance = ch.prev
	}
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (ch nonceChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.info.Nonce = ch.prev
	}
}

type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash types.Hash
}

func (ch codeChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.info.Code = ch.prevCode
		obj.info.CodeHash = ch.prevHash
	}
}

type storageChange struct {
	addr       types.Address
	key        types.Hash
	prev       types.Hash
	prevExists bool // whether the key was dirty before this write
}

func (ch storageChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		if ch.prevExists {
			obj.dirtyStorage[ch.key] = ch.prev
		} else {
			delete(obj.dirtyStorage, ch.key)
		}
	}
}

type selfDestructChange struct {
	addr           types.Address
	prevDestructed bool
	prevBalance    *uint256.Int
}

func (ch selfDestructChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.destructed = ch.prevDestructed
		obj.info.Balance = ch.prevBalance
	}
}

type touchChange struct {
	addr    types.Address
	prevDirty bool
}

func (ch touchChange) revert(s *StateDB) {
	if !ch.prevDirty {
		delete(s.dirties, ch.addr)
	}
}

type logChange struct {
	prevLen int
}

func (ch logChange) revert(s *StateDB) {
	s.logs = s.logs[:ch.prevLen]
}

type refundChange struct {
	prev uint64
}

func (ch refundChange) revert(s *StateDB) {
	s.refund = ch.prev
}

type accessListAddAccountChange struct {
	addr types.Address
}

func (ch accessListAddAccountChange) revert(s *StateDB) {
	delete(s.warmAddresses, ch.addr)
	delete(s.warmSlots, ch.addr)
}

type accessListAddSlotChange struct {
	addr types.Address
	slot types.Hash
}

func (ch accessListAddSlotChange) revert(s *StateDB) {
	if slots := s.warmSlots[ch.addr]; slots != nil {
		delete(slots, ch.slot)
	}
}

type transientStorageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (ch transientStorageChange) revert(s *StateDB) {
	if ch.prev.IsZero() {
		if slots := s.transient[ch.addr]; slots != nil {
			delete(slots, ch.key)
			if len(slots) == 0 {
				delete(s.transient, ch.addr)
			}
		}
	} else {
		s.setTransient(ch.addr, ch.key, ch.prev)
	}
}
