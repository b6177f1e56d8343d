package state

import (
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// stateObject is the in-overlay representation of one account.
type stateObject struct {
	info AccountInfo

	// originStorage caches the pre-transaction ("original") values of
	// storage slots read or written this transaction. dirtyStorage holds
	// the in-flight writes.
	originStorage map[types.Hash]types.Hash
	dirtyStorage  map[types.Hash]types.Hash

	newlyCreated bool // created during the current transaction
	destructed   bool
}

func (obj *stateObject) empty() bool {
	return obj.info.Nonce == 0 &&
		(obj.info.Balance == nil || obj.info.Balance.IsZero()) &&
		(obj.info.CodeHash == types.EmptyCodeHash || obj.info.CodeHash.IsZero())
}

// StateDB is the journaled overlay over a Database. It exclusively owns
// mutable state for the duration of a block; every mutation is journaled so
// frames can be reverted, and per-transaction bookkeeping (warm sets,
// refund, logs, transient storage) is reset by Prepare.
type StateDB struct {
	db      Database
	objects map[types.Address]*stateObject
	dirties map[types.Address]struct{}
	journal *journal
	dbErr   error

	refund    uint64
	logs      []*types.Log
	txHash    types.Hash
	txIndex   int

	warmAddresses map[types.Address]struct{}
	warmSlots     map[types.Address]map[types.Hash]struct{}
	transient     map[types.Address]map[types.Hash]types.Hash
}

// New creates a StateDB over the given backend.
func New(db Database) *StateDB {
	return &StateDB{
		db:            db,
		objects:       make(map[types.Address]*stateObject),
		dirties:       make(map[types.Address]struct{}),
		journal:       newJournal(),
		warmAddresses: make(map[types.Address]struct{}),
		warmSlots:     make(map[types.Address]map[types.Hash]struct{}),
		transient:     make(map[types.Address]map[types.Hash]types.Hash),
	}
}

// setError records the first database error. All reads after a database
// failure return zero values; the block executor aborts on Error().
func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the first database error observed, if any.
func (s *StateDB) Error() error { return s.dbErr }

// Database returns the backing database.
func (s *StateDB) Database() Database { return s.db }

func (s *StateDB) getObject(addr types.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		return obj
	}
	info, err := s.db.Basic(addr)
	if err != nil {
		s.setError(err)
		return nil
	}
	if info == nil {
		return nil
	}
	if info.Balance == nil {
		info.Balance = new(uint256.Int)
	}
	if info.CodeHash.IsZero() {
		info.CodeHash = types.EmptyCodeHash
	}
	obj := &stateObject{
		info:          *info,
		originStorage: make(map[types.Hash]types.Hash),
		dirtyStorage:  make(map[types.Hash]types.Hash),
	}
	s.objects[addr] = obj
	return obj
}

func (s *StateDB) getOrNewObject(addr types.Address) *stateObject {
	if obj := s.getObject(addr); obj != nil {
		return obj
	}
	return s.createObject(addr, false)
}

func (s *StateDB) createObject(addr types.Address, newlyCreated bool) *stateObject {
	prev := s.objects[addr]
	s.journal.append(createObjectChange{addr: addr, prev: prev})
	obj := &stateObject{
		info: AccountInfo{
			Balance:  new(uint256.Int),
			CodeHash: types.EmptyCodeHash,
		},
		originStorage: make(map[types.Hash]types.Hash),
		dirtyStorage:  make(map[types.Hash]types.Hash),
		newlyCreated:  newlyCreated,
	}
	s.objects[addr] = obj
	s.markDirty(addr)
	return obj
}

func (s *StateDB) markDirty(addr types.Address) {
	if _, ok := s.dirties[addr]; !ok {
		s.journal.append(touchChange{addr: addr})
		s.dirties[addr] = struct{}{}
	}
}

// --- Account operations ---

// CreateAccount makes a fresh account at addr, preserving any balance a
// pre-existing account held (CREATE to a funded address).
func (s *StateDB) CreateAccount(addr types.Address) {
	prevBalance := new(uint256.Int)
	if prev := s.getObject(addr); prev != nil {
		prevBalance.Set(prev.info.Balance)
	}
	obj := s.createObject(addr, true)
	obj.info.Balance = prevBalance
}

// Exist reports whether the account exists in state.
func (s *StateDB) Exist(addr types.Address) bool {
	return s.getObject(addr) != nil
}

// Empty reports whether the account is empty per EIP-161.
func (s *StateDB) Empty(addr types.Address) bool {
	obj := s.getObject(addr)
	return obj == nil || obj.empty()
}

// GetBalance returns the balance of addr, zero if absent.
func (s *StateDB) GetBalance(addr types.Address) *uint256.Int {
	if obj := s.getObject(addr); obj != nil {
		return new(uint256.Int).Set(obj.info.Balance)
	}
	return new(uint256.Int)
}

// AddBalance credits addr.
func (s *StateDB) AddBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getOrNewObject(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.info.Balance)})
	obj.info.Balance = new(uint256.Int).Add(obj.info.Balance, amount)
	s.markDirty(addr)
}

// SubBalance debits addr.
func (s *StateDB) SubBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getOrNewObject(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.info.Balance)})
	obj.info.Balance = new(uint256.Int).Sub(obj.info.Balance, amount)
	s.markDirty(addr)
}

// GetNonce returns the nonce of addr.
func (s *StateDB) GetNonce(addr types.Address) uint64 {
	if obj := s.getObject(addr); obj != nil {
		return obj.info.Nonce
	}
	return 0
}

// SetNonce sets the nonce of addr.
func (s *StateDB) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrNewObject(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.info.Nonce})
	obj.info.Nonce = nonce
	s.markDirty(addr)
}

// GetCode returns the code at addr, resolving through the database when the
// overlay only holds the hash.
func (s *StateDB) GetCode(addr types.Address) []byte {
	obj := s.getObject(addr)
	if obj == nil {
		return nil
	}
	if obj.info.Code != nil || obj.info.CodeHash == types.EmptyCodeHash {
		return obj.info.Code
	}
	code, err := s.db.CodeByHash(obj.info.CodeHash)
	if err != nil {
		s.setError(err)
		return nil
	}
	obj.info.Code = code
	return code
}

// SetCode sets the code at addr.
func (s *StateDB) SetCode(addr types.Address, code []byte) {
	obj := s.getOrNewObject(addr)
	s.journal.append(codeChange{addr: addr, prevCode: obj.info.Code, prevHash: obj.info.CodeHash})
	obj.info.Code = append([]byte(nil), code...)
	if len(code) == 0 {
		obj.info.CodeHash = types.EmptyCodeHash
	} else {
		obj.info.CodeHash = types.Keccak256Hash(code)
	}
	s.markDirty(addr)
}

// GetCodeHash returns the code hash of addr, the zero hash if absent.
func (s *StateDB) GetCodeHash(addr types.Address) types.Hash {
	if obj := s.getObject(addr); obj != nil {
		return obj.info.CodeHash
	}
	return types.Hash{}
}

// GetCodeSize returns the code size of addr.
func (s *StateDB) GetCodeSize(addr types.Address) int {
	return len(s.GetCode(addr))
}

// --- Storage ---

// GetState returns the current value of a storage slot.
func (s *StateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	if val, ok := obj.dirtyStorage[key]; ok {
		return val
	}
	return s.committed(obj, addr, key)
}

// GetCommittedState returns the pre-transaction ("original") value of a
// storage slot, as needed by EIP-2200 refund accounting.
func (s *StateDB) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	return s.committed(obj, addr, key)
}

func (s *StateDB) committed(obj *stateObject, addr types.Address, key types.Hash) types.Hash {
	if val, ok := obj.originStorage[key]; ok {
		return val
	}
	if obj.newlyCreated {
		// Accounts created this transaction have no committed storage.
		obj.originStorage[key] = types.Hash{}
		return types.Hash{}
	}
	val, err := s.db.Storage(addr, key)
	if err != nil {
		s.setError(err)
		return types.Hash{}
	}
	obj.originStorage[key] = val
	return val
}

// SetState writes a storage slot.
func (s *StateDB) SetState(addr types.Address, key, value types.Hash) {
	obj := s.getOrNewObject(addr)
	prev, prevExists := obj.dirtyStorage[key]
	if !prevExists {
		// Warm the original value cache so reverts restore visibility.
		s.committed(obj, addr, key)
	}
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, prevExists: prevExists})
	obj.dirtyStorage[key] = value
	s.markDirty(addr)
}

// --- Transient storage (EIP-1153) ---

// GetTransientState reads transient storage.
func (s *StateDB) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	return s.transient[addr][key]
}

// SetTransientState writes transient storage.
func (s *StateDB) SetTransientState(addr types.Address, key, value types.Hash) {
	prev := s.GetTransientState(addr, key)
	if prev == value {
		return
	}
	s.journal.append(transientStorageChange{addr: addr, key: key, prev: prev})
	s.setTransient(addr, key, value)
}

func (s *StateDB) setTransient(addr types.Address, key, value types.Hash) {
	slots := s.transient[addr]
	if slots == nil {
		slots = make(map[types.Hash]types.Hash)
		s.transient[addr] = slots
	}
	slots[key] = value
}

// --- Self-destruct ---

// SelfDestruct6780 marks addr destructed only if it was created in the same
// transaction (EIP-6780 semantics, the Isthmus behavior); only then is its
// balance zeroed here. The opcode handler moves the balance to the
// beneficiary before calling this. Under MiniRex the opcode never reaches
// this point.
func (s *StateDB) SelfDestruct6780(addr types.Address) {
	obj := s.getObject(addr)
	if obj == nil {
		return
	}
	s.journal.append(selfDestructChange{
		addr:           addr,
		prevDestructed: obj.destructed,
		prevBalance:    new(uint256.Int).Set(obj.info.Balance),
	})
	if obj.newlyCreated {
		obj.destructed = true
		obj.info.Balance = new(uint256.Int)
	}
	s.markDirty(addr)
}

// HasSelfDestructed reports whether addr is marked destructed.
func (s *StateDB) HasSelfDestructed(addr types.Address) bool {
	if obj := s.getObject(addr); obj != nil {
		return obj.destructed
	}
	return false
}

// --- Logs ---

// AddLog records a log attributed to the current transaction.
func (s *StateDB) AddLog(l *types.Log) {
	s.journal.append(logChange{prevLen: len(s.logs)})
	l.TxHash = s.txHash
	l.TxIndex = uint(s.txIndex)
	s.logs = append(s.logs, l)
}

// Logs returns the logs of the current transaction.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// --- Refund counter ---

// AddRefund increments the EIP-3529 refund counter.
func (s *StateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

// SubRefund decrements the refund counter.
func (s *StateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund -= gas
}

// GetRefund returns the refund counter.
func (s *StateDB) GetRefund() uint64 { return s.refund }

// --- Access list (EIP-2929) ---

// AddAddressToAccessList marks addr warm.
func (s *StateDB) AddAddressToAccessList(addr types.Address) {
	if _, ok := s.warmAddresses[addr]; !ok {
		s.journal.append(accessListAddAccountChange{addr: addr})
		s.warmAddresses[addr] = struct{}{}
	}
}

// AddSlotToAccessList marks (addr, slot) warm.
func (s *StateDB) AddSlotToAccessList(addr types.Address, slot types.Hash) {
	s.AddAddressToAccessList(addr)
	slots := s.warmSlots[addr]
	if slots == nil {
		slots = make(map[types.Hash]struct{})
		s.warmSlots[addr] = slots
	}
	if _, ok := slots[slot]; !ok {
		s.journal.append(accessListAddSlotChange{addr: addr, slot: slot})
		slots[slot] = struct{}{}
	}
}

// AddressInAccessList reports whether addr is warm.
func (s *StateDB) AddressInAccessList(addr types.Address) bool {
	_, ok := s.warmAddresses[addr]
	return ok
}

// SlotInAccessList reports whether (addr, slot) is warm.
func (s *StateDB) SlotInAccessList(addr types.Address, slot types.Hash) bool {
	_, ok := s.warmSlots[addr][slot]
	return ok
}

// --- Snapshot / revert ---

// Snapshot pushes a checkpoint marker and returns its id.
func (s *StateDB) Snapshot() int {
	return s.journal.snapshot()
}

// RevertToSnapshot undoes every journal entry above the checkpoint.
func (s *StateDB) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
}

// --- Transaction lifecycle ---

// Prepare resets the per-transaction bookkeeping: warm sets, refund,
// transient storage, logs, and the journal. Cold/warm status is
// per-transaction per EIP-2929.
func (s *StateDB) Prepare(txHash types.Hash, txIndex int) {
	s.txHash = txHash
	s.txIndex = txIndex
	s.refund = 0
	s.logs = nil
	s.warmAddresses = make(map[types.Address]struct{})
	s.warmSlots = make(map[types.Address]map[types.Hash]struct{})
	s.transient = make(map[types.Address]map[types.Hash]types.Hash)
	s.journal.reset()
}

// Finalise folds the dirty storage of every touched account into the
// committed view, so the next transaction in the block observes this one's
// writes as originals. Newly-created flags are cleared.
func (s *StateDB) Finalise() {
	for addr := range s.dirties {
		obj := s.objects[addr]
		if obj == nil {
			continue
		}
		for key, val := range obj.dirtyStorage {
			obj.originStorage[key] = val
			delete(obj.dirtyStorage, key)
		}
		obj.newlyCreated = false
	}
	s.journal.reset()
}

// Commit exports the accumulated deltas of all touched accounts and applies
// them to the backing database. Call once per block, after the last
// transaction is finalised.
func (s *StateDB) Commit() error {
	if s.dbErr != nil {
		return s.dbErr
	}
	changes := make(map[types.Address]*AccountDelta, len(s.dirties))
	for addr := range s.dirties {
		obj := s.objects[addr]
		if obj == nil {
			continue
		}
		if obj.destructed || (obj.empty() && len(obj.originStorage) == 0) {
			changes[addr] = &AccountDelta{Deleted: true}
			continue
		}
		storage := make(map[types.Hash]types.Hash, len(obj.originStorage))
		for key, val := range obj.originStorage {
			storage[key] = val
		}
		for key, val := range obj.dirtyStorage {
			storage[key] = val
		}
		info := obj.info
		changes[addr] = &AccountDelta{Info: info.Copy(), Storage: storage}
	}
	if err := s.db.Commit(changes); err != nil {
		return err
	}
	s.dirties = make(map[types.Address]struct{})
	return nil
}
