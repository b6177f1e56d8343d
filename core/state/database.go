// Package state implements the transactional state layer of the MegaEVM:
// the read-only Database interface, the journal, and the journaled StateDB
// overlay the interpreter executes against.
package state

import (
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// AccountInfo is the database view of an account.
type AccountInfo struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash types.Hash
	Code     []byte // optional; resolvable via CodeByHash when nil
}

// Copy returns a deep copy of the account info.
func (a *AccountInfo) Copy() *AccountInfo {
	cp := &AccountInfo{
		Balance:  new(uint256.Int),
		Nonce:    a.Nonce,
		CodeHash: a.CodeHash,
	}
	if a.Balance != nil {
		cp.Balance.Set(a.Balance)
	}
	if a.Code != nil {
		cp.Code = append([]byte(nil), a.Code...)
	}
	return cp
}

// AccountDelta describes the post-transaction state of one account as
// handed to Database.Commit.
type AccountDelta struct {
	Info    *AccountInfo
	Storage map[types.Hash]types.Hash
	Deleted bool
}

// Database is the pluggable backend the journaled state reads through.
// Reads must be idempotent within a transaction; the executor wraps any
// backend in a caching overlay, so a backend need not cache internally.
// Commit is applied only after successful transaction finalization.
type Database interface {
	// Basic returns the account info for addr, or nil if the account does
	// not exist.
	Basic(addr types.Address) (*AccountInfo, error)

	// CodeByHash returns the bytecode for a code hash. The empty code hash
	// resolves to empty bytes.
	CodeByHash(hash types.Hash) ([]byte, error)

	// Storage returns the value of a storage slot, zero if absent.
	Storage(addr types.Address, key types.Hash) (types.Hash, error)

	// BlockHash returns the hash of the block with the given number.
	BlockHash(number uint64) (types.Hash, error)

	// Commit applies a set of account deltas to the backend.
	Commit(changes map[types.Address]*AccountDelta) error
}

// MemoryDB is a map-backed Database used by tests and the CLI.
type MemoryDB struct {
	accounts   map[types.Address]*AccountInfo
	storage    map[types.Address]map[types.Hash]types.Hash
	codes      map[types.Hash][]byte
	blockHashes map[uint64]types.Hash
}

// NewMemoryDB returns an empty in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts:    make(map[types.Address]*AccountInfo),
		storage:     make(map[types.Address]map[types.Hash]types.Hash),
		codes:       make(map[types.Hash][]byte),
		blockHashes: make(map[uint64]types.Hash),
	}
}

// SetAccount seeds an account.
func (db *MemoryDB) SetAccount(addr types.Address, info *AccountInfo) {
	if info.Balance == nil {
		info.Balance = new(uint256.Int)
	}
	if info.CodeHash.IsZero() {
		info.CodeHash = types.EmptyCodeHash
	}
	db.accounts[addr] = info
}

// SetBalance seeds an account with the given balance.
func (db *MemoryDB) SetBalance(addr types.Address, balance *uint256.Int) {
	db.SetAccount(addr, &AccountInfo{Balance: new(uint256.Int).Set(balance)})
}

// SetCode seeds contract code at an address.
func (db *MemoryDB) SetCode(addr types.Address, code []byte) {
	hash := types.Keccak256Hash(code)
	info := db.accounts[addr]
	if info == nil {
		info = &AccountInfo{Balance: new(uint256.Int)}
		db.accounts[addr] = info
	}
	info.CodeHash = hash
	info.Code = append([]byte(nil), code...)
	db.codes[hash] = append([]byte(nil), code...)
}

// SetStorage seeds one storage slot.
func (db *MemoryDB) SetStorage(addr types.Address, key, value types.Hash) {
	slots := db.storage[addr]
	if slots == nil {
		slots = make(map[types.Hash]types.Hash)
		db.storage[addr] = slots
	}
	slots[key] = value
}

// SetBlockHash seeds a historical block hash.
func (db *MemoryDB) SetBlockHash(number uint64, hash types.Hash) {
	db.blockHashes[number] = hash
}

// Basic implements Database.
func (db *MemoryDB) Basic(addr types.Address) (*AccountInfo, error) {
	info, ok := db.accounts[addr]
	if !ok {
		return nil, nil
	}
	return info.Copy(), nil
}

// CodeByHash implements Database.
func (db *MemoryDB) CodeByHash(hash types.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash || hash.IsZero() {
		return nil, nil
	}
	return db.codes[hash], nil
}

// Storage implements Database.
func (db *MemoryDB) Storage(addr types.Address, key types.Hash) (types.Hash, error) {
	return db.storage[addr][key], nil
}

// BlockHash implements Database.
func (db *MemoryDB) BlockHash(number uint64) (types.Hash, error) {
	return db.blockHashes[number], nil
}

// Commit implements Database.
func (db *MemoryDB) Commit(changes map[types.Address]*AccountDelta) error {
	for addr, delta := range changes {
		if delta.Deleted {
			delete(db.accounts, addr)
			delete(db.storage, addr)
			continue
		}
		info := delta.Info.Copy()
		db.accounts[addr] = info
		if len(info.Code) > 0 {
			db.codes[info.CodeHash] = append([]byte(nil), info.Code...)
		}
		for key, value := range delta.Storage {
			if value.IsZero() {
				delete(db.storage[addr], key)
				continue
			}
			db.SetStorage(addr, key, value)
		}
	}
	return nil
}

var _ Database = (*MemoryDB)(nil)
