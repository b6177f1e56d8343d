package vm

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// BucketID identifies a SALT bucket, the resource-accounting unit outside
// the EVM proper. Groups of storage slots share a bucket whose capacity
// determines their SSTORE-set cost.
type BucketID uint64

// SlotBucketID maps a storage slot to its bucket: the first 8 bytes
// (big-endian) of keccak256(address || key). Deterministic per block.
func SlotBucketID(addr types.Address, key types.Hash) BucketID {
	h := crypto.Keccak256(addr.Bytes(), key.Bytes())
	return BucketID(binary.BigEndian.Uint64(h[:8]))
}

// AccountBucketID maps an account to its bucket: the first 8 bytes of
// keccak256(address).
func AccountBucketID(addr types.Address) BucketID {
	h := crypto.Keccak256(addr.Bytes())
	return BucketID(binary.BigEndian.Uint64(h[:8]))
}

// ExternalEnvs supplies deterministic non-state inputs to the EVM: SALT
// bucket capacities for the dynamic storage gas schedule, and the oracle
// contract's out-of-band storage.
type ExternalEnvs interface {
	// SaltBucketCapacity returns the current capacity of the bucket
	// holding storage slot (addr, key).
	SaltBucketCapacity(addr types.Address, key types.Hash) uint64

	// SaltBucketCapacityForNewAccount returns the capacity of the bucket
	// a newly created account at addr lands in.
	SaltBucketCapacityForNewAccount(addr types.Address) uint64

	// OracleStorage returns the value to serve for an SLOAD on the oracle
	// contract, or ok=false to fall through to the journaled state.
	OracleStorage(key types.Hash) (types.Hash, bool)
}

// ConfiguredExternalEnvs is the map-backed ExternalEnvs used by tests and
// the CLI. Unconfigured buckets report the minimum capacity, so the gas
// schedule stays at its base values.
type ConfiguredExternalEnvs struct {
	buckets map[BucketID]uint64
	oracle  map[types.Hash]types.Hash
}

// NewConfiguredExternalEnvs returns an empty configuration.
func NewConfiguredExternalEnvs() *ConfiguredExternalEnvs {
	return &ConfiguredExternalEnvs{
		buckets: make(map[BucketID]uint64),
		oracle:  make(map[types.Hash]types.Hash),
	}
}

// DefaultExternalEnvs returns the configuration every EVM starts with.
func DefaultExternalEnvs() ExternalEnvs {
	return NewConfiguredExternalEnvs()
}

// WithBucketCapacity sets the capacity of one bucket and returns the
// receiver for chaining.
func (e *ConfiguredExternalEnvs) WithBucketCapacity(id BucketID, capacity uint64) *ConfiguredExternalEnvs {
	e.buckets[id] = capacity
	return e
}

// WithOracleStorage sets one oracle storage slot and returns the receiver.
func (e *ConfiguredExternalEnvs) WithOracleStorage(key, value types.Hash) *ConfiguredExternalEnvs {
	e.oracle[key] = value
	return e
}

// ApplyBucketFlag parses a "bucket_id:capacity" CLI flag and applies it.
func (e *ConfiguredExternalEnvs) ApplyBucketFlag(flag string) error {
	id, capacity, err := ParseBucketFlag(flag)
	if err != nil {
		return err
	}
	e.WithBucketCapacity(id, capacity)
	return nil
}

// ParseBucketFlag parses the "bucket_id:capacity" flag syntax.
func ParseBucketFlag(flag string) (BucketID, uint64, error) {
	parts := strings.SplitN(flag, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid bucket flag %q, want bucket_id:capacity", flag)
	}
	id, err := strconv.ParseUint(parts[0], 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bucket id %q: %w", parts[0], err)
	}
	capacity, err := strconv.ParseUint(parts[1], 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bucket capacity %q: %w", parts[1], err)
	}
	return BucketID(id), capacity, nil
}

// SaltBucketCapacity implements ExternalEnvs.
func (e *ConfiguredExternalEnvs) SaltBucketCapacity(addr types.Address, key types.Hash) uint64 {
	if capacity, ok := e.buckets[SlotBucketID(addr, key)]; ok {
		return capacity
	}
	return params.MinBucketCapacity
}

// SaltBucketCapacityForNewAccount implements ExternalEnvs.
func (e *ConfiguredExternalEnvs) SaltBucketCapacityForNewAccount(addr types.Address) uint64 {
	if capacity, ok := e.buckets[AccountBucketID(addr)]; ok {
		return capacity
	}
	return params.MinBucketCapacity
}

// OracleStorage implements ExternalEnvs.
func (e *ConfiguredExternalEnvs) OracleStorage(key types.Hash) (types.Hash, bool) {
	v, ok := e.oracle[key]
	return v, ok
}

var _ ExternalEnvs = (*ConfiguredExternalEnvs)(nil)
