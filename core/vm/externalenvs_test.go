package vm

import (
	"testing"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// TestParseBucketFlag verifies the bucket_id:capacity CLI syntax.
func TestParseBucketFlag(t *testing.T) {
	id, capacity, err := ParseBucketFlag("42:2048")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 42 || capacity != 2048 {
		t.Fatalf("got (%d, %d), want (42, 2048)", id, capacity)
	}

	if _, _, err := ParseBucketFlag("nonsense"); err == nil {
		t.Fatal("expected error for missing separator")
	}
	if _, _, err := ParseBucketFlag("a:1"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, _, err := ParseBucketFlag("1:x"); err == nil {
		t.Fatal("expected error for non-numeric capacity")
	}
}

// TestBucketIDsDeterministic verifies the slot and account bucket mapping
// is stable.
func TestBucketIDsDeterministic(t *testing.T) {
	a := types.BytesToAddress([]byte{1})
	k := types.Uint64ToHash(3)
	if SlotBucketID(a, k) != SlotBucketID(a, k) {
		t.Fatal("slot bucket id must be deterministic")
	}
	if AccountBucketID(a) != AccountBucketID(a) {
		t.Fatal("account bucket id must be deterministic")
	}
	if SlotBucketID(a, k) == SlotBucketID(a, types.Uint64ToHash(4)) {
		t.Fatal("distinct slots should land in distinct buckets here")
	}
}

// TestUnconfiguredBucketsReportMinimum verifies the default capacity keeps
// the gas schedule at base values.
func TestUnconfiguredBucketsReportMinimum(t *testing.T) {
	envs := NewConfiguredExternalEnvs()
	a := types.BytesToAddress([]byte{2})
	if got := envs.SaltBucketCapacity(a, types.Hash{}); got != params.MinBucketCapacity {
		t.Fatalf("capacity = %d, want minimum %d", got, params.MinBucketCapacity)
	}
	if got := envs.SaltBucketCapacityForNewAccount(a); got != params.MinBucketCapacity {
		t.Fatalf("account capacity = %d, want minimum %d", got, params.MinBucketCapacity)
	}
	if _, ok := envs.OracleStorage(types.Hash{}); ok {
		t.Fatal("unconfigured oracle storage must fall through")
	}
}
