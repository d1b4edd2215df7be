// Package store persists store records behind the RecordStore interface.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
)

// StoredRecord couples a record with its storage handle and the deposit
// funding its backing allocation.
type StoredRecord struct {
	Handle  uuid.UUID
	Record  *ledger.Record
	Deposit uint64
}

// RecordStore is the durable home of store records. Implementations must
// persist the whole record atomically: a Save either lands in full or not at
// all. Records are single-writer: Update and Delete hold an exclusive
// per-record lock, so concurrent mutations of one store serialize.
type RecordStore interface {
	// Create persists a new record. Returns ledger.ErrStoreExists if the
	// handle is already taken.
	Create(ctx context.Context, rec *StoredRecord) error

	// Load retrieves a record by handle. Returns ledger.ErrStoreNotFound
	// if no record exists.
	Load(ctx context.Context, handle uuid.UUID) (*StoredRecord, error)

	// Save overwrites an existing record. Prefer Update for
	// read-modify-write cycles; a bare Save gives no isolation against
	// concurrent writers.
	Save(ctx context.Context, rec *StoredRecord) error

	// Update loads the record under an exclusive lock, applies fn and
	// persists the result. fn returning an error aborts without
	// persisting anything.
	Update(ctx context.Context, handle uuid.UUID, fn func(rec *StoredRecord) error) error

	// Delete removes a record permanently under the same exclusive lock
	// and returns its final state.
	Delete(ctx context.Context, handle uuid.UUID) (*StoredRecord, error)
}

// recordNamespace seeds deterministic record addressing; never change it, or
// every existing store becomes unreachable.
var recordNamespace = uuid.MustParse("8a44d3a6-22bb-5a10-9b8d-2f5c03317d5e")

// Locate derives the unique storage handle of a store record from its name.
// The derivation is a pure injective-by-construction function (UUIDv5 over a
// fixed namespace); collisions are treated as impossible by precondition.
func Locate(name string) uuid.UUID {
	return uuid.NewSHA1(recordNamespace, []byte("receipts:"+name))
}
