package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
)

// memory implements RecordStore with an in-memory map. Records are deep
// copied on the way in and out so callers never share state with the store.
// Each record carries its own mutex so Update and Delete serialize per store
// the way the row lock does in PostgreSQL.
type memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*StoredRecord
	locks   map[uuid.UUID]*sync.Mutex
}

// NewMemoryStore creates a RecordStore useful for tests and local runs.
func NewMemoryStore() RecordStore {
	return &memory{
		records: make(map[uuid.UUID]*StoredRecord),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (m *memory) Create(_ context.Context, rec *StoredRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Handle]; exists {
		return ledger.ErrStoreExists
	}
	m.records[rec.Handle] = copyStored(rec)
	return nil
}

func (m *memory) Load(_ context.Context, handle uuid.UUID) (*StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[handle]
	if !ok {
		return nil, ledger.ErrStoreNotFound
	}
	return copyStored(rec), nil
}

func (m *memory) Save(_ context.Context, rec *StoredRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Handle]; !ok {
		return ledger.ErrStoreNotFound
	}
	m.records[rec.Handle] = copyStored(rec)
	return nil
}

func (m *memory) Update(_ context.Context, handle uuid.UUID, fn func(rec *StoredRecord) error) error {
	lock, err := m.recordLock(handle)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	rec, ok := m.records[handle]
	m.mu.RUnlock()
	if !ok {
		return ledger.ErrStoreNotFound
	}
	next := copyStored(rec)
	if err := fn(next); err != nil {
		return err
	}
	m.mu.Lock()
	m.records[handle] = next
	m.mu.Unlock()
	return nil
}

func (m *memory) Delete(_ context.Context, handle uuid.UUID) (*StoredRecord, error) {
	lock, err := m.recordLock(handle)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[handle]
	if !ok {
		return nil, ledger.ErrStoreNotFound
	}
	delete(m.records, handle)
	delete(m.locks, handle)
	return copyStored(rec), nil
}

func (m *memory) recordLock(handle uuid.UUID) (*sync.Mutex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[handle]; !ok {
		return nil, ledger.ErrStoreNotFound
	}
	lock, ok := m.locks[handle]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[handle] = lock
	}
	return lock, nil
}

func copyStored(rec *StoredRecord) *StoredRecord {
	return &StoredRecord{
		Handle:  rec.Handle,
		Record:  rec.Record.Clone(),
		Deposit: rec.Deposit,
	}
}
