package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Locate(t *testing.T) {
	// deterministic: same name, same handle
	assert.Equal(t, Locate("cafe"), Locate("cafe"))
	// distinct names map to distinct handles
	assert.NotEqual(t, Locate("cafe"), Locate("cafe-2"))
	// stable across releases: existing stores must stay reachable
	assert.Equal(t, "urn:uuid:"+Locate("cafe").String(), Locate("cafe").URN())
}

func Test_MemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	newStored := func(name string) *StoredRecord {
		rec, err := ledger.NewRecord(name, owner)
		require.NoError(t, err)
		return &StoredRecord{Handle: Locate(name), Record: rec, Deposit: 1000}
	}

	t.Run("Success - create, load, save, delete", func(t *testing.T) {
		// given
		s := NewMemoryStore()
		stored := newStored("cafe")
		// when
		require.NoError(t, s.Create(ctx, stored))
		loaded, err := s.Load(ctx, stored.Handle)
		// then
		require.NoError(t, err)
		assert.Equal(t, "cafe", loaded.Record.Name)
		assert.Equal(t, uint64(1000), loaded.Deposit)

		// and a save is visible on the next load
		require.NoError(t, loaded.Record.Catalog.Add(ledger.Product{Name: "latte", Price: 500}))
		loaded.Deposit = 2000
		require.NoError(t, s.Save(ctx, loaded))
		again, err := s.Load(ctx, stored.Handle)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Record.Catalog.Len())
		assert.Equal(t, uint64(2000), again.Deposit)

		// and delete removes it, handing back the final state
		final, err := s.Delete(ctx, stored.Handle)
		require.NoError(t, err)
		assert.Equal(t, uint64(2000), final.Deposit)
		_, err = s.Load(ctx, stored.Handle)
		assert.ErrorIs(t, err, ledger.ErrStoreNotFound)
	})

	t.Run("Error - duplicate create", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newStored("cafe")))
		assert.ErrorIs(t, s.Create(ctx, newStored("cafe")), ledger.ErrStoreExists)
	})

	t.Run("Error - save, update and delete of a missing record", func(t *testing.T) {
		s := NewMemoryStore()
		assert.ErrorIs(t, s.Save(ctx, newStored("ghost")), ledger.ErrStoreNotFound)
		err := s.Update(ctx, Locate("ghost"), func(*StoredRecord) error { return nil })
		assert.ErrorIs(t, err, ledger.ErrStoreNotFound)
		_, err = s.Delete(ctx, Locate("ghost"))
		assert.ErrorIs(t, err, ledger.ErrStoreNotFound)
	})

	t.Run("Success - update persists the mutation", func(t *testing.T) {
		// given
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newStored("cafe")))
		// when
		err := s.Update(ctx, Locate("cafe"), func(rec *StoredRecord) error {
			rec.Deposit = 5000
			return rec.Record.Catalog.Add(ledger.Product{Name: "latte", Price: 500})
		})
		// then
		require.NoError(t, err)
		loaded, err := s.Load(ctx, Locate("cafe"))
		require.NoError(t, err)
		assert.Equal(t, uint64(5000), loaded.Deposit)
		assert.Equal(t, 1, loaded.Record.Catalog.Len())
	})

	t.Run("Error - failing update leaves the record untouched", func(t *testing.T) {
		// given
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newStored("cafe")))
		boom := assert.AnError
		// when
		err := s.Update(ctx, Locate("cafe"), func(rec *StoredRecord) error {
			rec.Deposit = 5000
			return boom
		})
		// then
		assert.ErrorIs(t, err, boom)
		loaded, err := s.Load(ctx, Locate("cafe"))
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), loaded.Deposit)
	})

	t.Run("Success - loaded records do not alias the stored state", func(t *testing.T) {
		// given
		s := NewMemoryStore()
		stored := newStored("cafe")
		require.NoError(t, stored.Record.Catalog.Add(ledger.Product{Name: "latte", Price: 500}))
		require.NoError(t, s.Create(ctx, stored))

		// when mutating a loaded copy without saving
		loaded, err := s.Load(ctx, stored.Handle)
		require.NoError(t, err)
		_, _, err = loaded.Record.RecordPurchase(uuid.New(), "latte", 1, time.Now())
		require.NoError(t, err)

		// then the stored record is unchanged
		fresh, err := s.Load(ctx, stored.Handle)
		require.NoError(t, err)
		assert.Zero(t, fresh.Record.PurchaseCounter)
		assert.Zero(t, fresh.Record.Journal.Len())
	})
}
