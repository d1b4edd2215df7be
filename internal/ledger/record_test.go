package ledger

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewRecord(t *testing.T) {
	owner := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

	testCases := []struct {
		name        string
		storeName   string
		expectError error
	}{
		{name: "Success - valid name", storeName: "cafe", expectError: nil},
		{name: "Success - hyphenated name", storeName: "corner-cafe-2", expectError: nil},
		{name: "Error - empty name", storeName: "", expectError: ErrNameEmpty},
		{name: "Error - name too long", storeName: "this-store-name-is-far-too-long-to-fit", expectError: ErrNameTooLong},
		{name: "Error - uppercase", storeName: "Cafe", expectError: ErrInvalidName},
		{name: "Error - leading hyphen", storeName: "-cafe", expectError: ErrInvalidName},
		{name: "Error - trailing hyphen", storeName: "cafe-", expectError: ErrInvalidName},
		{name: "Error - doubled hyphen", storeName: "corner--cafe", expectError: ErrInvalidName},
		{name: "Error - disallowed character", storeName: "cafe_one", expectError: ErrInvalidName},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			rec, err := NewRecord(tc.storeName, owner)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.storeName, rec.Name)
			assert.Equal(t, owner, rec.Owner)
			assert.Zero(t, rec.PurchaseCounter)
			assert.Zero(t, rec.Catalog.Len())
			assert.Zero(t, rec.Journal.Len())
			assert.Empty(t, rec.TelegramChannelID)
			assert.Empty(t, rec.Details)
		})
	}
}

func Test_Record_SetMetadata(t *testing.T) {
	owner := uuid.New()
	rec, err := NewRecord("cafe", owner)
	require.NoError(t, err)

	// channel id within bound
	require.NoError(t, rec.SetTelegramChannel("@corner-cafe"))
	assert.Equal(t, "@corner-cafe", rec.TelegramChannelID)

	// channel id over bound
	long := make([]byte, MaxChannelLen+1)
	for i := range long {
		long[i] = 'x'
	}
	assert.ErrorIs(t, rec.SetTelegramChannel(string(long)), ErrStringTooLong)
	assert.Equal(t, "@corner-cafe", rec.TelegramChannelID)

	// details within and over bound
	require.NoError(t, rec.SetDetails("open till late"))
	longDetails := make([]byte, MaxDetailsLen+1)
	for i := range longDetails {
		longDetails[i] = 'y'
	}
	assert.ErrorIs(t, rec.SetDetails(string(longDetails)), ErrStringTooLong)
	assert.Equal(t, "open till late", rec.Details)
}

func Test_Record_RecordPurchase(t *testing.T) {
	owner := uuid.New()
	buyer := uuid.New()
	now := time.Unix(1700000000, 0)

	t.Run("Success - receipt ids increase by one across evictions", func(t *testing.T) {
		// given
		rec, err := NewRecord("cafe", owner)
		require.NoError(t, err)
		require.NoError(t, rec.Catalog.Add(Product{Name: "latte", Price: 500, Asset: NativeAsset}))

		// when purchasing well past the journal capacity
		total := DefaultJournalCapacity + 5
		for i := 0; i < total; i++ {
			receipt, _, err := rec.RecordPurchase(buyer, "latte", 3, now)
			require.NoError(t, err)
			// then ids are assigned from the counter, strictly increasing by 1
			assert.Equal(t, uint64(i), receipt.ReceiptID)
		}
		assert.Equal(t, uint64(total), rec.PurchaseCounter)
		assert.Equal(t, DefaultJournalCapacity, rec.Journal.Len())
		receipts := rec.Journal.Receipts()
		assert.Equal(t, uint64(total-DefaultJournalCapacity), receipts[0].ReceiptID)
	})

	t.Run("Success - receipt snapshots survive product deletion", func(t *testing.T) {
		// given
		rec, err := NewRecord("cafe", owner)
		require.NoError(t, err)
		require.NoError(t, rec.Catalog.Add(Product{Name: "latte", Price: 500, Asset: NativeAsset}))
		receipt, _, err := rec.RecordPurchase(buyer, "latte", 1, now)
		require.NoError(t, err)

		// when the product is deleted and re-added at a new price
		require.NoError(t, rec.Catalog.Remove("latte"))
		require.NoError(t, rec.Catalog.Add(Product{Name: "latte", Price: 900, Asset: NativeAsset}))

		// then the recorded receipt is unchanged
		receipts := rec.Journal.Receipts()
		require.Len(t, receipts, 1)
		assert.Equal(t, receipt.ReceiptID, receipts[0].ReceiptID)
		assert.Equal(t, uint64(500), receipts[0].Price)
		assert.Equal(t, "latte", receipts[0].ProductName)
	})

	t.Run("Error - product not found aborts before mutation", func(t *testing.T) {
		// given
		rec, err := NewRecord("cafe", owner)
		require.NoError(t, err)
		// when
		_, _, err = rec.RecordPurchase(buyer, "missing", 1, now)
		// then
		assert.ErrorIs(t, err, ErrProductNotFound)
		assert.Zero(t, rec.PurchaseCounter)
		assert.Zero(t, rec.Journal.Len())
	})

	t.Run("Error - counter overflow is fatal and mutates nothing", func(t *testing.T) {
		// given
		rec, err := NewRecord("cafe", owner)
		require.NoError(t, err)
		require.NoError(t, rec.Catalog.Add(Product{Name: "latte", Price: 500}))
		rec.PurchaseCounter = math.MaxUint64
		// when
		_, _, err = rec.RecordPurchase(buyer, "latte", 1, now)
		// then
		assert.ErrorIs(t, err, ErrCounterOverflow)
		assert.Equal(t, uint64(math.MaxUint64), rec.PurchaseCounter)
		assert.Zero(t, rec.Journal.Len())
	})
}

func Test_Record_Clone(t *testing.T) {
	// given
	rec, err := NewRecord("cafe", uuid.New())
	require.NoError(t, err)
	require.NoError(t, rec.Catalog.Add(Product{Name: "latte", Price: 500}))
	_, _, err = rec.RecordPurchase(uuid.New(), "latte", 2, time.Now())
	require.NoError(t, err)

	// when
	cp := rec.Clone()
	require.NoError(t, cp.Catalog.Add(Product{Name: "mocha", Price: 700}))
	cp.Journal.MarkDelivered(0)

	// then the original is untouched
	assert.Equal(t, 1, rec.Catalog.Len())
	assert.False(t, rec.Journal.Receipts()[0].WasDelivered)
	assert.Equal(t, 2, cp.Catalog.Len())
	assert.True(t, cp.Journal.Receipts()[0].WasDelivered)
}

func Test_Record_ManyStoresIndependentCounters(t *testing.T) {
	// receipt ids carry meaning per store only
	now := time.Now()
	for i := 0; i < 3; i++ {
		rec, err := NewRecord(fmt.Sprintf("store-%d", i), uuid.New())
		require.NoError(t, err)
		require.NoError(t, rec.Catalog.Add(Product{Name: "item", Price: 10}))
		receipt, _, err := rec.RecordPurchase(uuid.New(), "item", 1, now)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), receipt.ReceiptID)
	}
}
