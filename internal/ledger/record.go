package ledger

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Record is the aggregate root for one named store: owner, metadata, the
// product catalog, the receipt journal and the monotonic purchase counter.
// A record is logically single-writer; the surrounding execution environment
// serializes operations against it.
type Record struct {
	Name              string    `json:"name"`
	Owner             uuid.UUID `json:"owner"`
	TelegramChannelID string    `json:"telegram_channel_id"`
	Details           string    `json:"details"`
	Catalog           Catalog   `json:"-"`
	Journal           *Journal  `json:"-"`
	PurchaseCounter   uint64    `json:"purchase_counter"`
}

// NewRecord creates an empty store record with a validated name, the given
// owner, an empty catalog and a journal of the default capacity.
func NewRecord(name string, owner uuid.UUID) (*Record, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	return &Record{
		Name:    name,
		Owner:   owner,
		Journal: NewJournal(DefaultJournalCapacity),
	}, nil
}

// SetTelegramChannel updates the telegram channel metadata field.
func (r *Record) SetTelegramChannel(id string) error {
	if len(id) > MaxChannelLen {
		return ErrStringTooLong
	}
	r.TelegramChannelID = id
	return nil
}

// SetDetails updates the free-text details metadata field.
func (r *Record) SetDetails(details string) error {
	if len(details) > MaxDetailsLen {
		return ErrStringTooLong
	}
	r.Details = details
	return nil
}

// RecordPurchase runs the journal half of the purchase transaction: it looks
// up the product, snapshots its fields into a new receipt, appends the
// receipt (evicting the oldest if full) and advances the purchase counter by
// exactly one. Settlement and notification are the caller's concern and
// happen after this returns.
//
// Validation failures abort before any mutation. A counter at the 64-bit
// limit is an invariant breach and fails with ErrCounterOverflow, also
// before any mutation.
func (r *Record) RecordPurchase(buyer uuid.UUID, productName string, tableNumber uint8, now time.Time) (Receipt, *Receipt, error) {
	product, ok := r.Catalog.Find(productName)
	if !ok {
		return Receipt{}, nil, ErrProductNotFound
	}
	if r.PurchaseCounter == math.MaxUint64 {
		return Receipt{}, nil, ErrCounterOverflow
	}

	receipt := Receipt{
		ReceiptID:    r.PurchaseCounter,
		Buyer:        buyer,
		WasDelivered: false,
		Price:        product.Price,
		Timestamp:    now.Unix(),
		TableNumber:  tableNumber,
		ProductName:  product.Name,
	}
	evicted := r.Journal.Append(receipt)
	r.PurchaseCounter++

	return receipt, evicted, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Catalog = Catalog{products: r.Catalog.Products()}
	cp.Journal = &Journal{capacity: r.Journal.capacity, receipts: r.Journal.Receipts()}
	return &cp
}
