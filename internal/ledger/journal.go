package ledger

import "github.com/google/uuid"

// DefaultJournalCapacity is the journal bound used by new stores.
const DefaultJournalCapacity = 20

// Receipt is the frozen record of one completed purchase. ProductName and
// Price are snapshots taken at purchase time; deleting or re-adding the
// product later does not touch them. WasDelivered is the only field that
// mutates after creation.
type Receipt struct {
	ReceiptID    uint64    `json:"receipt_id"`
	Buyer        uuid.UUID `json:"buyer"`
	WasDelivered bool      `json:"was_delivered"`
	Price        uint64    `json:"price"`
	Timestamp    int64     `json:"timestamp"`
	TableNumber  uint8     `json:"table_number"`
	ProductName  string    `json:"product_name"`
}

// Journal is a capacity-bounded FIFO of receipts. When full, Append evicts
// the oldest entry. Receipts are never removed any other way.
type Journal struct {
	capacity int
	receipts []Receipt
}

// NewJournal creates an empty journal with the given capacity.
func NewJournal(capacity int) *Journal {
	return &Journal{capacity: capacity}
}

// Append adds a receipt at the end, evicting the oldest entry first if the
// journal is at capacity. The evicted receipt is returned for auditing, nil
// if nothing was evicted.
func (j *Journal) Append(r Receipt) *Receipt {
	var evicted *Receipt
	if len(j.receipts) >= j.capacity {
		oldest := j.receipts[0]
		j.receipts = append(j.receipts[:0], j.receipts[1:]...)
		evicted = &oldest
	}
	j.receipts = append(j.receipts, r)
	return evicted
}

// MarkDelivered sets was_delivered on the receipt with the given id. A
// missing id (already evicted, or never issued) is deliberately a silent
// no-op, not an error: callers rely on "mark if present" semantics and
// cannot distinguish the two cases from the result.
func (j *Journal) MarkDelivered(receiptID uint64) {
	for i := range j.receipts {
		if j.receipts[i].ReceiptID == receiptID {
			j.receipts[i].WasDelivered = true
			return
		}
	}
}

// Len returns the number of receipts currently held.
func (j *Journal) Len() int {
	return len(j.receipts)
}

// Capacity returns the journal bound.
func (j *Journal) Capacity() int {
	return j.capacity
}

// Receipts returns a copy of the journal in insertion order, oldest first.
func (j *Journal) Receipts() []Receipt {
	out := make([]Receipt, len(j.receipts))
	copy(out, j.receipts)
	return out
}
