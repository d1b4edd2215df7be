package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Persisted record layout. Field order is stable for compatibility:
// discriminator, journal, purchase_counter, store_name, owner, catalog,
// telegram_channel_id, layout tag, details. All integers are little-endian,
// strings and lists carry a u32 length prefix.

var recordDiscriminator = [8]byte{'r', 'e', 'c', 'e', 'i', 'p', 't', 's'}

// recordLayoutTag versions the tail of the layout; the details field was
// added in tag 1.
const recordLayoutTag uint8 = 1

var errCorruptRecord = errors.New("corrupt record data")

// MarshalRecord encodes a record into the stable persisted layout.
func MarshalRecord(r *Record) []byte {
	buf := make([]byte, 0, MaxRecordSize())
	buf = append(buf, recordDiscriminator[:]...)

	receipts := r.Journal.Receipts()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(receipts)))
	for i := range receipts {
		buf = appendReceipt(buf, &receipts[i])
	}

	buf = binary.LittleEndian.AppendUint64(buf, r.PurchaseCounter)
	buf = appendString(buf, r.Name)
	buf = append(buf, r.Owner[:]...)

	products := r.Catalog.Products()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(products)))
	for i := range products {
		buf = appendProduct(buf, &products[i])
	}

	buf = appendString(buf, r.TelegramChannelID)
	buf = append(buf, recordLayoutTag)
	buf = appendString(buf, r.Details)
	return buf
}

// UnmarshalRecord decodes a record from the persisted layout. The journal is
// rebuilt with the default capacity.
func UnmarshalRecord(data []byte) (*Record, error) {
	d := decoder{buf: data}

	var disc [8]byte
	if err := d.bytes(disc[:]); err != nil {
		return nil, err
	}
	if disc != recordDiscriminator {
		return nil, fmt.Errorf("%w: bad discriminator", errCorruptRecord)
	}

	rec := &Record{Journal: NewJournal(DefaultJournalCapacity)}

	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	for range n {
		receipt, err := d.receipt()
		if err != nil {
			return nil, err
		}
		rec.Journal.receipts = append(rec.Journal.receipts, receipt)
	}

	if rec.PurchaseCounter, err = d.u64(); err != nil {
		return nil, err
	}
	if rec.Name, err = d.str(); err != nil {
		return nil, err
	}
	if err := d.bytes(rec.Owner[:]); err != nil {
		return nil, err
	}

	if n, err = d.u32(); err != nil {
		return nil, err
	}
	for range n {
		product, err := d.product()
		if err != nil {
			return nil, err
		}
		rec.Catalog.products = append(rec.Catalog.products, product)
	}

	if rec.TelegramChannelID, err = d.str(); err != nil {
		return nil, err
	}
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	if tag >= 1 {
		if rec.Details, err = d.str(); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// MaxRecordSize returns the byte size of a record at full fixed-capacity
// schema (catalog and journal full, all strings at their bounds). Storage
// deposits are sized against this, so growth never needs a second resize.
func MaxRecordSize() int {
	const strHdr = 4
	receiptSize := 8 + 16 + 1 + 8 + 8 + 1 + strHdr + MaxNameLen
	productSize := 8 + 1 + 16 + strHdr + MaxNameLen
	return 8 + // discriminator
		4 + DefaultJournalCapacity*receiptSize +
		8 + // purchase counter
		strHdr + MaxNameLen +
		16 + // owner
		4 + CatalogCapacity*productSize +
		strHdr + MaxChannelLen +
		1 + // layout tag
		strHdr + MaxDetailsLen
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendReceipt(buf []byte, r *Receipt) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, r.ReceiptID)
	buf = append(buf, r.Buyer[:]...)
	if r.WasDelivered {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint64(buf, r.Price)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Timestamp))
	buf = append(buf, r.TableNumber)
	return appendString(buf, r.ProductName)
}

func appendProduct(buf []byte, p *Product) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, p.Price)
	buf = append(buf, p.Decimals)
	buf = append(buf, p.Asset[:]...)
	return appendString(buf, p.Name)
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) bytes(dst []byte) error {
	if d.off+len(dst) > len(d.buf) {
		return errCorruptRecord
	}
	copy(dst, d.buf[d.off:])
	d.off += len(dst)
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if d.off+1 > len(d.buf) {
		return 0, errCorruptRecord
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if d.off+4 > len(d.buf) {
		return 0, errCorruptRecord
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if d.off+8 > len(d.buf) {
		return 0, errCorruptRecord
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	if d.off+int(n) > len(d.buf) {
		return "", errCorruptRecord
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}

func (d *decoder) receipt() (Receipt, error) {
	var r Receipt
	var err error
	if r.ReceiptID, err = d.u64(); err != nil {
		return r, err
	}
	if err = d.bytes(r.Buyer[:]); err != nil {
		return r, err
	}
	delivered, err := d.u8()
	if err != nil {
		return r, err
	}
	r.WasDelivered = delivered != 0
	if r.Price, err = d.u64(); err != nil {
		return r, err
	}
	ts, err := d.u64()
	if err != nil {
		return r, err
	}
	r.Timestamp = int64(ts)
	if r.TableNumber, err = d.u8(); err != nil {
		return r, err
	}
	r.ProductName, err = d.str()
	return r, err
}

func (d *decoder) product() (Product, error) {
	var p Product
	var err error
	if p.Price, err = d.u64(); err != nil {
		return p, err
	}
	if p.Decimals, err = d.u8(); err != nil {
		return p, err
	}
	var asset uuid.UUID
	if err = d.bytes(asset[:]); err != nil {
		return p, err
	}
	p.Asset = asset
	p.Name, err = d.str()
	return p, err
}
