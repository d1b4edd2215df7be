package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/pkg/messaging"
)

// PurchaseMadeEvent is emitted after every successful purchase. It carries
// everything a notification sink needs, including the store's telegram
// channel and the record handle, so consumers never have to read the store
// back. Delivery is fire-and-forget and not part of the purchase contract.
type PurchaseMadeEvent struct {
	Buyer             uuid.UUID `json:"buyer"`
	ProductName       string    `json:"product_name"`
	Price             uint64    `json:"price"`
	Timestamp         int64     `json:"timestamp"`
	TableNumber       uint8     `json:"table_number"`
	ReceiptID         uint64    `json:"receipt_id"`
	TelegramChannelID string    `json:"telegram_channel_id"`
	StoreName         string    `json:"store_name"`
	StoreHandle       uuid.UUID `json:"store_handle"`
}

func (e PurchaseMadeEvent) Subject() string {
	return messaging.PurchasesMadeSubject
}

func (e PurchaseMadeEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
