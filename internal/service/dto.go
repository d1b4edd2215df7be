package service

import (
	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
	"github.com/storeledger/storeledger/internal/store"
)

// StoreCreateDto is the payload for initializing a store.
type StoreCreateDto struct {
	Name string `json:"name" validate:"required,max=32"`
}

// MetadataUpdateDto carries the owner-mutable metadata fields. Nil fields
// are left untouched.
type MetadataUpdateDto struct {
	TelegramChannelID *string `json:"telegram_channel_id,omitempty" validate:"omitempty,max=32"`
	Details           *string `json:"details,omitempty" validate:"omitempty,max=128"`
}

// ProductCreateDto is the payload for adding a catalog product.
type ProductCreateDto struct {
	Name     string    `json:"name" validate:"required,max=32"`
	Price    uint64    `json:"price" validate:"required,gt=0"`
	Asset    uuid.UUID `json:"asset"`
	Decimals uint8     `json:"decimals" validate:"lte=18"`
}

// PurchaseDto is the payload for buying a product.
type PurchaseDto struct {
	ProductName  string    `json:"product_name" validate:"required,max=32"`
	PaymentAsset uuid.UUID `json:"payment_asset"`
	TableNumber  uint8     `json:"table_number"`
}

// StoreDto is the full read model of a store record.
type StoreDto struct {
	Handle            uuid.UUID        `json:"handle"`
	Name              string           `json:"name"`
	Owner             uuid.UUID        `json:"owner"`
	TelegramChannelID string           `json:"telegram_channel_id"`
	Details           string           `json:"details"`
	Catalog           []ledger.Product `json:"catalog"`
	Receipts          []ledger.Receipt `json:"receipts"`
	PurchaseCounter   uint64           `json:"purchase_counter"`
	Deposit           uint64           `json:"deposit"`
}

func toDto(stored *store.StoredRecord) *StoreDto {
	rec := stored.Record
	return &StoreDto{
		Handle:            stored.Handle,
		Name:              rec.Name,
		Owner:             rec.Owner,
		TelegramChannelID: rec.TelegramChannelID,
		Details:           rec.Details,
		Catalog:           rec.Catalog.Products(),
		Receipts:          rec.Journal.Receipts(),
		PurchaseCounter:   rec.PurchaseCounter,
		Deposit:           stored.Deposit,
	}
}
