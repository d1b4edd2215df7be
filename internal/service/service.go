// Package service implements the store ledger operations: lifecycle,
// catalog mutation, the purchase transaction and delivery marking.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
	"github.com/storeledger/storeledger/internal/payment"
	"github.com/storeledger/storeledger/internal/store"
	"github.com/storeledger/storeledger/pkg/messaging"
	"github.com/storeledger/storeledger/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// StoreLedgerService defines the operations on named stores. It abstracts
// the underlying business logic and data access.
type StoreLedgerService interface {
	// Initialize creates an empty store owned by the caller. The caller
	// funds the storage deposit for the full fixed-capacity schema.
	Initialize(ctx context.Context, caller uuid.UUID, name string) (*StoreDto, error)

	// GetStore returns the full store record. Read-only, not owner-gated.
	GetStore(ctx context.Context, name string) (*StoreDto, error)

	// UpdateMetadata updates the owner-mutable metadata fields,
	// independent of catalog and journal state.
	UpdateMetadata(ctx context.Context, caller uuid.UUID, name string, update MetadataUpdateDto) (*StoreDto, error)

	// AddProduct appends a product to the store catalog.
	AddProduct(ctx context.Context, caller uuid.UUID, name string, product ProductCreateDto) (*StoreDto, error)

	// DeleteProduct removes a product from the store catalog. Existing
	// receipts keep their snapshots.
	DeleteProduct(ctx context.Context, caller uuid.UUID, name string, productName string) error

	// Purchase runs the purchase transaction and returns the assigned
	// receipt id. Not owner-gated: anyone can buy.
	Purchase(ctx context.Context, buyer uuid.UUID, name string, req PurchaseDto) (uint64, error)

	// MarkDelivered flags a receipt as delivered. A missing id is a
	// silent success, never an error.
	MarkDelivered(ctx context.Context, name string, receiptID uint64) error

	// Grow tops up the storage deposit to cover the full fixed-capacity
	// schema. Safe to repeat.
	Grow(ctx context.Context, caller uuid.UUID, name string) error

	// Teardown refunds the storage deposit to the owner and removes the
	// record. Irreversible.
	Teardown(ctx context.Context, caller uuid.UUID, name string) error
}

// Authority reports whether a caller controls a store record. Supplied by
// the identity collaborator; the default implementation compares the caller
// to the record owner.
type Authority interface {
	IsAuthorized(caller uuid.UUID, rec *ledger.Record) bool
}

type ownerAuthority struct{}

func (ownerAuthority) IsAuthorized(caller uuid.UUID, rec *ledger.Record) bool {
	return caller == rec.Owner
}

// NewOwnerAuthority returns the owner-equality authority check.
func NewOwnerAuthority() Authority {
	return ownerAuthority{}
}

// RentPolicy prices the storage deposit backing a record allocation.
type RentPolicy struct {
	Base    uint64
	PerByte uint64
}

// DepositFor returns the deposit required for an allocation of the given
// byte size.
func (p RentPolicy) DepositFor(size int) uint64 {
	return p.Base + p.PerByte*uint64(size)
}

// storageVault is the identity holding all storage deposits until teardown
// refunds them.
var storageVault = uuid.MustParse("d1b5d31e-5fb5-5a41-9f70-0f4a2e86f2aa")

// Service implements StoreLedgerService.
type Service struct {
	records   store.RecordStore
	native    payment.NativeRail
	settler   *payment.Settler
	publisher messaging.Publisher
	auth      Authority
	rent      RentPolicy
	now       func() time.Time
	purchases metric.Int64Counter
}

// NewService wires the service with its collaborators.
func NewService(records store.RecordStore, native payment.NativeRail, settler *payment.Settler, publisher messaging.Publisher, auth Authority, rent RentPolicy) *Service {
	meter := otel.Meter("storeledger")
	purchases, err := meter.Int64Counter("purchases_made", metric.WithDescription("Total number of completed purchases"))
	if err != nil {
		panic(fmt.Sprintf("failed to create purchases_made counter: %v", err))
	}
	return &Service{
		records:   records,
		native:    native,
		settler:   settler,
		publisher: publisher,
		auth:      auth,
		rent:      rent,
		now:       time.Now,
		purchases: purchases,
	}
}

// requireOwner is the single authority gate for owner-only operations.
func (s *Service) requireOwner(caller uuid.UUID, rec *ledger.Record) error {
	if !s.auth.IsAuthorized(caller, rec) {
		return ledger.ErrUnauthorized
	}
	return nil
}

func (s *Service) Initialize(ctx context.Context, caller uuid.UUID, name string) (*StoreDto, error) {
	rec, err := ledger.NewRecord(name, caller)
	if err != nil {
		return nil, err
	}
	handle := store.Locate(name)

	// The owner funds the deposit for the full schema up front, so later
	// catalog growth never needs a bigger allocation.
	deposit := s.rent.DepositFor(ledger.MaxRecordSize())
	if err := s.native.Transfer(ctx, caller, storageVault, deposit); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrInsufficientFunding, err)
	}

	stored := &store.StoredRecord{Handle: handle, Record: rec, Deposit: deposit}
	if err := s.records.Create(ctx, stored); err != nil {
		// Hand the deposit back; the record was never created.
		if refundErr := s.native.Transfer(ctx, storageVault, caller, deposit); refundErr != nil {
			slog.ErrorContext(ctx, "Failed to refund deposit after create failure", "store", name, "error", refundErr)
		}
		return nil, err
	}
	slog.InfoContext(ctx, "Store initialized", "store", name, "handle", handle.String())
	return toDto(stored), nil
}

func (s *Service) GetStore(ctx context.Context, name string) (*StoreDto, error) {
	stored, err := s.records.Load(ctx, store.Locate(name))
	if err != nil {
		return nil, err
	}
	return toDto(stored), nil
}

func (s *Service) UpdateMetadata(ctx context.Context, caller uuid.UUID, name string, update MetadataUpdateDto) (*StoreDto, error) {
	var dto *StoreDto
	err := s.records.Update(ctx, store.Locate(name), func(stored *store.StoredRecord) error {
		if err := s.requireOwner(caller, stored.Record); err != nil {
			return err
		}
		if update.TelegramChannelID != nil {
			if err := stored.Record.SetTelegramChannel(*update.TelegramChannelID); err != nil {
				return err
			}
		}
		if update.Details != nil {
			if err := stored.Record.SetDetails(*update.Details); err != nil {
				return err
			}
		}
		dto = toDto(stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *Service) AddProduct(ctx context.Context, caller uuid.UUID, name string, product ProductCreateDto) (*StoreDto, error) {
	var dto *StoreDto
	err := s.records.Update(ctx, store.Locate(name), func(stored *store.StoredRecord) error {
		if err := s.requireOwner(caller, stored.Record); err != nil {
			return err
		}
		err := stored.Record.Catalog.Add(ledger.Product{
			Name:     product.Name,
			Price:    product.Price,
			Asset:    product.Asset,
			Decimals: product.Decimals,
		})
		if err != nil {
			return err
		}
		dto = toDto(stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *Service) DeleteProduct(ctx context.Context, caller uuid.UUID, name string, productName string) error {
	return s.records.Update(ctx, store.Locate(name), func(stored *store.StoredRecord) error {
		if err := s.requireOwner(caller, stored.Record); err != nil {
			return err
		}
		return stored.Record.Catalog.Remove(productName)
	})
}

// Purchase runs the full purchase transaction: validate and snapshot the
// product, append the receipt (evicting the oldest if the journal is full),
// advance the counter, settle payment from the buyer to the owner, persist,
// notify. The whole cycle runs under the record lock, so concurrent buyers
// at the same store get distinct, strictly increasing receipt ids. The
// journal is mutated before settlement is attempted; the mutated record
// only reaches storage when settlement succeeded, which is what makes the
// operation all-or-nothing.
func (s *Service) Purchase(ctx context.Context, buyer uuid.UUID, name string, req PurchaseDto) (uint64, error) {
	var receipt ledger.Receipt
	var event events.PurchaseMadeEvent
	err := s.records.Update(ctx, store.Locate(name), func(stored *store.StoredRecord) error {
		rec := stored.Record

		product, ok := rec.Catalog.Find(req.ProductName)
		if !ok {
			return ledger.ErrProductNotFound
		}
		// The asset the buyer presents must be the one the product was
		// configured with.
		if req.PaymentAsset != product.Asset {
			return ledger.ErrAssetMismatch
		}

		var evicted *ledger.Receipt
		var err error
		receipt, evicted, err = rec.RecordPurchase(buyer, req.ProductName, req.TableNumber, s.now())
		if err != nil {
			return err
		}
		if evicted != nil {
			slog.DebugContext(ctx, "Oldest receipt evicted", "store", name, "receipt_id", evicted.ReceiptID)
		}

		if err := s.settler.Settle(ctx, product, buyer, rec.Owner, product.Price); err != nil {
			return err
		}

		event = events.PurchaseMadeEvent{
			Buyer:             buyer,
			ProductName:       receipt.ProductName,
			Price:             receipt.Price,
			Timestamp:         receipt.Timestamp,
			TableNumber:       receipt.TableNumber,
			ReceiptID:         receipt.ReceiptID,
			TelegramChannelID: rec.TelegramChannelID,
			StoreName:         rec.Name,
			StoreHandle:       stored.Handle,
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	// Best effort: notification failures must not fail the purchase.
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish PurchaseMadeEvent", "store", name, "receipt_id", receipt.ReceiptID, "error", err)
	}
	s.purchases.Add(ctx, 1)

	return receipt.ReceiptID, nil
}

func (s *Service) MarkDelivered(ctx context.Context, name string, receiptID uint64) error {
	return s.records.Update(ctx, store.Locate(name), func(stored *store.StoredRecord) error {
		// Marking a receipt that has already aged out of the journal is
		// a silent success; callers rely on "mark if present".
		stored.Record.Journal.MarkDelivered(receiptID)
		return nil
	})
}

func (s *Service) Grow(ctx context.Context, caller uuid.UUID, name string) error {
	return s.records.Update(ctx, store.Locate(name), func(stored *store.StoredRecord) error {
		if err := s.requireOwner(caller, stored.Record); err != nil {
			return err
		}

		// Always target the full fixed-capacity schema; repeat calls
		// find nothing left to fund.
		required := s.rent.DepositFor(ledger.MaxRecordSize())
		if stored.Deposit >= required {
			return nil
		}
		delta := required - stored.Deposit
		if err := s.native.Transfer(ctx, caller, storageVault, delta); err != nil {
			return fmt.Errorf("%w: %w", ledger.ErrInsufficientFunding, err)
		}
		stored.Deposit = required
		return nil
	})
}

func (s *Service) Teardown(ctx context.Context, caller uuid.UUID, name string) error {
	handle := store.Locate(name)
	stored, err := s.records.Load(ctx, handle)
	if err != nil {
		return err
	}
	if err := s.requireOwner(caller, stored.Record); err != nil {
		return err
	}

	// Remove the record first so a failed refund can never be retried
	// into a second payout; the final state comes back from the delete.
	final, err := s.records.Delete(ctx, handle)
	if err != nil {
		return err
	}
	if final.Deposit > 0 {
		if err := s.native.Transfer(ctx, storageVault, final.Record.Owner, final.Deposit); err != nil {
			slog.ErrorContext(ctx, "Failed to refund deposit after teardown", "store", name, "owner", final.Record.Owner.String(), "error", err)
			return fmt.Errorf("%w: %w", ledger.ErrPaymentFailed, err)
		}
	}
	slog.InfoContext(ctx, "Store torn down", "store", name)
	return nil
}
