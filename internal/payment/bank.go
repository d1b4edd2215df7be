package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
)

var ErrInsufficientBalance = errors.New("insufficient balance")
var ErrUnknownAsset = errors.New("unknown asset")

type holdingKey struct {
	asset  uuid.UUID
	holder uuid.UUID
}

// Bank is an in-memory implementation of both payment rails backed by simple
// double-entry balances. It stands in for the real transfer execution, which
// is an external collaborator.
type Bank struct {
	mu       sync.Mutex
	native   map[uuid.UUID]uint64
	decimals map[uuid.UUID]uint8
	holdings map[holdingKey]uint64
}

func NewBank() *Bank {
	return &Bank{
		native:   make(map[uuid.UUID]uint64),
		decimals: make(map[uuid.UUID]uint8),
		holdings: make(map[holdingKey]uint64),
	}
}

// Deposit credits native units to an identity.
func (b *Bank) Deposit(holder uuid.UUID, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.native[holder] += amount
}

// NativeBalance returns the native balance of an identity.
func (b *Bank) NativeBalance(holder uuid.UUID) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.native[holder]
}

// RegisterAsset declares a fungible asset and its decimal precision.
func (b *Bank) RegisterAsset(asset uuid.UUID, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decimals[asset] = decimals
}

// Mint credits token units to a holder's holding account, creating it if
// absent.
func (b *Bank) Mint(asset, holder uuid.UUID, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holdings[holdingKey{asset: asset, holder: holder}] += amount
}

// HoldingBalance returns the token balance of a holder for an asset.
func (b *Bank) HoldingBalance(asset, holder uuid.UUID) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holdings[holdingKey{asset: asset, holder: holder}]
}

// Transfer implements the native rail.
func (b *Bank) Transfer(_ context.Context, from, to uuid.UUID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.native[from] < amount {
		return fmt.Errorf("%w: native balance %d, need %d", ErrInsufficientBalance, b.native[from], amount)
	}
	b.native[from] -= amount
	b.native[to] += amount
	return nil
}

// TransferChecked implements the token rail. The asset's registered decimal
// precision must match the caller's expectation; the destination holding
// account is created on demand.
func (b *Bank) TransferChecked(_ context.Context, asset uuid.UUID, from, to uuid.UUID, amount uint64, decimals uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	registered, ok := b.decimals[asset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	if registered != decimals {
		return fmt.Errorf("%w: asset has %d decimals, expected %d", ledger.ErrAssetMismatch, registered, decimals)
	}
	src := holdingKey{asset: asset, holder: from}
	if b.holdings[src] < amount {
		return fmt.Errorf("%w: holding balance %d, need %d", ErrInsufficientBalance, b.holdings[src], amount)
	}
	dst := holdingKey{asset: asset, holder: to}
	if _, exists := b.holdings[dst]; !exists {
		// Holding account created on demand for the payee.
		b.holdings[dst] = 0
	}
	b.holdings[src] -= amount
	b.holdings[dst] += amount
	return nil
}
