// Package payment dispatches purchase settlement to one of two payment
// rails: a native-unit transfer or a checked fungible-token transfer.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storeledger/storeledger/internal/ledger"
)

// NativeRail moves the chain's native unit between identities.
type NativeRail interface {
	// Transfer moves amount from payer to payee. Fails on insufficient
	// balance or rail-level errors.
	Transfer(ctx context.Context, from, to uuid.UUID, amount uint64) error
}

// TokenRail moves a fungible asset between holding accounts. The rail owns
// the decimal-precision check and creates the destination holding account on
// demand, funded by the payer.
type TokenRail interface {
	TransferChecked(ctx context.Context, asset uuid.UUID, from, to uuid.UUID, amount uint64, decimals uint8) error
}

// Settler picks the rail for a product and executes the transfer.
type Settler struct {
	native NativeRail
	token  TokenRail
}

func NewSettler(native NativeRail, token TokenRail) *Settler {
	return &Settler{native: native, token: token}
}

// Settle moves amount of the product's payment asset from payer to payee.
// The native-asset sentinel routes through the native rail, anything else
// through the token rail. Rail failures surface as ErrPaymentFailed with the
// underlying cause attached.
func (s *Settler) Settle(ctx context.Context, product ledger.Product, payer, payee uuid.UUID, amount uint64) error {
	var err error
	if product.Asset == ledger.NativeAsset {
		err = s.native.Transfer(ctx, payer, payee, amount)
	} else {
		err = s.token.TransferChecked(ctx, product.Asset, payer, payee, amount, product.Decimals)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrPaymentFailed, err)
	}
	return nil
}
