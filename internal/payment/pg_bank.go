package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/storeledger/storeledger/internal/ledger"
)

// PgBank implements both payment rails on PostgreSQL, one row per
// (asset, holder) account, so balances survive process restarts. Native
// units are kept under the zero asset; token holdings under their asset id.
// Transfers run in a transaction with a balance-guarded debit, so a holder
// can never be driven negative by concurrent spends.
type PgBank struct {
	db *pgxpool.Pool
}

// NewPgBank creates a bank backed by a PostgreSQL pool.
func NewPgBank(dbp *pgxpool.Pool) *PgBank {
	return &PgBank{db: dbp}
}

// Deposit credits native units to an identity.
func (b *PgBank) Deposit(ctx context.Context, holder uuid.UUID, amount uint64) error {
	return b.credit(ctx, b.db, ledger.NativeAsset, holder, amount)
}

// NativeBalance returns the native balance of an identity. Unknown holders
// have a zero balance.
func (b *PgBank) NativeBalance(ctx context.Context, holder uuid.UUID) (uint64, error) {
	return b.balance(ctx, ledger.NativeAsset, holder)
}

// RegisterAsset declares a fungible asset and its decimal precision.
func (b *PgBank) RegisterAsset(ctx context.Context, asset uuid.UUID, decimals uint8) error {
	_, err := b.db.Exec(ctx,
		`INSERT INTO payment_assets (asset, decimals) VALUES ($1, $2)
		 ON CONFLICT (asset) DO UPDATE SET decimals = EXCLUDED.decimals`,
		asset, int16(decimals))
	if err != nil {
		return fmt.Errorf("failed to register asset: %w", err)
	}
	return nil
}

// Mint credits token units to a holder's holding account, creating it if
// absent.
func (b *PgBank) Mint(ctx context.Context, asset, holder uuid.UUID, amount uint64) error {
	return b.credit(ctx, b.db, asset, holder, amount)
}

// HoldingBalance returns the token balance of a holder for an asset.
func (b *PgBank) HoldingBalance(ctx context.Context, asset, holder uuid.UUID) (uint64, error) {
	return b.balance(ctx, asset, holder)
}

// Transfer implements the native rail.
func (b *PgBank) Transfer(ctx context.Context, from, to uuid.UUID, amount uint64) error {
	return b.withTransaction(ctx, func(tx pgx.Tx) error {
		return b.move(ctx, tx, ledger.NativeAsset, from, to, amount)
	})
}

// TransferChecked implements the token rail. The asset's registered decimal
// precision must match the caller's expectation.
func (b *PgBank) TransferChecked(ctx context.Context, asset uuid.UUID, from, to uuid.UUID, amount uint64, decimals uint8) error {
	return b.withTransaction(ctx, func(tx pgx.Tx) error {
		var registered int16
		err := tx.QueryRow(ctx,
			`SELECT decimals FROM payment_assets WHERE asset = $1`, asset).Scan(&registered)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
			}
			return fmt.Errorf("failed to look up asset: %w", err)
		}
		if registered != int16(decimals) {
			return fmt.Errorf("%w: asset has %d decimals, expected %d", ledger.ErrAssetMismatch, registered, decimals)
		}
		return b.move(ctx, tx, asset, from, to, amount)
	})
}

// move debits the payer and credits the payee inside the caller's
// transaction. The debit only matches a row holding enough balance, so an
// overdraft shows up as zero rows affected.
func (b *PgBank) move(ctx context.Context, tx pgx.Tx, asset, from, to uuid.UUID, amount uint64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE payment_accounts SET balance = balance - $3
		 WHERE asset = $1 AND holder = $2 AND balance >= $3`,
		asset, from, int64(amount))
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: holder %s cannot cover %d", ErrInsufficientBalance, from, amount)
	}
	return b.credit(ctx, tx, asset, to, amount)
}

// dbExecutor is satisfied by both the pool and a transaction.
type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (b *PgBank) credit(ctx context.Context, db dbExecutor, asset, holder uuid.UUID, amount uint64) error {
	_, err := db.Exec(ctx,
		`INSERT INTO payment_accounts (asset, holder, balance) VALUES ($1, $2, $3)
		 ON CONFLICT (asset, holder) DO UPDATE SET balance = payment_accounts.balance + EXCLUDED.balance`,
		asset, holder, int64(amount))
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

func (b *PgBank) balance(ctx context.Context, asset, holder uuid.UUID) (uint64, error) {
	var balance int64
	err := b.db.QueryRow(ctx,
		`SELECT balance FROM payment_accounts WHERE asset = $1 AND holder = $2`,
		asset, holder).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return uint64(balance), nil
}

func (b *PgBank) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := b.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %w (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
