package store

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

// PgStore persists records in PostgreSQL, one row per store, with the record
// body in the stable binary layout.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new RecordStore backed by a PostgreSQL pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const uniqueViolation = "23505"

func (p *PgStore) Create(ctx context.Context, rec *StoredRecord) error {
	data := ledger.MarshalRecord(rec.Record)
	_, err := p.db.Exec(ctx,
		`INSERT INTO store_records (handle, name, data, deposit) VALUES ($1, $2, $3, $4)`,
		rec.Handle, rec.Record.Name, data, int64(rec.Deposit))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ledger.ErrStoreExists
		}
		return fmt.Errorf("failed to create store record: %w", err)
	}
	return nil
}

func (p *PgStore) Load(ctx context.Context, handle uuid.UUID) (*StoredRecord, error) {
	var data []byte
	var deposit int64
	err := p.db.QueryRow(ctx,
		`SELECT data, deposit FROM store_records WHERE handle = $1`, handle).
		Scan(&data, &deposit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to load store record: %w", err)
	}
	record, err := ledger.UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode store record: %w", err)
	}
	return &StoredRecord{Handle: handle, Record: record, Deposit: uint64(deposit)}, nil
}

func (p *PgStore) Save(ctx context.Context, rec *StoredRecord) error {
	data := ledger.MarshalRecord(rec.Record)
	tag, err := p.db.Exec(ctx,
		`UPDATE store_records SET data = $2, deposit = $3, updated_at = now() WHERE handle = $1`,
		rec.Handle, data, int64(rec.Deposit))
	if err != nil {
		return fmt.Errorf("failed to save store record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrStoreNotFound
	}
	return nil
}

// Update runs fn on the record inside a transaction while holding the row
// lock, so concurrent mutations of the same store queue up instead of
// clobbering each other.
func (p *PgStore) Update(ctx context.Context, handle uuid.UUID, fn func(rec *StoredRecord) error) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		var data []byte
		var deposit int64
		err := tx.QueryRow(ctx,
			`SELECT data, deposit FROM store_records WHERE handle = $1 FOR UPDATE`, handle).
			Scan(&data, &deposit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ledger.ErrStoreNotFound
			}
			return fmt.Errorf("failed to lock store record: %w", err)
		}
		record, err := ledger.UnmarshalRecord(data)
		if err != nil {
			return fmt.Errorf("failed to decode store record: %w", err)
		}
		rec := &StoredRecord{Handle: handle, Record: record, Deposit: uint64(deposit)}
		if err := fn(rec); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE store_records SET data = $2, deposit = $3, updated_at = now() WHERE handle = $1`,
			handle, ledger.MarshalRecord(rec.Record), int64(rec.Deposit))
		if err != nil {
			return fmt.Errorf("failed to save store record: %w", err)
		}
		return nil
	})
}

func (p *PgStore) Delete(ctx context.Context, handle uuid.UUID) (*StoredRecord, error) {
	var data []byte
	var deposit int64
	err := p.db.QueryRow(ctx,
		`DELETE FROM store_records WHERE handle = $1 RETURNING data, deposit`, handle).
		Scan(&data, &deposit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to delete store record: %w", err)
	}
	record, err := ledger.UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode store record: %w", err)
	}
	return &StoredRecord{Handle: handle, Record: record, Deposit: uint64(deposit)}, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
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
