package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAlreadySent is returned when a second delivered log is recorded for a business.
	ErrAlreadySent = errors.New("business already has a delivered message")
	// ErrSessionNotFound is returned when closing a session that does not exist.
	ErrSessionNotFound = errors.New("campaign session not found")
)

// StoreError reports that the storage medium failed an operation.
// Callers treat it as fatal for the current item only.
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the driver error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Store groups the repositories backing the campaign engine.
type Store struct {
	Businesses  BusinessesRepository
	MessageLogs MessageLogsRepository
	Sessions    SessionsRepository
}

type pgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// NewPGXStore wires pgx backed repositories.
func NewPGXStore(pool *pgxpool.Pool) Store {
	return Store{
		Businesses:  &PGXBusinessesRepository{pool: pool},
		MessageLogs: &PGXMessageLogsRepository{pool: pool},
		Sessions:    &PGXSessionsRepository{pool: pool},
	}
}

// NewSQLiteStore wires database/sql backed repositories over a SQLite handle.
func NewSQLiteStore(db *sql.DB) Store {
	return Store{
		Businesses:  &SQLiteBusinessesRepository{db: db},
		MessageLogs: &SQLiteMessageLogsRepository{db: db},
		Sessions:    &SQLiteSessionsRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
