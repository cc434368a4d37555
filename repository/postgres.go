package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabase is returned when the repository has no executor
var ErrNoDatabase = errors.New("database not configured")

// DBTX is an interface that both pgxpool.Pool and pgx.Tx satisfy.
// This allows Repository methods to work with either a connection pool
// or a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides access to user profiles and producer run records.
//
// Expected schema:
//
//	CREATE TABLE user_profiles (
//	    user_id                TEXT PRIMARY KEY,
//	    credential_encrypted   BYTEA,
//	    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE producer_runs (
//	    id             UUID PRIMARY KEY,
//	    producer       TEXT NOT NULL,
//	    ticker         TEXT NOT NULL,
//	    context        TEXT NOT NULL,
//	    timeframe      TEXT,
//	    status         TEXT NOT NULL,
//	    attempts       INT NOT NULL,
//	    score          INT,
//	    error_code     TEXT,
//	    error_message  TEXT,
//	    duration_ms    INT NOT NULL,
//	    started_at     TIMESTAMPTZ NOT NULL,
//	    completed_at   TIMESTAMPTZ
//	);
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX // The actual executor (pool or transaction)
}

// NewRepository creates a new Repository with a PostgreSQL connection pool
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Repository{pool: pool, db: pool}, nil
}

// NewRepositoryWithDB creates a Repository over an existing executor
func NewRepositoryWithDB(db DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a new Repository that uses the given transaction.
// This is useful for running multiple operations atomically.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{pool: r.pool, db: tx}
}

// BeginTx starts a new transaction and returns a Repository that uses it.
// The caller is responsible for calling Commit() or Rollback() on the transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, *Repository, error) {
	if r.pool == nil {
		return nil, nil, ErrNoDatabase
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, r.WithTx(tx), nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Health checks if the database connection is healthy
func (r *Repository) Health(ctx context.Context) error {
	if r.pool == nil {
		if r.db == nil {
			return ErrNoDatabase
		}
		return nil
	}
	return r.pool.Ping(ctx)
}

func (r *Repository) checkDB() error {
	if r == nil || r.db == nil {
		return ErrNoDatabase
	}
	return nil
}
