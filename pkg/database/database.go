// Package database owns the shared PostgreSQL connection pool.
//
// Repositories use database/sql over the pgx stdlib driver so the same *sql.Tx
// can be handed to Watermill's SQL publisher for transactional outbox writes.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/semaphore"

	"github.com/autoflex-io/inventory/pkg/logger"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// PoolOptions tunes the database/sql connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Database wraps *sql.DB with transaction helpers.
type Database struct {
	db  *sql.DB
	log logger.Logger

	// nesting bounds WithNestingTx callers; nil when the pool is unbounded.
	nesting *semaphore.Weighted
}

// NewPool opens a pgx-backed *sql.DB, applies pool settings and verifies
// connectivity with a 5s ping.
func NewPool(ctx context.Context, url string, opts PoolOptions, log logger.Logger) (*Database, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d, err := newDatabase(db, opts, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return d, nil
}

func newDatabase(db *sql.DB, opts PoolOptions, log logger.Logger) (*Database, error) {
	if opts.MaxOpenConns == 1 {
		return nil, errors.New("database: a pool of one connection cannot run nested transactions, use 0 or at least 2")
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	d := &Database{db: db, log: log}
	if opts.MaxOpenConns > 0 {
		// Half the pool may be pinned by outer transactions; the rest serves
		// their inner transactions and ordinary queries.
		d.nesting = semaphore.NewWeighted(int64(max(opts.MaxOpenConns/2, 1)))
	}
	return d, nil
}

// DB returns the underlying *sql.DB for non-transactional queries.
func (d *Database) DB() *sql.DB {
	return d.db
}

// WithTx runs fn inside a read-committed transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return d.WithTxOptions(ctx, nil, fn)
}

// WithNestingTx is WithTx for callers whose fn opens further transactions on
// d while tx is still open. Each such caller holds one connection and waits
// for another, so at most half the pool may do it at once; the rest wait
// for a slot here, before taking a connection.
func (d *Database) WithNestingTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if d.nesting != nil {
		if err := d.nesting.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("wait for nesting tx slot: %w", err)
		}
		defer d.nesting.Release(1)
	}
	return d.WithTx(ctx, fn)
}

// WithTxOptions is WithTx with explicit isolation / read-only options.
func (d *Database) WithTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				d.log.ErrorContext(ctx, "rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SetLockTimeout bounds how long statements in tx wait for row locks.
// A timeout surfaces as an error for which IsLockConflict reports true.
func SetLockTimeout(ctx context.Context, tx *sql.Tx, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	// SET LOCAL does not accept bind parameters.
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	return nil
}

// Ping checks the database connection health.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (d *Database) Close() {
	if err := d.db.Close(); err != nil {
		d.log.Error("database close failed", "error", err)
	}
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a Postgres foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// IsLockConflict reports whether err means the statement lost a race for a
// row: lock wait timeout, serialization failure or a detected deadlock.
func IsLockConflict(err error) bool {
	return hasCode(err, codeLockNotAvailable) ||
		hasCode(err, codeSerializationFailure) ||
		hasCode(err, codeDeadlockDetected)
}

// ConstraintName returns the violated constraint of a Postgres error, or "".
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
