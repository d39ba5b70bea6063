package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/autoflex-io/inventory/pkg/logger"
)

// txDriver hands out connections that only support Begin/Commit/Rollback.
type txDriver struct{}

func (txDriver) Open(string) (driver.Conn, error) { return txConn{}, nil }

type txConn struct{}

func (txConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (txConn) Close() error                        { return nil }
func (txConn) Begin() (driver.Tx, error)           { return txConn{}, nil }
func (txConn) Commit() error                       { return nil }
func (txConn) Rollback() error                     { return nil }

func init() {
	sql.Register("database-test-tx", txDriver{})
}

func openTxPool(t *testing.T, maxOpen int) *Database {
	t.Helper()
	db, err := sql.Open("database-test-tx", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	d, err := newDatabase(db, PoolOptions{MaxOpenConns: maxOpen}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestWithNestingTx_DoesNotExhaustPool(t *testing.T) {
	for _, maxOpen := range []int{2, 3, 8} {
		d := openTxPool(t, maxOpen)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// More outer transactions than the pool has connections, each opening
		// inner transactions while it is still open.
		callers := maxOpen * 2
		errs := make(chan error, callers)
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- d.WithNestingTx(ctx, func(*sql.Tx) error {
					time.Sleep(10 * time.Millisecond)
					for range 2 {
						if err := d.WithTx(ctx, func(*sql.Tx) error { return nil }); err != nil {
							return err
						}
					}
					return nil
				})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("pool of %d: nested transaction failed: %v", maxOpen, err)
			}
		}
	}
}

func TestWithTx_NestedExhaustsUnguardedPool(t *testing.T) {
	d := openTxPool(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// Two plain outer transactions pin both connections; neither inner one can start.
	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.WithTx(ctx, func(*sql.Tx) error {
				<-start
				return d.WithTx(ctx, func(*sql.Tx) error { return nil })
			})
		}()
	}
	// Let both outer transactions take their connection.
	deadline := time.Now().Add(time.Second)
	for d.db.Stats().InUse < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	}
}

func TestNewDatabase_RejectsSingleConnectionPool(t *testing.T) {
	db, err := sql.Open("database-test-tx", "")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := newDatabase(db, PoolOptions{MaxOpenConns: 1}, logger.Nop()); err == nil {
		t.Fatal("expected an error for a single-connection pool")
	}
	d, err := newDatabase(db, PoolOptions{}, logger.Nop())
	if err != nil {
		t.Fatalf("unbounded pool: %v", err)
	}
	if d.nesting != nil {
		t.Fatal("unbounded pool must not cap nesting transactions")
	}
}
