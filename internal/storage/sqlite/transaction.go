package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/rwallet/internal/storage"
)

var _ storage.Transaction = (*sqliteTx)(nil)

// sqliteTx implements storage.Transaction over a dedicated connection with an
// active transaction.
type sqliteTx struct {
	conn *sql.Conn
}

// RunInTransaction executes fn within a database transaction.
//
// The transaction uses BEGIN IMMEDIATE to acquire the write lock up front, so
// two rw processes racing on the same wallet serialize instead of deadlocking
// on lock upgrade.
//
// Transaction lifecycle:
//  1. Acquire dedicated connection from pool
//  2. Begin IMMEDIATE transaction with retry on SQLITE_BUSY
//  3. Execute fn with the Transaction interface
//  4. On success: COMMIT
//  5. On error or panic: ROLLBACK
//
// If fn panics, the transaction is rolled back and the panic re-raised.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for transaction: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn, 5, 10*time.Millisecond); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback completes even if ctx is cancelled
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := fn(&sqliteTx{conn: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// beginImmediateWithRetry issues BEGIN IMMEDIATE, retrying with exponential
// backoff while the database is busy. Non-busy errors fail immediately.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn, maxRetries uint64, initial time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)

	return backoff.Retry(func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func (t *sqliteTx) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	return getValue(ctx, t.conn, key)
}

func (t *sqliteTx) Has(ctx context.Context, key storage.Key) (bool, error) {
	return hasValue(ctx, t.conn, key)
}

func (t *sqliteTx) Set(ctx context.Context, key storage.Key, value []byte) error {
	return setValue(ctx, t.conn, key, value)
}

func (t *sqliteTx) Delete(ctx context.Context, key storage.Key) error {
	return deleteValue(ctx, t.conn, key)
}
