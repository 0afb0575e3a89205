package dolt

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/rwallet/internal/debug"
	"github.com/steveyegge/rwallet/internal/storage"
)

const (
	// maxTransactionRetries bounds retries after serialization conflicts.
	maxTransactionRetries = 5
	initialRetryDelay     = 50 * time.Millisecond
)

var _ storage.Transaction = (*doltTransaction)(nil)

type doltTransaction struct {
	tx *sql.Tx
}

// RunInTransaction executes fn within a database transaction.
// If the transaction fails due to a serialization conflict (Error 1213) it is
// retried from the start with exponential backoff. With AutoCommit enabled a
// Dolt commit is recorded afterwards, using storage.OpName(ctx) as the message.
func (s *DoltStore) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialRetryDelay
	bo.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxTransactionRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			debug.Logf("dolt transaction retry (attempt %d/%d) after serialization conflict\n", attempt-1, maxTransactionRetries)
		}
		err := s.runTransactionOnce(ctx, fn)
		if err != nil && isSerializationError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
	if err != nil {
		return err
	}

	if s.autoCommit {
		msg := storage.OpName(ctx)
		if msg == "" {
			msg = "wallet update"
		}
		return s.Commit(ctx, "rw: "+msg)
	}
	return nil
}

func (s *DoltStore) runTransactionOnce(ctx context.Context, fn func(tx storage.Transaction) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&doltTransaction{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (t *doltTransaction) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	return getValue(ctx, t.tx, key)
}

func (t *doltTransaction) Has(ctx context.Context, key storage.Key) (bool, error) {
	return hasValue(ctx, t.tx, key)
}

func (t *doltTransaction) Set(ctx context.Context, key storage.Key, value []byte) error {
	return setValue(ctx, t.tx, key, value)
}

func (t *doltTransaction) Delete(ctx context.Context, key storage.Key) error {
	return deleteValue(ctx, t.tx, key)
}
