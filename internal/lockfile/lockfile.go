// Package lockfile coordinates access to a wallet directory between rw
// processes using advisory file locks.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/steveyegge/rwallet/internal/debug"
)

const (
	// LockFileName is the lock file kept in the wallet directory.
	LockFileName = "wallet.lock"

	// DefaultTimeout is used when no --lock-timeout override is provided.
	DefaultTimeout = 30 * time.Second

	pollInterval = 50 * time.Millisecond
)

// ErrLockBusy is returned when the lock is held by another process and the
// wait budget is exhausted.
var ErrLockBusy = errors.New("wallet lock is held by another process")

// Lock is an advisory lock on <dir>/wallet.lock.
//
// Lock modes:
//   - Exclusive: mutating commands (init, recover, sign, deposit, withdraw)
//   - Shared: read-only commands (owner, balance, state, ...)
type Lock struct {
	flock *flock.Flock
	mode  string
}

// New returns an unlocked Lock for the given wallet directory.
func New(dir string) *Lock {
	return &Lock{flock: flock.New(filepath.Join(dir, LockFileName))}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// AcquireExclusive blocks (polling) until an exclusive lock is held, ctx is
// done, or timeout elapses. A zero timeout tries exactly once.
func (l *Lock) AcquireExclusive(ctx context.Context, timeout time.Duration) error {
	return l.acquireWithRetry(ctx, true, timeout)
}

// AcquireShared is AcquireExclusive for a shared (reader) lock.
func (l *Lock) AcquireShared(ctx context.Context, timeout time.Duration) error {
	return l.acquireWithRetry(ctx, false, timeout)
}

// TryAcquireExclusive attempts to acquire an exclusive lock without blocking.
func (l *Lock) TryAcquireExclusive() (bool, error) {
	locked, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire exclusive wallet lock: %w", err)
	}
	if locked {
		l.mode = "exclusive"
		debug.Logf("acquired exclusive wallet lock: %s\n", l.flock.Path())
	}
	return locked, nil
}

// Release releases the lock. Safe to call multiple times.
func (l *Lock) Release() error {
	if l.flock == nil || !l.flock.Locked() && !l.flock.RLocked() {
		return nil
	}
	debug.Logf("releasing %s wallet lock: %s\n", l.mode, l.flock.Path())
	return l.flock.Unlock()
}

func (l *Lock) acquireWithRetry(ctx context.Context, exclusive bool, timeout time.Duration) error {
	start := time.Now()
	lockType := "shared"
	if exclusive {
		lockType = "exclusive"
	}

	tryAcquire := func() (bool, error) {
		if exclusive {
			return l.flock.TryLock()
		}
		return l.flock.TryRLock()
	}

	if timeout <= 0 {
		locked, err := tryAcquire()
		if err != nil {
			return fmt.Errorf("failed to acquire %s wallet lock: %w", lockType, err)
		}
		if locked {
			l.mode = lockType
			return nil
		}
		return fmt.Errorf("%s lock after 0s: %w", lockType, ErrLockBusy)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		locked, err := tryAcquire()
		if err != nil {
			return fmt.Errorf("failed to acquire %s wallet lock: %w", lockType, err)
		}
		if locked {
			l.mode = lockType
			debug.Logf("acquired %s wallet lock after %v: %s\n", lockType, time.Since(start), l.flock.Path())
			return nil
		}

		select {
		case <-timeoutCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s lock after %v: %w", lockType, time.Since(start).Round(time.Millisecond), ErrLockBusy)
		case <-time.After(pollInterval):
		}
	}
}

// WithExclusive runs fn while holding the exclusive lock on dir.
// The lock is released when fn returns. If it cannot be acquired within
// timeout, fn is not executed.
func WithExclusive(ctx context.Context, dir string, timeout time.Duration, fn func() error) error {
	lock := New(dir)
	if err := lock.AcquireExclusive(ctx, timeout); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn()
}

// WithShared runs fn while holding a shared lock on dir.
func WithShared(ctx context.Context, dir string, timeout time.Duration, fn func() error) error {
	lock := New(dir)
	if err := lock.AcquireShared(ctx, timeout); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn()
}
