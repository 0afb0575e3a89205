// Package storage defines the key-value store the wallet persists its state in.
//
// The wallet treats storage as an external map with get/set/has semantics over a
// small closed set of logical keys. Concrete backends live in sub-packages
// (memory, sqlite, dolt); consumers depend only on the Store interface so that
// backends, mocks and instrumentation wrappers can be substituted freely.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("store closed")

// Key is a logical storage key. Keys are plain strings ("owner_address",
// "recovery_address/0xabc...") so every backend can index them directly.
type Key string

// Reader exposes the read half of the store.
type Reader interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Has reports whether key holds a value.
	Has(ctx context.Context, key Key) (bool, error)
}

// Writer exposes the write half of the store.
type Writer interface {
	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
}

// Transaction provides atomic multi-key access.
//
// # Transaction Semantics
//
//   - Reads observe the transaction's own uncommitted writes
//   - Changes are not visible outside the transaction until commit
//   - If the callback returns an error, every write is discarded
//   - If the callback panics, every write is discarded and the panic re-raised
//   - On successful return from the callback, all writes commit together
//
// # Example Usage
//
//	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
//	    if err := tx.Set(ctx, "owner_address", ownerJSON); err != nil {
//	        return err // Triggers rollback
//	    }
//	    return tx.Set(ctx, "recovery", recoveryJSON) // nil triggers commit
//	})
type Transaction interface {
	Reader
	Writer
}

// Store is the interface satisfied by every backend.
type Store interface {
	Reader
	Writer

	// RunInTransaction executes fn atomically. Backends serialize writers, so
	// fn observes a consistent snapshot of the whole key space.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Close releases the backend's resources.
	Close() error
}
