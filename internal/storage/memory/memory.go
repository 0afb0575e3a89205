// Package memory implements storage.Store in process memory.
//
// It backs unit tests and the --db=:memory: mode of the CLI. Transactions take
// the store's write lock for their whole duration and buffer writes in an
// overlay that is applied only on successful return.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/steveyegge/rwallet/internal/storage"
)

var _ storage.Store = (*MemoryStorage)(nil)

// MemoryStorage is a map-backed storage.Store.
type MemoryStorage struct {
	mu     sync.RWMutex
	data   map[storage.Key][]byte
	closed bool
}

// New returns an empty in-memory store.
func New() *MemoryStorage {
	return &MemoryStorage{data: make(map[storage.Key][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key storage.Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, storage.ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(v), nil
}

func (m *MemoryStorage) Has(_ context.Context, key storage.Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, storage.ErrClosed
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key storage.Key, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.ErrClosed
	}
	m.data[key] = clone(value)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key storage.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.ErrClosed
	}
	delete(m.data, key)
	return nil
}

// RunInTransaction runs fn under the write lock. Writes are buffered and
// applied only if fn returns nil; a panic discards them and is re-raised.
func (m *MemoryStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{base: m.data, writes: make(map[storage.Key]*[]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.writes {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = *v
	}
	return nil
}

// Close marks the store closed and drops its data.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

// Snapshot returns a copy of every key and value.
func (m *MemoryStorage) Snapshot() map[storage.Key][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[storage.Key][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = clone(v)
	}
	return out
}

// memoryTx overlays buffered writes on the base map. A nil entry in writes
// is a tombstone.
type memoryTx struct {
	base   map[storage.Key][]byte
	writes map[storage.Key]*[]byte
}

func (t *memoryTx) Get(_ context.Context, key storage.Key) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil, storage.ErrNotFound
		}
		return clone(*v), nil
	}
	v, ok := t.base[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(v), nil
}

func (t *memoryTx) Has(ctx context.Context, key storage.Key) (bool, error) {
	_, err := t.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *memoryTx) Set(_ context.Context, key storage.Key, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	v := clone(value)
	t.writes[key] = &v
	return nil
}

func (t *memoryTx) Delete(_ context.Context, key storage.Key) error {
	t.writes[key] = nil
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
