package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/storagetest"
)

// newTestStore creates a file-backed SQLiteStorage in a temp dir.
// File-based databases behave like production (WAL, busy timeout).
func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newTestStore(t) })
}

func TestConformanceInMemory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(context.Background(), ":memory:")
		require.NoError(t, err)
		return s
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "wallet.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "owner_address", []byte(`"0x01"`)))
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())
	assert.True(t, s.IsClosed())
	require.NoError(t, s.Close(), "double close is a no-op")

	s, err = New(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Get(ctx, "owner_address")
	require.NoError(t, err)
	assert.Equal(t, []byte(`"0x01"`), got)
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer func() { _ = s.Close() }()
	require.NoError(t, storage.SetJSON(ctx, s, "balance", 0))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
				var n int
				if err := storage.GetJSON(ctx, tx, "balance", &n); err != nil {
					return err
				}
				return storage.SetJSON(ctx, tx, "balance", n+1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int
	require.NoError(t, storage.GetJSON(ctx, s, "balance", &n))
	assert.Equal(t, 20, n)
}

func TestWrapDBError(t *testing.T) {
	assert.NoError(t, wrapDBError("op", nil))
	err := wrapDBError("get x", sql.ErrNoRows)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "get x")
}

func TestIsBusyError(t *testing.T) {
	assert.False(t, isBusyError(nil))
	assert.True(t, isBusyError(errors.New("database is locked")))
	assert.True(t, isBusyError(errors.New("sqlite3: SQLITE_BUSY")))
	assert.False(t, isBusyError(errors.New("no such table")))
}
