// Package storagetest provides a conformance suite run against every
// storage.Store backend.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/rwallet/internal/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run exercises the full storage.Store contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.Get(context.Background(), "owner_address")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		ok, err := s.Has(context.Background(), "owner_address")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)
		require.NoError(t, s.Set(ctx, "balance", []byte(`10`)))
		require.NoError(t, s.Set(ctx, "balance", []byte(`25`)))

		got, err := s.Get(ctx, "balance")
		require.NoError(t, err)
		assert.Equal(t, []byte(`25`), got)

		ok, err := s.Has(ctx, "balance")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)
		require.NoError(t, s.Set(ctx, "recovery", []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, "recovery"))
		require.NoError(t, s.Delete(ctx, "recovery"), "deleting a missing key is not an error")

		_, err := s.Get(ctx, "recovery")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ParameterizedKey", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)
		key := storage.Key("recovery_address/0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, s.Set(ctx, key, []byte(`true`)))
		ok, err := s.Has(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		s := open(t, newStore)
		err := s.Set(context.Background(), "bad key!", []byte(`1`))
		assert.Error(t, err)
	})

	t.Run("TransactionCommit", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)
		err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
			if err := tx.Set(ctx, "owner_address", []byte(`"a"`)); err != nil {
				return err
			}
			// Reads observe the transaction's own writes.
			got, err := tx.Get(ctx, "owner_address")
			if err != nil {
				return err
			}
			assert.Equal(t, []byte(`"a"`), got)
			return tx.Set(ctx, "balance", []byte(`0`))
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, "owner_address")
		require.NoError(t, err)
		assert.Equal(t, []byte(`"a"`), got)
		got, err = s.Get(ctx, "balance")
		require.NoError(t, err)
		assert.Equal(t, []byte(`0`), got)
	})

	t.Run("TransactionRollbackOnError", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)
		require.NoError(t, s.Set(ctx, "balance", []byte(`7`)))

		boom := errors.New("boom")
		err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
			require.NoError(t, tx.Set(ctx, "balance", []byte(`0`)))
			require.NoError(t, tx.Delete(ctx, "balance"))
			require.NoError(t, tx.Set(ctx, "owner_address", []byte(`"b"`)))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, "balance")
		require.NoError(t, err)
		assert.Equal(t, []byte(`7`), got)
		ok, err := s.Has(ctx, "owner_address")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TransactionRollbackOnPanic", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = s.RunInTransaction(ctx, func(tx storage.Transaction) error {
				_ = tx.Set(ctx, "owner_address", []byte(`"c"`))
				panic("kaboom")
			})
		})

		ok, err := s.Has(ctx, "owner_address")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TransactionDeleteThenHas", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, newStore)
		require.NoError(t, s.Set(ctx, "recovery", []byte(`{}`)))
		err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
			if err := tx.Delete(ctx, "recovery"); err != nil {
				return err
			}
			ok, err := tx.Has(ctx, "recovery")
			if err != nil {
				return err
			}
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, err)
		ok, err := s.Has(ctx, "recovery")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ClosedStore", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		_, err := s.Get(context.Background(), "balance")
		assert.ErrorIs(t, err, storage.ErrClosed)
		err = s.RunInTransaction(context.Background(), func(storage.Transaction) error { return nil })
		assert.ErrorIs(t, err, storage.ErrClosed)
	})
}

func open(t *testing.T, newStore Factory) storage.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
