package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/rwallet/internal/storage"
	"github.com/steveyegge/rwallet/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	buf := []byte(`"abc"`)
	require.NoError(t, s.Set(ctx, "owner_address", buf))
	buf[1] = 'z'

	got, err := s.Get(ctx, "owner_address")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got))

	got[1] = 'y'
	snap := s.Snapshot()
	assert.Equal(t, `"abc"`, string(snap["owner_address"]))
}

func TestTransactionCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().RunInTransaction(ctx, func(storage.Transaction) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
