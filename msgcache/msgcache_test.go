package msgcache

import (
	"context"
	"testing"

	"gorollupbridge/config"
	"gorollupbridge/storage"
	"gorollupbridge/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkExecutedIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c, err := New(ctx, store, nil)
	require.NoError(t, err)

	id := types.MessageID{ChainID: 42161, Position: 7}
	assert.False(t, c.Has(id))

	require.NoError(t, c.MarkExecuted(ctx, id))
	once, _, _ := store.Get(ctx, config.KEY_EXECUTED_MESSAGES)

	require.NoError(t, c.MarkExecuted(ctx, id))
	twice, _, _ := store.Get(ctx, config.KEY_EXECUTED_MESSAGES)

	assert.JSONEq(t, string(once), string(twice))
	assert.JSONEq(t, `{"chainId: 42161, position: 7": true}`, string(twice))
	assert.True(t, c.Has(id))
	assert.Equal(t, 1, c.Len())
}

func TestLegacyAndNitroKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, storage.NewMemory(), nil)
	require.NoError(t, err)

	legacy := types.MessageID{ChainID: 42161, Legacy: true, BatchNumber: 7, IndexInBatch: 0}
	require.NoError(t, c.MarkExecuted(ctx, legacy))

	assert.True(t, c.Has(legacy))
	assert.False(t, c.Has(types.MessageID{ChainID: 42161, Position: 7}))
	assert.False(t, c.Has(types.MessageID{ChainID: 1, Legacy: true, BatchNumber: 7}))
}

func TestReloadAndMergeWithForeignWrites(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, config.KEY_EXECUTED_MESSAGES,
		[]byte(`{"chainId: 42161, batchNumber: 1, indexInBatch: 2": true}`)))

	c, err := New(ctx, store, nil)
	require.NoError(t, err)
	assert.True(t, c.Has(types.MessageID{ChainID: 42161, Legacy: true, BatchNumber: 1, IndexInBatch: 2}))

	// another session writes after we loaded
	other, err := New(ctx, store, nil)
	require.NoError(t, err)
	require.NoError(t, other.MarkExecuted(ctx, types.MessageID{ChainID: 42161, Position: 100}))

	require.NoError(t, c.MarkExecuted(ctx, types.MessageID{ChainID: 42161, Position: 101}))
	assert.True(t, c.Has(types.MessageID{ChainID: 42161, Position: 100}))
	assert.Equal(t, 3, c.Len())
}

func TestCorruptCache(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, config.KEY_EXECUTED_MESSAGES, []byte("[1,2")))

	_, err := New(ctx, store, nil)
	assert.Error(t, err)
}
