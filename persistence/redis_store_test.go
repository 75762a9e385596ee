package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisStoreConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	roundTrip(t, newRedisStore(t))
}

func TestRedisStore_Cleanup(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	stale := sampleState(t, "stale")
	stale.SavedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Save(ctx, stale))
	require.NoError(t, store.Save(ctx, sampleState(t, "fresh")))

	removed, err := store.Cleanup(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids)
}

func TestRedisStore_KeyPrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := NewRedisStore(RedisStoreConfig{Addr: mr.Addr(), KeyPrefix: "a:"})
	require.NoError(t, err)
	b, err := NewRedisStore(RedisStoreConfig{Addr: mr.Addr(), KeyPrefix: "b:"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Save(ctx, sampleState(t, "run-1")))

	_, err = b.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
