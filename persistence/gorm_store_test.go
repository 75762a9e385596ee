package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := NewGormStore(SQLStoreConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	return store
}

func TestGormStore_RoundTrip(t *testing.T) {
	roundTrip(t, newGormStore(t))
}

func TestGormStore_OverwriteKeepsOneRecord(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleState(t, "run-1")))
	require.NoError(t, store.Save(ctx, sampleState(t, "run-1")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestGormStore_Cleanup(t *testing.T) {
	store := newGormStore(t)
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

func TestGormStore_UnsupportedDriver(t *testing.T) {
	_, err := NewGormStore(SQLStoreConfig{Driver: "oracle"})
	require.Error(t, err)
}
