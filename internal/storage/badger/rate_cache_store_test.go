package badgerstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

func TestRateCacheStore_InMemory(t *testing.T) {
	store, err := NewRateCacheStore("", nil)
	require.NoError(t, err)
	defer store.Close()

	testRateCacheStore(t, store)
}

func TestRateCacheStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewRateCacheStore(dir, nil)
	require.NoError(t, err)

	entry := &domain.RateCacheEntry{
		Key:       "apy_data_cache",
		Rates:     []domain.RateEntry{{Protocol: "solend", APY: 7.8, Source: "fallback"}},
		FetchedAt: 1,
		ExpiresAt: 2,
	}
	require.NoError(t, store.Put(ctx, entry))
	require.NoError(t, store.Close())

	reopened, err := NewRateCacheStore(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "apy_data_cache")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func testRateCacheStore(t *testing.T, store storage.RateCacheStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "apy_data_cache")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	thirty := 9.9
	entry := &domain.RateCacheEntry{
		Key: "apy_data_cache",
		Rates: []domain.RateEntry{
			{Protocol: "kamino", APY: 10.1, Source: "kamino-api", ThirtyDayAPY: &thirty},
			{Protocol: "tulip", APY: 8.5, Source: "fallback", Error: "timeout"},
		},
		FetchedAt: 1000,
		ExpiresAt: 2000,
	}
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, "apy_data_cache")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	entry.ExpiresAt = 5000
	require.NoError(t, store.Put(ctx, entry))
	got, err = store.Get(ctx, "apy_data_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.ExpiresAt)

	require.NoError(t, store.Delete(ctx, "apy_data_cache"))
	require.NoError(t, store.Delete(ctx, "apy_data_cache"))
	_, err = store.Get(ctx, "apy_data_cache")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	assert.True(t, errors.Is(store.Put(ctx, &domain.RateCacheEntry{}), storage.ErrInvalidInput))
}
