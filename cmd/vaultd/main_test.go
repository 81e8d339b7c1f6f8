package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoyield-vault/internal/config"
	"autoyield-vault/internal/domain"
	badgerstore "autoyield-vault/internal/storage/badger"
	"autoyield-vault/internal/storage/memory"
)

func TestCreateStores_InMemoryDefaults(t *testing.T) {
	st, cleanup, err := createStores(context.Background(), &config.Config{})
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &memory.OperationStore{}, st.operations)
	assert.IsType(t, &memory.SnapshotStore{}, st.snapshots)
	assert.NotNil(t, st.rateCache)
}

func TestDaemon_ClosesStoresWhenServingFails(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Datadir: dir}
	entry := &domain.RateCacheEntry{Key: "apy_data_cache", FetchedAt: 1, ExpiresAt: 2}

	failing := func(ctx context.Context, _ *config.Config, st *stores) error {
		require.NoError(t, st.rateCache.Put(ctx, entry))
		return errors.New("listen tcp: address already in use")
	}
	err := daemon(cfg, failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")

	// badger holds a directory lock until closed.
	reopened, err := badgerstore.NewRateCacheStore(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "apy_data_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ExpiresAt)
}

func TestDaemon_CanceledIsCleanExit(t *testing.T) {
	canceled := func(context.Context, *config.Config, *stores) error {
		return context.Canceled
	}
	assert.NoError(t, daemon(&config.Config{}, canceled))
}
