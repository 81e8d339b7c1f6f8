package memory

import (
	"context"
	"errors"
	"testing"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

func TestRateCacheStore_PutGetDelete(t *testing.T) {
	store := NewRateCacheStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "apy_data_cache"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	entry := &domain.RateCacheEntry{
		Key:       "apy_data_cache",
		Rates:     []domain.RateEntry{{Protocol: "kamino", APY: 10.1, Source: "defillama"}},
		FetchedAt: 1000,
		ExpiresAt: 2000,
	}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "apy_data_cache")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Rates) != 1 || got.Rates[0].Protocol != "kamino" {
		t.Errorf("unexpected rates: %+v", got.Rates)
	}

	if err := store.Delete(ctx, "apy_data_cache"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "apy_data_cache"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
