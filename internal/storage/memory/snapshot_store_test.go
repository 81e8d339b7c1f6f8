package memory

import (
	"context"
	"testing"

	"autoyield-vault/internal/domain"
)

func TestSnapshotStore_GetByTimeRange(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, ts := range []int64{3000, 1000, 2000, 4000} {
		p := &domain.VaultSnapshotPoint{
			Wallet:         "walletA",
			TimestampMs:    ts,
			VaultExists:    true,
			CustodyBalance: uint64(ts),
		}
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, "walletA", 1000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if got[i].TimestampMs != want {
			t.Errorf("point %d: got ts %d, want %d", i, got[i].TimestampMs, want)
		}
	}

	other, _ := store.GetByTimeRange(ctx, "walletB", 0, 5000)
	if len(other) != 0 {
		t.Errorf("expected no points for other wallet, got %d", len(other))
	}
}
