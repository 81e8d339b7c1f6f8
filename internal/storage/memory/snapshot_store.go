package memory

import (
	"context"
	"sort"
	"sync"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.VaultSnapshotPoint // keyed by wallet, sorted by timestamp
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]*domain.VaultSnapshotPoint),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one observation.
func (s *SnapshotStore) Insert(_ context.Context, p *domain.VaultSnapshotPoint) error {
	if p == nil || p.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	points := append(s.data[p.Wallet], &cp)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
	s.data[p.Wallet] = points
	return nil
}

// GetByTimeRange retrieves points for a wallet within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, wallet string, start, end int64) ([]*domain.VaultSnapshotPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VaultSnapshotPoint
	for _, p := range s.data[wallet] {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}
