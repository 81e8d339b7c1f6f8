package memory

import (
	"context"
	"sync"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

// RateCacheStore is an in-memory implementation of storage.RateCacheStore.
type RateCacheStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RateCacheEntry
}

// NewRateCacheStore creates a new in-memory rate cache store.
func NewRateCacheStore() *RateCacheStore {
	return &RateCacheStore{
		data: make(map[string]*domain.RateCacheEntry),
	}
}

// Compile-time interface check.
var _ storage.RateCacheStore = (*RateCacheStore)(nil)

// Get returns the entry for key.
func (s *RateCacheStore) Get(_ context.Context, key string) (*domain.RateCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneRateEntry(e), nil
}

// Put stores the entry, replacing any previous value.
func (s *RateCacheStore) Put(_ context.Context, e *domain.RateCacheEntry) error {
	if e == nil || e.Key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[e.Key] = cloneRateEntry(e)
	return nil
}

// Delete removes the entry.
func (s *RateCacheStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func cloneRateEntry(e *domain.RateCacheEntry) *domain.RateCacheEntry {
	cp := *e
	cp.Rates = append([]domain.RateEntry(nil), e.Rates...)
	return &cp
}
