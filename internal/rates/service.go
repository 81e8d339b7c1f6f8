package rates

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/observability"
	"autoyield-vault/internal/storage"
)

// CacheKey is the key of the persisted rate list.
const CacheKey = "apy_data_cache"

const (
	// DefaultTTL is how long a fetched rate list is served from cache.
	DefaultTTL = 15 * time.Minute
	// DefaultRefreshInterval is the period of forced refreshes in Run.
	DefaultRefreshInterval = time.Hour
)

// Source fetches rates and pool figures.
type Source interface {
	Rates(ctx context.Context) []domain.RateEntry
	FetchPools(ctx context.Context) (*domain.PoolSummary, error)
}

// Service serves cached rates backed by a Source.
type Service struct {
	source   Source
	store    storage.RateCacheStore
	ttl      time.Duration
	interval time.Duration
	log      *logrus.Entry
	now      func() time.Time

	mu   sync.Mutex
	last []domain.RateEntry
}

// NewService creates a Service. Non-positive durations use the defaults.
func NewService(source Source, store storage.RateCacheStore, ttl, interval time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Service{
		source:   source,
		store:    store,
		ttl:      ttl,
		interval: interval,
		log:      logrus.WithField("component", "rates"),
		now:      time.Now,
	}
}

// Rates returns the rate list, from cache unless force is set or the cached
// entry is missing, expired or unreadable.
func (s *Service) Rates(ctx context.Context, force bool) ([]domain.RateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force {
		if rates, ok := s.cached(ctx); ok {
			return rates, nil
		}
	}

	fresh := s.source.Rates(ctx)
	if !anyLive(fresh) && anyLive(s.last) {
		s.log.Warn("no live rates available, serving last fetched rates")
		return copyRates(s.last), nil
	}

	nowMs := s.now().UnixMilli()
	entry := &domain.RateCacheEntry{
		Key:       CacheKey,
		Rates:     fresh,
		FetchedAt: nowMs,
		ExpiresAt: nowMs + s.ttl.Milliseconds(),
	}
	if err := s.store.Put(ctx, entry); err != nil {
		s.log.WithError(err).Warn("failed to cache rates")
	}
	s.last = copyRates(fresh)
	return fresh, nil
}

// cached returns the stored rates when present and fresh. Unreadable and
// expired entries are removed.
func (s *Service) cached(ctx context.Context) ([]domain.RateEntry, bool) {
	entry, err := s.store.Get(ctx, CacheKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		observability.RecordRateCache("miss")
		return nil, false
	case err != nil || entry == nil:
		observability.RecordRateCache("corrupt")
		s.log.WithError(err).Debug("discarding unreadable rate cache")
		s.discard(ctx)
		return nil, false
	case entry.Expired(s.now().UnixMilli()):
		observability.RecordRateCache("miss")
		s.discard(ctx)
		return nil, false
	}
	observability.RecordRateCache("hit")
	return entry.Rates, true
}

func (s *Service) discard(ctx context.Context) {
	if err := s.store.Delete(ctx, CacheKey); err != nil {
		s.log.WithError(err).Debug("failed to delete rate cache")
	}
}

// Best returns the highest live rate, or the highest of all rates when none
// is live. It returns nil for an empty list.
func (s *Service) Best(ctx context.Context) (*domain.RateEntry, error) {
	rates, err := s.Rates(ctx, false)
	if err != nil {
		return nil, err
	}
	return BestRate(rates), nil
}

// Pools returns the proxy's USDC pool listing.
func (s *Service) Pools(ctx context.Context) (*domain.PoolSummary, error) {
	return s.source.FetchPools(ctx)
}

// Run forces a refresh immediately and then every refresh interval until
// ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Rates(ctx, true); err != nil {
			s.log.WithError(err).Warn("rate refresh failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// BestRate picks the highest positive APY, preferring live entries.
func BestRate(rates []domain.RateEntry) *domain.RateEntry {
	var best, bestLive *domain.RateEntry
	for i := range rates {
		r := &rates[i]
		if r.APY <= 0 {
			continue
		}
		if best == nil || r.APY > best.APY {
			best = r
		}
		if r.IsLive() && (bestLive == nil || r.APY > bestLive.APY) {
			bestLive = r
		}
	}
	if bestLive != nil {
		out := *bestLive
		return &out
	}
	if best != nil {
		out := *best
		return &out
	}
	return nil
}

// SortByAPY orders rates highest first.
func SortByAPY(rates []domain.RateEntry) []domain.RateEntry {
	out := copyRates(rates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].APY > out[j].APY })
	return out
}

func anyLive(rates []domain.RateEntry) bool {
	for _, r := range rates {
		if r.IsLive() {
			return true
		}
	}
	return false
}

func copyRates(rates []domain.RateEntry) []domain.RateEntry {
	if rates == nil {
		return nil
	}
	out := make([]domain.RateEntry, len(rates))
	copy(out, rates)
	return out
}
