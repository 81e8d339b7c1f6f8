package domain

// Rate sources reported by the aggregation proxy.
const (
	RateSourceFallback = "fallback"
)

// RateEntry is one protocol's advertised yield.
type RateEntry struct {
	Name         string   `json:"name,omitempty"`
	Protocol     string   `json:"protocol"`
	APY          float64  `json:"apy"`
	Source       string   `json:"source"`
	Error        string   `json:"error,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
	ThirtyDayAPY *float64 `json:"thirtyDayApy,omitempty"`
}

// IsLive reports whether the figure came from a live data source.
func (r RateEntry) IsLive() bool {
	return r.Source != RateSourceFallback && r.Error == ""
}

// RateCacheEntry is the persisted rate list with its expiry.
type RateCacheEntry struct {
	Key       string      `json:"key"`
	Rates     []RateEntry `json:"data"`
	FetchedAt int64       `json:"timestamp"` // Unix ms
	ExpiresAt int64       `json:"expiry"`    // Unix ms
}

// Expired reports whether the entry is stale at nowMs.
func (e *RateCacheEntry) Expired(nowMs int64) bool {
	return nowMs >= e.ExpiresAt
}

// PoolEntry is one USDC lending/LP pool reported by the proxy.
type PoolEntry struct {
	Symbol  string  `json:"symbol"`
	Project string  `json:"project"`
	APY     float64 `json:"apy"`
	Pool    string  `json:"pool"`
	Chain   string  `json:"chain"`
	TVLUSD  float64 `json:"tvlUsd"`
}

// PoolSummary is the proxy's USDC pool listing.
type PoolSummary struct {
	Pools     []PoolEntry `json:"usdcPools"`
	Best      *PoolEntry  `json:"bestPool,omitempty"`
	Source    string      `json:"source"`
	Timestamp string      `json:"timestamp"`
}
