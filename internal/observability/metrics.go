// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Session metrics
	RefreshRuns      *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram
	OperationsTotal  *prometheus.CounterVec
	WalletEvents     *prometheus.CounterVec
	AccountUpdates   prometheus.Counter

	// Vault state gauges
	CustodyBalance prometheus.Gauge
	ReceiptSupply  prometheus.Gauge
	VaultExists    prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Rates metrics
	RateFetches   *prometheus.CounterVec
	RateCacheHits *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "autoyield_vault"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RefreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_runs_total",
			Help:      "Total number of refresh attempts by result",
		}, []string{"result"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of completed refreshes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Total number of vault operations by kind and result",
		}, []string{"kind", "result"}),
		WalletEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "wallet_events_total",
			Help:      "Total number of wallet connection events by type",
		}, []string{"event"}),
		AccountUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "account_updates_total",
			Help:      "Total number of account change notifications received",
		}),

		CustodyBalance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "custody_balance_usdc",
			Help:      "Custody balance recorded in vault metadata, in USDC",
		}),
		ReceiptSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "receipt_supply",
			Help:      "Receipt token supply recorded in vault metadata",
		}),
		VaultExists: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "exists",
			Help:      "1 when the vault metadata account exists",
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),

		RateFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "fetches_total",
			Help:      "Total number of protocol rate lookups by source",
		}, []string{"protocol", "source"}),
		RateCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "cache_lookups_total",
			Help:      "Total number of rate cache lookups by outcome",
		}, []string{"outcome"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh",
		}),
		UptimeSeconds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRefresh records a refresh attempt. result is one of
// "success", "error", "dropped" or "stale".
func RecordRefresh(result string, elapsed time.Duration) {
	DefaultMetrics.RefreshRuns.WithLabelValues(result).Inc()
	if result == "success" {
		DefaultMetrics.RefreshDuration.Observe(elapsed.Seconds())
		DefaultMetrics.LastSuccessfulRefresh.SetToCurrentTime()
	}
}

// RecordOperation records the outcome of a vault operation.
func RecordOperation(kind, result string) {
	DefaultMetrics.OperationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordWalletEvent records a wallet connection event.
func RecordWalletEvent(event string) {
	DefaultMetrics.WalletEvents.WithLabelValues(event).Inc()
}

// RecordAccountUpdate records an account change notification.
func RecordAccountUpdate() {
	DefaultMetrics.AccountUpdates.Inc()
}

// UpdateVaultState updates the vault state gauges.
func UpdateVaultState(exists bool, custodyUSDC, receiptSupply float64) {
	if !exists {
		DefaultMetrics.VaultExists.Set(0)
		DefaultMetrics.CustodyBalance.Set(0)
		DefaultMetrics.ReceiptSupply.Set(0)
		return
	}
	DefaultMetrics.VaultExists.Set(1)
	DefaultMetrics.CustodyBalance.Set(custodyUSDC)
	DefaultMetrics.ReceiptSupply.Set(receiptSupply)
}

// RecordRPCCall records RPC call latency. It matches solana.CallObserver.
func RecordRPCCall(method string, elapsed time.Duration, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordRateFetch records where a protocol rate came from.
func RecordRateFetch(protocol, source string) {
	DefaultMetrics.RateFetches.WithLabelValues(protocol, source).Inc()
}

// RecordRateCache records a rate cache lookup ("hit", "miss" or "corrupt").
func RecordRateCache(outcome string) {
	DefaultMetrics.RateCacheHits.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// TrackUptime increments the uptime counter every second until ctx is done.
func TrackUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			DefaultMetrics.UptimeSeconds.Inc()
		}
	}
}
