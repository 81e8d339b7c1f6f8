// Package rates reads informational yield figures from the rate
// aggregation proxy, caches them and ranks yield aggregators.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/observability"
)

// Protocol is a rate source known to the proxy.
type Protocol struct {
	Name        string
	Protocol    string
	FallbackAPY float64
}

// DefaultProtocols are the protocols queried when the proxy's combined
// endpoint is unavailable.
var DefaultProtocols = []Protocol{
	{Name: "Tulip Garden", Protocol: "tulip", FallbackAPY: 8.5},
	{Name: "Francium", Protocol: "francium", FallbackAPY: 5.0},
	{Name: "Kamino Finance", Protocol: "kamino", FallbackAPY: 10.1},
	{Name: "Solend", Protocol: "solend", FallbackAPY: 7.8},
}

// DefaultTimeout bounds a single proxy request.
const DefaultTimeout = 15 * time.Second

// Client talks to the rate aggregation proxy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	protocols  []Protocol
	log        *logrus.Entry
	now        func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithProtocols replaces DefaultProtocols.
func WithProtocols(protocols []Protocol) ClientOption {
	return func(c *Client) {
		c.protocols = protocols
	}
}

// WithClock sets the time source for fallback timestamps.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a proxy client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		protocols:  DefaultProtocols,
		log:        logrus.WithField("component", "rates"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = newCircuitBreaker(c.log)
	return c
}

func newCircuitBreaker(log *logrus.Entry) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rates-proxy",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("rate proxy seems down, stop allowing requests")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				log.Info("checking rate proxy status")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				log.Info("rate proxy seems ok, restart allowing requests")
			}
		},
	})
}

// apyResponse is the proxy's per-protocol payload.
type apyResponse struct {
	Protocol     string   `json:"protocol"`
	APY          float64  `json:"apy"`
	Source       string   `json:"source"`
	Timestamp    string   `json:"timestamp"`
	Error        string   `json:"error,omitempty"`
	ThirtyDayAPY *float64 `json:"thirtyDayApy,omitempty"`
}

type allAPYResponse struct {
	Data      []apyResponse `json:"data"`
	Timestamp string        `json:"timestamp"`
}

// Rates returns one entry per protocol. It tries the combined endpoint,
// then per-protocol endpoints, and finally the static fallback figure for
// each protocol that could not be fetched. It never fails.
func (c *Client) Rates(ctx context.Context) []domain.RateEntry {
	entries, err := c.FetchAll(ctx)
	if err == nil {
		return entries
	}
	c.log.WithError(err).Warn("combined rate fetch failed, falling back to individual requests")

	out := make([]domain.RateEntry, len(c.protocols))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range c.protocols {
		g.Go(func() error {
			entry, err := c.FetchProtocol(gctx, p)
			if err != nil {
				c.log.WithError(err).WithField("protocol", p.Protocol).Warn("rate fetch failed, using fallback")
				entry = c.fallback(p)
			}
			observability.RecordRateFetch(p.Protocol, entry.Source)
			out[i] = entry
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// FetchAll reads every protocol from the combined endpoint.
func (c *Client) FetchAll(ctx context.Context) ([]domain.RateEntry, error) {
	var resp allAPYResponse
	if err := c.getJSON(ctx, "/api/all-apys", &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, errors.New("all-apys response has no data")
	}

	out := make([]domain.RateEntry, 0, len(resp.Data))
	for _, r := range resp.Data {
		p, _ := c.lookup(r.Protocol)
		entry := toEntry(r, p)
		observability.RecordRateFetch(r.Protocol, entry.Source)
		out = append(out, entry)
	}
	return out, nil
}

// FetchProtocol reads one protocol's endpoint.
func (c *Client) FetchProtocol(ctx context.Context, p Protocol) (domain.RateEntry, error) {
	var resp apyResponse
	if err := c.getJSON(ctx, "/api/"+p.Protocol, &resp); err != nil {
		return domain.RateEntry{}, err
	}
	if resp.Protocol == "" {
		resp.Protocol = p.Protocol
	}
	return toEntry(resp, p), nil
}

// FetchPools reads the proxy's USDC pool listing.
func (c *Client) FetchPools(ctx context.Context) (*domain.PoolSummary, error) {
	var summary domain.PoolSummary
	if err := c.getJSON(ctx, "/api/usdc-apy", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) lookup(protocol string) (Protocol, bool) {
	for _, p := range c.protocols {
		if p.Protocol == protocol {
			return p, true
		}
	}
	return Protocol{Name: protocol, Protocol: protocol}, false
}

func (c *Client) fallback(p Protocol) domain.RateEntry {
	return domain.RateEntry{
		Name:      p.Name,
		Protocol:  p.Protocol,
		APY:       p.FallbackAPY,
		Source:    domain.RateSourceFallback,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
}

// toEntry substitutes the fallback figure for a zero APY.
func toEntry(r apyResponse, p Protocol) domain.RateEntry {
	apy := r.APY
	if apy == 0 {
		apy = p.FallbackAPY
	}
	return domain.RateEntry{
		Name:         p.Name,
		Protocol:     r.Protocol,
		APY:          apy,
		Source:       r.Source,
		Error:        r.Error,
		Timestamp:    r.Timestamp,
		ThirtyDayAPY: r.ThirtyDayAPY,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return nil, nil
	})
	return err
}
