// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/vault"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "AUTOYIELD"

const (
	// RPCEndpointKey is the Solana JSON-RPC HTTP endpoint.
	RPCEndpointKey = "RPC_ENDPOINT"
	// WSEndpointKey is the Solana WebSocket endpoint used for account watches.
	WSEndpointKey = "WS_ENDPOINT"
	// ProgramIDKey is the deployed vault program id. Required.
	ProgramIDKey = "PROGRAM_ID"
	// AuthorityKey is the vault owner whose key seeds the vault addresses.
	AuthorityKey = "VAULT_AUTHORITY"
	// USDCMintKey is the deposit token mint.
	USDCMintKey = "USDC_MINT"
	// ClusterKey selects the explorer cluster for signature links.
	ClusterKey = "CLUSTER"
	// SettleDelayKey is the wait between a submitted operation and the re-fetch.
	SettleDelayKey = "SETTLE_DELAY"
	// KeypairPathKey points at a solana-keygen JSON keypair. Empty runs read-only.
	KeypairPathKey = "KEYPAIR_PATH"
	// RatesURLKey is the base URL of the rate aggregation proxy.
	RatesURLKey = "RATES_URL"
	// RatesCacheTTLKey is how long fetched rates stay fresh.
	RatesCacheTTLKey = "RATES_CACHE_TTL"
	// RatesRefreshKey is the forced rate refresh interval.
	RatesRefreshKey = "RATES_REFRESH_INTERVAL"
	// DatadirKey stores the rate cache. Empty keeps it in memory.
	DatadirKey = "DATADIR"
	// PostgresDSNKey enables the Postgres operation journal.
	PostgresDSNKey = "POSTGRES_DSN"
	// ClickHouseDSNKey enables ClickHouse snapshot history.
	ClickHouseDSNKey = "CLICKHOUSE_DSN"
	// HTTPAddrKey is the listen address of the view API.
	HTTPAddrKey = "HTTP_ADDR"
	// MetricsAddrKey is the listen address of the Prometheus endpoint.
	MetricsAddrKey = "METRICS_ADDR"
	// RPCRateLimitKey caps outgoing RPC requests per second. 0 disables.
	RPCRateLimitKey = "RPC_RATE_LIMIT"
	// LogLevelKey is a logrus level name.
	LogLevelKey = "LOG_LEVEL"
)

// Config holds validated settings.
type Config struct {
	RPCEndpoint   string
	WSEndpoint    string
	ProgramID     solana.PublicKey
	Authority     solana.PublicKey
	USDCMint      solana.PublicKey
	Cluster       string
	SettleDelay   time.Duration
	KeypairPath   string
	RatesURL      string
	RatesCacheTTL time.Duration
	RatesRefresh  time.Duration
	Datadir       string
	PostgresDSN   string
	ClickHouseDSN string
	HTTPAddr      string
	MetricsAddr   string
	RPCRateLimit  int
	LogLevel      logrus.Level
}

// Load reads .env files when present, then the AUTOYIELD_* environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// Missing files are fine; the environment may carry everything.
	_ = godotenv.Load(envFiles...)

	vip := viper.New()
	vip.SetEnvPrefix(EnvPrefix)
	vip.AutomaticEnv()
	setDefaults(vip)

	return fromViper(vip)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault(RPCEndpointKey, "https://api.devnet.solana.com")
	vip.SetDefault(WSEndpointKey, "wss://api.devnet.solana.com")
	vip.SetDefault(AuthorityKey, vault.DefaultAuthority.String())
	vip.SetDefault(USDCMintKey, vault.DefaultUSDCMint.String())
	vip.SetDefault(ClusterKey, "devnet")
	vip.SetDefault(SettleDelayKey, "2s")
	vip.SetDefault(KeypairPathKey, "")
	vip.SetDefault(RatesURLKey, "http://localhost:3001")
	vip.SetDefault(RatesCacheTTLKey, "15m")
	vip.SetDefault(RatesRefreshKey, "1h")
	vip.SetDefault(DatadirKey, "")
	vip.SetDefault(PostgresDSNKey, "")
	vip.SetDefault(ClickHouseDSNKey, "")
	vip.SetDefault(HTTPAddrKey, ":8080")
	vip.SetDefault(MetricsAddrKey, ":9090")
	vip.SetDefault(RPCRateLimitKey, 10)
	vip.SetDefault(LogLevelKey, "info")
}

func fromViper(vip *viper.Viper) (*Config, error) {
	programID := strings.TrimSpace(vip.GetString(ProgramIDKey))
	if programID == "" {
		return nil, fmt.Errorf("missing %s_%s", EnvPrefix, ProgramIDKey)
	}

	cfg := &Config{
		RPCEndpoint:   vip.GetString(RPCEndpointKey),
		WSEndpoint:    vip.GetString(WSEndpointKey),
		Cluster:       vip.GetString(ClusterKey),
		SettleDelay:   vip.GetDuration(SettleDelayKey),
		KeypairPath:   vip.GetString(KeypairPathKey),
		RatesURL:      strings.TrimRight(vip.GetString(RatesURLKey), "/"),
		RatesCacheTTL: vip.GetDuration(RatesCacheTTLKey),
		RatesRefresh:  vip.GetDuration(RatesRefreshKey),
		Datadir:       vip.GetString(DatadirKey),
		PostgresDSN:   vip.GetString(PostgresDSNKey),
		ClickHouseDSN: vip.GetString(ClickHouseDSNKey),
		HTTPAddr:      vip.GetString(HTTPAddrKey),
		MetricsAddr:   vip.GetString(MetricsAddrKey),
		RPCRateLimit:  vip.GetInt(RPCRateLimitKey),
	}

	var err error
	if cfg.ProgramID, err = solana.ParsePublicKey(programID); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ProgramIDKey, err)
	}
	if cfg.Authority, err = solana.ParsePublicKey(vip.GetString(AuthorityKey)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", AuthorityKey, err)
	}
	if cfg.USDCMint, err = solana.ParsePublicKey(vip.GetString(USDCMintKey)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", USDCMintKey, err)
	}
	if cfg.LogLevel, err = logrus.ParseLevel(strings.ToLower(vip.GetString(LogLevelKey))); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", LogLevelKey, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RPCEndpoint == "" {
		return errors.New("missing rpc endpoint")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("%s must not be negative", SettleDelayKey)
	}
	if c.RatesCacheTTL <= 0 {
		return fmt.Errorf("%s must be positive", RatesCacheTTLKey)
	}
	if c.RatesRefresh <= 0 {
		return fmt.Errorf("%s must be positive", RatesRefreshKey)
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("%s must not be negative", RPCRateLimitKey)
	}
	return nil
}

// ConfigureLogging applies the log level and text formatter to the standard logger.
func (c *Config) ConfigureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(c.LogLevel)
}
