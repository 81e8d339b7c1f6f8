// Package main runs the vault session daemon:
// - Session: wallet connection, vault snapshot, operations
// - Watcher (continuous): account subscriptions trigger refreshes
// - Rates (scheduled): proxy fetch into the persisted cache
// - HTTP: view API and Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"autoyield-vault/internal/api"
	"autoyield-vault/internal/config"
	"autoyield-vault/internal/observability"
	"autoyield-vault/internal/rates"
	"autoyield-vault/internal/session"
	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/storage"
	badgerstore "autoyield-vault/internal/storage/badger"
	chstore "autoyield-vault/internal/storage/clickhouse"
	"autoyield-vault/internal/storage/memory"
	"autoyield-vault/internal/storage/migrations"
	pgstore "autoyield-vault/internal/storage/postgres"
	"autoyield-vault/internal/vault"
	"autoyield-vault/internal/wallet"
)

// stores holds the persistence backends chosen at startup.
type stores struct {
	operations storage.OperationStore
	snapshots  storage.SnapshotStore
	rateCache  storage.RateCacheStore
}

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ConfigureLogging()

	if err := daemon(cfg, run); err != nil {
		log.WithField("component", "vaultd").Fatalf("Server error: %v", err)
	}
	log.WithField("component", "vaultd").Info("Shutdown complete")
}

type runner func(ctx context.Context, cfg *config.Config, st *stores) error

// daemon opens the stores, serves with serve until a signal arrives or a
// component fails, and closes the stores before returning.
func daemon(cfg *config.Config, serve runner) error {
	logger := log.WithField("component", "vaultd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warnf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	return ignoreCanceled(serve(ctx, cfg, st))
}

// run wires the session and serves until ctx is done or a component fails.
func run(ctx context.Context, cfg *config.Config, st *stores) error {
	logger := log.WithField("component", "vaultd")

	rpcOpts := []solana.ClientOption{solana.WithObserver(observability.RecordRPCCall)}
	if cfg.RPCRateLimit > 0 {
		rpcOpts = append(rpcOpts, solana.WithRateLimit(cfg.RPCRateLimit))
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, rpcOpts...)

	builder, err := vault.NewBuilder(cfg.ProgramID, cfg.Authority, cfg.USDCMint)
	if err != nil {
		return fmt.Errorf("derive vault addresses: %w", err)
	}
	logger.WithFields(log.Fields{
		"program":  cfg.ProgramID,
		"metadata": builder.Addresses.Metadata,
		"custody":  builder.Addresses.Custody,
		"mint":     builder.Addresses.ReceiptMint,
	}).Info("vault addresses derived")

	walletSession := wallet.NewSession(8)
	ctrl, err := session.New(session.Config{
		Ledger:      vault.NewProgram(rpc, builder),
		Wallet:      walletSession,
		SettleDelay: cfg.SettleDelay,
		Operations:  st.operations,
		Snapshots:   st.snapshots,
		Logger:      log.WithField("component", "session"),
	})
	if err != nil {
		return err
	}

	rateClient := rates.NewClient(cfg.RatesURL)
	rateService := rates.NewService(rateClient, st.rateCache, cfg.RatesCacheTTL, cfg.RatesRefresh)

	server := api.NewServer(api.Options{
		Session:    ctrl,
		Ledger:     rpc,
		Rates:      rateService,
		Operations: st.operations,
		Snapshots:  st.snapshots,
		Cluster:    cfg.Cluster,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ctrl.Run(gctx, walletSession.Events())
		return nil
	})
	g.Go(func() error {
		observability.TrackUptime(gctx)
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(rateService.Run(gctx))
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.HTTPAddr)
	})
	g.Go(func() error {
		return serveMetrics(gctx, cfg.MetricsAddr)
	})

	if cfg.KeypairPath == "" {
		logger.Warn("no keypair configured, running read-only")
		return g.Wait()
	}

	kp, err := wallet.LoadKeypair(cfg.KeypairPath, rpc)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	if err := walletSession.Connect(gctx, kp); err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	logger.WithField("wallet", kp.PublicKey()).Info("wallet connected")

	if cfg.WSEndpoint != "" {
		g.Go(func() error {
			return watch(gctx, cfg.WSEndpoint, ctrl, builder, kp.PublicKey())
		})
	}

	return g.Wait()
}

// watch refreshes the session whenever the vault or the wallet's token
// accounts change.
func watch(ctx context.Context, endpoint string, ctrl *session.Controller, builder *vault.Builder, identity solana.PublicKey) error {
	ws, err := solana.DialAccountStream(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	ua, err := builder.UserAccounts(identity)
	if err != nil {
		return err
	}

	w := session.NewWatcher(ws, ctrl,
		builder.Addresses.Metadata,
		builder.Addresses.Custody,
		ua.USDC,
		ua.Receipt,
	)
	return ignoreCanceled(w.Run(ctx))
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting metrics server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// createStores picks Postgres and ClickHouse when their DSNs are set and the
// in-memory stores otherwise. The rate cache lives in badger under Datadir.
func createStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	st := &stores{
		operations: memory.NewOperationStore(),
		snapshots:  memory.NewSnapshotStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.operations = pgstore.NewOperationStore(pool)
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		st.snapshots = chstore.NewSnapshotStore(conn)
	}

	rateCache, err := badgerstore.NewRateCacheStore(cfg.Datadir, log.WithField("component", "badger"))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open rate cache: %w", err)
	}
	closers = append(closers, func() { rateCache.Close() })
	st.rateCache = rateCache

	return st, cleanup, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
