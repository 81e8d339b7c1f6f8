// Package api serves the vault session and yield figures over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/observability"
	"autoyield-vault/internal/session"
	"autoyield-vault/internal/storage"
)

// VaultSession is the controller surface exposed over HTTP.
type VaultSession interface {
	State() session.State
	Refresh(ctx context.Context)
	Initialize(ctx context.Context) session.Outcome
	FixAuthorities(ctx context.Context) session.Outcome
	Deposit(ctx context.Context, amountText string) session.Outcome
	Withdraw(ctx context.Context, amountText string) session.Outcome
	DismissError()
	ClearSignature()
}

// RateService provides cached yield figures.
type RateService interface {
	Rates(ctx context.Context, force bool) ([]domain.RateEntry, error)
	Best(ctx context.Context) (*domain.RateEntry, error)
	Pools(ctx context.Context) (*domain.PoolSummary, error)
}

// SlotSource reports the ledger's current slot.
type SlotSource interface {
	GetSlot(ctx context.Context) (int64, error)
}

// Options configures Server. Rates, Operations and Snapshots are optional;
// their routes answer 503 when unset. Without Ledger /health does not probe
// the RPC node.
type Options struct {
	Session    VaultSession
	Ledger     SlotSource
	Rates      RateService
	Operations storage.OperationStore
	Snapshots  storage.SnapshotStore
	Cluster    string
	Now        func() time.Time
}

// Server is the HTTP front of one vault session.
type Server struct {
	session VaultSession
	ledger  SlotSource
	rates   RateService
	ops     storage.OperationStore
	snaps   storage.SnapshotStore
	cluster string
	now     func() time.Time

	engine *gin.Engine
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	s := &Server{
		session: opts.Session,
		ledger:  opts.Ledger,
		rates:   opts.Rates,
		ops:     opts.Operations,
		snaps:   opts.Snapshots,
		cluster: opts.Cluster,
		now:     opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/vault", s.handleVault)
	v1.GET("/history", s.handleHistory)
	v1.GET("/rates", s.handleRates)
	v1.GET("/rates/best", s.handleBestRate)
	v1.GET("/rates/pools", s.handlePools)
	v1.GET("/rates/route", s.handleRoute)

	v1.POST("/refresh", s.handleRefresh)
	v1.POST("/initialize", s.handleInitialize)
	v1.POST("/fix-authorities", s.handleFixAuthorities)
	v1.POST("/deposit", s.handleDeposit)
	v1.POST("/withdraw", s.handleWithdraw)

	v1.DELETE("/error", s.handleDismissError)
	v1.DELETE("/signature", s.handleClearSignature)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server is running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("http request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.ledger == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	slot, err := s.ledger.GetSlot(ctx)
	if err != nil {
		log.WithError(err).Warn("rpc health probe failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "slot": slot})
}
