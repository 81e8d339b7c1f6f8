package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/rates"
	"autoyield-vault/internal/session"
	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/vault"
)

const (
	defaultHistoryLimit  = 20
	defaultHistoryWindow = 24 * time.Hour
)

// vaultView is the session state with derived display figures.
type vaultView struct {
	session.State
	ExchangeRate string `json:"exchangeRate"`
	ReceiptValue string `json:"receiptValue"`
	ExplorerURL  string `json:"explorerUrl,omitempty"`
}

func (s *Server) view() vaultView {
	st := s.session.State()
	v := vaultView{
		State:        st,
		ExchangeRate: st.Snapshot.ExchangeRate().StringFixed(vault.Decimals),
		ReceiptValue: vault.FormatAmount(st.Balances.ReceiptValue(st.Snapshot)),
	}
	if st.LastSignature != "" {
		v.ExplorerURL = solana.ExplorerURL(st.LastSignature, s.cluster)
	}
	return v
}

func (s *Server) handleVault(c *gin.Context) {
	c.JSON(http.StatusOK, s.view())
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.session.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, s.view())
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleInitialize(c *gin.Context) {
	s.respondOutcome(c, s.session.Initialize(c.Request.Context()))
}

func (s *Server) handleFixAuthorities(c *gin.Context) {
	s.respondOutcome(c, s.session.FixAuthorities(c.Request.Context()))
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.respondOutcome(c, s.session.Deposit(c.Request.Context(), req.Amount))
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.respondOutcome(c, s.session.Withdraw(c.Request.Context(), req.Amount))
}

// respondOutcome maps an operation outcome to a status code and returns it
// together with the refreshed session view.
func (s *Server) respondOutcome(c *gin.Context, out session.Outcome) {
	status := http.StatusOK
	switch {
	case out.Skipped:
		status = http.StatusConflict
	case out.Err != nil:
		status = statusForKind(out.Err.Kind)
	}
	c.JSON(status, gin.H{"outcome": out, "vault": s.view()})
}

func statusForKind(kind session.ErrorKind) int {
	switch kind {
	case session.KindValidation:
		return http.StatusBadRequest
	case session.KindAuthorization:
		return http.StatusForbidden
	case session.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleDismissError(c *gin.Context) {
	s.session.DismissError()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearSignature(c *gin.Context) {
	s.session.ClearSignature()
	c.Status(http.StatusNoContent)
}

// handleHistory returns the connected wallet's journaled operations and its
// snapshot points within the requested window.
func (s *Server) handleHistory(c *gin.Context) {
	st := s.session.State()
	if st.Identity == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "wallet not connected"})
		return
	}
	if s.ops == nil && s.snaps == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not configured"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	window := defaultHistoryWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
			return
		}
		window = d
	}

	ctx := c.Request.Context()
	wallet := st.Identity.String()
	resp := historyResponse{Wallet: wallet, Operations: []operationView{}, Snapshots: []snapshotView{}}

	if s.ops != nil {
		ops, err := s.ops.GetByWallet(ctx, wallet, limit)
		if err != nil {
			log.WithError(err).Warn("failed to load operation history")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load operations"})
			return
		}
		for _, op := range ops {
			resp.Operations = append(resp.Operations, toOperationView(op, s.cluster))
		}
	}

	if s.snaps != nil {
		end := s.now().UnixMilli()
		points, err := s.snaps.GetByTimeRange(ctx, wallet, end-window.Milliseconds(), end)
		if err != nil {
			log.WithError(err).Warn("failed to load snapshot history")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshots"})
			return
		}
		for _, p := range points {
			resp.Snapshots = append(resp.Snapshots, toSnapshotView(p))
		}
	}

	c.JSON(http.StatusOK, resp)
}

type historyResponse struct {
	Wallet     string          `json:"wallet"`
	Operations []operationView `json:"operations"`
	Snapshots  []snapshotView  `json:"snapshots"`
}

type operationView struct {
	ID          string               `json:"id"`
	Kind        domain.OperationKind `json:"kind"`
	Status      string               `json:"status"`
	Amount      string               `json:"amount"`
	Signature   string               `json:"signature,omitempty"`
	ExplorerURL string               `json:"explorerUrl,omitempty"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func toOperationView(op *domain.OperationRecord, cluster string) operationView {
	v := operationView{
		ID:        op.OperationID,
		Kind:      op.Kind,
		Status:    string(op.Status),
		Amount:    vault.FormatAmount(vault.FromBaseUnits(op.Amount)),
		CreatedAt: time.UnixMilli(op.CreatedAt).UTC(),
	}
	if op.Signature != nil {
		v.Signature = *op.Signature
		v.ExplorerURL = solana.ExplorerURL(*op.Signature, cluster)
	}
	if op.Error != nil {
		v.Error = *op.Error
	}
	return v
}

type snapshotView struct {
	Time           time.Time `json:"time"`
	VaultExists    bool      `json:"vaultExists"`
	CustodyBalance string    `json:"custodyBalance"`
	ReceiptSupply  string    `json:"receiptSupply"`
	USDC           string    `json:"usdc"`
	Receipt        string    `json:"receipt"`
}

func toSnapshotView(p *domain.VaultSnapshotPoint) snapshotView {
	return snapshotView{
		Time:           time.UnixMilli(p.TimestampMs).UTC(),
		VaultExists:    p.VaultExists,
		CustodyBalance: vault.FormatAmount(vault.FromBaseUnits(p.CustodyBalance)),
		ReceiptSupply:  vault.FormatAmount(vault.FromBaseUnits(p.ReceiptSupply)),
		USDC:           vault.FormatAmount(vault.FromBaseUnits(p.UserUSDC)),
		Receipt:        vault.FormatAmount(vault.FromBaseUnits(p.UserReceipt)),
	}
}

func (s *Server) handleRates(c *gin.Context) {
	if s.rates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rates not configured"})
		return
	}
	force := c.Query("refresh") == "true"
	list, err := s.rates.Rates(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rates.SortByAPY(list)})
}

func (s *Server) handleBestRate(c *gin.Context) {
	if s.rates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rates not configured"})
		return
	}
	best, err := s.rates.Best(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if best == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no rates available"})
		return
	}
	c.JSON(http.StatusOK, best)
}

func (s *Server) handlePools(c *gin.Context) {
	if s.rates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rates not configured"})
		return
	}
	pools, err := s.rates.Pools(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pools)
}

// handleRoute recommends an aggregator for ?amount= using the current rates
// when available.
func (s *Server) handleRoute(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	amt := amount.InexactFloat64()

	router := rates.DefaultRouter()
	if s.rates != nil {
		if list, err := s.rates.Rates(c.Request.Context(), false); err == nil {
			router = router.WithRates(list)
		}
	}

	route := router.RoutingInstructions(amt)
	if route == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no aggregator accepts this amount"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"route":           route,
		"recommendations": router.Recommendations(amt),
	})
}
