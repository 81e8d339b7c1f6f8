package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/observability"
	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/storage"
	"autoyield-vault/internal/vault"
)

// DefaultSettleDelay is the wait between a submitted operation and the
// follow-up refresh.
const DefaultSettleDelay = 2 * time.Second

// Config holds controller dependencies.
type Config struct {
	Ledger Ledger
	Wallet Wallet

	// SettleDelay defaults to DefaultSettleDelay when not positive.
	SettleDelay time.Duration

	// Operations and Snapshots are optional. Write failures are logged only.
	Operations storage.OperationStore
	Snapshots  storage.SnapshotStore

	Logger *logrus.Entry
	Now    func() time.Time
}

// Controller owns the vault snapshot, wallet balances and session flags of
// one wallet session. All methods are safe for concurrent use.
type Controller struct {
	ledger      Ledger
	wallet      Wallet
	authority   solana.PublicKey
	settleDelay time.Duration
	ops         storage.OperationStore
	snaps       storage.SnapshotStore
	log         *logrus.Entry
	now         func() time.Time

	mu         sync.RWMutex
	state      State
	loaded     bool   // a refresh has completed for the current identity
	generation uint64 // bumped on every identity change
	inflight   int    // running mutating operations

	refreshing atomic.Bool
}

// New creates a controller in the disconnected state.
func New(cfg Config) (*Controller, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("session: ledger is required")
	}
	builder := cfg.Ledger.Builder()
	if builder == nil {
		return nil, errors.New("session: ledger has no instruction builder")
	}

	c := &Controller{
		ledger:      cfg.Ledger,
		wallet:      cfg.Wallet,
		authority:   builder.Authority,
		settleDelay: cfg.SettleDelay,
		ops:         cfg.Operations,
		snaps:       cfg.Snapshots,
		log:         cfg.Logger,
		now:         cfg.Now,
		state:       State{Connection: Disconnected},
	}
	if c.settleDelay <= 0 {
		c.settleDelay = DefaultSettleDelay
	}
	if c.log == nil {
		c.log = logrus.WithField("component", "session")
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	if s.Snapshot != nil {
		snap := *s.Snapshot
		s.Snapshot = &snap
	}
	return s
}

// DismissError clears the active error message.
func (c *Controller) DismissError() {
	c.mu.Lock()
	c.state.Error = ""
	c.state.ErrorKind = ""
	c.mu.Unlock()
}

// ClearSignature clears the last operation signature.
func (c *Controller) ClearSignature() {
	c.mu.Lock()
	c.state.LastSignature = ""
	c.mu.Unlock()
}

// HandleEvent applies a wallet connection change.
func (c *Controller) HandleEvent(ctx context.Context, ev WalletEvent) {
	observability.RecordWalletEvent(string(ev.State))

	c.mu.Lock()
	switch ev.State {
	case Disconnected:
		c.generation++
		c.loaded = false
		c.state = State{Connection: Disconnected}
		c.mu.Unlock()
		observability.UpdateVaultState(false, 0, 0)
		c.log.Info("wallet disconnected")
		return

	case Connecting:
		c.state.Connection = Connecting
		c.mu.Unlock()
		return

	case Connected:
		if c.state.Identity == nil || !c.state.Identity.Equals(ev.Identity) {
			c.generation++
			c.loaded = false
			id := ev.Identity
			c.state = State{
				Connection:   Connected,
				Identity:     &id,
				Initializing: true,
				IsVaultOwner: id.Equals(c.authority),
				Loading:      c.inflight > 0,
			}
			c.log.WithField("wallet", id.String()).Info("wallet connected")
		} else {
			c.state.Connection = Connected
		}
		needsLoad := !c.loaded
		c.mu.Unlock()

		if needsLoad {
			c.Refresh(ctx)
		}
		return

	default:
		c.mu.Unlock()
		c.log.WithField("state", ev.State).Warn("ignoring unknown wallet event")
	}
}

// Run applies wallet events until ctx is done or events is closed.
func (c *Controller) Run(ctx context.Context, events <-chan WalletEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(ctx, ev)
		}
	}
}

// Refresh reloads the vault snapshot and wallet balances. A call made while
// another refresh runs is dropped. Fetch failures are logged and leave the
// previous state in place.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.state.Connection != Connected || c.state.Identity == nil {
		c.mu.Unlock()
		return
	}
	identity := *c.state.Identity
	gen := c.generation
	c.state.IsVaultOwner = identity.Equals(c.authority)
	c.mu.Unlock()

	if !c.refreshing.CompareAndSwap(false, true) {
		observability.RecordRefresh("dropped", 0)
		return
	}

	start := c.now()
	snap, bal, err := c.load(ctx, identity)

	c.mu.Lock()
	stale := gen != c.generation
	if !stale {
		c.loaded = true
		c.state.Initializing = false
		if err == nil {
			c.state.Snapshot = snap
			c.state.Balances = bal
		}
	}
	c.mu.Unlock()
	c.refreshing.Store(false)

	switch {
	case stale:
		observability.RecordRefresh("stale", 0)
		c.log.WithField("wallet", identity.String()).Debug("discarding refresh for previous wallet")
		// The current identity's own refresh may have been dropped while
		// this one ran.
		c.Refresh(ctx)
	case err != nil:
		observability.RecordRefresh("error", 0)
		c.log.WithError(err).WithField("wallet", identity.String()).Warn("refresh failed")
	default:
		observability.RecordRefresh("success", c.now().Sub(start))
		c.recordSnapshot(ctx, identity, snap, bal)
	}
}

func (c *Controller) load(ctx context.Context, identity solana.PublicKey) (*Snapshot, Balances, error) {
	builder := c.ledger.Builder()
	bal := Balances{USDC: decimal.Zero, Receipt: decimal.Zero}

	meta, err := c.ledger.FetchMetadata(ctx)
	if err != nil {
		return nil, bal, err
	}
	var snap *Snapshot
	if meta != nil {
		snap = snapshotFromMetadata(meta)
	}

	usdcAccount, err := solana.FindAssociatedTokenAddress(identity, builder.USDCMint)
	if err != nil {
		return nil, bal, err
	}
	if bal.USDC, err = c.tokenBalance(ctx, usdcAccount); err != nil {
		return nil, bal, err
	}

	if snap != nil {
		receiptAccount, err := solana.FindAssociatedTokenAddress(identity, snap.ReceiptMint)
		if err != nil {
			return nil, bal, err
		}
		if bal.Receipt, err = c.tokenBalance(ctx, receiptAccount); err != nil {
			return nil, bal, err
		}
	}
	return snap, bal, nil
}

func (c *Controller) tokenBalance(ctx context.Context, address solana.PublicKey) (decimal.Decimal, error) {
	acct, err := c.ledger.FetchTokenAccount(ctx, address)
	if errors.Is(err, solana.ErrAccountNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return vault.FromBaseUnits(acct.Amount), nil
}

func (c *Controller) recordSnapshot(ctx context.Context, identity solana.PublicKey, snap *Snapshot, bal Balances) {
	p := &domain.VaultSnapshotPoint{
		Wallet:      identity.String(),
		TimestampMs: c.now().UnixMilli(),
		VaultExists: snap != nil,
		UserUSDC:    vault.ToBaseUnits(bal.USDC),
		UserReceipt: vault.ToBaseUnits(bal.Receipt),
	}
	if snap != nil {
		p.CustodyBalance = vault.ToBaseUnits(snap.CustodyBalance)
		p.ReceiptSupply = vault.ToBaseUnits(snap.ReceiptSupply)
		p.LastDepositTime = snap.LastDepositTime.Unix()
		observability.UpdateVaultState(true, snap.CustodyBalance.InexactFloat64(), snap.ReceiptSupply.InexactFloat64())
	} else {
		observability.UpdateVaultState(false, 0, 0)
	}

	if c.snaps == nil {
		return
	}
	if err := c.snaps.Insert(ctx, p); err != nil {
		c.log.WithError(err).Warn("failed to record vault snapshot")
	}
}

// Initialize creates the vault accounts. Only the vault authority may call it.
func (c *Controller) Initialize(ctx context.Context) Outcome {
	a, ok := c.begin(domain.OperationInitialize, OpInitialize, nil)
	if !ok {
		return Outcome{Skipped: true}
	}
	if !a.identity.Equals(c.authority) {
		return c.reject(ctx, a, authorizationError(OpInitialize, MsgNotOwnerInitialize))
	}

	c.startLoading()
	defer c.stopLoading()

	builder := c.ledger.Builder()
	tx := solana.NewTransaction(a.identity, builder.Initialize())
	return c.submit(ctx, a, tx)
}

// FixAuthorities reassigns the custody and mint authorities to the vault.
// Only the vault authority may call it; repeating it is harmless.
func (c *Controller) FixAuthorities(ctx context.Context) Outcome {
	a, ok := c.begin(domain.OperationFixAuthorities, OpFixAuthorities, nil)
	if !ok {
		return Outcome{Skipped: true}
	}
	if !a.identity.Equals(c.authority) {
		return c.reject(ctx, a, authorizationError(OpFixAuthorities, MsgNotOwnerFixAuthorities))
	}

	c.startLoading()
	defer c.stopLoading()

	builder := c.ledger.Builder()
	tx := solana.NewTransaction(a.identity, builder.FixAuthorities(a.identity))
	return c.submit(ctx, a, tx)
}

// Deposit moves amountText USDC from the wallet into the vault. The wallet
// balance is checked first, and the receipt token account is created in
// the same transaction when missing.
func (c *Controller) Deposit(ctx context.Context, amountText string) Outcome {
	a, ok := c.begin(domain.OperationDeposit, OpDeposit, nil)
	if !ok {
		return Outcome{Skipped: true}
	}
	amount, units, opErr := parseUnits(amountText)
	if opErr != nil {
		return c.reject(ctx, a, opErr)
	}
	a.units = units

	c.startLoading()
	defer c.stopLoading()

	builder := c.ledger.Builder()
	ua, err := builder.UserAccounts(a.identity)
	if err != nil {
		return c.fail(ctx, a, submissionError(OpDeposit, err))
	}

	usdc, err := c.ledger.FetchTokenAccount(ctx, ua.USDC)
	switch {
	case errors.Is(err, solana.ErrAccountNotFound):
		return c.reject(ctx, a, insufficientBalanceError(MsgNoUSDCAccount))
	case err != nil:
		return c.fail(ctx, a, &OpError{
			Kind:    KindSubmission,
			Op:      OpDeposit,
			Message: "Error checking USDC balance: " + err.Error(),
			Err:     err,
		})
	}

	available := vault.FromBaseUnits(usdc.Amount)
	if available.LessThan(amount) {
		msg := fmt.Sprintf("Insufficient USDC balance. You have %s USDC but trying to deposit %s USDC",
			vault.FormatAmount(available), amount.String())
		return c.reject(ctx, a, insufficientBalanceError(msg))
	}

	tx := solana.NewTransaction(a.identity, builder.Deposit(a.identity, ua, units))
	_, err = c.ledger.FetchTokenAccount(ctx, ua.Receipt)
	switch {
	case errors.Is(err, solana.ErrAccountNotFound):
		tx.Prepend(builder.CreateReceiptAccount(a.identity, ua))
	case err != nil:
		return c.fail(ctx, a, submissionError(OpDeposit, err))
	}

	return c.submit(ctx, a, tx)
}

// Withdraw redeems amountText worth of receipt tokens. It does nothing while
// the vault is absent. Sufficiency is left to the program.
func (c *Controller) Withdraw(ctx context.Context, amountText string) Outcome {
	a, ok := c.begin(domain.OperationWithdraw, OpWithdraw, func(s *State) bool {
		return s.Snapshot != nil
	})
	if !ok {
		return Outcome{Skipped: true}
	}

	_, units, opErr := parseUnits(amountText)
	if opErr != nil {
		return c.reject(ctx, a, opErr)
	}
	a.units = units

	c.startLoading()
	defer c.stopLoading()

	builder := c.ledger.Builder()
	ua, err := builder.UserAccounts(a.identity)
	if err != nil {
		return c.fail(ctx, a, submissionError(OpWithdraw, err))
	}

	tx := solana.NewTransaction(a.identity, builder.Withdraw(a.identity, ua, units))
	return c.submit(ctx, a, tx)
}

// parseUnits validates amount text and converts it to base units. Amounts
// finer than the token precision that floor to zero are rejected.
func parseUnits(text string) (decimal.Decimal, uint64, *OpError) {
	amount, err := vault.ParseAmount(text)
	if err != nil {
		return decimal.Zero, 0, validationError(err)
	}
	units := vault.ToBaseUnits(amount)
	if units == 0 {
		return decimal.Zero, 0, validationError(&vault.ValidationError{Reason: vault.ReasonNotPositive})
	}
	return amount, units, nil
}

// attempt is one operation call, bound to the session that started it.
type attempt struct {
	kind     domain.OperationKind
	op       string
	identity solana.PublicKey
	gen      uint64
	units    uint64
}

// begin binds an attempt to the connected session and clears the previous
// result. When ready is set and reports false, the state is left untouched.
func (c *Controller) begin(kind domain.OperationKind, op string, ready func(*State) bool) (*attempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wallet == nil || c.state.Connection != Connected || c.state.Identity == nil {
		return nil, false
	}
	if ready != nil && !ready(&c.state) {
		return nil, false
	}
	c.state.LastSignature = ""
	c.state.Error = ""
	c.state.ErrorKind = ""
	return &attempt{kind: kind, op: op, identity: *c.state.Identity, gen: c.generation}, true
}

// apply runs fn under the state lock if a's session is still current.
func (c *Controller) apply(a *attempt, fn func(s *State)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.gen != c.generation {
		return false
	}
	fn(&c.state)
	return true
}

func (c *Controller) startLoading() {
	c.mu.Lock()
	c.inflight++
	c.state.Loading = true
	c.mu.Unlock()
}

func (c *Controller) stopLoading() {
	c.mu.Lock()
	c.inflight--
	c.state.Loading = c.inflight > 0
	c.mu.Unlock()
}

func (c *Controller) submit(ctx context.Context, a *attempt, tx *solana.Transaction) Outcome {
	sig, err := c.wallet.SendTransaction(ctx, tx)
	if err != nil {
		opErr := submissionError(a.op, err)
		if len(opErr.Logs) > 0 {
			c.log.WithField("op", a.op).Debugf("program logs:\n%s", strings.Join(opErr.Logs, "\n"))
		}
		return c.fail(ctx, a, opErr)
	}

	current := c.apply(a, func(s *State) { s.LastSignature = sig })

	entry := c.log.WithFields(logrus.Fields{
		"op":        a.op,
		"wallet":    a.identity.String(),
		"signature": sig,
	})
	if current {
		entry.Info("transaction submitted")
	} else {
		entry.Info("transaction submitted after the wallet session ended")
	}
	observability.RecordOperation(string(a.kind), string(domain.StatusSubmitted))
	c.journal(ctx, a, domain.StatusSubmitted, &sig, nil)

	if current {
		c.settle(ctx, a)
	}
	return Outcome{Signature: sig}
}

// settle waits for the ledger to catch up, then refreshes the session that
// submitted.
func (c *Controller) settle(ctx context.Context, a *attempt) {
	t := time.NewTimer(c.settleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}

	c.mu.RLock()
	current := a.gen == c.generation
	c.mu.RUnlock()
	if current {
		c.Refresh(ctx)
	}
}

// reject surfaces a failure detected before submission.
func (c *Controller) reject(ctx context.Context, a *attempt, opErr *OpError) Outcome {
	return c.surface(ctx, a, opErr, domain.StatusRejected)
}

// fail surfaces a failure reported by the wallet or the ledger.
func (c *Controller) fail(ctx context.Context, a *attempt, opErr *OpError) Outcome {
	return c.surface(ctx, a, opErr, domain.StatusFailed)
}

// surface shows opErr in the attempt's session. A session that has since
// ended only gets the journal entry.
func (c *Controller) surface(ctx context.Context, a *attempt, opErr *OpError, status domain.OperationStatus) Outcome {
	current := c.apply(a, func(s *State) {
		s.Error = opErr.Message
		s.ErrorKind = opErr.Kind
	})

	entry := c.log.WithFields(logrus.Fields{"op": a.kind, "kind": opErr.Kind})
	if opErr.Err != nil {
		entry = entry.WithError(opErr.Err)
	}
	if !current {
		entry = entry.WithField("stale", true)
	}
	if status == domain.StatusFailed {
		entry.Warn(opErr.Message)
	} else {
		entry.Info(opErr.Message)
	}

	observability.RecordOperation(string(a.kind), string(status))
	c.journal(ctx, a, status, nil, opErr)
	return Outcome{Err: opErr}
}

func (c *Controller) journal(ctx context.Context, a *attempt, status domain.OperationStatus, sig *string, opErr *OpError) {
	if c.ops == nil {
		return
	}
	rec := &domain.OperationRecord{
		OperationID: domain.NewOperationID(),
		Kind:        a.kind,
		Wallet:      a.identity.String(),
		Amount:      a.units,
		Status:      status,
		Signature:   sig,
		CreatedAt:   c.now().UnixMilli(),
	}
	if opErr != nil {
		errKind := string(opErr.Kind)
		msg := opErr.Message
		rec.ErrorKind = &errKind
		rec.Error = &msg
		rec.Logs = opErr.Logs
	}
	if err := c.ops.Insert(ctx, rec); err != nil {
		c.log.WithError(err).WithField("op", a.kind).Warn("failed to journal operation")
	}
}
