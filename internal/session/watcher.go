package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"autoyield-vault/internal/observability"
	"autoyield-vault/internal/solana"
)

// Refresher is the part of Controller the watcher drives.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Watcher refreshes the session whenever a watched account changes on chain.
type Watcher struct {
	ws       solana.WSClient
	target   Refresher
	accounts []solana.PublicKey
	log      *logrus.Entry
}

// NewWatcher creates a watcher over accounts, typically the vault metadata
// and custody accounts.
func NewWatcher(ws solana.WSClient, target Refresher, accounts ...solana.PublicKey) *Watcher {
	return &Watcher{
		ws:       ws,
		target:   target,
		accounts: accounts,
		log:      logrus.WithField("component", "watcher"),
	}
}

// Run subscribes to every account and refreshes on each notification until
// ctx is done or the subscriptions close. Notifications that arrive during
// a running refresh are dropped by the refresh guard. Forwarders started
// before a failed subscription are stopped before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan solana.AccountNotification)
	var wg sync.WaitGroup

	for _, acct := range w.accounts {
		ch, err := w.ws.SubscribeAccount(ctx, acct)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("subscribe %s: %w", acct, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			forward(ctx, ch, updates)
		}()
		w.log.WithField("account", acct.String()).Info("watching account")
	}

	closed := make(chan struct{})
	go func() {
		wg.Wait()
		close(closed)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-closed:
			return nil
		case n := <-updates:
			observability.RecordAccountUpdate()
			w.log.WithFields(logrus.Fields{
				"account": n.Account.String(),
				"slot":    n.Slot,
			}).Debug("account changed")
			w.target.Refresh(ctx)
		}
	}
}

func forward(ctx context.Context, in <-chan solana.AccountNotification, out chan<- solana.AccountNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}
}
