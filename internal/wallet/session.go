package wallet

import (
	"context"
	"sync"

	"autoyield-vault/internal/session"
	"autoyield-vault/internal/solana"
)

// Session holds the currently connected keypair and publishes connection
// changes. It implements session.Wallet by delegating to that keypair.
type Session struct {
	mu      sync.RWMutex
	current *Keypair
	events  chan session.WalletEvent
}

// NewSession creates a disconnected session. buffer sizes the event channel.
func NewSession(buffer int) *Session {
	return &Session{events: make(chan session.WalletEvent, buffer)}
}

// Events returns the connection event stream.
func (s *Session) Events() <-chan session.WalletEvent {
	return s.events
}

// Connect makes kp the active wallet. Connecting a different keypair while
// connected is an account switch.
func (s *Session) Connect(ctx context.Context, kp *Keypair) error {
	if err := s.emit(ctx, session.WalletEvent{State: session.Connecting}); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = kp
	s.mu.Unlock()
	return s.emit(ctx, session.WalletEvent{State: session.Connected, Identity: kp.PublicKey()})
}

// Disconnect drops the active wallet.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return s.emit(ctx, session.WalletEvent{State: session.Disconnected})
}

// Identity returns the connected public key.
func (s *Session) Identity() (solana.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return solana.PublicKey{}, false
	}
	return s.current.PublicKey(), true
}

// SendTransaction submits tx with the connected keypair.
func (s *Session) SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	s.mu.RLock()
	kp := s.current
	s.mu.RUnlock()
	if kp == nil {
		return "", ErrNotConnected
	}
	return kp.SendTransaction(ctx, tx)
}

func (s *Session) emit(ctx context.Context, ev session.WalletEvent) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ session.Wallet = (*Session)(nil)
