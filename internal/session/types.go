// Package session reconciles client-side vault state with the ledger and
// drives the vault operations of one connected wallet.
package session

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"autoyield-vault/internal/solana"
	"autoyield-vault/internal/vault"
)

// Ledger reads vault accounts and exposes the deployment's instruction builder.
type Ledger interface {
	// FetchMetadata returns nil, nil when the vault is not initialized.
	FetchMetadata(ctx context.Context) (*vault.Metadata, error)
	// FetchTokenAccount returns solana.ErrAccountNotFound for a missing account.
	FetchTokenAccount(ctx context.Context, address solana.PublicKey) (*solana.TokenAccount, error)
	Builder() *vault.Builder
}

// Wallet signs and submits a transaction, returning its signature.
type Wallet interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error)
}

// ConnectionState is the wallet connection state.
type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

// WalletEvent reports a wallet connection change. Identity is meaningful
// only when State is Connected.
type WalletEvent struct {
	State    ConnectionState
	Identity solana.PublicKey
}

// Snapshot is the last fetched vault metadata, normalized to decimals.
type Snapshot struct {
	Authority       solana.PublicKey `json:"authority"`
	CustodyBalance  decimal.Decimal  `json:"custodyBalance"`
	ReceiptSupply   decimal.Decimal  `json:"receiptSupply"`
	ReceiptMint     solana.PublicKey `json:"receiptMint"`
	Custody         solana.PublicKey `json:"custody"`
	LastDepositTime time.Time        `json:"lastDepositTime"`
}

func snapshotFromMetadata(m *vault.Metadata) *Snapshot {
	return &Snapshot{
		Authority:       m.Authority,
		CustodyBalance:  vault.FromBaseUnits(m.CustodyBalance),
		ReceiptSupply:   vault.FromBaseUnits(m.ReceiptSupply),
		ReceiptMint:     m.ReceiptMint,
		Custody:         m.Custody,
		LastDepositTime: time.Unix(m.LastDepositTime, 0).UTC(),
	}
}

// ExchangeRate is the USDC value of one receipt token. It is 1 while no
// receipt tokens are outstanding. Display only.
func (s *Snapshot) ExchangeRate() decimal.Decimal {
	if s == nil || s.ReceiptSupply.IsZero() {
		return decimal.NewFromInt(1)
	}
	return s.CustodyBalance.Div(s.ReceiptSupply)
}

// Balances holds the connected wallet's token balances.
type Balances struct {
	USDC    decimal.Decimal `json:"usdc"`
	Receipt decimal.Decimal `json:"receipt"`
}

// ReceiptValue is the receipt balance expressed in USDC at the snapshot's
// exchange rate.
func (b Balances) ReceiptValue(s *Snapshot) decimal.Decimal {
	return b.Receipt.Mul(s.ExchangeRate()).Round(vault.Decimals)
}

// State is a copy of the controller state handed to views.
type State struct {
	Connection    ConnectionState   `json:"connection"`
	Identity      *solana.PublicKey `json:"identity,omitempty"`
	Snapshot      *Snapshot         `json:"snapshot"`
	Balances      Balances          `json:"balances"`
	Loading       bool              `json:"loading"`
	Initializing  bool              `json:"initializing"`
	IsVaultOwner  bool              `json:"isVaultOwner"`
	LastSignature string            `json:"lastSignature,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorKind     ErrorKind         `json:"errorKind,omitempty"`
}

// Outcome is the result of one vault operation. Skipped is set when the
// operation had nothing to do, such as no connected wallet.
type Outcome struct {
	Signature string   `json:"signature,omitempty"`
	Err       *OpError `json:"error,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"`
}

// OK reports whether the operation submitted a transaction.
func (o Outcome) OK() bool {
	return o.Err == nil && !o.Skipped && o.Signature != ""
}
