package solana

import "context"

// WSClient streams account changes.
type WSClient interface {
	// SubscribeAccount streams changes to a single account.
	SubscribeAccount(ctx context.Context, account PublicKey) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountSubscribe message.
type AccountNotification struct {
	Account PublicKey
	Slot    int64
	// Info is nil when the account was closed.
	Info *AccountInfo
}
