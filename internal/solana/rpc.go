package solana

import "context"

// RPCClient defines the Solana RPC HTTP calls used by the vault client.
type RPCClient interface {
	// GetAccountInfo returns nil, nil when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey PublicKey) (*AccountInfo, error)

	// GetLatestBlockhash returns a blockhash usable for a new transaction.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a signed, serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, raw []byte) (string, error)

	// GetSignatureStatuses looks up the status of submitted signatures.
	// Unknown signatures yield nil entries.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetSlot returns the current slot; used as a liveness probe.
	GetSlot(ctx context.Context) (int64, error)

	// GetTransaction returns a landed transaction or nil when not found.
	GetTransaction(ctx context.Context, signature string) (*ConfirmedTransaction, error)
}
