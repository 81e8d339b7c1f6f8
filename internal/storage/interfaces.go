package storage

import (
	"context"

	"autoyield-vault/internal/domain"
)

// OperationStore provides access to the vault_operations journal.
type OperationStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if operation_id exists.
	Insert(ctx context.Context, op *domain.OperationRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, operationID string) (*domain.OperationRecord, error)

	// GetByWallet retrieves the most recent records for a wallet, newest first.
	// A non-positive limit returns all records.
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.OperationRecord, error)
}

// SnapshotStore provides access to vault_snapshots history.
type SnapshotStore interface {
	// Insert appends one observation.
	Insert(ctx context.Context, p *domain.VaultSnapshotPoint) error

	// GetByTimeRange retrieves points for a wallet within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.VaultSnapshotPoint, error)
}

// RateCacheStore persists the latest rate list.
type RateCacheStore interface {
	// Get returns the entry for key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (*domain.RateCacheEntry, error)

	// Put stores the entry, replacing any previous value.
	Put(ctx context.Context, e *domain.RateCacheEntry) error

	// Delete removes the entry. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
