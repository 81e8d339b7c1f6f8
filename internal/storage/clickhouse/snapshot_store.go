package clickhouse

import (
	"context"
	"fmt"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one observation.
func (s *SnapshotStore) Insert(ctx context.Context, p *domain.VaultSnapshotPoint) error {
	if p == nil || p.Wallet == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO vault_snapshots (
			wallet, timestamp_ms, vault_exists, custody_balance, receipt_supply,
			last_deposit_time, user_usdc, user_receipt
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	var exists uint8
	if p.VaultExists {
		exists = 1
	}

	err = batch.Append(
		p.Wallet, uint64(p.TimestampMs), exists, p.CustodyBalance, p.ReceiptSupply,
		p.LastDepositTime, p.UserUSDC, p.UserReceipt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points for a wallet within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.VaultSnapshotPoint, error) {
	query := `
		SELECT wallet, timestamp_ms, vault_exists, custody_balance, receipt_supply,
		       last_deposit_time, user_usdc, user_receipt
		FROM vault_snapshots
		WHERE wallet = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.VaultSnapshotPoint
	for rows.Next() {
		var (
			p      domain.VaultSnapshotPoint
			ts     uint64
			exists uint8
		)
		if err := rows.Scan(
			&p.Wallet, &ts, &exists, &p.CustodyBalance, &p.ReceiptSupply,
			&p.LastDepositTime, &p.UserUSDC, &p.UserReceipt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		p.TimestampMs = int64(ts)
		p.VaultExists = exists == 1
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}
