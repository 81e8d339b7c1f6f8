package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

// OperationStore implements storage.OperationStore using PostgreSQL.
type OperationStore struct {
	pool *Pool
}

// NewOperationStore creates a new OperationStore.
func NewOperationStore(pool *Pool) *OperationStore {
	return &OperationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OperationStore = (*OperationStore)(nil)

const operationColumns = `
	operation_id, kind, wallet, amount, status,
	signature, error_kind, error, logs, created_at
`

// Insert adds a new record. Returns ErrDuplicateKey if operation_id or signature exists.
func (s *OperationStore) Insert(ctx context.Context, op *domain.OperationRecord) error {
	if op == nil || op.OperationID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vault_operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		op.OperationID, string(op.Kind), op.Wallet, int64(op.Amount), string(op.Status),
		op.Signature, op.ErrorKind, op.Error, op.Logs, op.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID.
func (s *OperationStore) GetByID(ctx context.Context, operationID string) (*domain.OperationRecord, error) {
	query := `SELECT ` + operationColumns + ` FROM vault_operations WHERE operation_id = $1`

	op, err := scanOperation(s.pool.QueryRow(ctx, query, operationID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return op, nil
}

// GetByWallet retrieves records for a wallet, newest first.
func (s *OperationStore) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.OperationRecord, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM vault_operations
		WHERE wallet = $1
		ORDER BY created_at DESC, operation_id ASC
	`
	args := []interface{}{wallet}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var result []*domain.OperationRecord
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return result, nil
}

func scanOperation(row pgx.Row) (*domain.OperationRecord, error) {
	var (
		op           domain.OperationRecord
		kind, status string
		amount       int64
	)
	err := row.Scan(
		&op.OperationID, &kind, &op.Wallet, &amount, &status,
		&op.Signature, &op.ErrorKind, &op.Error, &op.Logs, &op.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	op.Kind = domain.OperationKind(kind)
	op.Status = domain.OperationStatus(status)
	op.Amount = uint64(amount)
	return &op, nil
}
