package memory

import (
	"context"
	"sort"
	"sync"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

// OperationStore is an in-memory implementation of storage.OperationStore.
type OperationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OperationRecord // keyed by operation_id
}

// NewOperationStore creates a new in-memory operation store.
func NewOperationStore() *OperationStore {
	return &OperationStore{
		data: make(map[string]*domain.OperationRecord),
	}
}

// Compile-time interface check.
var _ storage.OperationStore = (*OperationStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if operation_id exists.
func (s *OperationStore) Insert(_ context.Context, op *domain.OperationRecord) error {
	if op == nil || op.OperationID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[op.OperationID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[op.OperationID] = cloneOperation(op)
	return nil
}

// GetByID retrieves a record by its ID.
func (s *OperationStore) GetByID(_ context.Context, operationID string) (*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.data[operationID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneOperation(op), nil
}

// GetByWallet retrieves records for a wallet, newest first.
func (s *OperationStore) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OperationRecord
	for _, op := range s.data {
		if op.Wallet == wallet {
			result = append(result, cloneOperation(op))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].OperationID < result[j].OperationID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneOperation(op *domain.OperationRecord) *domain.OperationRecord {
	cp := *op
	if op.Logs != nil {
		cp.Logs = append([]string(nil), op.Logs...)
	}
	return &cp
}
