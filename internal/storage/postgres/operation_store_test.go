package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

func TestOperationStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	op := &domain.OperationRecord{
		OperationID: domain.NewOperationID(),
		Kind:        domain.OperationDeposit,
		Wallet:      "walletA",
		Amount:      1_500_000,
		Status:      domain.StatusSubmitted,
		Signature:   ptr("sig1"),
		CreatedAt:   1000,
	}
	require.NoError(t, store.Insert(ctx, op))

	got, err := store.GetByID(ctx, op.OperationID)
	require.NoError(t, err)
	assert.Equal(t, op.Kind, got.Kind)
	assert.Equal(t, op.Amount, got.Amount)
	assert.Equal(t, "sig1", *got.Signature)
	assert.Nil(t, got.Error)
	assert.Nil(t, got.Logs)
}

func TestOperationStore_FailedWithLogs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	op := &domain.OperationRecord{
		OperationID: domain.NewOperationID(),
		Kind:        domain.OperationWithdraw,
		Wallet:      "walletA",
		Amount:      10,
		Status:      domain.StatusFailed,
		ErrorKind:   ptr("submission"),
		Error:       ptr("Withdraw failed: Transaction failed. Check logs for details."),
		Logs:        []string{"Program log: Error", "Program failed"},
		CreatedAt:   2000,
	}
	require.NoError(t, store.Insert(ctx, op))

	got, err := store.GetByID(ctx, op.OperationID)
	require.NoError(t, err)
	assert.Equal(t, op.Logs, got.Logs)
	assert.Equal(t, "submission", *got.ErrorKind)
}

func TestOperationStore_DuplicateAndNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	op := &domain.OperationRecord{
		OperationID: "op-1",
		Kind:        domain.OperationInitialize,
		Wallet:      "owner",
		Status:      domain.StatusSubmitted,
		Signature:   ptr("sig-dup"),
		CreatedAt:   1,
	}
	require.NoError(t, store.Insert(ctx, op))

	err := store.Insert(ctx, op)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "got %v", err)

	other := *op
	other.OperationID = "op-2"
	err = store.Insert(ctx, &other)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "signature must be unique, got %v", err)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestOperationStore_GetByWallet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	for _, ts := range []int64{100, 300, 200} {
		require.NoError(t, store.Insert(ctx, &domain.OperationRecord{
			OperationID: domain.NewOperationID(),
			Kind:        domain.OperationDeposit,
			Wallet:      "walletA",
			Status:      domain.StatusRejected,
			CreatedAt:   ts,
		}))
	}

	all, err := store.GetByWallet(ctx, "walletA", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(300), all[0].CreatedAt)
	assert.Equal(t, int64(100), all[2].CreatedAt)

	limited, err := store.GetByWallet(ctx, "walletA", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, int64(300), limited[0].CreatedAt)
}
