package memory

import (
	"context"
	"errors"
	"testing"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

func TestOperationStore_InsertAndGet(t *testing.T) {
	store := NewOperationStore()
	ctx := context.Background()

	sig := "sig1"
	op := &domain.OperationRecord{
		OperationID: "op1",
		Kind:        domain.OperationDeposit,
		Wallet:      "walletA",
		Amount:      1_500_000,
		Status:      domain.StatusSubmitted,
		Signature:   &sig,
		CreatedAt:   1000,
	}

	if err := store.Insert(ctx, op); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "op1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Amount != 1_500_000 {
		t.Errorf("Amount mismatch: got %d, want %d", got.Amount, 1_500_000)
	}
	if got.Signature == nil || *got.Signature != "sig1" {
		t.Errorf("Signature mismatch: got %v", got.Signature)
	}
}

func TestOperationStore_DuplicateKey(t *testing.T) {
	store := NewOperationStore()
	ctx := context.Background()

	op := &domain.OperationRecord{OperationID: "op1", Wallet: "w"}
	if err := store.Insert(ctx, op); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, op)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestOperationStore_NotFound(t *testing.T) {
	store := NewOperationStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestOperationStore_GetByWallet(t *testing.T) {
	store := NewOperationStore()
	ctx := context.Background()

	for i, ts := range []int64{100, 300, 200} {
		op := &domain.OperationRecord{
			OperationID: string(rune('a' + i)),
			Wallet:      "walletA",
			CreatedAt:   ts,
			Logs:        []string{"log"},
		}
		if err := store.Insert(ctx, op); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	store.Insert(ctx, &domain.OperationRecord{OperationID: "z", Wallet: "walletB", CreatedAt: 999})

	got, err := store.GetByWallet(ctx, "walletA", 2)
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].CreatedAt != 300 || got[1].CreatedAt != 200 {
		t.Errorf("unexpected order: %d, %d", got[0].CreatedAt, got[1].CreatedAt)
	}

	// Returned records are copies
	got[0].Logs[0] = "mutated"
	again, _ := store.GetByWallet(ctx, "walletA", 1)
	if again[0].Logs[0] != "log" {
		t.Error("store data was mutated through returned record")
	}
}

func TestOperationStore_InvalidInput(t *testing.T) {
	store := NewOperationStore()
	if err := store.Insert(context.Background(), &domain.OperationRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
