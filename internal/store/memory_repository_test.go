package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veripay/transaction-flow/internal/domain"
)

func newStoredTransaction(t *testing.T, repo *MemoryRepository, createdAt time.Time) *domain.Transaction {
	t.Helper()
	tx := domain.NewTransaction("acc-debit", "acc-credit", 1, decimal.RequireFromString("100.00"), createdAt)
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return tx
}

func TestMemoryRepository_FindTransactionByID(t *testing.T) {
	repo := NewMemoryRepository()
	tx := newStoredTransaction(t, repo, time.Now().UTC())

	stored, err := repo.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.ID != tx.ID || stored.Status != domain.StatusPending {
		t.Fatalf("unexpected stored aggregate: %+v", stored)
	}

	// Mutating the returned copy must not leak into the store.
	stored.Status = domain.StatusRejected
	again, _ := repo.FindTransactionByID(context.Background(), tx.ID)
	if again.Status != domain.StatusPending {
		t.Fatalf("expected internal state to be isolated, got %s", again.Status)
	}
}

func TestMemoryRepository_FindTransactionByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	if _, err := repo.FindTransactionByID(context.Background(), uuid.New()); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestMemoryRepository_UpdateTransactionStatus_ConditionalOnPending(t *testing.T) {
	repo := NewMemoryRepository()
	tx := newStoredTransaction(t, repo, time.Now().UTC())

	firstAt := time.Now().UTC()
	applied, err := repo.UpdateTransactionStatus(context.Background(), tx.ID, domain.StatusApproved, firstAt)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !applied {
		t.Fatal("expected pending row to accept the update")
	}

	// Second write loses the condition and must leave the row untouched.
	applied, err = repo.UpdateTransactionStatus(context.Background(), tx.ID, domain.StatusRejected, firstAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second update errored: %v", err)
	}
	if applied {
		t.Fatal("expected terminal row to refuse the update")
	}

	stored, _ := repo.FindTransactionByID(context.Background(), tx.ID)
	if stored.Status != domain.StatusApproved {
		t.Fatalf("expected approved to stand, got %s", stored.Status)
	}
	if !stored.UpdatedAt.Equal(firstAt) {
		t.Fatalf("expected UpdatedAt to stay %v, got %v", firstAt, stored.UpdatedAt)
	}
}

func TestMemoryRepository_UpdateTransactionStatus_UnknownID(t *testing.T) {
	repo := NewMemoryRepository()

	if _, err := repo.UpdateTransactionStatus(context.Background(), uuid.New(), domain.StatusApproved, time.Now().UTC()); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindStalePendingTransactions(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Now().UTC()

	oldest := newStoredTransaction(t, repo, now.Add(-30*time.Minute))
	middle := newStoredTransaction(t, repo, now.Add(-20*time.Minute))
	newStoredTransaction(t, repo, now.Add(-time.Minute)) // fresh, outside the cutoff

	settled := newStoredTransaction(t, repo, now.Add(-40*time.Minute))
	if _, err := repo.UpdateTransactionStatus(context.Background(), settled.ID, domain.StatusApproved, now); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	stale, err := repo.FindStalePendingTransactions(context.Background(), now.Add(-10*time.Minute), 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected two stale rows, got %d", len(stale))
	}
	if stale[0].ID != oldest.ID || stale[1].ID != middle.ID {
		t.Fatalf("expected oldest-first ordering, got %s then %s", stale[0].ID, stale[1].ID)
	}

	limited, err := repo.FindStalePendingTransactions(context.Background(), now.Add(-10*time.Minute), 1)
	if err != nil {
		t.Fatalf("limited query failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != oldest.ID {
		t.Fatalf("expected the limit to keep the oldest row, got %+v", limited)
	}
}
