package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veripay/transaction-flow/internal/domain"
)

// MemoryRepository is an in-memory implementation of Repository. It backs
// tests and lets the service run without a database (the primary write path
// keeps functioning even when infrastructure is missing).
type MemoryRepository struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]domain.Transaction
}

// NewMemoryRepository creates and returns a new MemoryRepository instance.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		transactions: make(map[uuid.UUID]domain.Transaction),
	}
}

func (m *MemoryRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[tx.ID] = *tx
	return nil
}

func (m *MemoryRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	// Return a copy so callers cannot mutate internal state.
	out := tx
	return &out, nil
}

func (m *MemoryRepository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.Status, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return false, ErrTransactionNotFound
	}
	if tx.Status != domain.StatusPending {
		return false, nil
	}
	tx.Status = status
	tx.UpdatedAt = updatedAt
	m.transactions[id] = tx
	return true, nil
}

func (m *MemoryRepository) FindStalePendingTransactions(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []domain.Transaction
	for _, tx := range m.transactions {
		if tx.Status == domain.StatusPending && !tx.CreatedAt.After(olderThan) {
			stale = append(stale, tx)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// Compile-time check: ensure MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)
