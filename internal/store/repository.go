/**
 * @description
 * This file defines the `Repository` interface, the contract for all durable
 * transaction storage the pipeline needs. Keeping the contract small and
 * behind an interface decouples the consumers and the HTTP service from the
 * concrete database, and lets tests run against the in-memory implementation.
 *
 * The conditional shape of UpdateTransactionStatus is the concurrency guard
 * for the whole system: a status write only lands while the row is still
 * pending, so two redelivered verdict events can never both mutate a terminal
 * aggregate.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/veripay/transaction-flow/internal/domain"
)

// ErrTransactionNotFound is returned when the requested transaction does not
// exist. Inside the consumer it is treated as transient (the created event may
// not have been applied yet); at the API boundary it maps to 404.
var ErrTransactionNotFound = errors.New("transaction not found")

// Repository defines the set of methods for interacting with transaction storage.
type Repository interface {
	// CreateTransaction persists a new aggregate.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error

	// FindTransactionByID returns the aggregate or ErrTransactionNotFound.
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// UpdateTransactionStatus applies a terminal status only if the row is
	// still pending. It reports whether a row actually changed; a false
	// result with a nil error means the aggregate is already terminal, which
	// callers treat as a successful no-op. ErrTransactionNotFound is returned
	// when the id does not exist at all.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.Status, updatedAt time.Time) (bool, error)

	// FindStalePendingTransactions lists aggregates still pending since
	// before the cutoff, bounded by limit. Used by the reconciliation sweep
	// to re-announce transactions whose created event may have been lost.
	FindStalePendingTransactions(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)
}
