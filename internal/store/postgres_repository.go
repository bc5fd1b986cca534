/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface using pgx. The status update is a single conditional UPDATE so
 * the read-check-write race between competing consumers collapses into one
 * atomic statement.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veripay/transaction-flow/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateTransaction inserts a new transaction row.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, debit_account_id, credit_account_id, transfer_type_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.DebitAccountID,
		tx.CreditAccountID,
		tx.TransferTypeID,
		tx.Amount,
		tx.Status,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return err
}

// FindTransactionByID retrieves a transaction by its id.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `
		SELECT id, debit_account_id, credit_account_id, transfer_type_id, amount, status, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tx.ID,
		&tx.DebitAccountID,
		&tx.CreditAccountID,
		&tx.TransferTypeID,
		&tx.Amount,
		&tx.Status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateTransactionStatus moves a pending transaction to a terminal status.
// The WHERE clause is the idempotency guard: a redelivered verdict matches
// zero rows once the transaction is terminal, leaving updated_at untouched.
func (r *PostgresRepository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.Status, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, status, updatedAt, domain.StatusPending)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "already terminal" from "never existed".
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrTransactionNotFound
	}
	return false, nil
}

// FindStalePendingTransactions lists pending rows older than the cutoff.
func (r *PostgresRepository) FindStalePendingTransactions(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT id, debit_account_id, credit_account_id, transfer_type_id, amount, status, created_at, updated_at
		FROM transactions
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, domain.StatusPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.DebitAccountID,
			&tx.CreditAccountID,
			&tx.TransferTypeID,
			&tx.Amount,
			&tx.Status,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// Compile-time check: ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
