/**
 * @description
 * This file defines the core domain model for the transaction pipeline: the
 * transaction aggregate and the status state machine that governs it. Every
 * status mutation in the system, whether it originates from the fraud verdict
 * consumer or from a redelivered event, goes through Transition so that the
 * terminal-state invariant is enforced in exactly one place.
 *
 * @notes
 * - Amounts use shopspring/decimal to avoid floating-point drift with money.
 * - An invalid transition is a sentinel error, not a failure: consumers treat
 *   it as a no-op, which is what makes redelivered status events idempotent.
 */

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the review state of a transaction.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ErrInvalidTransition is returned when a status change is not allowed by the
// state machine. Callers must treat it as a no-op rather than a hard failure.
var ErrInvalidTransition = errors.New("invalid status transition")

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Transition validates a status change. The only allowed transitions are
// pending -> approved and pending -> rejected; a terminal current status, a
// pending target, or an unknown status all yield ErrInvalidTransition.
func Transition(current, target Status) (Status, error) {
	if !target.Valid() || target == StatusPending {
		return "", ErrInvalidTransition
	}
	if current != StatusPending {
		return "", ErrInvalidTransition
	}
	return target, nil
}

// Transaction is the transaction aggregate. Its ID doubles as the partition
// key for every event concerning it, so a single topic partition serializes
// the aggregate's event stream.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	DebitAccountID  string          `json:"debit_account_id"`
	CreditAccountID string          `json:"credit_account_id"`
	TransferTypeID  int             `json:"transfer_type_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewTransaction builds a pending aggregate with a freshly assigned ID. The ID
// exists before the aggregate is ever visible to storage or messaging.
func NewTransaction(debitAccountID, creditAccountID string, transferTypeID int, amount decimal.Decimal, now time.Time) *Transaction {
	return &Transaction{
		ID:              uuid.New(),
		DebitAccountID:  debitAccountID,
		CreditAccountID: creditAccountID,
		TransferTypeID:  transferTypeID,
		Amount:          amount,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ApplyStatus moves the aggregate through the state machine, refreshing
// UpdatedAt on success. On ErrInvalidTransition the aggregate is untouched.
func (t *Transaction) ApplyStatus(target Status, at time.Time) error {
	next, err := Transition(t.Status, target)
	if err != nil {
		return err
	}
	t.Status = next
	t.UpdatedAt = at
	return nil
}
