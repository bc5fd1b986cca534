/**
 * @description
 * This file contains the core application service for the transaction side of
 * the pipeline: creating a transaction and reading one back. Creation writes
 * the pending aggregate first and then publishes the created event; the
 * publish leg is fire-and-forget, so a broker outage never fails or rolls
 * back the write that triggered it. That gap between the two writes is a
 * documented hazard, closed best-effort by the pending sweep.
 *
 * @dependencies
 * - internal/domain, internal/store: Models, state machine, and storage contract.
 * - github.com/sirupsen/logrus: Injected observability sink for publish failures.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/domain"
	"github.com/veripay/transaction-flow/internal/store"
)

// ErrInvalidInput marks validation failures on the create path. These are
// rejected synchronously and never enter the event pipeline.
var ErrInvalidInput = errors.New("invalid input")

// ErrRateLimited is returned when transaction creation exceeds the configured
// per-account rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter is the contract for the optional creation rate limit, counted
// per debit account.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, account string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// CreateTransactionInput is the DTO for a new transaction.
type CreateTransactionInput struct {
	DebitAccountID  string          `json:"debit_account_id"`
	CreditAccountID string          `json:"credit_account_id"`
	TransferTypeID  int             `json:"transfer_type_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// Service owns the transaction aggregate's write and read paths.
type Service struct {
	repo      store.Repository
	publisher EventPublisher
	log       *logrus.Logger
	now       func() time.Time

	limiter     RateLimiter
	createLimit int
}

// NewService creates the transaction application service.
func NewService(repo store.Repository, publisher EventPublisher, log *logrus.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// SetCreateRateLimiter enables rate limiting on transaction creation. A nil
// limiter or a non-positive limit leaves creation unthrottled.
func (s *Service) SetCreateRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.createLimit = perMinute
}

// CreateTransaction validates the input, persists the pending aggregate, and
// announces it on the lifecycle topic. The publish failure path is absorbed
// here: it is logged and the caller still gets the created aggregate.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	if s.limiter != nil && s.createLimit > 0 {
		count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, input.DebitAccountID, s.createLimit, time.Minute)
		if err != nil {
			// Rate limiting is advisory: a broken limiter must not block writes.
			s.log.WithError(err).Warn("rate limiter unavailable; allowing transaction creation")
		} else if count > s.createLimit {
			return nil, fmt.Errorf("%w: retry after %ds", ErrRateLimited, retryAfter)
		}
	}

	tx := domain.NewTransaction(
		strings.TrimSpace(input.DebitAccountID),
		strings.TrimSpace(input.CreditAccountID),
		input.TransferTypeID,
		input.Amount,
		s.now().UTC(),
	)

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := s.publisher.PublishEvent(ctx, domain.NewTransactionCreatedEvent(tx)); err != nil {
		s.log.WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"event_kind":     domain.KindTransactionCreated,
		}).WithError(err).Warn("transport unavailable; created event not published")
	}

	return tx, nil
}

// GetTransaction returns the aggregate or store.ErrTransactionNotFound.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.repo.FindTransactionByID(ctx, id)
}

// StatusUpdateConsumer returns the reconciler that applies fraud verdicts to
// this service's aggregates.
func (s *Service) StatusUpdateConsumer() *StatusUpdateConsumer {
	return &StatusUpdateConsumer{repo: s.repo, log: s.log, now: s.now}
}

func validateCreateInput(input CreateTransactionInput) error {
	if strings.TrimSpace(input.DebitAccountID) == "" {
		return fmt.Errorf("%w: debit account id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.CreditAccountID) == "" {
		return fmt.Errorf("%w: credit account id is required", ErrInvalidInput)
	}
	if input.TransferTypeID <= 0 {
		return fmt.Errorf("%w: transfer type id must be positive", ErrInvalidInput)
	}
	if input.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}
