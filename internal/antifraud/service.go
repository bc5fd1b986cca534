/**
 * @description
 * This file contains the anti-fraud side of the pipeline: a pure threshold
 * decision over the transaction amount, and the consumer handler that runs it
 * for every transaction-created event and publishes the verdict back onto the
 * lifecycle topic under the same partition key.
 *
 * The handler is idempotent by construction: the decision is deterministic,
 * so redelivering a created event republishes the same verdict, which the
 * transaction side already treats as a no-op once applied.
 */

package antifraud

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/domain"
)

const publishTimeout = 10 * time.Second

// DefaultThreshold is the amount above which a transaction is rejected.
// Equality approves: decide(1000) = approved.
var DefaultThreshold = decimal.NewFromInt(1000)

// EventPublisher is the slice of the publishing contract this service needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// Service evaluates transactions against the fraud threshold.
type Service struct {
	publisher EventPublisher
	threshold decimal.Decimal
	log       *logrus.Logger
	now       func() time.Time
}

// NewService creates the anti-fraud service with the given threshold.
func NewService(publisher EventPublisher, threshold decimal.Decimal, log *logrus.Logger) *Service {
	return &Service{
		publisher: publisher,
		threshold: threshold,
		log:       log,
		now:       time.Now,
	}
}

// Decide maps an amount to a verdict: rejected iff amount > threshold.
func (s *Service) Decide(amount decimal.Decimal) domain.Status {
	if amount.GreaterThan(s.threshold) {
		return domain.StatusRejected
	}
	return domain.StatusApproved
}

// HandleMessage processes one raw message from the lifecycle topic. Malformed
// messages and irrelevant kinds are acknowledged; only a failed verdict
// publish asks the transport loop for redelivery.
func (s *Service) HandleMessage(key string, value []byte) bool {
	event, err := domain.DecodeEnvelope(value)
	if err != nil {
		s.log.WithField("key", key).WithError(err).Warn("dropping malformed event")
		return true
	}

	created, ok := event.(domain.TransactionCreatedEvent)
	if !ok {
		// Status verdicts on the shared topic are the transaction side's concern.
		return true
	}

	verdict := s.Decide(created.Amount)
	s.log.WithFields(logrus.Fields{
		"transaction_id": created.ID,
		"amount":         created.Amount,
		"verdict":        verdict,
	}).Info("fraud decision")

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	update := domain.TransactionStatusUpdatedEvent{
		ID:        created.ID,
		Status:    verdict,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishEvent(ctx, update); err != nil {
		s.log.WithField("transaction_id", created.ID).WithError(err).Warn("verdict publish failed; message will be redelivered")
		return false
	}
	return true
}
