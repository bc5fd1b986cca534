package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/domain"
	"github.com/veripay/transaction-flow/internal/store"
)

const handleTimeout = 15 * time.Second

// StatusUpdateConsumer applies transaction-status-updated events to the local
// aggregate. It is the idempotency boundary for redelivered verdicts: a
// disallowed transition is a successful no-op, a missing aggregate is
// retryable because the created event on the same partition must land first.
type StatusUpdateConsumer struct {
	repo store.Repository
	log  *logrus.Logger
	now  func() time.Time
}

// NewStatusUpdateConsumer creates a consumer over the given repository.
func NewStatusUpdateConsumer(repo store.Repository, log *logrus.Logger) *StatusUpdateConsumer {
	return &StatusUpdateConsumer{repo: repo, log: log, now: time.Now}
}

// HandleMessage processes one raw message from the lifecycle topic. The
// return value tells the transport loop whether to commit (true) or redeliver
// with backoff (false).
func (c *StatusUpdateConsumer) HandleMessage(key string, value []byte) bool {
	event, err := domain.DecodeEnvelope(value)
	if err != nil {
		// Drop and log; an unparseable message will never become parseable.
		c.log.WithField("key", key).WithError(err).Warn("dropping malformed event")
		return true
	}

	update, ok := event.(domain.TransactionStatusUpdatedEvent)
	if !ok {
		// transaction-created on the shared topic belongs to the anti-fraud side.
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := c.processStatusUpdate(ctx, update); err != nil {
		c.log.WithFields(logrus.Fields{
			"transaction_id": update.ID,
			"status":         update.Status,
		}).WithError(err).Warn("status update failed; message will be redelivered")
		return false
	}
	return true
}

func (c *StatusUpdateConsumer) processStatusUpdate(ctx context.Context, event domain.TransactionStatusUpdatedEvent) error {
	tx, err := c.repo.FindTransactionByID(ctx, event.ID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			// The created event has not been applied locally yet; retry until
			// the aggregate exists rather than applying a phantom state.
			return fmt.Errorf("aggregate not yet visible: %w", err)
		}
		return fmt.Errorf("lookup transaction: %w", err)
	}

	if _, err := domain.Transition(tx.Status, event.Status); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			c.log.WithFields(logrus.Fields{
				"transaction_id": tx.ID,
				"current_status": tx.Status,
				"event_status":   event.Status,
			}).Debug("ignoring redelivered or stale status event")
			return nil
		}
		return err
	}

	applied, err := c.repo.UpdateTransactionStatus(ctx, event.ID, event.Status, c.now().UTC())
	if err != nil {
		return fmt.Errorf("apply status: %w", err)
	}
	if !applied {
		// A concurrent delivery won the conditional update; same terminal
		// outcome, nothing left to do.
		return nil
	}

	c.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"status":         event.Status,
	}).Info("transaction status applied")
	return nil
}
