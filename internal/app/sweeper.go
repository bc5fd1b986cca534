package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/domain"
	"github.com/veripay/transaction-flow/internal/store"
)

// PendingSweeper periodically re-announces transactions that are still
// pending past a grace period. Persisting the aggregate and publishing its
// created event are two independent writes; a crash between them leaves a
// pending row no verdict will ever reach. Re-publishing is safe because the
// anti-fraud side is deterministic and the status consumer is idempotent.
type PendingSweeper struct {
	repo      store.Repository
	publisher EventPublisher
	log       *logrus.Logger

	interval time.Duration
	grace    time.Duration
	limit    int
	now      func() time.Time
}

// NewPendingSweeper creates a sweeper with the given cadence. Limit bounds
// how many stale aggregates one pass re-announces.
func NewPendingSweeper(repo store.Repository, publisher EventPublisher, log *logrus.Logger, interval, grace time.Duration, limit int) *PendingSweeper {
	return &PendingSweeper{
		repo:      repo,
		publisher: publisher,
		log:       log,
		interval:  interval,
		grace:     grace,
		limit:     limit,
		now:       time.Now,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *PendingSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.WithError(err).Warn("pending sweep failed")
			}
		}
	}
}

// Sweep runs one reconciliation pass and returns how many created events were
// re-published.
func (s *PendingSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.grace)
	stale, err := s.repo.FindStalePendingTransactions(ctx, cutoff, s.limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range stale {
		tx := stale[i]
		if err := s.publisher.PublishEvent(ctx, domain.NewTransactionCreatedEvent(&tx)); err != nil {
			// Keep going; the next pass picks up whatever is still pending.
			s.log.WithField("transaction_id", tx.ID).WithError(err).Warn("sweep republish failed")
			continue
		}
		published++
	}

	if published > 0 {
		s.log.WithFields(logrus.Fields{
			"stale":     len(stale),
			"published": published,
		}).Info("re-announced stale pending transactions")
	}
	return published, nil
}
