package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/domain"
	"github.com/veripay/transaction-flow/internal/store"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// capturePublisher records published events and optionally fails.
type capturePublisher struct {
	events []domain.Event
	err    error
}

func (p *capturePublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fixedWindowLimiterStub struct {
	count      int
	retryAfter int
	err        error
}

func (l *fixedWindowLimiterStub) ConsumeRateLimit(ctx context.Context, account string, limit int, window time.Duration) (int, int, error) {
	return l.count, l.retryAfter, l.err
}

func validInput() CreateTransactionInput {
	return CreateTransactionInput{
		DebitAccountID:  "acc-debit",
		CreditAccountID: "acc-credit",
		TransferTypeID:  1,
		Amount:          decimal.RequireFromString("500.00"),
	}
}

func TestCreateTransaction_PersistsPendingAndPublishes(t *testing.T) {
	repo := store.NewMemoryRepository()
	publisher := &capturePublisher{}
	svc := NewService(repo, publisher, newTestLogger())

	tx, err := svc.CreateTransaction(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected creation to succeed, got %v", err)
	}
	if tx.Status != domain.StatusPending {
		t.Fatalf("expected pending aggregate, got %s", tx.Status)
	}

	stored, err := repo.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("expected aggregate to be persisted, got %v", err)
	}
	if stored.Status != domain.StatusPending {
		t.Fatalf("expected stored status pending, got %s", stored.Status)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	created, ok := publisher.events[0].(domain.TransactionCreatedEvent)
	if !ok {
		t.Fatalf("expected TransactionCreatedEvent, got %T", publisher.events[0])
	}
	if created.ID != tx.ID {
		t.Fatalf("expected event for %s, got %s", tx.ID, created.ID)
	}
}

func TestCreateTransaction_ValidationErrors(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), &capturePublisher{}, newTestLogger())

	cases := []struct {
		name   string
		mutate func(*CreateTransactionInput)
	}{
		{"missing debit account", func(in *CreateTransactionInput) { in.DebitAccountID = "  " }},
		{"missing credit account", func(in *CreateTransactionInput) { in.CreditAccountID = "" }},
		{"non-positive transfer type", func(in *CreateTransactionInput) { in.TransferTypeID = 0 }},
		{"negative amount", func(in *CreateTransactionInput) { in.Amount = decimal.RequireFromString("-1") }},
	}

	for _, tc := range cases {
		input := validInput()
		tc.mutate(&input)
		if _, err := svc.CreateTransaction(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestCreateTransaction_ZeroAmountIsAccepted(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), &capturePublisher{}, newTestLogger())

	input := validInput()
	input.Amount = decimal.Zero
	if _, err := svc.CreateTransaction(context.Background(), input); err != nil {
		t.Fatalf("expected zero amount to be accepted, got %v", err)
	}
}

func TestCreateTransaction_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := store.NewMemoryRepository()
	publisher := &capturePublisher{err: errors.New("broker unavailable")}
	svc := NewService(repo, publisher, newTestLogger())

	tx, err := svc.CreateTransaction(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected creation to succeed despite publish failure, got %v", err)
	}
	if _, err := repo.FindTransactionByID(context.Background(), tx.ID); err != nil {
		t.Fatalf("expected aggregate to be persisted, got %v", err)
	}
}

func TestCreateTransaction_RateLimited(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), &capturePublisher{}, newTestLogger())
	svc.SetCreateRateLimiter(&fixedWindowLimiterStub{count: 31, retryAfter: 42}, 30)

	if _, err := svc.CreateTransaction(context.Background(), validInput()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestCreateTransaction_BrokenLimiterDoesNotBlockWrites(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), &capturePublisher{}, newTestLogger())
	svc.SetCreateRateLimiter(&fixedWindowLimiterStub{err: errors.New("redis down")}, 30)

	if _, err := svc.CreateTransaction(context.Background(), validInput()); err != nil {
		t.Fatalf("expected creation to succeed with broken limiter, got %v", err)
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), &capturePublisher{}, newTestLogger())

	tx := domain.NewTransaction("a", "b", 1, decimal.Zero, time.Now().UTC())
	if _, err := svc.GetTransaction(context.Background(), tx.ID); !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}
