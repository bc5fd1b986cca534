/**
 * @description
 * This file defines the typed lifecycle events exchanged between the
 * transaction and anti-fraud services, and the envelope codec that puts them
 * on and takes them off the wire. The envelope is transport-neutral JSON with
 * a `kind` discriminator and an opaque payload; the transport message key is
 * always the transaction ID so that one partition orders an aggregate's
 * events.
 *
 * Wire shape:
 *   { "kind": "transaction-created" | "transaction-status-updated", "data": <payload> }
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind discriminates envelope payloads.
type EventKind string

const (
	KindTransactionCreated       EventKind = "transaction-created"
	KindTransactionStatusUpdated EventKind = "transaction-status-updated"
)

// ErrMalformedEvent is returned when an envelope cannot be decoded into a
// known event. Consumers drop and log such messages; one bad message must
// never stop a partition.
var ErrMalformedEvent = errors.New("malformed event")

// Event is the closed set of messages published on the transaction lifecycle
// topic. Each event knows its kind and the partition key that routes it.
type Event interface {
	EventKind() EventKind
	PartitionKey() string
}

// TransactionCreatedEvent announces a new pending transaction to the
// anti-fraud side.
type TransactionCreatedEvent struct {
	ID              uuid.UUID       `json:"id"`
	DebitAccountID  string          `json:"debitAccountId"`
	CreditAccountID string          `json:"creditAccountId"`
	TransferTypeID  int             `json:"transferTypeId"`
	Amount          decimal.Decimal `json:"amount"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (e TransactionCreatedEvent) EventKind() EventKind { return KindTransactionCreated }
func (e TransactionCreatedEvent) PartitionKey() string { return e.ID.String() }

// TransactionStatusUpdatedEvent carries the fraud verdict back to the
// transaction side.
type TransactionStatusUpdatedEvent struct {
	ID        uuid.UUID `json:"id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e TransactionStatusUpdatedEvent) EventKind() EventKind { return KindTransactionStatusUpdated }
func (e TransactionStatusUpdatedEvent) PartitionKey() string { return e.ID.String() }

// NewTransactionCreatedEvent builds the created event from an aggregate.
func NewTransactionCreatedEvent(tx *Transaction) TransactionCreatedEvent {
	return TransactionCreatedEvent{
		ID:              tx.ID,
		DebitAccountID:  tx.DebitAccountID,
		CreditAccountID: tx.CreditAccountID,
		TransferTypeID:  tx.TransferTypeID,
		Amount:          tx.Amount,
		Status:          tx.Status,
		CreatedAt:       tx.CreatedAt,
	}
}

// Envelope is the wire representation of an Event.
type Envelope struct {
	Kind EventKind       `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeEnvelope wraps a typed event in its envelope. Encoding is total for
// any event constructed through this package.
func EncodeEnvelope(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event.EventKind(), err)
	}
	return json.Marshal(Envelope{Kind: event.EventKind(), Data: data})
}

// DecodeEnvelope parses raw bytes into one of the concrete event types.
// Unknown kinds, broken JSON, payloads missing their identity, and verdicts
// carrying anything but a terminal status all come back as ErrMalformedEvent.
func DecodeEnvelope(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Kind {
	case KindTransactionCreated:
		var event TransactionCreatedEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedEvent, env.Kind, err)
		}
		if event.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: %s payload missing id", ErrMalformedEvent, env.Kind)
		}
		return event, nil
	case KindTransactionStatusUpdated:
		var event TransactionStatusUpdatedEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedEvent, env.Kind, err)
		}
		if event.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: %s payload missing id", ErrMalformedEvent, env.Kind)
		}
		if !event.Status.Terminal() {
			// The payload carries a verdict; anything but a terminal status
			// has no meaning on the wire.
			return nil, fmt.Errorf("%w: %s payload has non-terminal status %q", ErrMalformedEvent, env.Kind, event.Status)
		}
		return event, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, env.Kind)
	}
}
