package app

import (
	"context"

	"github.com/veripay/transaction-flow/internal/domain"
)

// TransportPublisher is the transport-level contract: hand an encoded
// envelope to the broker under a partition key. Implemented by pkg/kafka.
type TransportPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// EventPublisher publishes typed domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// EnvelopePublisher encodes events through the envelope codec and hands them
// to the transport keyed by the event's partition key, so every event for one
// transaction lands on the same partition.
type EnvelopePublisher struct {
	transport TransportPublisher
}

// NewEnvelopePublisher creates an EnvelopePublisher over the given transport.
func NewEnvelopePublisher(transport TransportPublisher) *EnvelopePublisher {
	return &EnvelopePublisher{transport: transport}
}

func (p *EnvelopePublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	value, err := domain.EncodeEnvelope(event)
	if err != nil {
		return err
	}
	return p.transport.Publish(ctx, event.PartitionKey(), value)
}

var _ EventPublisher = (*EnvelopePublisher)(nil)
