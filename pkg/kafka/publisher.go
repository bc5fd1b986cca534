/**
 * @description
 * This package provides the Kafka transport for the transaction lifecycle
 * topic: a keyed publisher and a consumer-group loop. Messages are hashed by
 * key onto partitions, which is what gives the pipeline its
 * ordering-within-key guarantee.
 *
 * @dependencies
 * - github.com/segmentio/kafka-go: The Kafka client library.
 */
package kafka

import (
	"context"
	"net"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher writes keyed messages to one topic.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Publisher for the given brokers and topic. The
// writer connects lazily; construction never fails.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish hands one message to the broker under the given partition key.
func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// FallbackPublisher is a no-op publisher used when the broker is unreachable
// at bootstrap. It keeps the primary write path available and reports every
// skipped publish to the log.
type FallbackPublisher struct {
	log *logrus.Logger
}

func NewFallbackPublisher(log *logrus.Logger) *FallbackPublisher {
	return &FallbackPublisher{log: log}
}

func (p *FallbackPublisher) Publish(ctx context.Context, key string, value []byte) error {
	p.log.WithField("key", key).Warn("transport degraded; publish skipped")
	return nil
}

func (p *FallbackPublisher) Close() error { return nil }

// Reachable reports whether any of the brokers accepts a TCP connection
// within the timeout. Used at bootstrap to pick the fallback publisher early
// instead of paying a write timeout per request.
func Reachable(brokers []string, timeout time.Duration) bool {
	for _, broker := range brokers {
		conn, err := net.DialTimeout("tcp", broker, timeout)
		if err == nil {
			conn.Close()
			return true
		}
	}
	return false
}
