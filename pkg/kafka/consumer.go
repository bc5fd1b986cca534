package kafka

import (
	"context"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	laneBuffer          = 64
	retryInitialBackoff = 500 * time.Millisecond
	retryMaxBackoff     = 30 * time.Second
	reconnectBackoff    = 5 * time.Second
	laneStallTimeout    = 30 * time.Second
)

// HandlerFunc processes one message. Returning false asks for redelivery with
// backoff; the retried message blocks only its own partition lane.
type HandlerFunc func(key string, value []byte) bool

// messageSource is the slice of the kafka reader the consume loop uses.
// kafkago.Reader satisfies it; tests drive the loop through a scripted stub.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Consumer runs a consumer-group loop over one topic. Messages are dispatched
// to one worker lane per partition, so handling is strictly sequential within
// a partition (and therefore within a partition key) while partitions proceed
// independently of each other.
type Consumer struct {
	brokers []string
	topic   string
	groupID string
	handler HandlerFunc
	log     *logrus.Logger

	// Lane dispatch knobs; fields so tests can shrink the timings.
	stallTimeout time.Duration
	retryBackoff time.Duration
}

// NewConsumer creates a Consumer; Run starts it.
func NewConsumer(brokers []string, topic, groupID string, handler HandlerFunc, log *logrus.Logger) *Consumer {
	return &Consumer{
		brokers:      brokers,
		topic:        topic,
		groupID:      groupID,
		handler:      handler,
		log:          log,
		stallTimeout: laneStallTimeout,
		retryBackoff: retryInitialBackoff,
	}
}

// Run drives the consume loop until the context is cancelled. A transport
// failure drops the loop into a degraded state that keeps attempting to
// reconnect; the rest of the service is unaffected.
func (c *Consumer) Run(ctx context.Context) {
	for ctx.Err() == nil {
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  c.brokers,
			GroupID:  c.groupID,
			Topic:    c.topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		c.log.WithFields(logrus.Fields{
			"topic": c.topic,
			"group": c.groupID,
		}).Info("consumer subscribed")

		c.consume(ctx, reader)
		reader.Close()

		if ctx.Err() != nil {
			return
		}
		c.log.WithField("topic", c.topic).Warn("consumer degraded; reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

// consume runs one pass over the source. The pass lives or dies as a whole: a
// fetch error, a failed offset commit in any lane, or a lane backed up past
// the stall timeout all cancel the pass context, so Run reconnects instead of
// leaving dead lanes behind a live fetch loop. Uncommitted messages redeliver
// on the next pass.
func (c *Consumer) consume(ctx context.Context, src messageSource) {
	passCtx, cancelPass := context.WithCancel(ctx)

	lanes := make(map[int]chan kafkago.Message)
	var wg sync.WaitGroup
	defer func() {
		cancelPass()
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
	}()

	for {
		msg, err := src.FetchMessage(passCtx)
		if err != nil {
			if ctx.Err() == nil && passCtx.Err() == nil {
				c.log.WithError(err).Warn("fetch failed")
			}
			return
		}

		lane, ok := lanes[msg.Partition]
		if !ok {
			lane = make(chan kafkago.Message, laneBuffer)
			lanes[msg.Partition] = lane
			wg.Add(1)
			go c.runLane(passCtx, cancelPass, src, lane, &wg)
		}

		select {
		case lane <- msg:
		case <-passCtx.Done():
			return
		case <-time.After(c.stallTimeout):
			// One partition backed up far enough to block the shared fetch
			// loop. Restart the pass; the stalled partition redelivers and
			// the others keep draining instead of starving behind it.
			c.log.WithFields(logrus.Fields{
				"topic":     msg.Topic,
				"partition": msg.Partition,
			}).Warn("partition lane stalled; restarting consume pass")
			return
		}
	}
}

// runLane handles one partition's messages in order. A failing handler is
// retried with capped backoff before its offset is committed, preserving
// at-least-once delivery without skipping ahead within the partition.
func (c *Consumer) runLane(ctx context.Context, cancelPass context.CancelFunc, src messageSource, lane <-chan kafkago.Message, wg *sync.WaitGroup) {
	defer wg.Done()

	for msg := range lane {
		delay := c.retryBackoff
		for !c.handler(string(msg.Key), msg.Value) {
			c.log.WithFields(logrus.Fields{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Warn("handler failed; retrying message")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if delay < retryMaxBackoff {
				delay *= 2
			}
		}

		if err := src.CommitMessages(ctx, msg); err != nil {
			// The lane cannot advance without committing; take the whole
			// pass down so the reader reconnects rather than leaving this
			// lane dead while the fetch loop keeps feeding it.
			if ctx.Err() == nil {
				c.log.WithError(err).Warn("offset commit failed; restarting consume pass")
			}
			cancelPass()
			return
		}
	}
}
