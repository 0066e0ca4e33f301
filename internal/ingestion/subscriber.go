package ingestion

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"FuelStream/internal/event"
	"FuelStream/internal/observability"
	"FuelStream/internal/queue"
)

// Subscriber owns the transport side of the consumer: a durable JetStream
// consumer whose callback decodes each payload and appends it to the
// ingestion queue. The callback does nothing slower than that append, so the
// delivery goroutine never blocks on application logic.
type Subscriber struct {
	js       jetstream.JetStream
	queue    *queue.Queue
	metrics  *observability.Metrics
	logger   zerolog.Logger
	consumer jetstream.ConsumeContext
}

// NewSubscriber creates a subscriber feeding q.
func NewSubscriber(js jetstream.JetStream, q *queue.Queue, metrics *observability.Metrics, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		js:      js,
		queue:   q,
		metrics: metrics,
		logger:  logger,
	}
}

// Subscribe creates the durable consumer and starts delivery. Explicit acks
// after enqueue give at-least-once into the queue; a malformed payload is
// acked without being enqueued so it is dropped rather than redelivered
// forever.
func (s *Subscriber) Subscribe(ctx context.Context, streamName, subject, consumerName string) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return err
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg)
	})
	if err != nil {
		return err
	}

	s.consumer = cc
	s.logger.Info().Str("subject", subject).Str("consumer", consumerName).Msg("subscribed")
	return nil
}

func (s *Subscriber) handle(msg jetstream.Msg) {
	if s.metrics != nil {
		s.metrics.MessagesReceived.Inc()
	}

	evt, err := event.Decode(msg.Data())
	if err != nil {
		if s.metrics != nil {
			s.metrics.MalformedPayloads.Inc()
		}
		s.logger.Warn().Err(err).Msg("dropping undecodable message")
		msg.Ack()
		return
	}

	s.queue.Enqueue(evt)
	msg.Ack()

	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.queue.Depth()))
	}
}

// Stop halts delivery. Pending queue contents are still drained by the
// session loop.
func (s *Subscriber) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
	s.logger.Info().Msg("subscriber stopped")
}
