package ingestion

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"FuelStream/internal/event"
	"FuelStream/internal/observability"
	"FuelStream/internal/ratelimit"
)

// Publisher emits canonical events on the well-known subject, one
// independently-delivered message per event. js.Publish waits for the
// stream's ack, so an accepted message survives a transient disconnect;
// duplicates on redelivery are absorbed by the consumer's upsert.
type Publisher struct {
	js      jetstream.JetStream
	subject string
	pace    *ratelimit.TokenBucket
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewPublisher creates a publisher. pace may be nil to publish without
// inter-message delay.
func NewPublisher(js jetstream.JetStream, subject string, pace *ratelimit.TokenBucket, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	return &Publisher{
		js:      js,
		subject: subject,
		pace:    pace,
		metrics: metrics,
		logger:  logger,
	}
}

// PublishBatch publishes events in order. A failed message is reported and
// counted but does not stop the rest of the batch; the first transport error
// is returned so the cycle can record the outcome. Context cancellation
// aborts the remainder.
func (p *Publisher) PublishBatch(ctx context.Context, events []event.PriceUpdateEvent) (int, error) {
	var published int
	var firstErr error

	for i := range events {
		if p.pace != nil {
			if err := p.pace.Wait(ctx); err != nil {
				return published, err
			}
		}

		data, err := events[i].Encode()
		if err != nil {
			p.logger.Warn().Err(err).Str("station", events[i].ServiceStationName).Msg("encode event failed")
			continue
		}

		if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
			if p.metrics != nil {
				p.metrics.PublishErrors.Inc()
			}
			p.logger.Warn().Err(err).Str("station", events[i].ServiceStationName).Msg("publish failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		published++
		if p.metrics != nil {
			p.metrics.EventsPublished.Inc()
		}
	}

	return published, firstErr
}
