// Package feeder runs the producer cycle: fetch raw prices from the
// upstream API, normalize them into canonical events, optionally mirror
// them to CSV, and publish them on the broker. One cycle per cooldown,
// forever; a failed cycle is reported and the next one is attempted.
package feeder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"FuelStream/internal/event"
	"FuelStream/internal/fuelapi"
	"FuelStream/internal/normalize"
	"FuelStream/internal/observability"
)

// PriceSource provides the two upstream read endpoints.
type PriceSource interface {
	AllPrices(ctx context.Context) (*fuelapi.PriceResponse, error)
	NewPrices(ctx context.Context) (*fuelapi.PriceResponse, error)
}

// EventPublisher pushes a batch of canonical events to the broker.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []event.PriceUpdateEvent) (int, error)
}

// EventMirror appends cleaned events to the optional CSV mirror.
type EventMirror interface {
	Append(events []event.PriceUpdateEvent) error
}

// Cycle outcomes, used as metric labels.
const (
	OutcomeOK         = "ok"
	OutcomeCredential = "credential_failure"
	OutcomeFetchError = "fetch_error"
	OutcomePublishErr = "publish_error"
)

// Feeder is the supervised producer task. The first successful cycle fetches
// all current prices; every later cycle fetches only the prices changed
// since the previous call.
type Feeder struct {
	source    PriceSource
	publisher EventPublisher
	mirror    EventMirror
	cooldown  time.Duration
	metrics   *observability.Metrics
	logger    zerolog.Logger

	fetchedAll bool

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a feeder. mirror may be nil to disable the CSV copy.
func New(source PriceSource, publisher EventPublisher, mirror EventMirror, cooldown time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Feeder {
	return &Feeder{
		source:    source,
		publisher: publisher,
		mirror:    mirror,
		cooldown:  cooldown,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start launches the poll loop. Starting a running feeder is an error.
func (f *Feeder) Start(ctx context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		return errors.New("feeder already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	f.wg.Add(1)
	go f.run(runCtx)

	f.logger.Info().Dur("cooldown", f.cooldown).Msg("feeder started")
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to finish or for
// ctx to expire.
func (f *Feeder) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.running.Store(false)
		f.logger.Info().Msg("feeder stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the poll loop is active.
func (f *Feeder) IsRunning() bool {
	return f.running.Load()
}

func (f *Feeder) run(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cooldown)
	defer ticker.Stop()

	f.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.RunCycle(ctx)
		}
	}
}

// RunCycle performs one fetch-normalize-publish pass and returns its
// outcome. No failure inside a cycle is fatal; credential and transport
// errors simply surface as a skipped or degraded cycle.
func (f *Feeder) RunCycle(ctx context.Context) string {
	start := time.Now()
	outcome := f.runCycle(ctx)

	if f.metrics != nil {
		f.metrics.PollCycles.WithLabelValues(outcome).Inc()
		f.metrics.PollCycleDur.Observe(time.Since(start).Seconds())
	}
	return outcome
}

func (f *Feeder) runCycle(ctx context.Context) string {
	var (
		resp     *fuelapi.PriceResponse
		err      error
		endpoint string
	)

	fetchStart := time.Now()
	if f.fetchedAll {
		endpoint = "new_prices"
		resp, err = f.source.NewPrices(ctx)
	} else {
		endpoint = "all_prices"
		resp, err = f.source.AllPrices(ctx)
	}

	if f.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		f.metrics.APIRequests.WithLabelValues(endpoint, status).Inc()
		f.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(fetchStart).Seconds())
	}

	if err != nil {
		if errors.Is(err, fuelapi.ErrCredentialFailure) {
			if f.metrics != nil {
				f.metrics.TokenFailures.Inc()
			}
			f.logger.Warn().Err(err).Msg("token exchange failed, skipping cycle")
			return OutcomeCredential
		}
		f.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("fetch failed, retrying next cycle")
		return OutcomeFetchError
	}

	if !f.fetchedAll {
		f.fetchedAll = true
	}

	events, stats := normalize.Normalize(resp)
	if f.metrics != nil {
		f.metrics.RowsNormalized.Add(float64(stats.Events))
		for rule, n := range stats.Dropped {
			f.metrics.RowsDropped.WithLabelValues(rule).Add(float64(n))
		}
	}

	f.logger.Info().
		Str("endpoint", endpoint).
		Int("raw_stations", stats.RawStations).
		Int("raw_prices", stats.RawPrices).
		Int("events", stats.Events).
		Msg("normalized poll response")

	if f.mirror != nil {
		if err := f.mirror.Append(events); err != nil {
			if f.metrics != nil {
				f.metrics.MirrorErrors.Inc()
			}
			f.logger.Warn().Err(err).Msg("csv mirror append failed")
		} else if f.metrics != nil {
			f.metrics.MirrorRows.Add(float64(len(events)))
		}
	}

	published, err := f.publisher.PublishBatch(ctx, events)
	if err != nil {
		f.logger.Warn().Err(err).Int("published", published).Int("total", len(events)).
			Msg("publish incomplete, retrying next cycle")
		return OutcomePublishErr
	}

	f.logger.Info().Int("published", published).Msg("cycle complete")
	return OutcomeOK
}
