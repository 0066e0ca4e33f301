// Package session runs the consumer-side cycle: drain a bounded batch of
// queued events into the station index, refresh observability, sleep the
// refresh interval, repeat. The drain goroutine is the index's only writer.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"FuelStream/internal/event"
	"FuelStream/internal/observability"
	"FuelStream/internal/queue"
	"FuelStream/internal/station"
)

// Viewport is the map view state reported back by the rendering layer. It is
// persisted across refresh cycles and only reset on explicit request.
type Viewport struct {
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	Zoom      int     `json:"zoom"`
}

// DefaultViewport centers the map on Sydney.
func DefaultViewport() Viewport {
	return Viewport{CenterLat: -33.8688, CenterLng: 151.2093, Zoom: 8}
}

// DrainResult reports one bounded drain pass.
type DrainResult struct {
	Popped  int
	Applied int
	Skipped map[string]int
}

// Session owns the queue-to-index drain loop and the per-session view state.
// It is a supervised background task: started exactly once by the process
// owner, stopped on shutdown.
type Session struct {
	queue       *queue.Queue
	index       *station.Index
	maxPerCycle int
	refresh     time.Duration
	metrics     *observability.Metrics
	logger      zerolog.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	viewMu sync.Mutex
	view   Viewport
}

// New creates a session draining q into ix, applying at most maxPerCycle
// events per pass.
func New(q *queue.Queue, ix *station.Index, maxPerCycle int, refresh time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Session {
	return &Session{
		queue:       q,
		index:       ix,
		maxPerCycle: maxPerCycle,
		refresh:     refresh,
		metrics:     metrics,
		logger:      logger,
		view:        DefaultViewport(),
	}
}

// Start launches the drain loop. Calling Start on a running session is an
// error; the loop is started once per session, not guarded by ad-hoc flags
// at call sites.
func (s *Session) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info().
		Dur("refresh", s.refresh).
		Int("max_per_cycle", s.maxPerCycle).
		Msg("session started")
	return nil
}

// Stop cancels the loop and waits for it to finish or for ctx to expire.
func (s *Session) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.running.Store(false)
		s.logger.Info().Msg("session stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the drain loop is active.
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	// Drain immediately on start so the first render is not empty for a full
	// refresh interval.
	s.drainAndReport()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drainAndReport()
		}
	}
}

func (s *Session) drainAndReport() {
	res := s.DrainOnce()
	if res.Popped > 0 {
		s.logger.Debug().
			Int("popped", res.Popped).
			Int("applied", res.Applied).
			Int("remaining", s.queue.Depth()).
			Msg("drain cycle")
	}
}

// DrainOnce applies one bounded batch: up to maxPerCycle events or until the
// queue is empty, whichever comes first. Remaining items stay queued for the
// next cycle. An invalid event is skipped and counted; it never aborts the
// batch.
func (s *Session) DrainOnce() DrainResult {
	start := time.Now()
	batch := s.queue.PopBatch(s.maxPerCycle)

	res := DrainResult{Popped: len(batch), Skipped: make(map[string]int)}
	for _, evt := range batch {
		if err := s.index.Apply(evt); err != nil {
			reason := skipReason(err)
			res.Skipped[reason]++
			if s.metrics != nil {
				s.metrics.EventsSkipped.WithLabelValues(reason).Inc()
			}
			continue
		}
		res.Applied++
		if s.metrics != nil {
			s.metrics.EventsApplied.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.DrainBatch.Observe(float64(res.Popped))
		s.metrics.DrainDuration.Observe(time.Since(start).Seconds())
		s.metrics.QueueDepth.Set(float64(s.queue.Depth()))
		s.metrics.Stations.Set(float64(s.index.Len()))
	}

	return res
}

// Snapshot returns the read-consistent view for one fuel code.
func (s *Session) Snapshot(fuelCode string) []station.Entry {
	start := time.Now()
	entries := s.index.Snapshot(fuelCode)

	if s.metrics != nil {
		s.metrics.SnapshotRequests.WithLabelValues(fuelCode).Inc()
		s.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		s.metrics.SnapshotSize.Observe(float64(len(entries)))
	}
	return entries
}

// Viewport returns the current view state.
func (s *Session) Viewport() Viewport {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	return s.view
}

// SetViewport stores the view state reported by the rendering layer.
func (s *Session) SetViewport(v Viewport) {
	s.viewMu.Lock()
	s.view = v
	s.viewMu.Unlock()
}

// ResetViewport restores the default view.
func (s *Session) ResetViewport() {
	s.SetViewport(DefaultViewport())
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, event.ErrIncompleteRecord):
		return "incomplete_record"
	case errors.Is(err, event.ErrOutOfRangeValue):
		return "out_of_range"
	default:
		return "invalid"
	}
}
