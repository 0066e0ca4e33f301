package feeder_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"FuelStream/internal/event"
	"FuelStream/internal/feeder"
	"FuelStream/internal/fuelapi"
)

type fakeSource struct {
	allCalls int
	newCalls int
	resp     *fuelapi.PriceResponse
	allErr   error
	newErr   error
}

func (s *fakeSource) AllPrices(ctx context.Context) (*fuelapi.PriceResponse, error) {
	s.allCalls++
	if s.allErr != nil {
		return nil, s.allErr
	}
	return s.resp, nil
}

func (s *fakeSource) NewPrices(ctx context.Context) (*fuelapi.PriceResponse, error) {
	s.newCalls++
	if s.newErr != nil {
		return nil, s.newErr
	}
	return s.resp, nil
}

type fakePublisher struct {
	batches [][]event.PriceUpdateEvent
	err     error
}

func (p *fakePublisher) PublishBatch(ctx context.Context, events []event.PriceUpdateEvent) (int, error) {
	p.batches = append(p.batches, events)
	if p.err != nil {
		return 0, p.err
	}
	return len(events), nil
}

type fakeMirror struct {
	rows int
	err  error
}

func (m *fakeMirror) Append(events []event.PriceUpdateEvent) error {
	if m.err != nil {
		return m.err
	}
	m.rows += len(events)
	return nil
}

func sourceResponse() *fuelapi.PriceResponse {
	return &fuelapi.PriceResponse{
		Stations: []fuelapi.RawStation{
			{
				Code: "S1", Name: "Acme", Address: "1 Rd, Town 2000", Brand: "Acme",
				Location: fuelapi.RawLocation{Latitude: -33.8, Longitude: 151.2},
			},
		},
		Prices: []fuelapi.RawPrice{
			{StationCode: "S1", FuelType: "E10", Price: 1.55, LastUpdated: "2024-01-01"},
		},
	}
}

func newFeeder(src *fakeSource, pub *fakePublisher, mirror feeder.EventMirror) *feeder.Feeder {
	return feeder.New(src, pub, mirror, time.Minute, nil, zerolog.Nop())
}

func TestRunCycle_FirstAllThenNew(t *testing.T) {
	src := &fakeSource{resp: sourceResponse()}
	pub := &fakePublisher{}
	f := newFeeder(src, pub, nil)

	for i := 0; i < 3; i++ {
		if got := f.RunCycle(context.Background()); got != feeder.OutcomeOK {
			t.Fatalf("cycle %d outcome: got %q", i, got)
		}
	}

	if src.allCalls != 1 || src.newCalls != 2 {
		t.Errorf("calls: all %d new %d, want 1/2", src.allCalls, src.newCalls)
	}
	if len(pub.batches) != 3 || len(pub.batches[0]) != 1 {
		t.Errorf("published batches: %d", len(pub.batches))
	}
}

func TestRunCycle_FetchErrorRetriesFullFetch(t *testing.T) {
	src := &fakeSource{resp: sourceResponse(), allErr: errors.New("timeout")}
	pub := &fakePublisher{}
	f := newFeeder(src, pub, nil)

	if got := f.RunCycle(context.Background()); got != feeder.OutcomeFetchError {
		t.Fatalf("outcome: got %q", got)
	}
	if len(pub.batches) != 0 {
		t.Errorf("nothing should be published on fetch error")
	}

	// The full fetch has not succeeded yet, so the next cycle retries it
	// rather than switching to the delta endpoint.
	src.allErr = nil
	if got := f.RunCycle(context.Background()); got != feeder.OutcomeOK {
		t.Fatalf("outcome: got %q", got)
	}
	if src.allCalls != 2 || src.newCalls != 0 {
		t.Errorf("calls: all %d new %d, want 2/0", src.allCalls, src.newCalls)
	}
}

func TestRunCycle_CredentialFailureSkips(t *testing.T) {
	src := &fakeSource{allErr: fuelapi.ErrCredentialFailure}
	pub := &fakePublisher{}
	f := newFeeder(src, pub, nil)

	if got := f.RunCycle(context.Background()); got != feeder.OutcomeCredential {
		t.Errorf("outcome: got %q", got)
	}
	if len(pub.batches) != 0 {
		t.Errorf("nothing should be published on credential failure")
	}
}

func TestRunCycle_PublishError(t *testing.T) {
	src := &fakeSource{resp: sourceResponse()}
	pub := &fakePublisher{err: errors.New("broker down")}
	f := newFeeder(src, pub, nil)

	if got := f.RunCycle(context.Background()); got != feeder.OutcomePublishErr {
		t.Errorf("outcome: got %q", got)
	}
}

func TestRunCycle_MirrorReceivesCleanedEvents(t *testing.T) {
	src := &fakeSource{resp: sourceResponse()}
	pub := &fakePublisher{}
	mirror := &fakeMirror{}
	f := newFeeder(src, pub, mirror)

	if got := f.RunCycle(context.Background()); got != feeder.OutcomeOK {
		t.Fatalf("outcome: got %q", got)
	}
	if mirror.rows != 1 {
		t.Errorf("mirror rows: got %d, want 1", mirror.rows)
	}
}

func TestRunCycle_MirrorFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{resp: sourceResponse()}
	pub := &fakePublisher{}
	mirror := &fakeMirror{err: errors.New("disk full")}
	f := newFeeder(src, pub, mirror)

	if got := f.RunCycle(context.Background()); got != feeder.OutcomeOK {
		t.Errorf("mirror failure should not degrade the cycle, got %q", got)
	}
	if len(pub.batches) != 1 {
		t.Errorf("publish should still run, got %d batches", len(pub.batches))
	}
}

// countingSource is safe to observe while the poll loop runs.
type countingSource struct {
	calls atomic.Int32
	resp  *fuelapi.PriceResponse
}

func (s *countingSource) AllPrices(ctx context.Context) (*fuelapi.PriceResponse, error) {
	s.calls.Add(1)
	return s.resp, nil
}

func (s *countingSource) NewPrices(ctx context.Context) (*fuelapi.PriceResponse, error) {
	s.calls.Add(1)
	return s.resp, nil
}

type discardPublisher struct{}

func (discardPublisher) PublishBatch(ctx context.Context, events []event.PriceUpdateEvent) (int, error) {
	return len(events), nil
}

func TestFeeder_Lifecycle(t *testing.T) {
	src := &countingSource{resp: sourceResponse()}
	f := feeder.New(src, discardPublisher{}, nil, 10*time.Millisecond, nil, zerolog.Nop())

	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.Start(context.Background()); err == nil {
		t.Error("second start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if f.IsRunning() {
		t.Error("feeder should report stopped")
	}
	if src.calls.Load() == 0 {
		t.Error("poll loop never ran a cycle")
	}
}
