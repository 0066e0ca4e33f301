package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the FuelStream pipeline.
// The feeder and consumer each register the full set but only drive the
// series their side of the pipeline touches.
type Metrics struct {
	// --- Upstream API (feeder) ---
	APIRequests    *prometheus.CounterVec
	APIDuration    *prometheus.HistogramVec
	TokenFailures  prometheus.Counter
	PollCycles     *prometheus.CounterVec
	PollCycleDur   prometheus.Histogram

	// --- Normalization (feeder) ---
	RowsNormalized prometheus.Counter
	RowsDropped    *prometheus.CounterVec

	// --- Publishing (feeder) ---
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	MirrorRows      prometheus.Counter
	MirrorErrors    prometheus.Counter

	// --- Ingestion (consumer) ---
	MessagesReceived  prometheus.Counter
	MalformedPayloads prometheus.Counter
	QueueDepth        prometheus.Gauge

	// --- Drain cycle (consumer) ---
	EventsApplied prometheus.Counter
	EventsSkipped *prometheus.CounterVec
	DrainDuration prometheus.Histogram
	DrainBatch    prometheus.Histogram
	Stations      prometheus.Gauge

	// --- Snapshot API (consumer) ---
	SnapshotRequests *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram
	SnapshotSize     prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_api_requests_total",
			Help: "Upstream API requests by endpoint and outcome",
		}, []string{"endpoint", "status"}),

		APIDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fuel_api_request_duration_seconds",
			Help:    "Upstream API request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		TokenFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_token_failures_total",
			Help: "Access token exchanges that failed (cycle skipped)",
		}),

		PollCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_poll_cycles_total",
			Help: "Fetch-normalize-publish cycles by outcome",
		}, []string{"outcome"}),

		PollCycleDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuel_poll_cycle_duration_seconds",
			Help:    "Full poll cycle duration",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		RowsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_rows_normalized_total",
			Help: "Raw rows surviving the cleaning pipeline",
		}),

		RowsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_rows_dropped_total",
			Help: "Raw rows dropped during normalization by rule",
		}, []string{"rule"}),

		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_events_published_total",
			Help: "Events published to the broker",
		}),

		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_publish_errors_total",
			Help: "Publish attempts rejected by the broker",
		}),

		MirrorRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_mirror_rows_total",
			Help: "Cleaned events appended to the CSV mirror",
		}),

		MirrorErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_mirror_errors_total",
			Help: "CSV mirror write failures",
		}),

		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_messages_received_total",
			Help: "Broker messages delivered to the subscription callback",
		}),

		MalformedPayloads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_malformed_payloads_total",
			Help: "Messages dropped at enqueue time as undecodable",
		}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_queue_depth",
			Help: "Events waiting in the ingestion queue",
		}),

		EventsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fuel_events_applied_total",
			Help: "Events upserted into the station index",
		}),

		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_events_skipped_total",
			Help: "Events skipped during a drain cycle by reason",
		}, []string{"reason"}),

		DrainDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuel_drain_duration_seconds",
			Help:    "Time to apply one bounded drain cycle",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		DrainBatch: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuel_drain_batch_size",
			Help:    "Events popped per drain cycle",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}),

		Stations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_stations",
			Help: "Stations currently in the index",
		}),

		SnapshotRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_snapshot_requests_total",
			Help: "Snapshot queries by fuel code",
		}, []string{"fuel_code"}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuel_snapshot_duration_seconds",
			Help:    "Snapshot construction latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		SnapshotSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuel_snapshot_size",
			Help:    "Stations returned per snapshot",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
		}),
	}
}
