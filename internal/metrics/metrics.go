// Package metrics holds the process-wide Prometheus collectors and adapters
// that feed storage observations into them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

var (
	StoreOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiolog_store_operation_duration_seconds",
		Help:    "Duration of chunk log operations against the backing store",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"op"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiolog_store_errors_total",
		Help: "Chunk log operations that failed, by operation",
	}, []string{"op"})

	IngestMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolog_ingest_messages_total",
		Help: "Chunks received over ingestion connections",
	})

	IngestBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolog_ingest_bytes_total",
		Help: "Payload bytes received over ingestion connections",
	})

	IngestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolog_ingest_failures_total",
		Help: "Chunks that could not be appended",
	})

	IngestConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiolog_ingest_connections",
		Help: "Open ingestion connections",
	})

	RecordsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolog_records_deleted_total",
		Help: "Records removed through the deletion API",
	})

	RecordsTrimmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiolog_records_trimmed_total",
		Help: "Records evicted by trimming in the embedded store",
	}, []string{"stream"})

	PebbleReadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolog_pebble_read_bytes_total",
		Help: "Bytes read from Pebble point lookups",
	})

	PebbleCommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audiolog_pebble_commit_duration_seconds",
		Help:    "Duration of Pebble batch commits",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiolog_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// PebbleHook reports Pebble observations.
type PebbleHook struct{}

func (PebbleHook) ObserveRead(_ time.Duration, bytes int) { PebbleReadBytes.Add(float64(bytes)) }
func (PebbleHook) ObserveBatchCommit(elapsed time.Duration, _ int, _ int) {
	PebbleCommitDuration.Observe(elapsed.Seconds())
}

// TrimHook counts evicted records per stream.
type TrimHook struct{}

func (TrimHook) OnTrim(stream string, _, _ id.ID, n int) {
	RecordsTrimmed.WithLabelValues(stream).Add(float64(n))
}
