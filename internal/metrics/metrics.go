// Package metrics exposes Prometheus collectors for the ingest service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal       *prometheus.CounterVec
	inflightFetches    prometheus.Gauge
	recordsTotal       *prometheus.CounterVec
	sinkFailuresTotal  *prometheus.CounterVec
	embeddingSeconds   *prometheus.HistogramVec
	ingestRunsTotal    *prometheus.CounterVec
	objectBytesWritten prometheus.Counter
	httpSeconds        *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_fetches_total",
				Help: "Total page fetches, labeled by outcome (ok, non_200, error).",
			},
			[]string{"outcome"},
		)

		inflightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ingest_inflight_fetches",
				Help: "Fetches currently holding an admission slot.",
			},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_records_total",
				Help: "Scraped records processed, labeled by category and result.",
			},
			[]string{"category", "result"},
		)

		sinkFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_sink_failures_total",
				Help: "Write failures per sink (object, vector, relational).",
			},
			[]string{"sink"},
		)

		embeddingSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_embedding_seconds",
				Help:    "Embedding call latency by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Completed ingest runs by status.",
			},
			[]string{"status"},
		)

		objectBytesWritten = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_object_bytes_total",
				Help: "Total bytes written to the object store.",
			},
		)

		httpSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_http_request_seconds",
				Help:    "Ops API request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		)
	})
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch counts one fetch outcome.
func ObserveFetch(outcome string) {
	if fetchesTotal != nil {
		fetchesTotal.WithLabelValues(outcome).Inc()
	}
}

// FetchStarted marks an admission slot as occupied.
func FetchStarted() {
	if inflightFetches != nil {
		inflightFetches.Inc()
	}
}

// FetchFinished releases the in-flight gauge.
func FetchFinished() {
	if inflightFetches != nil {
		inflightFetches.Dec()
	}
}

// ObserveRecord counts one processed record.
func ObserveRecord(category, result string) {
	if recordsTotal != nil {
		recordsTotal.WithLabelValues(category, result).Inc()
	}
}

// ObserveSinkFailure counts one sink write failure.
func ObserveSinkFailure(sink string) {
	if sinkFailuresTotal != nil {
		sinkFailuresTotal.WithLabelValues(sink).Inc()
	}
}

// ObserveEmbedding records one embedding call's latency.
func ObserveEmbedding(kind string, d time.Duration) {
	if embeddingSeconds != nil {
		embeddingSeconds.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveRun counts one finished ingest run.
func ObserveRun(status string) {
	if ingestRunsTotal != nil {
		ingestRunsTotal.WithLabelValues(status).Inc()
	}
}

// ObserveObjectBytes adds to the object-store byte counter.
func ObserveObjectBytes(n int) {
	if objectBytesWritten != nil {
		objectBytesWritten.Add(float64(n))
	}
}

// ObserveHTTPRequest records one ops API request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if httpSeconds != nil {
		httpSeconds.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
