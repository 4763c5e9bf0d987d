// Package metrics exposes Prometheus collectors for the podcast viewer.
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
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	syncRowsTotal              prometheus.Counter
	syncDurationSeconds        *prometheus.HistogramVec
	catalogSize                prometheus.Gauge
	submissionsTotal           *prometheus.CounterVec
	processorDurationSeconds   *prometheus.HistogramVec
	feedChecksTotal            *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120, 300, 600},
			},
			[]string{"method", "route"},
		)

		syncRowsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "podcast_sync_rows_total",
				Help: "Total spreadsheet rows written to the record store.",
			},
		)

		syncDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "podcast_sync_duration_seconds",
				Help:    "Wall time of a spreadsheet sync, labeled by result.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"result"},
		)

		catalogSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "podcast_catalog_size",
				Help: "Number of distinct podcast titles in the last loaded catalog.",
			},
		)

		submissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podcast_submissions_total",
				Help: "Feed submissions, labeled by result.",
			},
			[]string{"result"},
		)

		processorDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "podcast_processor_duration_seconds",
				Help:    "Remote processor round-trip time, labeled by result.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"result"},
		)

		feedChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podcast_feed_checks_total",
				Help: "Feed pre-checks, labeled by result.",
			},
			[]string{"result"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSync records one sync run.
func ObserveSync(rows int, err error, duration time.Duration) {
	Init()
	if rows > 0 {
		syncRowsTotal.Add(float64(rows))
	}
	syncDurationSeconds.WithLabelValues(result(err)).Observe(duration.Seconds())
}

// SetCatalogSize records the size of the last loaded catalog.
func SetCatalogSize(n int) {
	Init()
	catalogSize.Set(float64(n))
}

// ObserveSubmission increments the submission counter for the given result.
func ObserveSubmission(resultLabel string) {
	Init()
	submissionsTotal.WithLabelValues(resultLabel).Inc()
}

// ObserveProcessor records a remote processor call.
func ObserveProcessor(err error, duration time.Duration) {
	Init()
	processorDurationSeconds.WithLabelValues(result(err)).Observe(duration.Seconds())
}

// ObserveFeedCheck records a feed pre-check. Feed URLs come from anonymous
// visitors, so the host is not a label.
func ObserveFeedCheck(err error) {
	Init()
	feedChecksTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
