// Package metrics exposes Prometheus collectors for the scraping service.
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
	scrapesTotal               *prometheus.CounterVec
	stageDurationSeconds       *prometheus.HistogramVec
	redactionsTotal            prometheus.Counter
	dictionaryEntries          *prometheus.GaugeVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitedTotal           prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safescrape_scrapes_total",
				Help: "Total number of scrape requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safescrape_stage_duration_seconds",
				Help:    "Histogram of time spent in each scrape stage.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		)

		redactionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safescrape_redactions_total",
				Help: "Total number of words replaced with the redaction marker.",
			},
		)

		dictionaryEntries = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "safescrape_dictionary_entries",
				Help: "Number of entries in each loaded block-list.",
			},
			[]string{"list"},
		)

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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "safescrape_rate_limited_total",
				Help: "Total number of requests rejected by the per-client rate limit.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveScrape increments the scrape counter for the given outcome.
func ObserveScrape(outcome string) {
	Init()
	scrapesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a scrape stage took.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddRedactions adds n to the redaction counter.
func AddRedactions(n int) {
	if n <= 0 {
		return
	}
	Init()
	redactionsTotal.Add(float64(n))
}

// SetDictionaryEntries records the size of a loaded block-list.
func SetDictionaryEntries(list string, n int) {
	Init()
	dictionaryEntries.WithLabelValues(list).Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimited increments the rate-limit rejection counter.
func ObserveRateLimited() {
	Init()
	rateLimitedTotal.Inc()
}
