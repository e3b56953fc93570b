// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_pages_total",
			Help: "Total number of pages fetched, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)

	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_markdown_bytes_total",
			Help: "Total markdown bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_fetch_retries_total",
			Help: "Total number of fetch retries, labeled by rule.",
		},
		[]string{"rule"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_runs_total",
			Help: "Total number of pipeline runs, labeled by status kind.",
		},
		[]string{"kind"},
	)

	documentChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venue_document_chars",
			Help:    "Size of the final document written per record.",
			Buckets: []float64{500, 2000, 5000, 10000, 25000, 50000, 95000},
		},
	)

	pacerDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venue_pacer_delay_seconds",
			Help:    "Histogram of inter-request pacing waits.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "venue_active_workers",
			Help: "Number of workers currently processing a run.",
		},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one fetched page.
func ObservePage(site string, outcome string, bytesFetched int) {
	host := SanitizeSite(site)
	pagesTotal.WithLabelValues(host, outcome).Inc()
	if bytesFetched > 0 {
		bytesTotal.WithLabelValues(host).Add(float64(bytesFetched))
	}
}

// ObserveRetry counts one retry granted by the named rule.
func ObserveRetry(rule string) {
	retriesTotal.WithLabelValues(rule).Inc()
}

// ObserveRun counts a finished run by its status kind.
func ObserveRun(kind string) {
	runsTotal.WithLabelValues(kind).Inc()
}

// ObserveDocument records the size of a written document.
func ObserveDocument(chars int) {
	documentChars.Observe(float64(chars))
}

// ObservePacerDelay records the duration of an inter-request wait.
func ObservePacerDelay(duration time.Duration) {
	pacerDelaySeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
