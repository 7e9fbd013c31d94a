// Package metrics exposes Prometheus collectors for the discovery service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page fetch result labels.
const (
	PageFetched = "fetched"
	PageDenied  = "denied"
	PageFailed  = "failed"
)

var (
	discoveryJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_jobs_total",
			Help: "Total number of discovery job runs, labeled by resulting status.",
		},
		[]string{"status"},
	)

	discoveryPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_pages_total",
			Help: "Total number of candidate pages, labeled by fetch result.",
		},
		[]string{"result"},
	)

	discoveryLeadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_leads_total",
			Help: "Total number of merged leads, labeled by merge outcome.",
		},
		[]string{"outcome"},
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
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job run counter for the given status.
func ObserveJob(status string) {
	discoveryJobsTotal.WithLabelValues(status).Inc()
}

// ObservePage increments the page counter for the given fetch result.
func ObservePage(result string) {
	discoveryPagesTotal.WithLabelValues(result).Inc()
}

// ObserveLead increments the lead merge counter.
func ObserveLead(created bool) {
	outcome := "reused"
	if created {
		outcome = "created"
	}
	discoveryLeadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
