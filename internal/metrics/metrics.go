// Package metrics provides Prometheus metrics collection for the application.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Rate limiting
	RateLimitDecisions *prometheus.CounterVec
	RateLimitErrors    *prometheus.CounterVec

	// Generation pipeline
	GenerationAttempts *prometheus.CounterVec
	GenerationResults  *prometheus.CounterVec
	CandidatesRejected prometheus.Counter
	GenerationDuration prometheus.Histogram

	// Cooking
	CookOutcomes *prometheus.CounterVec

	// Archive
	ArchiveFailures prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics() *Metrics {
	m := newMetrics(prometheus.DefaultRegisterer)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsWithRegistry creates metrics using a custom registry (for testing).
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newMetrics(reg)
	m.gatherer = reg
	return m
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrychef_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pantrychef_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrychef_rate_limit_decisions_total",
				Help: "Rate limiter decisions by scope and outcome",
			},
			[]string{"scope", "outcome"}, // "allowed", "denied", "bypassed"
		),
		RateLimitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrychef_rate_limit_store_errors_total",
				Help: "Rate limit store failures (requests were allowed through)",
			},
			[]string{"scope"},
		),
		GenerationAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrychef_generation_attempts_total",
				Help: "Text generation attempts by attempt number and outcome",
			},
			[]string{"attempt", "outcome"}, // "ok", "upstream_error", "unparseable", "empty"
		),
		GenerationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrychef_generation_results_total",
				Help: "Persisted generation results by provenance",
			},
			[]string{"provenance"},
		),
		CandidatesRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pantrychef_candidates_rejected_total",
				Help: "Recipe candidates dropped by stock validation",
			},
		),
		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pantrychef_generation_duration_seconds",
				Help:    "End-to-end recipe generation duration",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 40, 60},
			},
		),
		CookOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrychef_cook_outcomes_total",
				Help: "Stock cooking attempts by outcome",
			},
			[]string{"outcome"}, // "committed", "conflict", "insufficient", "not_found", "error"
		),
		ArchiveFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pantrychef_archive_failures_total",
				Help: "Generation results that could not be archived",
			},
		),
	}
}

// Handler returns an HTTP handler exposing the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
