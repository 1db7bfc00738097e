// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alumni_match"

var (
	// HTTPRequests counts finished requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route", "method"},
	)

	// ResumeFetches counts résumé downloads by outcome: ok, cache_hit,
	// unsupported, download_error, parse_error.
	ResumeFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resume_fetches_total",
			Help:      "Total number of résumé text lookups by outcome",
		},
		[]string{"outcome"},
	)

	// EmbeddingDuration observes embedding provider latency.
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding provider call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "status"},
	)
)

// Résumé fetch outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeCacheHit      = "cache_hit"
	OutcomeUnsupported   = "unsupported"
	OutcomeDownloadError = "download_error"
	OutcomeParseError    = "parse_error"
)
