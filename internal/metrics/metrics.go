// Package metrics provides the Prometheus collectors for walletvet.
// Collectors live on a private registry so tests and embedders do not
// collide with the default one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletvet"

// Registry holds every walletvet collector.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Registry = prometheus.NewRegistry()

//nolint:gochecknoglobals // Intentional globals for metrics access
var (
	factory = promauto.With(Registry)

	// Ledger
	UpstreamCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "upstream_calls_total",
		Help:      "Upstream ledger calls by upstream and status",
	}, []string{"upstream", "status"})

	UpstreamLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "upstream_duration_seconds",
		Help:      "Upstream ledger call duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"upstream"})

	LimiterWaits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "limiter_waits_total",
		Help:      "Calls that had to wait for a rate limiter token",
	}, []string{"upstream"})

	LimiterWaitSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "limiter_wait_seconds",
		Help:      "Time spent waiting for a rate limiter token",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"upstream"})

	Retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "retries_total",
		Help:      "Upstream calls retried after a retryable failure",
	}, []string{"upstream"})

	CacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "cache_hits_total",
		Help:      "Snapshot cache hits",
	})

	CacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "cache_misses_total",
		Help:      "Snapshot cache misses",
	})

	// Verification
	Checks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verify",
		Name:      "checks_total",
		Help:      "Verification attempts by outcome",
	}, []string{"outcome"})

	// Batch
	BatchItems = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "items_total",
		Help:      "Batch items by final status",
	}, []string{"status"})

	BatchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "job_duration_seconds",
		Help:      "Batch job wall-clock duration",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
	})
)

// Upstream call status labels.
const (
	StatusOK          = "ok"
	StatusRateLimited = "rate_limited"
	StatusError       = "error"
	StatusMalformed   = "malformed"
)

// Batch item status labels.
const (
	ItemSucceeded = "succeeded"
	ItemFailed    = "failed"
	ItemCanceled  = "canceled"
)

// RecordUpstreamCall records one upstream call with its duration and status.
func RecordUpstreamCall(upstream, status string, duration time.Duration) {
	UpstreamCalls.WithLabelValues(upstream, status).Inc()
	UpstreamLatency.WithLabelValues(upstream).Observe(duration.Seconds())
}

// RecordLimiterWait records time spent blocked on a limiter. Zero waits are
// not counted.
func RecordLimiterWait(upstream string, waited time.Duration) {
	if waited <= 0 {
		return
	}
	LimiterWaits.WithLabelValues(upstream).Inc()
	LimiterWaitSeconds.WithLabelValues(upstream).Observe(waited.Seconds())
}

// Handler returns an HTTP handler exposing the walletvet registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
