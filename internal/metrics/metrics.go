// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 13d5d9dd-68fb-4d2d-a2b0-3f3eeb4990aa

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	resolutionStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "resolutions_started_total",
		Help:      "Total number of alias resolutions started",
	})
	resolutionCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "resolutions_completed_total",
		Help:      "Total number of alias resolutions completed by match type",
	}, []string{"match_type"})
	resolutionAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cpe_resolver",
		Name:      "resolution_attempts",
		Help:      "Number of audit rounds per completed resolution",
		Buckets:   []float64{0, 1, 2, 3, 4, 6, 10},
	})
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cpe_resolver",
		Name:      "stage_duration_seconds",
		Help:      "Histogram of pipeline stage durations in seconds by stage",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms up to ~80s
	}, []string{"stage"})
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "result_cache_lookups_total",
		Help:      "Result cache lookups by outcome (hit, miss, error)",
	}, []string{"outcome"})

	generationCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "generation_calls_total",
		Help:      "Total text-generation calls by backend and outcome",
	}, []string{"backend", "outcome"})
	externalInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cpe_resolver",
		Name:      "external_calls_in_flight",
		Help:      "Number of external generation calls currently in flight",
	})
	rateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "rate_limit_waits_total",
		Help:      "Number of times a caller was delayed by the minimum-interval limiter",
	})
	rateLimitWaitSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "rate_limit_wait_seconds_total",
		Help:      "Total seconds spent waiting on the minimum-interval limiter",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "http_requests_total",
		Help:      "HTTP API requests by route and status code",
	}, []string{"route", "status"})
	httpRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cpe_resolver",
		Name:      "http_rejected_total",
		Help:      "HTTP API requests rejected by middleware, by reason",
	}, []string{"reason"})
	indexDocuments = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cpe_resolver",
		Name:      "index_documents",
		Help:      "Number of documents in the loaded candidate index",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(resolutionStarted, resolutionCompleted, resolutionAttempts, stageDuration,
			cacheLookups, generationCalls, externalInFlight, rateLimitWaits, rateLimitWaitSeconds,
			httpRequests, httpRejected, indexDocuments)
	})
}

// Resolution lifecycle helpers
func IncResolutionStarted() { resolutionStarted.Inc() }
func IncResolutionCompleted(matchType string, attempts int) {
	resolutionCompleted.WithLabelValues(matchType).Inc()
	resolutionAttempts.Observe(float64(attempts))
}
func ObserveStageDuration(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
func IncCacheLookup(outcome string) { cacheLookups.WithLabelValues(outcome).Inc() }

// External call helpers
func IncGenerationCall(backend, outcome string) { generationCalls.WithLabelValues(backend, outcome).Inc() }
func IncExternalInFlight()                      { externalInFlight.Inc() }
func DecExternalInFlight()                      { externalInFlight.Dec() }
func ObserveRateLimitWait(d time.Duration) {
	rateLimitWaits.Inc()
	rateLimitWaitSeconds.Add(d.Seconds())
}

// HTTP helpers
func IncHTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
func IncHTTPRejected(reason string) { httpRejected.WithLabelValues(reason).Inc() }

// Gauges
func SetIndexDocuments(n int) { indexDocuments.Set(float64(n)) }
