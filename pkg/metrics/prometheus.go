// Package metrics provides Prometheus metrics for the rebar ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission results used as label values.
const (
	SubmissionAccepted    = "accepted"
	SubmissionDuplicate   = "duplicate"
	SubmissionRateLimited = "rate_limited"
)

// Recompute triggers used as label values.
const (
	TriggerAuto    = "auto"
	TriggerAdmin   = "admin"
	TriggerRestore = "restore"
)

// latencyBucketsMs covers sub-millisecond resorts up to slow backup writes.
var latencyBucketsMs = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the rebar service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Store metrics
	submissions       *prometheus.CounterVec
	votes             *prometheus.CounterVec
	recomputes        *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	itemsTotal        prometheus.Gauge
	rankedViewSize    prometheus.Gauge
	pendingChanges    prometheus.Gauge
	submitters        prometheus.Gauge
	seenContent       prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpThrottled       *prometheus.CounterVec

	// Backup metrics
	backupSaves     prometheus.Counter
	backupDuration  prometheus.Histogram
	backupLastUnix  prometheus.Gauge
	backupLastItems prometheus.Gauge

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rebar",
		subsystem:        "showcase",
		histogramBuckets: latencyBucketsMs,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Submissions by result (accepted, duplicate, rate_limited)",
	}, []string{"result"})

	m.votes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_total",
		Help:      "Votes by outcome (applied, ignored)",
	}, []string{"outcome"})

	m.recomputes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recomputes_total",
		Help:      "Ranked view recomputations by trigger",
	}, []string{"trigger"})

	m.recomputeDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_duration_milliseconds",
		Help:      "Time spent scoring and sorting the retention window",
		Buckets:   m.histogramBuckets,
	})

	m.itemsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items_total",
		Help:      "Number of items ever accepted",
	})

	m.rankedViewSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_view_size",
		Help:      "Number of items in the current ranked view",
	})

	m.pendingChanges = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_changes",
		Help:      "Weighted mutations since the last recompute",
	})

	m.submitters = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_submitters",
		Help:      "Submitters tracked by the rate-limit ledger",
	})

	m.seenContent = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "seen_content_keys",
		Help:      "Canonical content keys held for deduplication",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpThrottled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_throttled_total",
		Help:      "Requests refused by the per-address throttle",
	}, []string{"endpoint"})

	m.backupSaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backup_saves_total",
		Help:      "Snapshots written successfully",
	})

	m.backupDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backup_save_duration_milliseconds",
		Help:      "Time spent encoding and writing a snapshot",
		Buckets:   m.histogramBuckets,
	})

	m.backupLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backup_last_success_unix",
		Help:      "Unix time of the latest successful snapshot",
	})

	m.backupLastItems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backup_last_items",
		Help:      "Items contained in the latest successful snapshot",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
	})
}

// RecordSubmission counts one submission attempt by result.
func RecordSubmission(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.submissions.WithLabelValues(result).Inc()
}

// RecordVote counts one vote attempt.
func RecordVote(applied bool) {
	if !globalManager.enabled {
		return
	}
	outcome := "ignored"
	if applied {
		outcome = "applied"
	}
	globalManager.votes.WithLabelValues(outcome).Inc()
}

// RecordRecompute counts one recompute and its duration.
func RecordRecompute(trigger string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.recomputes.WithLabelValues(trigger).Inc()
	globalManager.recomputeDuration.Observe(durationMs)
}

// UpdateStoreSizes sets the store gauges in one call.
func UpdateStoreSizes(items, ranked, pending, submitters, seen int) {
	if !globalManager.enabled {
		return
	}
	globalManager.itemsTotal.Set(float64(items))
	globalManager.rankedViewSize.Set(float64(ranked))
	globalManager.pendingChanges.Set(float64(pending))
	globalManager.submitters.Set(float64(submitters))
	globalManager.seenContent.Set(float64(seen))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordThrottled counts a request refused by the per-address throttle.
func RecordThrottled(endpoint string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpThrottled.WithLabelValues(endpoint).Inc()
}

// RecordBackupSave records a successful snapshot write.
func RecordBackupSave(durationMs float64, items int, unix float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.backupSaves.Inc()
	globalManager.backupDuration.Observe(durationMs)
	globalManager.backupLastItems.Set(float64(items))
	globalManager.backupLastUnix.Set(unix)
}

// RecordErrorByComponent counts an error raised inside a component.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SetEnabled turns recording on or off for the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
