package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Role wrapper metrics
	RoleDeployed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodecore_role_deployed",
			Help: "Whether a role is currently deployed on this node (1/0)",
		},
		[]string{"role"},
	)

	RoleRefCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodecore_role_ref_count",
			Help: "Outstanding acquire/mark references held on a role",
		},
		[]string{"role"},
	)

	// Dispatcher metrics
	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodecore_dispatch_duration_seconds",
			Help:    "Time taken to route and handle one message",
			Buckets: prometheus.DefBuckets,
		},
	)

	DispatchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodecore_dispatch_errors_total",
			Help: "Total number of dispatch failures by error code",
		},
		[]string{"code"},
	)

	// Log store metrics
	LogAppendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodecore_logstore_append_duration_seconds",
			Help:    "Time taken to append and fsync one log entry",
			Buckets: prometheus.DefBuckets,
		},
	)

	LogLastIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodecore_logstore_last_index",
			Help: "Highest durable index in the log store",
		},
	)

	LogCommitIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodecore_logstore_commit_index",
			Help: "Application-level commit index reported by the parent consensus node",
		},
	)

	// Show-session cache metrics
	ShowSessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodecore_show_sessions_open",
			Help: "Number of open show sessions",
		},
	)

	ShowSessionsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nodecore_show_sessions_evicted_total",
			Help: "Total number of show sessions evicted by TTL sweep",
		},
	)

	ShowRetrieveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodecore_show_retrieve_duration_seconds",
			Help:    "Time taken to serve one retrieve page",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RoleDeployed,
		RoleRefCount,
		DispatchDuration,
		DispatchErrorsTotal,
		LogAppendDuration,
		LogLastIndex,
		LogCommitIndex,
		ShowSessionsOpen,
		ShowSessionsEvictedTotal,
		ShowRetrieveDuration,
	)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
