// Package metrics exposes Prometheus collectors for the roster service.
// Collectors live on a caller-supplied registry; a nil *Metrics is a valid
// no-op recorder.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/shift-roster/internal/persistence"
)

const namespace = "roster"

// Outcome labels for store operations.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics groups every collector.
type Metrics struct {
	registry *prometheus.Registry

	// =========================================================================
	// Store
	// =========================================================================
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// =========================================================================
	// Roster domain
	// =========================================================================
	Publishes        prometheus.Counter
	OverlapRejects   prometheus.Counter
	ComplianceIssues *prometheus.GaugeVec
	ComplianceRuns   prometheus.Counter
	LiveRefreshes    *prometheus.CounterVec
	NotifyEvents     *prometheus.CounterVec

	// =========================================================================
	// HTTP
	// =========================================================================
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry)
}

// NewWithRegistry registers the roster collectors on registry only.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,

		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in store round-trips",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		Publishes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Stage documents successfully published to live",
		}),

		OverlapRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlap_rejections_total",
			Help:      "Shift edits blocked because they overlap another shift of the same person",
		}),

		ComplianceIssues: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "issues",
			Help:      "Issues found by the most recent compliance evaluation, by rule and severity",
		}, []string{"rule", "severity"}),

		ComplianceRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "evaluations_total",
			Help:      "Compliance evaluations performed",
		}),

		LiveRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liveview",
			Name:      "refreshes_total",
			Help:      "Live document refreshes by trigger and result",
		}, []string{"trigger", "result"}),

		NotifyEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "events_total",
			Help:      "Publish notifications sent or received",
		}, []string{"direction", "result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Outcome classifies err for the store outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, persistence.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, persistence.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// ObserveStore records one store round-trip that began at start.
func (m *Metrics) ObserveStore(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(operation, Outcome(err)).Inc()
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncPublishes counts a successful publish.
func (m *Metrics) IncPublishes() {
	if m == nil {
		return
	}
	m.Publishes.Inc()
}

// IncOverlapRejects counts an edit blocked by an overlap.
func (m *Metrics) IncOverlapRejects() {
	if m == nil {
		return
	}
	m.OverlapRejects.Inc()
}

// IssueCount is one (rule, severity) bucket of a compliance run.
type IssueCount struct {
	Rule     string
	Severity string
	Count    int
}

// SetComplianceIssues replaces the issue gauges with counts from a run.
func (m *Metrics) SetComplianceIssues(counts []IssueCount) {
	if m == nil {
		return
	}
	m.ComplianceRuns.Inc()
	m.ComplianceIssues.Reset()
	for _, c := range counts {
		m.ComplianceIssues.WithLabelValues(c.Rule, c.Severity).Add(float64(c.Count))
	}
}

// ObserveLiveRefresh counts a live view refresh.
func (m *Metrics) ObserveLiveRefresh(trigger string, err error) {
	if m == nil {
		return
	}
	m.LiveRefreshes.WithLabelValues(trigger, Outcome(err)).Inc()
}

// ObserveNotify counts a notification sent ("out") or received ("in").
func (m *Metrics) ObserveNotify(direction string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotifyEvents.WithLabelValues(direction, result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
