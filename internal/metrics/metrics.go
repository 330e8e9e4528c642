// ABOUTME: Prometheus collectors for room provisioning, reaping, and interactions
// ABOUTME: All recording methods are nil-safe so metrics can be disabled by passing nil

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tempvoice"

// Interaction outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeThrottled = "throttled"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	roomsCreated   prometheus.Counter
	createFailures prometheus.Counter
	roomsReaped    prometheus.Counter
	reapFailures   prometheus.Counter
	throttled      *prometheus.CounterVec
	interactions   *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	configured     prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.roomsCreated = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "voice rooms provisioned from a spawner",
		},
	)
	m.createFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_create_failures_total",
			Help:      "room provisioning attempts that failed at the platform",
		},
	)
	m.roomsReaped = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_reaped_total",
			Help:      "empty rooms deleted by the reaper",
		},
	)
	m.reapFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reap_failures_total",
			Help:      "room deletions that failed at the platform",
		},
	)
	m.throttled = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_total",
			Help:      "actions rejected by a cooldown, by action",
		},
		[]string{"action"},
	)
	m.interactions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "panel interactions handled, by control and outcome",
		},
		[]string{"control", "outcome"},
	)
	m.sweepDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaper_sweep_seconds",
			Help:      "wall time of one reaper sweep",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)
	m.configured = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configured_communities",
			Help:      "communities with a stored configuration",
		},
	)

	return m
}

// RoomCreated counts a provisioned room.
func (m *Metrics) RoomCreated() {
	if m == nil {
		return
	}
	m.roomsCreated.Inc()
}

// RoomCreateFailed counts a failed provisioning attempt.
func (m *Metrics) RoomCreateFailed() {
	if m == nil {
		return
	}
	m.createFailures.Inc()
}

// RoomReaped counts a deleted empty room.
func (m *Metrics) RoomReaped() {
	if m == nil {
		return
	}
	m.roomsReaped.Inc()
}

// ReapFailed counts a failed deletion.
func (m *Metrics) ReapFailed() {
	if m == nil {
		return
	}
	m.reapFailures.Inc()
}

// Throttled counts a cooldown rejection for action.
func (m *Metrics) Throttled(action string) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(action).Inc()
}

// Interaction counts one handled interaction.
func (m *Metrics) Interaction(control, outcome string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(control, outcome).Inc()
}

// ObserveSweep records the duration of a reaper sweep.
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

// SetConfigured records how many communities are configured.
func (m *Metrics) SetConfigured(n int) {
	if m == nil {
		return
	}
	m.configured.Set(float64(n))
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
