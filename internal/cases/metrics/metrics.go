package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the case module. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Commands by name and result ("ok" or the error kind)
	Commands *prometheus.CounterVec

	// Status transitions by target status and result
	Transitions *prometheus.CounterVec

	// Saves rejected because the case moved underneath the writer
	StaleWrites prometheus.Counter

	// Case numbers regenerated after a collision
	NumberCollisions prometheus.Counter

	// Audit events handed to the exporter by category and result
	ExportedEvents *prometheus.CounterVec

	// Operational events dropped by the export buffer
	ExportDropped prometheus.Counter

	// Time spent persisting and exporting one command
	CommandLatency prometheus.Histogram
}

// New registers the case metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the case metrics with reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_commands_total",
			Help: "Case commands executed, by command and result",
		}, []string{"command", "result"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_status_transitions_total",
			Help: "Case status transitions attempted, by target status and result",
		}, []string{"target", "result"}),

		StaleWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "casework_stale_writes_total",
			Help: "Case saves rejected by optimistic concurrency",
		}),

		NumberCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "casework_case_number_collisions_total",
			Help: "Case numbers regenerated because the first choice was taken",
		}),

		ExportedEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_audit_events_exported_total",
			Help: "Audit events handed to the exporter, by category and result",
		}, []string{"category", "result"}),

		ExportDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_events_dropped_total",
			Help: "Operational audit events dropped because the export buffer was full or the broker unhealthy",
		}),

		CommandLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "casework_command_duration_seconds",
			Help:    "Duration of a case command including load, save and export",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementCommand records the result of a command.
func (m *Metrics) IncrementCommand(command, result string) {
	if m != nil {
		m.Commands.WithLabelValues(command, result).Inc()
	}
}

// IncrementTransition records an attempted status transition.
func (m *Metrics) IncrementTransition(target, result string) {
	if m != nil {
		m.Transitions.WithLabelValues(target, result).Inc()
	}
}

func (m *Metrics) IncrementStaleWrites() {
	if m != nil {
		m.StaleWrites.Inc()
	}
}

func (m *Metrics) IncrementNumberCollisions() {
	if m != nil {
		m.NumberCollisions.Inc()
	}
}

// AddExported records n events of a category handed to the exporter.
func (m *Metrics) AddExported(category, result string, n int) {
	if m != nil && n > 0 {
		m.ExportedEvents.WithLabelValues(category, result).Add(float64(n))
	}
}

func (m *Metrics) IncrementExportDropped() {
	if m != nil {
		m.ExportDropped.Inc()
	}
}

// ObserveCommandLatency records the total duration of one command.
func (m *Metrics) ObserveCommandLatency(d time.Duration) {
	if m != nil {
		m.CommandLatency.Observe(d.Seconds())
	}
}
