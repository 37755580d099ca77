package invoke

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports engine activity to Prometheus.
type Metrics struct {
	calls       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inflight    prometheus.Gauge
	superseded  prometheus.Counter
	schemaLoads prometheus.Counter
}

// NewMetrics registers engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abiconsole",
			Subsystem: "invoke",
			Name:      "calls_total",
			Help:      "Resolved calls by dispatch path and outcome.",
		}, []string{"path", "outcome", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "abiconsole",
			Subsystem: "invoke",
			Name:      "call_duration_seconds",
			Help:      "Time from dispatch to resolution, including confirmation waits.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 30, 60, 120},
		}, []string{"path"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "abiconsole",
			Subsystem: "invoke",
			Name:      "calls_in_flight",
			Help:      "Calls dispatched and not yet resolved.",
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abiconsole",
			Subsystem: "invoke",
			Name:      "superseded_total",
			Help:      "Call outcomes discarded because a newer call or schema replaced them.",
		}),
		schemaLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abiconsole",
			Subsystem: "invoke",
			Name:      "schema_loads_total",
			Help:      "Interfaces loaded into the engine.",
		}),
	}
	reg.MustRegister(m.calls, m.duration, m.inflight, m.superseded, m.schemaLoads)
	return m
}

// A nil *Metrics records nothing.

func (m *Metrics) dispatched() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) resolved(path string, phase Phase, code string, since time.Time) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.calls.WithLabelValues(path, string(phase), code).Inc()
	m.duration.WithLabelValues(path).Observe(time.Since(since).Seconds())
}

func (m *Metrics) rejected(code string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues("", string(PhaseFailed), code).Inc()
}

func (m *Metrics) discarded() {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.superseded.Inc()
}

func (m *Metrics) loaded() {
	if m == nil {
		return
	}
	m.schemaLoads.Inc()
}
