package timers

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the prometheus collectors for the registry
type Metrics struct {
	armed   *prometheus.CounterVec
	fired   *prometheus.CounterVec
	pending *prometheus.GaugeVec
}

// NewMetrics creates and registers the registry collectors
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		armed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otl",
			Subsystem: "timers",
			Name:      "armed_total",
			Help:      "Timers scheduled, by kind.",
		}, []string{"kind"}),
		fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otl",
			Subsystem: "timers",
			Name:      "fired_total",
			Help:      "Timers that fired, by kind and handler outcome.",
		}, []string{"kind", "outcome"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "otl",
			Subsystem: "timers",
			Name:      "pending",
			Help:      "Timers currently armed, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.armed, m.fired, m.pending)
	}
	return m
}
