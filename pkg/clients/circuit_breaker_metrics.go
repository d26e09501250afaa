package clients

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BreakerMetrics exports breaker state. Values: 0=closed, 1=half-open, 2=open.
type BreakerMetrics struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewBreakerMetrics registers the breaker collectors on reg.
func NewBreakerMetrics(reg prometheus.Registerer) *BreakerMetrics {
	m := &BreakerMetrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_state_transitions_total",
				Help: "Total number of circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
	}
	reg.MustRegister(m.state, m.transitions)
	return m
}

// Callback is suitable for CircuitBreakerConfig.OnStateChange.
func (m *BreakerMetrics) Callback() func(string, CircuitBreakerState, CircuitBreakerState) {
	return func(name string, from, to CircuitBreakerState) {
		m.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
		m.state.WithLabelValues(name).Set(float64(to))
	}
}

// Init publishes the starting state so the gauge exists before any transition.
func (m *BreakerMetrics) Init(cb *CircuitBreaker) {
	m.state.WithLabelValues(cb.Name()).Set(float64(cb.State()))
}
