package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes transport health counters. A nil *Metrics is a valid no-op
// receiver so tests and embedders can skip registration.
type Metrics struct {
	transitions *prometheus.CounterVec
	pushEvents  *prometheus.CounterVec
	pollTicks   prometheus.Counter
	pollErrors  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopchat",
			Subsystem: "transport",
			Name:      "state_transitions_total",
			Help:      "Transport state machine transitions by target state.",
		}, []string{"state"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopchat",
			Subsystem: "transport",
			Name:      "push_events_total",
			Help:      "Push events received, by event type.",
		}, []string{"type"}),
		pollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopchat",
			Subsystem: "transport",
			Name:      "poll_ticks_total",
			Help:      "Message list fetches issued by the polling fallback.",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopchat",
			Subsystem: "transport",
			Name:      "poll_errors_total",
			Help:      "Message list fetches that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.pushEvents, m.pollTicks, m.pollErrors)
	}
	return m
}

func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

func (m *Metrics) ObservePushEvent(eventType string) {
	if m == nil {
		return
	}
	m.pushEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObservePollTick() {
	if m == nil {
		return
	}
	m.pollTicks.Inc()
}

func (m *Metrics) ObservePollError() {
	if m == nil {
		return
	}
	m.pollErrors.Inc()
}
