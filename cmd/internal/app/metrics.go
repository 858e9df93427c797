package app

import (
	"net/http"
	"time"

	"methodius/cmd/internal/auth/gate"
	"methodius/cmd/internal/auth/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "methodius"

var sessionStates = []session.State{
	session.StateUnresolved,
	session.StateResolving,
	session.StateAuthenticated,
	session.StateUnauthenticated,
}

// Metrics owns the process registry and every collector the console exports.
type Metrics struct {
	reg *prometheus.Registry

	requests     *prometheus.CounterVec
	requestTime  *prometheus.HistogramVec
	sessionState *prometheus.GaugeVec
	gateDecision *prometheus.CounterVec
	logins       *prometheus.CounterVec
	backendCalls *prometheus.HistogramVec
}

// NewMetrics registers the console collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "class"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"class"}),
		sessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "1 for the current session state, 0 otherwise.",
		}, []string{"state"}),
		gateDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Access gate decisions by outcome and role.",
		}, []string{"decision", "role"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Console login attempts by outcome.",
		}, []string{"outcome"}),
		backendCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Backend API latency by operation and status class.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op", "class"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestTime,
		m.sessionState,
		m.gateDecision,
		m.logins,
		m.backendCalls,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	class := statusClass(status)
	m.requests.WithLabelValues(method, class).Inc()
	m.requestTime.WithLabelValues(class).Observe(elapsed.Seconds())
}

// SetSessionState marks state as the current session state.
func (m *Metrics) SetSessionState(state session.State) {
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.sessionState.WithLabelValues(string(s)).Set(v)
	}
}

// ObserveGate counts a gate decision.
func (m *Metrics) ObserveGate(d gate.Decision, role gate.Role) {
	r := string(role)
	if r == "" {
		r = "any"
	}
	m.gateDecision.WithLabelValues(d.String(), r).Inc()
}

// ObserveLogin counts a login outcome.
func (m *Metrics) ObserveLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveBackend records one backend call. status is 0 when no response arrived.
func (m *Metrics) ObserveBackend(op string, status int, elapsed time.Duration) {
	class := "transport"
	if status > 0 {
		class = statusClass(status)
	}
	m.backendCalls.WithLabelValues(op, class).Observe(elapsed.Seconds())
}

// TrackFeedClients exports the live session feed connection count.
func (m *Metrics) TrackFeedClients(count func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "feed",
		Name:      "clients",
		Help:      "Connected session feed clients.",
	}, func() float64 { return float64(count()) }))
}

