package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments of the gateway. Every recording
// method is safe on a nil receiver so services can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Registrations prometheus.Counter
	Logins        *prometheus.CounterVec
	Approvals     prometheus.Counter
	ResetRequests prometheus.Counter
	Resets        *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	RateLimited   *prometheus.CounterVec
}

// NewMetrics registers all instruments on a fresh registry under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		Registrations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Accounts created through self-registration",
			},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		Approvals: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "approvals_total",
				Help:      "Accounts approved by an administrator",
			},
		),
		ResetRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "password_reset_requests_total",
				Help:      "Password reset requests received (including unknown emails)",
			},
		),
		Resets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "password_resets_total",
				Help:      "Password reset completions by result",
			},
			[]string{"result"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Outgoing notifications by kind and result",
			},
			[]string{"kind", "result"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter by scope",
			},
			[]string{"scope"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordRegistration counts a successful registration.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

// RecordLogin counts a login attempt with result such as "success",
// "invalid_credentials" or "pending".
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// RecordApproval counts an approval.
func (m *Metrics) RecordApproval() {
	if m == nil {
		return
	}
	m.Approvals.Inc()
}

// RecordResetRequest counts a reset request.
func (m *Metrics) RecordResetRequest() {
	if m == nil {
		return
	}
	m.ResetRequests.Inc()
}

// RecordReset counts a reset completion attempt.
func (m *Metrics) RecordReset(result string) {
	if m == nil {
		return
	}
	m.Resets.WithLabelValues(result).Inc()
}

// RecordNotification counts a notification by kind and outcome.
func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}

// RecordRateLimited counts a throttled request.
func (m *Metrics) RecordRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}
