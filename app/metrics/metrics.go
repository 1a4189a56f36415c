package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records outbound backend calls and setup-flow outcomes.
type ClientMetrics struct {
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	setupAttempts     *prometheus.CounterVec
	authInvalidations prometheus.Counter
	badgeIncreases    prometheus.Counter
}

// NewClientMetrics registers the client metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "favorpay_api_requests_total",
		Help: "Backend API requests by route and outcome.",
	}, []string{"method", "route", "outcome"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "favorpay_api_request_duration_seconds",
		Help:    "Backend API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	setupAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "favorpay_setup_attempts_total",
		Help: "Payment method setup attempts by terminal step and outcome.",
	}, []string{"step", "outcome"})
	authInvalidations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "favorpay_auth_invalidations_total",
		Help: "Times the stored session token was cleared after a 401.",
	})
	badgeIncreases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "favorpay_notification_badge_increases_total",
		Help: "Unread-count increases that triggered a popup.",
	})
	reg.MustRegister(requests, requestDuration, setupAttempts, authInvalidations, badgeIncreases)
	return &ClientMetrics{
		requests:          requests,
		requestDuration:   requestDuration,
		setupAttempts:     setupAttempts,
		authInvalidations: authInvalidations,
		badgeIncreases:    badgeIncreases,
	}
}

func (m *ClientMetrics) ObserveRequest(method, route, outcome string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, normalizeLabel(route), normalizeLabel(outcome)).Inc()
	m.requestDuration.WithLabelValues(method, normalizeLabel(route)).Observe(duration.Seconds())
}

func (m *ClientMetrics) IncSetupAttempt(step, outcome string) {
	if m == nil || m.setupAttempts == nil {
		return
	}
	m.setupAttempts.WithLabelValues(normalizeLabel(step), normalizeLabel(outcome)).Inc()
}

func (m *ClientMetrics) IncAuthInvalidation() {
	if m == nil || m.authInvalidations == nil {
		return
	}
	m.authInvalidations.Inc()
}

func (m *ClientMetrics) IncBadgeIncrease() {
	if m == nil || m.badgeIncreases == nil {
		return
	}
	m.badgeIncreases.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
