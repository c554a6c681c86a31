package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics holds the Prometheus collectors a Client reports to. Create it with NewClientMetrics
// and pass it through WithClientMetrics; a Client without metrics reports nothing.
type ClientMetrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	notifications  *prometheus.CounterVec
	decodeFailures prometheus.Counter
}

// Request outcome label values.
const (
	outcomeResult    = "result"
	outcomeError     = "error"
	outcomeTimeout   = "timeout"
	outcomeTransport = "transport"
)

// NewClientMetrics creates the client collectors and registers them with reg. A nil reg skips
// registration, which is convenient in tests.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Number of requests sent, split by method and terminal outcome.",
			},
			[]string{"method", "outcome"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcp",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Time from sending a request until its terminal message arrived.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp",
				Subsystem: "client",
				Name:      "notifications_total",
				Help:      "Number of notifications received from the server, split by method.",
			},
			[]string{"method"},
		),
		decodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcp",
				Subsystem: "client",
				Name:      "decode_failures_total",
				Help:      "Number of reply frames skipped because they could not be decoded.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.requestLatency, m.notifications, m.decodeFailures)
	}

	return m
}

func (m *ClientMetrics) observeRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if outcome == outcomeResult || outcome == outcomeError {
		m.requestLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}

func (m *ClientMetrics) observeNotification(method string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(method).Inc()
}

func (m *ClientMetrics) observeDecodeFailure() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}
