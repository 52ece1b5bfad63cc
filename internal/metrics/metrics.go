package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the ledgers and the HTTP API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Mutations      *prometheus.CounterVec
	WriteLatency   *prometheus.HistogramVec
	DecodeFailures *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
}

// New creates and registers the ledger metrics on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventease_ledger_mutations_total",
			Help: "Ledger mutations by ledger, operation and outcome",
		}, []string{"ledger", "op", "outcome"}), // outcome: "ok", "noop", "rejected", "error"

		WriteLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventease_ledger_write_duration_seconds",
			Help:    "Duration of a full read-modify-write cycle",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"ledger"}),

		DecodeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventease_ledger_decode_failures_total",
			Help: "Stored collections that could not be decoded and were treated as empty",
		}, []string{"key"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventease_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventease_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// IncMutation records one mutation outcome.
func (m *Metrics) IncMutation(ledger, op, outcome string) {
	if m != nil {
		m.Mutations.WithLabelValues(ledger, op, outcome).Inc()
	}
}

// ObserveWrite records the duration of one write cycle.
func (m *Metrics) ObserveWrite(ledger string, d time.Duration) {
	if m != nil {
		m.WriteLatency.WithLabelValues(ledger).Observe(d.Seconds())
	}
}

// IncDecodeFailure records a collection that failed to decode.
func (m *Metrics) IncDecodeFailure(key string) {
	if m != nil {
		m.DecodeFailures.WithLabelValues(key).Inc()
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
