// Package metrics exposes Prometheus instruments for the fee portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deptportal"

// Payment attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeDeclined  = "declined"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Metrics groups every collector the portal records. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PaymentAttempts  *prometheus.CounterVec
	PaymentDuration  prometheus.Histogram
	FeeLoads         *prometheus.CounterVec
	Reconciliations  *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	PaymentsRecorded prometheus.Counter
}

// New creates a registry with process and Go collectors plus the portal metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PaymentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_attempts_total",
			Help:      "Payment submissions by outcome.",
		}, []string{"outcome"}),
		PaymentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Time from submission to a terminal payment outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 30},
		}),
		FeeLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_loads_total",
			Help:      "Fee list fetches by view and result.",
		}, []string{"view", "result"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Post-payment refetches by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Backend requests by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Confirmed payments persisted by the backend.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PaymentAttempts,
		m.PaymentDuration,
		m.FeeLoads,
		m.Reconciliations,
		m.HTTPRequests,
		m.HTTPDuration,
		m.PaymentsRecorded,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePayment records one terminal payment outcome.
func (m *Metrics) ObservePayment(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PaymentAttempts.WithLabelValues(outcome).Inc()
	m.PaymentDuration.Observe(elapsed.Seconds())
}

// ObserveFeeLoad records one fee list fetch.
func (m *Metrics) ObserveFeeLoad(view string, err error) {
	if m == nil {
		return
	}
	m.FeeLoads.WithLabelValues(view, result(err)).Inc()
}

// ObserveReconcile records one post-payment refetch.
func (m *Metrics) ObserveReconcile(err error) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(result(err)).Inc()
}

// ObserveHTTP records one served backend request.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObservePaymentRecorded counts one persisted payment.
func (m *Metrics) ObservePaymentRecorded() {
	if m == nil {
		return
	}
	m.PaymentsRecorded.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
