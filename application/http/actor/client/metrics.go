package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a [Client] reports to.
// A nil *Metrics records nothing.
type Metrics struct {
	Responses *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	BodyBytes prometheus.Counter
}

// NewMetrics creates the collectors and registers them to reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "nanoget"
	}
	factory := promauto.With(reg)

	return &Metrics{
		Responses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "responses_total",
				Help:      "Total number of responses received",
			},
			[]string{"scheme", "method", "class"},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "failures_total",
				Help:      "Total number of calls which ended with an error",
			},
			[]string{"scheme", "kind"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "call_duration_seconds",
				Help:      "Time from dial to the end of the response body",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheme"},
		),
		BodyBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "body_bytes_total",
				Help:      "Total number of response body bytes received",
			},
		),
	}
}

func (m *Metrics) observeResponse(scheme, method, class string, bodyLen int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(scheme, method, class).Inc()
	m.Duration.WithLabelValues(scheme).Observe(elapsed.Seconds())
	m.BodyBytes.Add(float64(bodyLen))
}

func (m *Metrics) observeFailure(scheme, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(scheme, kind).Inc()
	m.Duration.WithLabelValues(scheme).Observe(elapsed.Seconds())
}
