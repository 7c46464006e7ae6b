// checkout-gateway/pkg/metrics/metrics.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "requests_total",
			Help:      "Total HTTP requests per service",
		},
		[]string{"service", "status", "method"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration per service",
			// processor round trips sit in the 200ms to 2s range
			Buckets: []float64{
				0.01, 0.02, 0.03, 0.05, 0.08, 0.12,
				0.2, 0.3, 0.5, 0.8, 1.2, 2, 3, 5, 10,
			},
		},
		[]string{"service", "status"},
	)

	ProcessorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "processor_calls_total",
			Help:      "Payment-intent creation calls to the payment processor",
		},
		[]string{"outcome"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "events_published_total",
			Help:      "Payment-intent events handed to the event bus",
		},
		[]string{"outcome"},
	)
)

const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
	OutcomeTimeout = "TIMEOUT"
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, ProcessorCallsTotal, EventsPublishedTotal)
}

func IncRequest(service, status, method string) {
	RequestsTotal.WithLabelValues(service, status, method).Inc()
}

func ObserveDuration(service, status string, seconds float64) {
	RequestDuration.WithLabelValues(service, status).Observe(seconds)
}

func IncProcessorCall(outcome string) {
	ProcessorCallsTotal.WithLabelValues(outcome).Inc()
}

func IncEventPublished(outcome string) {
	EventsPublishedTotal.WithLabelValues(outcome).Inc()
}
