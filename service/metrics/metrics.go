package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// LNbits API Metrics
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	apiTransportErrors *prometheus.CounterVec

	// Payment Metrics
	invoicesCreatedTotal *prometheus.CounterVec
	paymentsSentTotal    *prometheus.CounterVec
	invoiceAwaitDuration *prometheus.HistogramVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// LNbits API Metrics
		apiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lnbits_api_requests_total",
				Help: "Total number of LNbits API requests by operation, method and status class",
			},
			[]string{"operation", "method", "status"},
		),
		apiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lnbits_api_request_duration_seconds",
				Help:    "Duration of LNbits API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"operation"},
		),
		apiTransportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lnbits_api_transport_errors_total",
				Help: "Total number of LNbits API requests that failed before a response arrived",
			},
			[]string{"operation"},
		),

		// Payment Metrics
		invoicesCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lnbits_invoices_created_total",
				Help: "Total number of invoices created by amount kind (fixed, any)",
			},
			[]string{"amount"},
		),
		paymentsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lnbits_payments_sent_total",
				Help: "Total number of outgoing payments by kind (bolt11, lnurl)",
			},
			[]string{"kind"},
		),
		invoiceAwaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lnbits_invoice_await_duration_seconds",
				Help:    "Time spent waiting for an invoice to settle",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"result"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"event_type", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"event_type"},
		),
	}
}

// LNbits API metric helpers

// RecordAPIRequest records a completed LNbits API request with duration.
func (m *Metrics) RecordAPIRequest(operation, method string, statusCode int, duration float64) {
	m.apiRequestsTotal.WithLabelValues(operation, method, statusCodeToString(statusCode)).Inc()
	m.apiRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordAPITransportError records a request that got no HTTP response.
func (m *Metrics) RecordAPITransportError(operation string) {
	m.apiTransportErrors.WithLabelValues(operation).Inc()
}

// Payment metric helpers

// RecordInvoiceCreated records a newly created invoice. Zero-amount
// invoices are counted as "any".
func (m *Metrics) RecordInvoiceCreated(amountSats int64) {
	kind := "fixed"
	if amountSats == 0 {
		kind = "any"
	}
	m.invoicesCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordPaymentSent records an outgoing payment.
func (m *Metrics) RecordPaymentSent(kind string) {
	m.paymentsSentTotal.WithLabelValues(kind).Inc()
}

// RecordInvoiceAwait records how long an await took and how it ended
// (paid, timeout, error).
func (m *Metrics) RecordInvoiceAwait(result string, duration float64) {
	m.invoiceAwaitDuration.WithLabelValues(result).Observe(duration)
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(eventType, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(eventType, status).Inc()
	m.natsPublishDuration.WithLabelValues(eventType).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
