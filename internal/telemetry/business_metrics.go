package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the checkout funnel and the webhook reconciliation path.
type BusinessMetrics struct {
	// Checkout funnel
	SessionsCreated      *prometheus.CounterVec
	SessionsConfirmed    *prometheus.CounterVec
	ConfirmationsRelayed *prometheus.CounterVec
	RelayFailed          *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Reconciliation
	SupplementsApplied *prometheus.CounterVec
	InvoicesFinalized  prometheus.Counter
}

// Business is the process-wide metrics instance, set once at startup.
// Callers nil-check it so tests without metrics stay silent.
var Business *BusinessMetrics

// InitBusinessMetrics creates, registers and installs the process-wide
// business metrics. Call once from main.
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// NewBusinessMetrics creates and registers all business metrics.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "checkout"
	}

	subsystem := "business"

	return &BusinessMetrics{
		SessionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_created_total",
			Help:      "Checkout sessions created, by plan",
		}, []string{"plan"}),

		SessionsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_confirmed_total",
			Help:      "Sessions confirmed complete and paid, by plan",
		}, []string{"plan"}),

		ConfirmationsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "confirmations_relayed_total",
			Help:      "Normalized success events relayed downstream, by plan",
		}, []string{"plan"}),

		RelayFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relay_failed_total",
			Help:      "Failed downstream relay attempts, by plan",
		}, []string{"plan"}),

		WebhookReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_received_total",
			Help:      "Webhook events received, by event type",
		}, []string{"event_type"}),

		WebhookProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_processed_total",
			Help:      "Webhook events processed successfully, by event type",
		}, []string{"event_type"}),

		WebhookFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_failed_total",
			Help:      "Webhook events whose enrichment failed, by event type and reason",
		}, []string{"event_type", "reason"}),

		WebhookLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook processing duration, by event type",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"event_type"}),

		SupplementsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "supplements_applied_total",
			Help:      "Billing supplement writes, by target resource (customer|invoice)",
		}, []string{"target"}),

		InvoicesFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoices_finalized_total",
			Help:      "Draft invoices finalized after field injection",
		}),
	}
}
