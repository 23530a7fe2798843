package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/bastianbarami/aibe-checkout/internal/billing"
	"github.com/bastianbarami/aibe-checkout/internal/domain"
	"github.com/bastianbarami/aibe-checkout/internal/handler"
	"github.com/bastianbarami/aibe-checkout/internal/telemetry"
)

// maxPayloadBytes bounds the webhook body. Stripe events are a few KB;
// anything larger is not a legitimate event.
const maxPayloadBytes = 1 << 20

// Reconciler consumes verified, typed webhook events.
type Reconciler interface {
	HandleSessionCompleted(ctx context.Context, evt billing.CompletedSession) error
	HandleInvoiceCreated(ctx context.Context, evt billing.InvoiceEvent) error
}

// StripeHandler handles Stripe webhook events.
type StripeHandler struct {
	provider   billing.Provider
	reconciler Reconciler
	logger     *slog.Logger
}

// NewStripeHandler creates a new Stripe webhook handler.
func NewStripeHandler(provider billing.Provider, reconciler Reconciler, logger *slog.Logger) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		provider:   provider,
		reconciler: reconciler,
		logger:     logger.With("handler", "stripe_webhook"),
	}
}

// HandleWebhook processes incoming Stripe webhook events.
//
// The contract with Stripe: 400 for anything that fails verification or
// parsing (no retry can fix a forged or malformed payload), 200 once a
// verified event has been routed, 503 only when a transient provider
// failure makes redelivery worthwhile.
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook", "error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook", "missing signature"))
		return
	}

	// Nothing below runs on an unverified payload.
	if err := h.provider.VerifyWebhookSignature(payload, signature); err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook", "invalid signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook", "invalid JSON"))
		return
	}

	h.logger.Info("webhook event received", "event_type", event.Type, "event_id", event.ID)

	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(string(event.Type)).Inc()
	}
	defer func() {
		if telemetry.Business != nil {
			telemetry.Business.WebhookLatency.WithLabelValues(string(event.Type)).Observe(time.Since(startTime).Seconds())
		}
	}()

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleSessionCompleted(r.Context(), event)

	case "invoice.created":
		err = h.handleInvoiceCreated(r.Context(), event)

	default:
		// Acknowledged but not acted on. Stripe sends whatever the
		// endpoint is subscribed to; new types must not bounce.
		h.logger.Debug("unhandled event type", "event_type", event.Type)
	}

	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.WebhookFailed.WithLabelValues(string(event.Type), domain.ErrorCode(err)).Inc()
		}

		// Only transient provider failures bounce for redelivery.
		// Everything else is acknowledged; replaying a payload that
		// failed deterministically just fails again.
		if domain.ErrorCode(err) == domain.EUNAVAILABLE {
			handler.ErrorResponse(w, r, err)
			return
		}
		h.logger.Error("webhook processing failed, acknowledging anyway",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	} else if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(string(event.Type)).Inc()
	}

	// Acknowledge receipt; Stripe retries on anything else.
	handler.RespondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleSessionCompleted decodes the session payload and hands the typed
// event to the reconciler.
func (h *StripeHandler) handleSessionCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("malformed checkout.session.completed payload", "event_id", event.ID, "error", err)
		return nil
	}

	evt := billing.CompletedSession{
		EventID:      event.ID,
		SessionID:    session.ID,
		CustomFields: customFieldValues(session.CustomFields),
	}
	if session.Customer != nil {
		evt.CustomerID = session.Customer.ID
	}
	if session.CustomerDetails != nil {
		evt.CustomerEmail = session.CustomerDetails.Email
	}
	if session.Invoice != nil {
		evt.InvoiceID = session.Invoice.ID
	}

	return h.reconciler.HandleSessionCompleted(ctx, evt)
}

// handleInvoiceCreated decodes the invoice payload and hands the typed
// event to the reconciler.
func (h *StripeHandler) handleInvoiceCreated(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("malformed invoice.created payload", "event_id", event.ID, "error", err)
		return nil
	}

	evt := billing.InvoiceEvent{
		EventID:   event.ID,
		InvoiceID: invoice.ID,
		Status:    string(invoice.Status),
	}
	if invoice.Customer != nil {
		evt.CustomerID = invoice.Customer.ID
	}

	return h.reconciler.HandleInvoiceCreated(ctx, evt)
}

// customFieldValues flattens the buyer-entered text inputs into key/value
// pairs, dropping fields the buyer left blank.
func customFieldValues(fields []*stripe.CheckoutSessionCustomField) map[string]string {
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		if field == nil || field.Text == nil || field.Text.Value == "" {
			continue
		}
		values[field.Key] = field.Text.Value
	}
	return values
}
