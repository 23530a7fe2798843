package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastianbarami/aibe-checkout/internal/billing"
	"github.com/bastianbarami/aibe-checkout/internal/domain"
	"github.com/bastianbarami/aibe-checkout/internal/service"
)

// mockReconciler records routed events and injects failures.
type mockReconciler struct {
	sessions []billing.CompletedSession
	invoices []billing.InvoiceEvent

	sessionErr error
	invoiceErr error
}

func (m *mockReconciler) HandleSessionCompleted(ctx context.Context, evt billing.CompletedSession) error {
	m.sessions = append(m.sessions, evt)
	return m.sessionErr
}

func (m *mockReconciler) HandleInvoiceCreated(ctx context.Context, evt billing.InvoiceEvent) error {
	m.invoices = append(m.invoices, evt)
	return m.invoiceErr
}

const sessionCompletedPayload = `{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"data": {
		"object": {
			"id": "cs_1",
			"customer": "cus_1",
			"invoice": "in_1",
			"customer_details": {"email": "buyer@example.com"},
			"custom_fields": [
				{"key": "company_name", "text": {"value": "ACME GmbH"}},
				{"key": "company_tax_number", "text": {"value": ""}}
			]
		}
	}
}`

const invoiceCreatedPayload = `{
	"id": "evt_2",
	"type": "invoice.created",
	"data": {
		"object": {
			"id": "in_1",
			"customer": "cus_1",
			"status": "draft"
		}
	}
}`

func postWebhook(t *testing.T, h *StripeHandler, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

func TestHandleWebhook_SessionCompleted(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, sessionCompletedPayload, "t=1,v1=valid")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())

	require.Len(t, reconciler.sessions, 1)
	evt := reconciler.sessions[0]
	assert.Equal(t, "evt_1", evt.EventID)
	assert.Equal(t, "cs_1", evt.SessionID)
	assert.Equal(t, "cus_1", evt.CustomerID)
	assert.Equal(t, "in_1", evt.InvoiceID)
	assert.Equal(t, "buyer@example.com", evt.CustomerEmail)
	assert.Equal(t, map[string]string{"company_name": "ACME GmbH"}, evt.CustomFields, "blank inputs are dropped")
}

func TestHandleWebhook_InvoiceCreated(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, invoiceCreatedPayload, "t=1,v1=valid")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, reconciler.invoices, 1)
	evt := reconciler.invoices[0]
	assert.Equal(t, "evt_2", evt.EventID)
	assert.Equal(t, "in_1", evt.InvoiceID)
	assert.Equal(t, "cus_1", evt.CustomerID)
	assert.Equal(t, billing.InvoiceStatusDraft, evt.Status)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.VerifyWebhookSignatureFunc = func(payload []byte, signature string) error {
		return billing.ErrInvalidWebhookSignature
	}
	reconciler := &mockReconciler{}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, sessionCompletedPayload, "t=1,v1=forged")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, reconciler.sessions, "unverified payloads must never reach processing")
	assert.Empty(t, reconciler.invoices)
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, sessionCompletedPayload, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, reconciler.sessions)
	assert.Empty(t, provider.CallLog, "verification is never attempted without a signature")
}

func TestHandleWebhook_InvalidJSON(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, `{not json`, "t=1,v1=valid")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhook_UnhandledEventType(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, `{"id": "evt_3", "type": "customer.updated", "data": {"object": {}}}`, "t=1,v1=valid")

	assert.Equal(t, http.StatusOK, rec.Code, "unknown event types are acknowledged, not bounced")
	assert.Empty(t, reconciler.sessions)
	assert.Empty(t, reconciler.invoices)
}

// Full path with the real reconciler: the completed-session event lands the
// two supplement fields on the customer and invoice, and replaying the
// identical delivery leaves exactly those two entries.
func TestHandleWebhook_ReplayConvergesEndToEnd(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.Customers["cus_1"] = &billing.Customer{ID: "cus_1", Email: "buyer@example.com"}
	provider.Invoices["in_1"] = &billing.Invoice{ID: "in_1", CustomerID: "cus_1", Status: billing.InvoiceStatusDraft}

	h := NewStripeHandler(provider, service.NewReconciler(provider, nil), nil)

	payload := `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"customer": "cus_1",
				"invoice": "in_1",
				"custom_fields": [
					{"key": "company_name", "text": {"value": "Acme GmbH"}},
					{"key": "company_tax_number", "text": {"value": "DE123456789"}}
				]
			}
		}
	}`

	for i := 0; i < 2; i++ {
		rec := postWebhook(t, h, payload, "t=1,v1=valid")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	want := map[string]string{
		"company_name":       "Acme GmbH",
		"company_tax_number": "DE123456789",
	}
	assert.Equal(t, want, provider.Customers["cus_1"].InvoiceFields)
	assert.Equal(t, want, provider.Invoices["in_1"].CustomFields)
	assert.Equal(t, billing.InvoiceStatusOpen, provider.Invoices["in_1"].Status)
}

func TestHandleWebhook_TransientFailureBounces(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{
		sessionErr: domain.WrapError(billing.ErrProviderUnavailable, domain.EUNAVAILABLE, "reconcile", "provider unavailable"),
	}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, sessionCompletedPayload, "t=1,v1=valid")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "transient failures request redelivery")
}

func TestHandleWebhook_DeterministicFailureAcknowledged(t *testing.T) {
	provider := billing.NewMockProvider()
	reconciler := &mockReconciler{
		sessionErr: domain.Errorf(domain.EINTERNAL, "reconcile", "customer rejected the field set"),
	}
	h := NewStripeHandler(provider, reconciler, nil)

	rec := postWebhook(t, h, sessionCompletedPayload, "t=1,v1=valid")

	assert.Equal(t, http.StatusOK, rec.Code, "redelivering a deterministic failure just fails again")
}
