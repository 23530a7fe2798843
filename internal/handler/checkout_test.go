package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastianbarami/aibe-checkout/internal/domain"
)

// mockCheckoutService implements domain.CheckoutService for handler tests.
type mockCheckoutService struct {
	createSessionFunc func(ctx context.Context, req domain.CheckoutRequest) (string, error)
	requests          []domain.CheckoutRequest
}

func (m *mockCheckoutService) CreateSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.createSessionFunc != nil {
		return m.createSessionFunc(ctx, req)
	}
	return "cs_1_secret", nil
}

func TestHandleCreateSession(t *testing.T) {
	svc := &mockCheckoutService{}
	h := NewCheckoutHandler(svc)

	body := `{"plan": "split_3", "contactEmail": "buyer@example.com", "thankYouUrl": "https://shop.example.com/danke"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleCreateSession(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clientSecret": "cs_1_secret"}`, rec.Body.String())

	require.Len(t, svc.requests, 1)
	assert.Equal(t, "split_3", svc.requests[0].Plan)
	assert.Equal(t, "buyer@example.com", svc.requests[0].ContactEmail)
}

func TestHandleCreateSession_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing plan", `{"contactEmail": "buyer@example.com"}`},
		{"malformed json", `{"plan": `},
		{"bad email", `{"plan": "one_time", "contactEmail": "not-an-email"}`},
		{"bad url", `{"plan": "one_time", "thankYouUrl": "not a url"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{}
			h := NewCheckoutHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.HandleCreateSession(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.requests, "invalid requests never reach the service")
		})
	}
}

func TestHandleCreateSession_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown plan", domain.Errorf(domain.EINVALID, "plan.resolve", "unknown plan: lifetime"), http.StatusBadRequest},
		{"provider rejection", domain.Errorf(domain.EPROVIDER, "checkout.create", "provider rejected session creation: no such price"), http.StatusBadGateway},
		{"internal fault", domain.Errorf(domain.EINTERNAL, "checkout.create", "catalog misconfigured"), http.StatusInternalServerError},
		{"provider outage", domain.Errorf(domain.EUNAVAILABLE, "checkout.create", "provider unavailable"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{
				createSessionFunc: func(ctx context.Context, req domain.CheckoutRequest) (string, error) {
					return "", tt.err
				},
			}
			h := NewCheckoutHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(`{"plan": "one_time"}`))
			rec := httptest.NewRecorder()

			h.HandleCreateSession(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), domain.ErrorCode(tt.err))
		})
	}
}

func TestHandleCreateSession_ProviderMessageRelayed(t *testing.T) {
	svc := &mockCheckoutService{
		createSessionFunc: func(ctx context.Context, req domain.CheckoutRequest) (string, error) {
			return "", domain.Errorf(domain.EPROVIDER, "checkout.create", "provider rejected session creation: no such price: price_one_time")
		},
	}
	h := NewCheckoutHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(`{"plan": "one_time"}`))
	rec := httptest.NewRecorder()

	h.HandleCreateSession(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such price: price_one_time")

	// Genuine internal faults stay masked.
	svc.createSessionFunc = func(ctx context.Context, req domain.CheckoutRequest) (string, error) {
		return "", domain.Errorf(domain.EINTERNAL, "checkout.create", "catalog misconfigured")
	}
	req = httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(`{"plan": "one_time"}`))
	rec = httptest.NewRecorder()

	h.HandleCreateSession(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "catalog misconfigured")
}
