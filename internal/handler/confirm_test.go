package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastianbarami/aibe-checkout/internal/domain"
)

// mockConfirmationService implements domain.ConfirmationService.
type mockConfirmationService struct {
	confirmFunc func(ctx context.Context, sessionID string) (*domain.SessionSummary, error)
	sessionIDs  []string
}

func (m *mockConfirmationService) Confirm(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	m.sessionIDs = append(m.sessionIDs, sessionID)
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, sessionID)
	}
	return &domain.SessionSummary{SessionID: sessionID, Status: "complete", PaymentStatus: "paid", Confirmed: true}, nil
}

func TestHandleConfirm(t *testing.T) {
	svc := &mockConfirmationService{}
	h := NewConfirmHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/confirm", strings.NewReader(`{"sessionId": "cs_1"}`))
	rec := httptest.NewRecorder()

	h.HandleConfirm(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var summary domain.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "cs_1", summary.SessionID)
	assert.True(t, summary.Confirmed)

	assert.Equal(t, []string{"cs_1"}, svc.sessionIDs)
}

func TestHandleConfirm_OpenSessionIsOK(t *testing.T) {
	svc := &mockConfirmationService{
		confirmFunc: func(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
			return &domain.SessionSummary{SessionID: sessionID, Status: "open", PaymentStatus: "unpaid"}, nil
		},
	}
	h := NewConfirmHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/confirm", strings.NewReader(`{"sessionId": "cs_1"}`))
	rec := httptest.NewRecorder()

	h.HandleConfirm(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "an unfinished session is an answer, not an error")

	var summary domain.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.False(t, summary.Confirmed)
	assert.Equal(t, "open", summary.Status)
}

func TestHandleConfirm_MissingSessionID(t *testing.T) {
	svc := &mockConfirmationService{}
	h := NewConfirmHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/confirm", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.HandleConfirm(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.sessionIDs)
}

func TestHandleConfirm_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown session", domain.Errorf(domain.ENOTFOUND, "confirm", "unknown session"), http.StatusNotFound},
		{"relay failure", domain.Errorf(domain.EINTERNAL, "confirm", "confirmed purchase could not be relayed"), http.StatusInternalServerError},
		{"provider outage", domain.Errorf(domain.EUNAVAILABLE, "confirm", "provider unavailable"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockConfirmationService{
				confirmFunc: func(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
					return nil, tt.err
				},
			}
			h := NewConfirmHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/checkout/confirm", strings.NewReader(`{"sessionId": "cs_1"}`))
			rec := httptest.NewRecorder()

			h.HandleConfirm(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
