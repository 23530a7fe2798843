package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestIDHandler(capture *string) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*capture = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return RequestID(next)
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	handler := requestIDHandler(&seen)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader), "response echoes the generated ID")
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	var seen string
	handler := requestIDHandler(&seen)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-from-proxy")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-from-proxy", seen)
	assert.Equal(t, "req-from-proxy", rec.Header().Get(RequestIDHeader))
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
