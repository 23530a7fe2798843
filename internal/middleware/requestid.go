package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID on both request and response.
	RequestIDHeader = "X-Request-ID"

	// RequestIDContextKey stores the request ID in the request context.
	RequestIDContextKey contextKey = "request_id"
)

// RequestID tags every request with an ID so log lines and error
// responses can be correlated across services. An incoming
// X-Request-ID (set by a proxy or the storefront) is reused; otherwise
// a fresh UUID is minted. The ID is echoed on the response and stored
// in the context for GetRequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Echo it back so callers can quote the ID when reporting failures.
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by the RequestID
// middleware, or the empty string outside of it.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
