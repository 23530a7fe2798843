package middleware

import (
	"net/http"
)

// CORSConfig configures cross-origin access for the storefront endpoints.
type CORSConfig struct {
	// AllowedOrigins is the exact-match origin allow list. An entry of
	// "*" allows any origin (development only).
	AllowedOrigins []string
}

// CORS grants the configured storefront origins access to the API
// endpoints. Requests from unlisted origins get no CORS headers at all,
// which makes the browser block the response. Webhook routes must not be
// wrapped; the provider does not send an Origin header and needs none.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(config.AllowedOrigins))
	allowAny := false
	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			allowAny = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && (allowAny || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
