package routes

import (
	"net/http"

	"github.com/bastianbarami/aibe-checkout/internal/handler"
	"github.com/bastianbarami/aibe-checkout/internal/handler/webhook"
	"github.com/bastianbarami/aibe-checkout/internal/router"
)

// Deps contains the handlers behind the HTTP surface.
type Deps struct {
	Checkout *handler.CheckoutHandler
	Confirm  *handler.ConfirmHandler
	Webhook  *webhook.StripeHandler

	// CORS wraps the storefront-facing API routes only. The webhook
	// route is authenticated by signature, not origin, and gets none.
	CORS router.Middleware

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler
}

// Register wires all routes onto the router.
func Register(r *router.Router, deps Deps) {
	// Storefront API, browser-facing.
	api := r.Group(deps.CORS)
	api.Post("/api/checkout/session", deps.Checkout.HandleCreateSession)
	api.Post("/api/checkout/confirm", deps.Confirm.HandleConfirm)
	api.Options("/api/checkout/session", preflight)
	api.Options("/api/checkout/confirm", preflight)

	// Provider webhooks. No CORS, no preflight; the handler verifies
	// the signature itself.
	r.Post("/webhooks/stripe", deps.Webhook.HandleWebhook)

	// Operational endpoints.
	r.Get("/healthz", handleHealth)
	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}

// preflight exists so OPTIONS requests route through the CORS middleware,
// which writes the headers and terminates the request.
func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status": "ok"}`))
}
