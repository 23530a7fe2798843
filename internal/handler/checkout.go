package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bastianbarami/aibe-checkout/internal/domain"
	"github.com/bastianbarami/aibe-checkout/internal/middleware"
)

// CheckoutHandler handles checkout session creation for the storefront.
type CheckoutHandler struct {
	checkoutService domain.CheckoutService
	validate        *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkoutService domain.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validate:        validator.New(),
	}
}

// SessionResponse is the response from POST /api/checkout/session.
// The client secret is the only thing the embedded checkout needs; the
// secret key and session internals never cross this boundary.
type SessionResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// HandleCreateSession handles POST /api/checkout/session.
func (h *CheckoutHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "handler.checkout", "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "handler.checkout", "validation failed: %v", err))
		return
	}

	clientSecret, err := h.checkoutService.CreateSession(ctx, req)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(ctx).Info("session initiated", "plan", req.Plan)

	RespondJSON(w, http.StatusOK, SessionResponse{ClientSecret: clientSecret})
}
