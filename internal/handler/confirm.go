package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bastianbarami/aibe-checkout/internal/domain"
)

// ConfirmHandler verifies a finished checkout against the provider.
type ConfirmHandler struct {
	confirmService domain.ConfirmationService
	validate       *validator.Validate
}

// NewConfirmHandler creates a new confirmation handler.
func NewConfirmHandler(confirmService domain.ConfirmationService) *ConfirmHandler {
	return &ConfirmHandler{
		confirmService: confirmService,
		validate:       validator.New(),
	}
}

// ConfirmRequest is the request body for POST /api/checkout/confirm.
// The session ID selects which session to verify; the verdict comes from
// the provider alone.
type ConfirmRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// HandleConfirm handles POST /api/checkout/confirm.
func (h *ConfirmHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "handler.confirm", "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "handler.confirm", "sessionId is required"))
		return
	}

	summary, err := h.confirmService.Confirm(ctx, req.SessionID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, summary)
}
