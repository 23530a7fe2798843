package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bastianbarami/aibe-checkout/internal/billing"
	"github.com/bastianbarami/aibe-checkout/internal/domain"
	"github.com/bastianbarami/aibe-checkout/internal/relay"
	"github.com/bastianbarami/aibe-checkout/internal/telemetry"
)

// confirmService implements domain.ConfirmationService.
type confirmService struct {
	provider billing.Provider
	catalog  *PlanCatalog
	notifier relay.Notifier
	logger   *slog.Logger
}

// NewConfirmationService creates the post-checkout confirmation service.
func NewConfirmationService(provider billing.Provider, catalog *PlanCatalog, notifier relay.Notifier, logger *slog.Logger) domain.ConfirmationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &confirmService{
		provider: provider,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger.With("service", "confirm"),
	}
}

// Confirm re-fetches the session from the provider and reports its state.
// Success is strictly "complete" and "paid"; the client-supplied session ID
// selects the session but never influences the verdict. Confirmed sessions
// are relayed downstream, and a relay failure fails the confirmation so the
// front-end retries rather than silently dropping the purchase event.
func (s *confirmService) Confirm(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	if sessionID == "" {
		return nil, domain.Errorf(domain.EINVALID, "confirm", "session ID is required")
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return nil, domain.Errorf(domain.ENOTFOUND, "confirm", "unknown session: %s", sessionID)
		}
		if errors.Is(err, billing.ErrProviderUnavailable) {
			return nil, domain.WrapError(err, domain.EUNAVAILABLE, "confirm", "provider unavailable")
		}
		return nil, domain.WrapError(err, domain.EPROVIDER, "confirm", fmt.Sprintf("session lookup failed: %v", err))
	}

	summary := s.summarize(session)

	// A session still "open" is a valid answer, not an error. The buyer
	// may have abandoned checkout or the payment may still be processing.
	if !summary.Confirmed {
		s.logger.Info("session not yet confirmed",
			"session_id", session.ID,
			"status", session.Status,
			"payment_status", session.PaymentStatus)
		return summary, nil
	}

	if telemetry.Business != nil {
		telemetry.Business.SessionsConfirmed.WithLabelValues(string(summary.Plan)).Inc()
	}

	event := relay.ConfirmedEvent{
		SessionID:   summary.SessionID,
		Plan:        string(summary.Plan),
		BillingMode: string(summary.BillingMode),
		Amount:      summary.Amount,
		Currency:    summary.Currency,
		Email:       summary.ContactEmail,
		CustomerID:  summary.CustomerID,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.notifier.NotifyConfirmed(ctx, event); err != nil {
		if telemetry.Business != nil {
			telemetry.Business.RelayFailed.WithLabelValues(string(summary.Plan)).Inc()
		}
		s.logger.Error("downstream relay failed", "session_id", session.ID, "error", err)
		return nil, domain.WrapError(err, domain.EINTERNAL, "confirm", "confirmed purchase could not be relayed")
	}

	if telemetry.Business != nil {
		telemetry.Business.ConfirmationsRelayed.WithLabelValues(string(summary.Plan)).Inc()
	}
	s.logger.Info("session confirmed and relayed",
		"session_id", session.ID,
		"plan", summary.Plan)

	return summary, nil
}

// summarize maps the provider session to the normalized read-only view.
// The plan comes back out of the session metadata written at creation,
// which keeps the relayed amount the full purchase value across
// installments rather than a single installment.
func (s *confirmService) summarize(session *billing.CheckoutSession) *domain.SessionSummary {
	summary := &domain.SessionSummary{
		SessionID:     session.ID,
		Status:        session.Status,
		PaymentStatus: session.PaymentStatus,
		Confirmed:     session.Complete(),
		Currency:      session.Currency,
		ContactEmail:  session.CustomerEmail,
		CustomerID:    session.CustomerID,
	}

	if info, ok := s.catalog.ResolveByMetadata(session.Metadata); ok {
		summary.Plan = info.Plan
		summary.BillingMode = info.Mode
		summary.Amount = info.Total()
		if summary.Currency == "" {
			summary.Currency = info.Currency
		}
		return summary
	}

	// Session from an older catalog; fall back to the provider's own
	// amount, which for subscriptions is a single installment.
	if session.AmountCents > 0 {
		summary.Amount = decimal.NewFromInt(session.AmountCents).
			Div(decimal.NewFromInt(100)).
			StringFixed(2)
	}
	return summary
}
