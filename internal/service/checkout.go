package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/bastianbarami/aibe-checkout/internal/billing"
	"github.com/bastianbarami/aibe-checkout/internal/domain"
	"github.com/bastianbarami/aibe-checkout/internal/telemetry"
)

// CheckoutConfig holds configuration for the checkout service.
type CheckoutConfig struct {
	// BaseURL is the application base URL; the default thank-you page
	// lives under it when the request carries no thankYouUrl.
	BaseURL string
}

// checkoutService implements domain.CheckoutService.
type checkoutService struct {
	provider billing.Provider
	catalog  *PlanCatalog
	config   CheckoutConfig
	logger   *slog.Logger
}

// NewCheckoutService creates the session-initiation service.
func NewCheckoutService(provider billing.Provider, catalog *PlanCatalog, config CheckoutConfig, logger *slog.Logger) domain.CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &checkoutService{
		provider: provider,
		catalog:  catalog,
		config:   config,
		logger:   logger.With("service", "checkout"),
	}
}

// CreateSession resolves the plan, reuses or creates the Customer by
// contact email, and creates the hosted checkout session. Only the
// session's client secret leaves this function; no provider internals.
func (s *checkoutService) CreateSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	info, err := s.catalog.Resolve(req.Plan)
	if err != nil {
		return "", err
	}

	customerID, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return "", err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billing.CreateCheckoutSessionParams{
		PriceID:               info.PriceID,
		Mode:                  string(info.Mode),
		CustomerID:            customerID,
		CustomerEmail:         req.ContactEmail,
		ReturnURL:             s.returnURL(req.ThankYouURL, info),
		CollectBillingAddress: true,
		CustomFields: []billing.CustomFieldSpec{
			{Key: domain.FieldCompanyName, Label: "Company name (optional)"},
			{Key: domain.FieldCompanyTaxNumber, Label: "VAT / tax number (optional)"},
		},
		Metadata: map[string]string{
			"plan":         string(info.Plan),
			"installments": strconv.Itoa(info.Installments),
		},
	})
	if err != nil {
		if errors.Is(err, billing.ErrProviderUnavailable) {
			return "", domain.WrapError(err, domain.EUNAVAILABLE, "checkout.create", "provider unavailable")
		}
		// Relay the provider's message; masking it hides the actionable
		// detail (bad price ID, archived price) from the front-end.
		return "", domain.WrapError(err, domain.EPROVIDER, "checkout.create", fmt.Sprintf("provider rejected session creation: %v", err))
	}

	if telemetry.Business != nil {
		telemetry.Business.SessionsCreated.WithLabelValues(string(info.Plan)).Inc()
	}

	s.logger.Info("checkout session created",
		"session_id", session.ID,
		"plan", info.Plan,
		"mode", info.Mode,
		"customer_id", customerID)

	return session.ClientSecret, nil
}

// resolveCustomer reuses an existing customer by contact email to avoid
// duplicate buyer records, creating one when absent. Without an email the
// provider creates its own customer during checkout.
func (s *checkoutService) resolveCustomer(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	if req.ContactEmail == "" {
		return "", nil
	}

	existing, err := s.provider.GetCustomerByEmail(ctx, req.ContactEmail)
	if err != nil {
		return "", domain.WrapError(err, domain.EPROVIDER, "checkout.customer", fmt.Sprintf("customer lookup failed: %v", err))
	}
	if existing != nil {
		return existing.ID, nil
	}

	created, err := s.provider.CreateCustomer(ctx, billing.CreateCustomerParams{
		Email: req.ContactEmail,
		Name:  req.ContactName,
		Metadata: map[string]string{
			"source": "checkout_adapter",
		},
	})
	if err != nil {
		return "", domain.WrapError(err, domain.EPROVIDER, "checkout.customer", fmt.Sprintf("customer creation failed: %v", err))
	}

	s.logger.Info("customer created", "customer_id", created.ID)
	return created.ID, nil
}

// returnURL templates the post-checkout landing URL with the plan and the
// computed purchase total for downstream analytics, plus the provider's
// session-ID placeholder so the confirmation endpoint can poll.
func (s *checkoutService) returnURL(thankYouURL string, info PlanInfo) string {
	base := thankYouURL
	if base == "" {
		base = s.config.BaseURL + "/thank-you"
	}

	query := url.Values{}
	query.Set("plan", string(info.Plan))
	query.Set("value", info.Total())

	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}

	// {CHECKOUT_SESSION_ID} is substituted by the provider, so it must
	// not be query-escaped.
	return base + sep + query.Encode() + "&session_id={CHECKOUT_SESSION_ID}"
}
