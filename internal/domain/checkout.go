package domain

import "context"

// Plan identifies one of the configured purchase options.
type Plan string

const (
	PlanOneTime Plan = "one_time" // single charge
	PlanSplit2  Plan = "split_2"  // 2 monthly installments
	PlanSplit3  Plan = "split_3"  // 3 monthly installments
)

// BillingMode is how a plan charges: once or on a recurring schedule.
type BillingMode string

const (
	BillingModePayment      BillingMode = "payment"
	BillingModeSubscription BillingMode = "subscription"
)

// Custom-field keys exposed to the buyer on the hosted checkout page.
// The webhook extracts the Billing Supplement by these stable names, so
// they must not change without coordinating both sides.
const (
	FieldCompanyName      = "company_name"
	FieldCompanyTaxNumber = "company_tax_number"
)

// BillingSupplement is the optional company name / tax number collected at
// checkout. It is not part of the canonical contact record and must be
// explicitly copied onto the Customer or Invoice to appear on documents.
type BillingSupplement struct {
	CompanyName      string
	CompanyTaxNumber string
}

// SupplementFromFields extracts the supplement from buyer-entered checkout
// field values keyed by field name. Unknown keys are ignored.
func SupplementFromFields(fields map[string]string) BillingSupplement {
	return BillingSupplement{
		CompanyName:      fields[FieldCompanyName],
		CompanyTaxNumber: fields[FieldCompanyTaxNumber],
	}
}

// Empty reports whether no supplement field was provided.
func (b BillingSupplement) Empty() bool {
	return b.CompanyName == "" && b.CompanyTaxNumber == ""
}

// Fields returns the supplement as invoice custom-field entries, omitting
// blank values. Order is stable (company name first).
func (b BillingSupplement) Fields() map[string]string {
	fields := make(map[string]string, 2)
	if b.CompanyName != "" {
		fields[FieldCompanyName] = b.CompanyName
	}
	if b.CompanyTaxNumber != "" {
		fields[FieldCompanyTaxNumber] = b.CompanyTaxNumber
	}
	return fields
}

// CheckoutRequest is the inbound body for session creation.
type CheckoutRequest struct {
	Plan         string `json:"plan" validate:"required"`
	ThankYouURL  string `json:"thankYouUrl,omitempty" validate:"omitempty,url"`
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactName  string `json:"contactName,omitempty"`
}

// SessionSummary is the normalized read-only view of a checkout session
// returned by the confirmation endpoint. Status fields come straight from
// the provider; Confirmed is derived from them, never from the client.
type SessionSummary struct {
	SessionID     string      `json:"sessionId"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"paymentStatus"`
	Confirmed     bool        `json:"confirmed"`
	Plan          Plan        `json:"plan,omitempty"`
	BillingMode   BillingMode `json:"billingMode,omitempty"`
	Amount        string      `json:"amount,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	ContactEmail  string      `json:"contactEmail,omitempty"`
	CustomerID    string      `json:"customerId,omitempty"`
}

// CheckoutService creates hosted checkout sessions for configured plans.
type CheckoutService interface {
	// CreateSession resolves the plan, reuses or creates the provider-side
	// Customer, and returns the session's client secret for the front-end.
	CreateSession(ctx context.Context, req CheckoutRequest) (clientSecret string, err error)
}

// ConfirmationService re-checks a session against the provider and relays
// confirmed purchases downstream.
type ConfirmationService interface {
	Confirm(ctx context.Context, sessionID string) (*SessionSummary, error)
}
