package billing

import (
	"context"
	"time"
)

// Provider defines the payment-provider surface the three handlers need.
// The production implementation is Stripe; tests use MockProvider.
type Provider interface {
	// CreateCheckoutSession creates a hosted checkout session and returns
	// the client secret the front-end uses to resume it.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSession re-fetches a session by ID. Status fields are the
	// provider's and must never be overridden by client-supplied values.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// GetCustomerByEmail searches for an existing customer by email.
	// Used to reuse buyer records across sessions.
	// Returns nil, nil if no customer found (not an error).
	GetCustomerByEmail(ctx context.Context, email string) (*Customer, error)

	// GetCustomer retrieves a customer by ID, including the invoice-default
	// custom fields already stored on it.
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)

	// CreateCustomer creates a customer record in the billing provider.
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error)

	// SetCustomerInvoiceFields upserts invoice-default custom fields on a
	// customer, merged by field name. Existing fields with other names are
	// preserved; repeated application of the same fields is a no-op.
	SetCustomerInvoiceFields(ctx context.Context, params SetInvoiceFieldsParams) (*Customer, error)

	// GetInvoice retrieves an invoice, including its lifecycle status.
	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)

	// SetInvoiceFields upserts custom fields on a draft invoice, merged by
	// field name. Callers must check the invoice is still draft first;
	// layout fields are frozen once finalized.
	SetInvoiceFields(ctx context.Context, params SetInvoiceFieldsParams) (*Invoice, error)

	// FinalizeInvoice transitions a draft invoice to finalized and lets the
	// provider advance collection. Must only be called on draft invoices.
	FinalizeInvoice(ctx context.Context, params FinalizeInvoiceParams) (*Invoice, error)

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	// An unverifiable payload must never be processed.
	VerifyWebhookSignature(payload []byte, signature string) error
}

// CreateCheckoutSessionParams contains parameters for creating a session.
type CreateCheckoutSessionParams struct {
	// PriceID is the provider price the plan resolved to.
	PriceID string

	// Mode is "payment" for one-time charges, "subscription" for installments.
	Mode string

	// Quantity of the priced line item. Defaults to 1 when zero.
	Quantity int64

	// CustomerID links the session to an existing customer (optional).
	CustomerID string

	// CustomerEmail prefills the buyer email when no customer is linked.
	CustomerEmail string

	// ReturnURL is where the buyer lands after checkout. The provider
	// substitutes the session ID into the {CHECKOUT_SESSION_ID} placeholder.
	ReturnURL string

	// CollectBillingAddress requires the buyer's billing address.
	CollectBillingAddress bool

	// CustomFields are optional free-text inputs shown to the buyer,
	// keyed by stable field name with a human label.
	CustomFields []CustomFieldSpec

	// Metadata for filtering and reporting (plan, installments).
	Metadata map[string]string
}

// CustomFieldSpec describes one optional free-text checkout input.
type CustomFieldSpec struct {
	Key   string
	Label string
}

// CheckoutSession is the neutral view of a provider checkout session.
type CheckoutSession struct {
	ID            string
	ClientSecret  string
	Status        string // "open", "complete", "expired"
	PaymentStatus string // "paid", "unpaid", "no_payment_required"
	Mode          string
	AmountCents   int64
	Currency      string
	CustomerID    string
	CustomerEmail string
	InvoiceID     string
	CustomFields  map[string]string // key -> buyer-entered value
	Metadata      map[string]string
	CreatedAt     time.Time
}

// Complete reports whether the provider considers the purchase done and paid.
func (s *CheckoutSession) Complete() bool {
	return s.Status == "complete" && s.PaymentStatus == "paid"
}

// CreateCustomerParams contains parameters for creating a customer.
type CreateCustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// Customer represents a billing customer.
type Customer struct {
	ID            string
	Email         string
	Name          string
	InvoiceFields map[string]string // invoice-default custom fields, name -> value
	CreatedAt     time.Time
}

// SetInvoiceFieldsParams carries a custom-field upsert for a customer or
// invoice. Every mutation in the reconciliation path is keyed so that
// at-least-once webhook delivery cannot apply it twice.
type SetInvoiceFieldsParams struct {
	// ResourceID is the customer or invoice being mutated.
	ResourceID string

	// Fields to merge by name into the resource's custom fields.
	Fields map[string]string

	// IdempotencyKey derived via IdempotencyKey(resourceID, eventID).
	IdempotencyKey string
}

// FinalizeInvoiceParams contains parameters for finalizing a draft invoice.
type FinalizeInvoiceParams struct {
	InvoiceID      string
	IdempotencyKey string
}

// Invoice lifecycle states. Layout fields are only mutable in draft.
const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusOpen          = "open"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusVoid          = "void"
	InvoiceStatusUncollectible = "uncollectible"
)

// Invoice is the neutral view of a provider invoice.
type Invoice struct {
	ID           string
	CustomerID   string
	Status       string
	AmountCents  int64
	Currency     string
	CustomFields map[string]string
	CreatedAt    time.Time
}

// Draft reports whether the invoice can still accept field mutations.
func (i *Invoice) Draft() bool {
	return i.Status == InvoiceStatusDraft
}
