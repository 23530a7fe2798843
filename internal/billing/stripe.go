package billing

import (
	"context"
	"sort"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using the Stripe v82 client.
// The client is constructed once at process start and shared across
// requests; it carries no per-request mutable state.
type StripeProvider struct {
	client *stripe.Client
	config StripeConfig
}

// NewStripeProvider creates the Stripe billing provider.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &StripeProvider{
		client: stripe.NewClient(config.APIKey),
		config: config,
	}, nil
}

// CreateCheckoutSession creates a hosted (embedded) checkout session.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	quantity := params.Quantity
	if quantity == 0 {
		quantity = 1
	}

	createParams := &stripe.CheckoutSessionCreateParams{
		Mode:      stripe.String(params.Mode),
		UIMode:    stripe.String("embedded"),
		ReturnURL: stripe.String(params.ReturnURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		Metadata: params.Metadata,
	}

	if params.CollectBillingAddress {
		createParams.BillingAddressCollection = stripe.String("required")
	}

	// Link or prefill the buyer. A linked customer wins over a bare email.
	if params.CustomerID != "" {
		createParams.Customer = stripe.String(params.CustomerID)
	} else if params.CustomerEmail != "" {
		createParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	for _, field := range params.CustomFields {
		createParams.CustomFields = append(createParams.CustomFields, &stripe.CheckoutSessionCreateCustomFieldParams{
			Key:  stripe.String(field.Key),
			Type: stripe.String("text"),
			Label: &stripe.CheckoutSessionCreateCustomFieldLabelParams{
				Type:   stripe.String("custom"),
				Custom: stripe.String(field.Label),
			},
			Optional: stripe.Bool(true),
		})
	}

	if params.Mode == string(stripe.CheckoutSessionModeSubscription) {
		createParams.SubscriptionData = &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: params.Metadata,
		}
	}

	session, err := s.client.V1CheckoutSessions.Create(ctx, createParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toCheckoutSession(session), nil
}

// GetCheckoutSession re-fetches a session with its customer and invoice.
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionRetrieveParams{
		Expand: []*string{
			stripe.String("customer"),
			stripe.String("invoice"),
		},
	}

	session, err := s.client.V1CheckoutSessions.Retrieve(ctx, sessionID, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toCheckoutSession(session), nil
}

// GetCustomerByEmail returns the most recently created customer with the
// given email, or nil, nil when none exists.
func (s *StripeProvider) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	listParams.Limit = stripe.Int64(1)

	for customer, err := range s.client.V1Customers.List(ctx, listParams) {
		if err != nil {
			return nil, wrapStripeError(err)
		}
		return toCustomer(customer), nil
	}

	return nil, nil
}

// GetCustomer retrieves a Stripe customer by ID.
func (s *StripeProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	customer, err := s.client.V1Customers.Retrieve(ctx, customerID, nil)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toCustomer(customer), nil
}

// CreateCustomer creates a Stripe customer.
func (s *StripeProvider) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	createParams := &stripe.CustomerCreateParams{
		Metadata: params.Metadata,
	}
	if params.Email != "" {
		createParams.Email = stripe.String(params.Email)
	}
	if params.Name != "" {
		createParams.Name = stripe.String(params.Name)
	}

	customer, err := s.client.V1Customers.Create(ctx, createParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toCustomer(customer), nil
}

// SetCustomerInvoiceFields merges the given fields into the customer's
// invoice-default custom fields by name. Read-merge-write: fields already
// present under other names survive, same-named fields are overwritten,
// and replaying the same event is deduplicated by the idempotency key.
func (s *StripeProvider) SetCustomerInvoiceFields(ctx context.Context, params SetInvoiceFieldsParams) (*Customer, error) {
	current, err := s.client.V1Customers.Retrieve(ctx, params.ResourceID, nil)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	existing := make(map[string]string)
	if current.InvoiceSettings != nil {
		for _, field := range current.InvoiceSettings.CustomFields {
			existing[field.Name] = field.Value
		}
	}

	merged := mergeFields(existing, params.Fields)

	updateParams := &stripe.CustomerUpdateParams{
		InvoiceSettings: &stripe.CustomerUpdateInvoiceSettingsParams{
			CustomFields: customerFieldParams(merged),
		},
	}
	updateParams.IdempotencyKey = stripe.String(params.IdempotencyKey)

	customer, err := s.client.V1Customers.Update(ctx, params.ResourceID, updateParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toCustomer(customer), nil
}

// GetInvoice retrieves an invoice by ID.
func (s *StripeProvider) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	invoice, err := s.client.V1Invoices.Retrieve(ctx, invoiceID, nil)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toInvoice(invoice), nil
}

// SetInvoiceFields merges the given fields into a draft invoice's custom
// fields by name. Stripe rejects the update once the invoice is finalized,
// so callers check the draft state first and treat non-draft as a no-op.
func (s *StripeProvider) SetInvoiceFields(ctx context.Context, params SetInvoiceFieldsParams) (*Invoice, error) {
	current, err := s.client.V1Invoices.Retrieve(ctx, params.ResourceID, nil)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	if current.Status != stripe.InvoiceStatusDraft {
		return nil, ErrInvoiceNotDraft
	}

	existing := make(map[string]string)
	for _, field := range current.CustomFields {
		existing[field.Name] = field.Value
	}

	merged := mergeFields(existing, params.Fields)

	updateParams := &stripe.InvoiceUpdateParams{
		CustomFields: invoiceFieldParams(merged),
	}
	updateParams.IdempotencyKey = stripe.String(params.IdempotencyKey)

	invoice, err := s.client.V1Invoices.Update(ctx, params.ResourceID, updateParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toInvoice(invoice), nil
}

// FinalizeInvoice finalizes a draft invoice and lets Stripe advance
// collection (payment attempt, emails) from there.
func (s *StripeProvider) FinalizeInvoice(ctx context.Context, params FinalizeInvoiceParams) (*Invoice, error) {
	finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{
		AutoAdvance: stripe.Bool(true),
	}
	finalizeParams.IdempotencyKey = stripe.String(params.IdempotencyKey)

	invoice, err := s.client.V1Invoices.FinalizeInvoice(ctx, params.InvoiceID, finalizeParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return toInvoice(invoice), nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature against the
// configured signing secret.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if err := webhook.ValidatePayload(payload, signature, s.config.WebhookSecret); err != nil {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// Conversions between Stripe SDK objects and the neutral types.

func toCheckoutSession(session *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            session.ID,
		ClientSecret:  session.ClientSecret,
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
		Mode:          string(session.Mode),
		AmountCents:   session.AmountTotal,
		Currency:      string(session.Currency),
		Metadata:      session.Metadata,
		CreatedAt:     time.Unix(session.Created, 0),
	}

	if session.Customer != nil {
		out.CustomerID = session.Customer.ID
		out.CustomerEmail = session.Customer.Email
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		out.CustomerEmail = session.CustomerDetails.Email
	}
	if session.Invoice != nil {
		out.InvoiceID = session.Invoice.ID
	}

	if len(session.CustomFields) > 0 {
		out.CustomFields = make(map[string]string, len(session.CustomFields))
		for _, field := range session.CustomFields {
			if field.Text != nil && field.Text.Value != "" {
				out.CustomFields[field.Key] = field.Text.Value
			}
		}
	}

	return out
}

func toCustomer(customer *stripe.Customer) *Customer {
	out := &Customer{
		ID:        customer.ID,
		Email:     customer.Email,
		Name:      customer.Name,
		CreatedAt: time.Unix(customer.Created, 0),
	}

	if customer.InvoiceSettings != nil && len(customer.InvoiceSettings.CustomFields) > 0 {
		out.InvoiceFields = make(map[string]string, len(customer.InvoiceSettings.CustomFields))
		for _, field := range customer.InvoiceSettings.CustomFields {
			out.InvoiceFields[field.Name] = field.Value
		}
	}

	return out
}

func toInvoice(invoice *stripe.Invoice) *Invoice {
	out := &Invoice{
		ID:          invoice.ID,
		Status:      string(invoice.Status),
		AmountCents: invoice.Total,
		Currency:    string(invoice.Currency),
		CreatedAt:   time.Unix(invoice.Created, 0),
	}

	if invoice.Customer != nil {
		out.CustomerID = invoice.Customer.ID
	}

	if len(invoice.CustomFields) > 0 {
		out.CustomFields = make(map[string]string, len(invoice.CustomFields))
		for _, field := range invoice.CustomFields {
			out.CustomFields[field.Name] = field.Value
		}
	}

	return out
}

// mergeFields overlays updates onto existing by field name.
func mergeFields(existing, updates map[string]string) map[string]string {
	merged := make(map[string]string, len(existing)+len(updates))
	for name, value := range existing {
		merged[name] = value
	}
	for name, value := range updates {
		merged[name] = value
	}
	return merged
}

// sortedNames returns field names in a stable order so repeated updates
// produce identical request bodies.
func sortedNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func customerFieldParams(fields map[string]string) []*stripe.CustomerUpdateInvoiceSettingsCustomFieldParams {
	params := make([]*stripe.CustomerUpdateInvoiceSettingsCustomFieldParams, 0, len(fields))
	for _, name := range sortedNames(fields) {
		params = append(params, &stripe.CustomerUpdateInvoiceSettingsCustomFieldParams{
			Name:  stripe.String(name),
			Value: stripe.String(fields[name]),
		})
	}
	return params
}

func invoiceFieldParams(fields map[string]string) []*stripe.InvoiceUpdateCustomFieldParams {
	params := make([]*stripe.InvoiceUpdateCustomFieldParams, 0, len(fields))
	for _, name := range sortedNames(fields) {
		params = append(params, &stripe.InvoiceUpdateCustomFieldParams{
			Name:  stripe.String(name),
			Value: stripe.String(fields[name]),
		})
	}
	return params
}
