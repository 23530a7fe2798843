package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates successful checkout flows without calling the Stripe API.
// The default behavior maintains in-memory sessions, customers and
// invoices so idempotence of the reconciliation path can be asserted.
type MockProvider struct {
	// CreateCheckoutSessionFunc allows customizing session creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSessionFunc allows customizing session retrieval behavior
	GetCheckoutSessionFunc func(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// GetCustomerByEmailFunc allows customizing customer lookup behavior
	GetCustomerByEmailFunc func(ctx context.Context, email string) (*Customer, error)

	// GetCustomerFunc allows customizing customer retrieval behavior
	GetCustomerFunc func(ctx context.Context, customerID string) (*Customer, error)

	// CreateCustomerFunc allows customizing customer creation behavior
	CreateCustomerFunc func(ctx context.Context, params CreateCustomerParams) (*Customer, error)

	// SetCustomerInvoiceFieldsFunc allows customizing the customer upsert
	SetCustomerInvoiceFieldsFunc func(ctx context.Context, params SetInvoiceFieldsParams) (*Customer, error)

	// GetInvoiceFunc allows customizing invoice retrieval behavior
	GetInvoiceFunc func(ctx context.Context, invoiceID string) (*Invoice, error)

	// SetInvoiceFieldsFunc allows customizing the invoice upsert
	SetInvoiceFieldsFunc func(ctx context.Context, params SetInvoiceFieldsParams) (*Invoice, error)

	// FinalizeInvoiceFunc allows customizing invoice finalization
	FinalizeInvoiceFunc func(ctx context.Context, params FinalizeInvoiceParams) (*Invoice, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error

	// Sessions stores created sessions for retrieval
	Sessions map[string]*CheckoutSession

	// Customers stores customers by ID
	Customers map[string]*Customer

	// Invoices stores invoices by ID
	Invoices map[string]*Invoice

	// UsedIdempotencyKeys records keys seen by mutating calls; a repeated
	// key makes the call a no-op, mirroring the provider's deduplication.
	UsedIdempotencyKeys map[string]bool

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Sessions:            make(map[string]*CheckoutSession),
		Customers:           make(map[string]*Customer),
		Invoices:            make(map[string]*Invoice),
		UsedIdempotencyKeys: make(map[string]bool),
		CallLog:             []string{},
	}
}

// CreateCheckoutSession creates a mock checkout session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCheckoutSession(%s, %s)", params.PriceID, params.Mode))

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	id := "cs_" + uuid.New().String()
	session := &CheckoutSession{
		ID:            id,
		ClientSecret:  id + "_secret_" + uuid.New().String(),
		Status:        "open",
		PaymentStatus: "unpaid",
		Mode:          params.Mode,
		CustomerID:    params.CustomerID,
		CustomerEmail: params.CustomerEmail,
		Metadata:      params.Metadata,
		CreatedAt:     time.Now(),
	}

	m.Sessions[session.ID] = session
	return session, nil
}

// GetCheckoutSession retrieves a stored session.
func (m *MockProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetCheckoutSession(%s)", sessionID))

	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, sessionID)
	}

	session, exists := m.Sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}
	return session, nil
}

// GetCustomerByEmail finds a stored customer by email.
func (m *MockProvider) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetCustomerByEmail(%s)", email))

	if m.GetCustomerByEmailFunc != nil {
		return m.GetCustomerByEmailFunc(ctx, email)
	}

	for _, customer := range m.Customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return nil, nil
}

// GetCustomer retrieves a stored customer by ID.
func (m *MockProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetCustomer(%s)", customerID))

	if m.GetCustomerFunc != nil {
		return m.GetCustomerFunc(ctx, customerID)
	}

	customer, exists := m.Customers[customerID]
	if !exists {
		return nil, ErrNotFound
	}
	return customer, nil
}

// CreateCustomer creates a mock customer.
func (m *MockProvider) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCustomer(%s)", params.Email))

	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, params)
	}

	customer := &Customer{
		ID:        "cus_" + uuid.New().String(),
		Email:     params.Email,
		Name:      params.Name,
		CreatedAt: time.Now(),
	}

	m.Customers[customer.ID] = customer
	return customer, nil
}

// SetCustomerInvoiceFields merges fields into a stored customer, honoring
// idempotency-key deduplication.
func (m *MockProvider) SetCustomerInvoiceFields(ctx context.Context, params SetInvoiceFieldsParams) (*Customer, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("SetCustomerInvoiceFields(%s)", params.ResourceID))

	if m.SetCustomerInvoiceFieldsFunc != nil {
		return m.SetCustomerInvoiceFieldsFunc(ctx, params)
	}

	customer, exists := m.Customers[params.ResourceID]
	if !exists {
		return nil, ErrNotFound
	}

	if m.UsedIdempotencyKeys[params.IdempotencyKey] {
		return customer, nil
	}
	m.UsedIdempotencyKeys[params.IdempotencyKey] = true

	if customer.InvoiceFields == nil {
		customer.InvoiceFields = make(map[string]string)
	}
	for name, value := range params.Fields {
		customer.InvoiceFields[name] = value
	}
	return customer, nil
}

// GetInvoice retrieves a stored invoice.
func (m *MockProvider) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetInvoice(%s)", invoiceID))

	if m.GetInvoiceFunc != nil {
		return m.GetInvoiceFunc(ctx, invoiceID)
	}

	invoice, exists := m.Invoices[invoiceID]
	if !exists {
		return nil, ErrNotFound
	}
	return invoice, nil
}

// SetInvoiceFields merges fields into a stored draft invoice.
func (m *MockProvider) SetInvoiceFields(ctx context.Context, params SetInvoiceFieldsParams) (*Invoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("SetInvoiceFields(%s)", params.ResourceID))

	if m.SetInvoiceFieldsFunc != nil {
		return m.SetInvoiceFieldsFunc(ctx, params)
	}

	invoice, exists := m.Invoices[params.ResourceID]
	if !exists {
		return nil, ErrNotFound
	}
	if !invoice.Draft() {
		return nil, ErrInvoiceNotDraft
	}

	if m.UsedIdempotencyKeys[params.IdempotencyKey] {
		return invoice, nil
	}
	m.UsedIdempotencyKeys[params.IdempotencyKey] = true

	if invoice.CustomFields == nil {
		invoice.CustomFields = make(map[string]string)
	}
	for name, value := range params.Fields {
		invoice.CustomFields[name] = value
	}
	return invoice, nil
}

// FinalizeInvoice transitions a stored draft invoice to open.
func (m *MockProvider) FinalizeInvoice(ctx context.Context, params FinalizeInvoiceParams) (*Invoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("FinalizeInvoice(%s)", params.InvoiceID))

	if m.FinalizeInvoiceFunc != nil {
		return m.FinalizeInvoiceFunc(ctx, params)
	}

	invoice, exists := m.Invoices[params.InvoiceID]
	if !exists {
		return nil, ErrNotFound
	}

	if m.UsedIdempotencyKeys[params.IdempotencyKey] {
		return invoice, nil
	}
	m.UsedIdempotencyKeys[params.IdempotencyKey] = true

	invoice.Status = InvoiceStatusOpen
	return invoice, nil
}

// VerifyWebhookSignature accepts any signature by default.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return nil
}
