package billing

// Typed webhook event variants. The webhook handler decodes the provider's
// raw envelope into one of these at the boundary; services never touch the
// SDK's duck-typed payloads.

// CompletedSession is the decoded "checkout.session.completed" event.
type CompletedSession struct {
	// EventID is the provider event ID; it scopes idempotency keys.
	EventID string

	SessionID     string
	CustomerID    string
	CustomerEmail string

	// InvoiceID is set when the provider already created an invoice for
	// the session (subscription mode). May be empty.
	InvoiceID string

	// CustomFields holds the buyer-entered free-text values by field key.
	CustomFields map[string]string
}

// InvoiceEvent is the decoded "invoice.created" event.
type InvoiceEvent struct {
	EventID string

	InvoiceID  string
	CustomerID string

	// Status is the invoice lifecycle state at event time. The reconciler
	// re-checks the live state before mutating; this one only short-circuits
	// events that arrive already finalized.
	Status string
}
