package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

var (
	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrNotFound is returned when a session, customer or invoice does not
	// exist on the provider side.
	ErrNotFound = errors.New("billing: resource not found")

	// ErrInvoiceNotDraft is returned when a layout mutation is attempted on
	// an invoice past the draft state.
	ErrInvoiceNotDraft = errors.New("billing: invoice is no longer draft")

	// ErrProviderUnavailable is returned for transient provider failures.
	// The webhook handler maps it to a retryable status so the provider's
	// redelivery compensates.
	ErrProviderUnavailable = errors.New("billing: provider temporarily unavailable")
)

// ProviderError wraps a Stripe API error with the fields callers care about.
type ProviderError struct {
	Message       string // Provider's human-readable message, relayed verbatim
	Code          string // Provider error code (e.g., "resource_missing")
	RequestID     string // Provider request ID for debugging
	OriginalError error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// wrapStripeError converts a Stripe SDK error into a ProviderError,
// mapping not-found and transient conditions onto the sentinel errors.
func wrapStripeError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		// Transport-level failure (timeout, connection reset). Treat as
		// transient so the webhook path signals retryable.
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	pe := &ProviderError{
		Message:       stripeErr.Msg,
		Code:          string(stripeErr.Code),
		RequestID:     stripeErr.RequestID,
		OriginalError: err,
	}

	switch {
	case stripeErr.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", ErrNotFound, pe.Message)
	case stripeErr.Code == stripe.ErrorCodeRateLimit,
		stripeErr.HTTPStatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, pe.Message)
	}

	return pe
}
