package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bastianbarami/aibe-checkout/internal/billing"
	"github.com/bastianbarami/aibe-checkout/internal/domain"
	"github.com/bastianbarami/aibe-checkout/internal/telemetry"
)

// Reconciler copies the billing supplement collected at checkout onto the
// provider-side Customer and its draft invoices. All mutations carry
// idempotency keys derived from the triggering event, so at-least-once
// webhook delivery converges to the same end state.
type Reconciler struct {
	provider billing.Provider
	logger   *slog.Logger
}

// NewReconciler creates the webhook reconciliation service.
func NewReconciler(provider billing.Provider, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		provider: provider,
		logger:   logger.With("service", "reconcile"),
	}
}

// HandleSessionCompleted processes a completed checkout session: it reads
// the buyer-entered supplement fields and upserts them as invoice defaults
// on the Customer, then enriches the session's first invoice if the
// provider already created one and it is still draft.
//
// A transient provider failure is returned so the caller can signal the
// provider to redeliver; everything else is absorbed after logging, since
// redelivery cannot fix a session without a customer or a supplement.
func (r *Reconciler) HandleSessionCompleted(ctx context.Context, evt billing.CompletedSession) error {
	logger := r.logger.With("event_id", evt.EventID, "session_id", evt.SessionID)

	supplement := domain.SupplementFromFields(evt.CustomFields)
	if supplement.Empty() {
		logger.Debug("no billing supplement on session, nothing to reconcile")
		return nil
	}

	if evt.CustomerID == "" {
		// Sessions are always created against a customer, so this means
		// the event payload is malformed. Redelivery would not change it.
		logger.Warn("completed session has no customer, supplement dropped")
		return nil
	}

	_, err := r.provider.SetCustomerInvoiceFields(ctx, billing.SetInvoiceFieldsParams{
		ResourceID:     evt.CustomerID,
		Fields:         supplement.Fields(),
		IdempotencyKey: billing.IdempotencyKey(evt.CustomerID, evt.EventID),
	})
	if err != nil {
		return r.classify(err, logger, "customer supplement upsert failed", "customer_id", evt.CustomerID)
	}

	if telemetry.Business != nil {
		telemetry.Business.SupplementsApplied.WithLabelValues("customer").Inc()
	}
	logger.Info("billing supplement stored on customer",
		"customer_id", evt.CustomerID,
		"fields", len(supplement.Fields()))

	if evt.InvoiceID == "" {
		return nil
	}
	return r.enrichInvoice(ctx, logger, evt.InvoiceID, supplement.Fields(), evt.EventID)
}

// HandleInvoiceCreated is the fallback for the creation race: when the
// provider drafts an invoice before the completed-session handler has
// stored the supplement, the new invoice misses the customer's invoice
// defaults. This re-applies whatever is stored on the customer to the
// still-draft invoice.
func (r *Reconciler) HandleInvoiceCreated(ctx context.Context, evt billing.InvoiceEvent) error {
	// invoice_id is left to the individual log calls so the attribute is
	// not repeated once enrichInvoice adds its own.
	logger := r.logger.With("event_id", evt.EventID)

	if evt.Status != "" && evt.Status != billing.InvoiceStatusDraft {
		logger.Debug("invoice already finalized at event time, skipping", "invoice_id", evt.InvoiceID)
		return nil
	}
	if evt.CustomerID == "" {
		logger.Warn("invoice event has no customer, skipping", "invoice_id", evt.InvoiceID)
		return nil
	}

	customer, err := r.provider.GetCustomer(ctx, evt.CustomerID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			logger.Warn("invoice customer not found, skipping", "customer_id", evt.CustomerID)
			return nil
		}
		return r.classify(err, logger, "customer fetch failed", "customer_id", evt.CustomerID)
	}

	if len(customer.InvoiceFields) == 0 {
		logger.Debug("customer has no stored supplement, nothing to apply", "invoice_id", evt.InvoiceID)
		return nil
	}

	return r.enrichInvoice(ctx, logger, evt.InvoiceID, customer.InvoiceFields, evt.EventID)
}

// enrichInvoice merges fields onto a draft invoice and finalizes it.
// Invoices past draft are left untouched; their layout is frozen and the
// provider would reject the write anyway.
func (r *Reconciler) enrichInvoice(ctx context.Context, logger *slog.Logger, invoiceID string, fields map[string]string, eventID string) error {
	invoice, err := r.provider.GetInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			logger.Warn("invoice not found, skipping enrichment", "invoice_id", invoiceID)
			return nil
		}
		return r.classify(err, logger, "invoice fetch failed", "invoice_id", invoiceID)
	}

	if !invoice.Draft() {
		logger.Info("invoice no longer draft, skipping enrichment",
			"invoice_id", invoiceID,
			"status", invoice.Status)
		return nil
	}

	_, err = r.provider.SetInvoiceFields(ctx, billing.SetInvoiceFieldsParams{
		ResourceID:     invoiceID,
		Fields:         fields,
		IdempotencyKey: billing.IdempotencyKey(invoiceID, eventID),
	})
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceNotDraft) {
			// Lost the race against auto-finalization between the read
			// and the write. The fields land on the next cycle's invoice
			// via the customer defaults.
			logger.Info("invoice finalized concurrently, skipping enrichment", "invoice_id", invoiceID)
			return nil
		}
		return r.classify(err, logger, "invoice field upsert failed", "invoice_id", invoiceID)
	}

	if telemetry.Business != nil {
		telemetry.Business.SupplementsApplied.WithLabelValues("invoice").Inc()
	}

	_, err = r.provider.FinalizeInvoice(ctx, billing.FinalizeInvoiceParams{
		InvoiceID:      invoiceID,
		IdempotencyKey: billing.IdempotencyKey(invoiceID, eventID+"/finalize"),
	})
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceNotDraft) {
			return nil
		}
		return r.classify(err, logger, "invoice finalization failed", "invoice_id", invoiceID)
	}

	if telemetry.Business != nil {
		telemetry.Business.InvoicesFinalized.Inc()
	}
	logger.Info("invoice enriched and finalized", "invoice_id", invoiceID)
	return nil
}

// classify logs a provider failure and maps it to a domain error: transient
// provider outages become EUNAVAILABLE so the webhook responds 5xx and the
// provider redelivers; anything else is EINTERNAL.
func (r *Reconciler) classify(err error, logger *slog.Logger, msg string, args ...any) error {
	logger.Error(msg, append(args, "error", err)...)

	if errors.Is(err, billing.ErrProviderUnavailable) {
		return domain.WrapError(err, domain.EUNAVAILABLE, "reconcile", msg)
	}
	return domain.WrapError(err, domain.EINTERNAL, "reconcile", msg)
}
