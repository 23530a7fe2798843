package service

import (
	"github.com/shopspring/decimal"

	"github.com/bastianbarami/aibe-checkout/internal/domain"
)

// PlanInfo is a resolved catalog entry: the provider price a plan maps to,
// how it charges, and the amounts used for the analytics return URL.
type PlanInfo struct {
	Plan         domain.Plan
	PriceID      string
	Mode         domain.BillingMode
	Installments int

	// AmountCents is the amount of a single charge or installment.
	AmountCents int64
	Currency    string
}

// Total returns the full purchase value across all installments, in major
// currency units with two decimal places (e.g., "897.00").
func (p PlanInfo) Total() string {
	total := decimal.NewFromInt(p.AmountCents).
		Mul(decimal.NewFromInt(int64(p.Installments))).
		Div(decimal.NewFromInt(100))
	return total.StringFixed(2)
}

// PlanAmounts configures the per-installment amount for each plan.
// Amounts mirror the configured Stripe prices; they are not authoritative
// for charging (the price object is), only for the relayed analytics value.
type PlanAmounts struct {
	OneTimeCents int64
	Split2Cents  int64
	Split3Cents  int64
	Currency     string
}

// PlanCatalog resolves plan identifiers to priced catalog entries.
// Unknown identifiers are rejected before any provider call.
type PlanCatalog struct {
	plans map[domain.Plan]PlanInfo
}

// PlanPrices carries the configured Stripe price ID per plan.
type PlanPrices struct {
	OneTimePriceID string
	Split2PriceID  string
	Split3PriceID  string
}

// NewPlanCatalog builds the catalog from configured prices and amounts.
func NewPlanCatalog(prices PlanPrices, amounts PlanAmounts) *PlanCatalog {
	currency := amounts.Currency
	if currency == "" {
		currency = "eur"
	}

	return &PlanCatalog{
		plans: map[domain.Plan]PlanInfo{
			domain.PlanOneTime: {
				Plan:         domain.PlanOneTime,
				PriceID:      prices.OneTimePriceID,
				Mode:         domain.BillingModePayment,
				Installments: 1,
				AmountCents:  amounts.OneTimeCents,
				Currency:     currency,
			},
			domain.PlanSplit2: {
				Plan:         domain.PlanSplit2,
				PriceID:      prices.Split2PriceID,
				Mode:         domain.BillingModeSubscription,
				Installments: 2,
				AmountCents:  amounts.Split2Cents,
				Currency:     currency,
			},
			domain.PlanSplit3: {
				Plan:         domain.PlanSplit3,
				PriceID:      prices.Split3PriceID,
				Mode:         domain.BillingModeSubscription,
				Installments: 3,
				AmountCents:  amounts.Split3Cents,
				Currency:     currency,
			},
		},
	}
}

// Resolve maps a plan identifier to its catalog entry.
// Returns EINVALID for unknown identifiers and EINTERNAL when the plan is
// known but its price was never configured (fail closed, never call the
// provider with an empty price).
func (c *PlanCatalog) Resolve(plan string) (PlanInfo, error) {
	info, ok := c.plans[domain.Plan(plan)]
	if !ok {
		return PlanInfo{}, domain.Errorf(domain.EINVALID, "plan.resolve", "unknown plan: %s", plan)
	}
	if info.PriceID == "" {
		return PlanInfo{}, domain.Errorf(domain.EINTERNAL, "plan.resolve", "no price configured for plan %s", plan)
	}
	return info, nil
}

// ResolveByMetadata recovers the plan from session metadata written at
// creation time. Returns the zero PlanInfo when the metadata is absent or
// names a plan this process no longer knows.
func (c *PlanCatalog) ResolveByMetadata(metadata map[string]string) (PlanInfo, bool) {
	if metadata == nil {
		return PlanInfo{}, false
	}
	info, ok := c.plans[domain.Plan(metadata["plan"])]
	return info, ok
}
