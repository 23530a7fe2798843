package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastianbarami/aibe-checkout/internal/domain"
)

func TestPlanInfo_Total(t *testing.T) {
	tests := []struct {
		name         string
		amountCents  int64
		installments int
		want         string
	}{
		{"one time", 79900, 1, "799.00"},
		{"two installments", 42000, 2, "840.00"},
		{"three installments", 29900, 3, "897.00"},
		{"odd cents stay exact", 3333, 3, "99.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := PlanInfo{AmountCents: tt.amountCents, Installments: tt.installments}
			assert.Equal(t, tt.want, info.Total())
		})
	}
}

func TestPlanCatalog_Resolve(t *testing.T) {
	catalog := testCatalog()

	info, err := catalog.Resolve("split_2")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanSplit2, info.Plan)
	assert.Equal(t, "price_split_2", info.PriceID)
	assert.Equal(t, domain.BillingModeSubscription, info.Mode)
	assert.Equal(t, 2, info.Installments)

	_, err = catalog.Resolve("free")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestPlanCatalog_ResolveByMetadata(t *testing.T) {
	catalog := testCatalog()

	info, ok := catalog.ResolveByMetadata(map[string]string{"plan": "one_time"})
	require.True(t, ok)
	assert.Equal(t, domain.PlanOneTime, info.Plan)

	_, ok = catalog.ResolveByMetadata(nil)
	assert.False(t, ok)

	_, ok = catalog.ResolveByMetadata(map[string]string{"plan": "retired"})
	assert.False(t, ok)
}
