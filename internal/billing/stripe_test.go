package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  StripeConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  StripeConfig{APIKey: "sk_test_123", WebhookSecret: "whsec_123"},
			wantErr: false,
		},
		{
			name:    "missing API key",
			config:  StripeConfig{WebhookSecret: "whsec_123"},
			wantErr: true,
		},
		{
			name:    "missing webhook secret",
			config:  StripeConfig{APIKey: "sk_test_123"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStripeConfig_IsTestMode(t *testing.T) {
	assert.True(t, (&StripeConfig{APIKey: "sk_test_abc"}).IsTestMode())
	assert.False(t, (&StripeConfig{APIKey: "sk_live_abc"}).IsTestMode())
	assert.False(t, (&StripeConfig{APIKey: ""}).IsTestMode())
}

func TestMergeFields(t *testing.T) {
	existing := map[string]string{
		"company_name": "Old GmbH",
		"po_number":    "PO-42",
	}
	updates := map[string]string{
		"company_name":       "Acme GmbH",
		"company_tax_number": "DE123456789",
	}

	merged := mergeFields(existing, updates)

	// Merge by name: same-named fields overwritten, others preserved,
	// never appended as duplicates.
	require.Len(t, merged, 3)
	assert.Equal(t, "Acme GmbH", merged["company_name"])
	assert.Equal(t, "DE123456789", merged["company_tax_number"])
	assert.Equal(t, "PO-42", merged["po_number"])

	// Inputs untouched.
	assert.Equal(t, "Old GmbH", existing["company_name"])
}

func TestMergeFields_Idempotent(t *testing.T) {
	updates := map[string]string{
		"company_name":       "Acme GmbH",
		"company_tax_number": "DE123456789",
	}

	once := mergeFields(nil, updates)
	twice := mergeFields(once, updates)

	assert.Equal(t, once, twice)
}

func TestSortedNames_Stable(t *testing.T) {
	fields := map[string]string{
		"company_tax_number": "DE123456789",
		"company_name":       "Acme GmbH",
	}

	assert.Equal(t, []string{"company_name", "company_tax_number"}, sortedNames(fields))
}

func TestFieldParams(t *testing.T) {
	fields := map[string]string{
		"company_tax_number": "DE123456789",
		"company_name":       "Acme GmbH",
	}

	customerParams := customerFieldParams(fields)
	require.Len(t, customerParams, 2)
	assert.Equal(t, "company_name", *customerParams[0].Name)
	assert.Equal(t, "Acme GmbH", *customerParams[0].Value)
	assert.Equal(t, "company_tax_number", *customerParams[1].Name)

	invoiceParams := invoiceFieldParams(fields)
	require.Len(t, invoiceParams, 2)
	assert.Equal(t, "company_name", *invoiceParams[0].Name)
	assert.Equal(t, "DE123456789", *invoiceParams[1].Value)
}

func TestIdempotencyKey(t *testing.T) {
	key := IdempotencyKey("in_123", "evt_456")

	// Deterministic per (resource, event) pair.
	assert.Equal(t, key, IdempotencyKey("in_123", "evt_456"))

	// Distinct resource or event yields a distinct key.
	assert.NotEqual(t, key, IdempotencyKey("in_124", "evt_456"))
	assert.NotEqual(t, key, IdempotencyKey("in_123", "evt_457"))

	// Well under the provider's 255-character limit.
	assert.Less(t, len(key), 64)
}
