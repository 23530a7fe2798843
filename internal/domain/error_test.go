package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, EINVALID, ErrorCode(Errorf(EINVALID, "op", "bad input")))
	assert.Equal(t, EPROVIDER, ErrorCode(WrapError(errors.New("boom"), EPROVIDER, "op", "provider said boom")))
	assert.Equal(t, EINTERNAL, ErrorCode(errors.New("plain")), "non-domain errors default to internal")
	assert.Empty(t, ErrorCode(nil))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid passes through", Errorf(EINVALID, "op", "unknown plan: lifetime"), "unknown plan: lifetime"},
		{"provider rejection passes through", Errorf(EPROVIDER, "op", "no such price: price_one_time"), "no such price: price_one_time"},
		{"unavailable passes through", Errorf(EUNAVAILABLE, "op", "provider unavailable"), "provider unavailable"},
		{"internal is masked", Errorf(EINTERNAL, "op", "nil pointer in catalog"), "An internal error occurred. Please try again later."},
		{"plain error is masked", errors.New("sql: connection reset"), "An internal error occurred. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(tt.err))
		})
	}
}
