package transbank

import (
	"testing"

	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.PaymentStatus
	}{
		{"AUTHORIZED", domain.PaymentCompleted},
		{"CAPTURED", domain.PaymentCompleted},
		{"INITIALIZED", domain.PaymentPending},
		{"FAILED", domain.PaymentFailed},
		{"NULLIFIED", domain.PaymentCancelled},
		{"PARTIALLY_NULLIFIED", domain.PaymentRefunded},
		{"REVERSED", domain.PaymentRefunded},
		// Unknown statuses must never look settled.
		{"SOMETHING_NEW", domain.PaymentPending},
		{"", domain.PaymentPending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mapStatus(tc.raw), "status %q", tc.raw)
	}
}

func TestLastFour(t *testing.T) {
	assert.Equal(t, "6623", lastFour("XXXXXXXXXXXX6623"))
	assert.Equal(t, "123", lastFour("123"))
}
