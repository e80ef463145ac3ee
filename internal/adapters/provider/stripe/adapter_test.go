package stripe

import (
	"context"
	"testing"

	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.PaymentStatus
	}{
		{"succeeded", domain.PaymentCompleted},
		{"processing", domain.PaymentProcessing},
		{"canceled", domain.PaymentCancelled},
		{"requires_payment_method", domain.PaymentPending},
		{"requires_confirmation", domain.PaymentPending},
		{"requires_action", domain.PaymentPending},
		{"requires_capture", domain.PaymentPending},
		{"some_future_status", domain.PaymentPending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mapStatus(tc.raw), "status %q", tc.raw)
	}
}

func TestMapEventType(t *testing.T) {
	cases := []struct {
		eventType string
		want      domain.PaymentStatus
		relevant  bool
	}{
		{"payment_intent.succeeded", domain.PaymentCompleted, true},
		{"payment_intent.payment_failed", domain.PaymentFailed, true},
		{"payment_intent.canceled", domain.PaymentCancelled, true},
		{"payment_intent.processing", domain.PaymentProcessing, true},
		{"charge.refunded", domain.PaymentRefunded, true},
		{"customer.created", domain.PaymentPending, false},
	}
	for _, tc := range cases {
		status, relevant := mapEventType(tc.eventType)
		assert.Equal(t, tc.relevant, relevant, "event %q", tc.eventType)
		if tc.relevant {
			assert.Equal(t, tc.want, status, "event %q", tc.eventType)
		}
	}
}

func TestParseWebhook(t *testing.T) {
	adapter := &Adapter{}
	ctx := context.Background()

	t.Run("payment intent event", func(t *testing.T) {
		payload := []byte(`{
			"type": "payment_intent.succeeded",
			"data": {"object": {"id": "pi_123"}}
		}`)

		event, err := adapter.ParseWebhook(ctx, payload)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "pi_123", event.TransactionID)
		assert.Equal(t, domain.PaymentCompleted, event.Status)
		assert.Equal(t, domain.ProviderStripe, event.Provider)
	})

	t.Run("charge event resolves the payment intent", func(t *testing.T) {
		payload := []byte(`{
			"type": "charge.refunded",
			"data": {"object": {"id": "ch_456", "payment_intent": "pi_123"}}
		}`)

		event, err := adapter.ParseWebhook(ctx, payload)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "pi_123", event.TransactionID)
		assert.Equal(t, domain.PaymentRefunded, event.Status)
	})

	t.Run("irrelevant event types are dropped", func(t *testing.T) {
		payload := []byte(`{
			"type": "customer.created",
			"data": {"object": {"id": "cus_789"}}
		}`)

		event, err := adapter.ParseWebhook(ctx, payload)
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := adapter.ParseWebhook(ctx, []byte(`not-json`))
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})
}

func TestVerifyWebhookWithoutSecret(t *testing.T) {
	adapter := &Adapter{}
	assert.False(t, adapter.VerifyWebhook([]byte(`{}`), "t=1,v1=abc"))
}

func TestVerifyWebhookRejectsUnsigned(t *testing.T) {
	adapter := &Adapter{webhookSecret: "whsec_test"}
	assert.False(t, adapter.VerifyWebhook([]byte(`{}`), ""))
}

func TestBrandName(t *testing.T) {
	assert.Equal(t, "Visa", brandName("visa"))
	assert.Equal(t, "Mastercard", brandName("mastercard"))
	assert.Equal(t, "American Express", brandName("amex"))
	assert.Equal(t, "unionpay", brandName("unionpay"))
}
