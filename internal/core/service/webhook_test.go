package service_test

import (
	"context"
	"testing"

	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	service  *service.WebhookService
	provider *service.MockProvider
	payments *service.MockPaymentStore
}

func newWebhookFixture() *webhookFixture {
	provider := service.NewMockProvider(domain.ProviderStripe)
	payments := service.NewMockPaymentStore()
	return &webhookFixture{
		service:  service.NewWebhookService(service.NewMockRegistry(provider), payments, testLogger()),
		provider: provider,
		payments: payments,
	}
}

func (f *webhookFixture) storeProcessingPayment(t *testing.T, transactionID string) *domain.Payment {
	t.Helper()
	payment, err := domain.NewPayment("user-1", "pro-1", "req-1", 15000, "CLP", domain.ProviderStripe)
	require.NoError(t, err)
	payment.TransactionID = &transactionID
	require.NoError(t, f.payments.Create(context.Background(), payment))
	return payment
}

func TestWebhookHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the event status to the payment", func(t *testing.T) {
		f := newWebhookFixture()
		payment := f.storeProcessingPayment(t, "pi_123")
		f.provider.ParseWebhookFn = func(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
			return &domain.WebhookEvent{
				Provider:      domain.ProviderStripe,
				Type:          "payment_intent.succeeded",
				TransactionID: "pi_123",
				Status:        domain.PaymentCompleted,
			}, nil
		}

		ack, err := f.service.Handle(ctx, "stripe", []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.True(t, ack.Received)

		stored, _ := f.payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentCompleted, stored.Status)
	})

	t.Run("rejects an unknown provider", func(t *testing.T) {
		f := newWebhookFixture()
		_, err := f.service.Handle(ctx, "paypal", []byte(`{}`), "")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnknownProvider))
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		f := newWebhookFixture()
		f.provider.VerifyWebhookFn = func(payload []byte, signature string) bool { return false }

		_, err := f.service.Handle(ctx, "stripe", []byte(`{}`), "bad-sig")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnauthorized))
	})

	t.Run("rejects an unsigned delivery when the provider signs", func(t *testing.T) {
		f := newWebhookFixture()
		payment := f.storeProcessingPayment(t, "pi_123")
		f.provider.VerifyWebhookFn = func(payload []byte, signature string) bool { return signature != "" }
		f.provider.ParseWebhookFn = func(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
			return &domain.WebhookEvent{TransactionID: "pi_123", Status: domain.PaymentCompleted}, nil
		}

		_, err := f.service.Handle(ctx, "stripe", []byte(`{"type":"payment_intent.succeeded"}`), "")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnauthorized))

		stored, _ := f.payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentProcessing, stored.Status)
	})

	t.Run("providers without a signing scheme accept unsigned deliveries", func(t *testing.T) {
		f := newWebhookFixture()
		f.provider.VerifyWebhookFn = func(payload []byte, signature string) bool { return true }

		ack, err := f.service.Handle(ctx, "stripe", []byte(`{}`), "")
		require.NoError(t, err)
		assert.True(t, ack.Received)
	})

	t.Run("acknowledges irrelevant events", func(t *testing.T) {
		f := newWebhookFixture()
		f.provider.ParseWebhookFn = func(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
			return nil, nil
		}

		ack, err := f.service.Handle(ctx, "stripe", []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.True(t, ack.Received)
	})

	t.Run("acknowledges events for unknown payments", func(t *testing.T) {
		f := newWebhookFixture()
		f.provider.ParseWebhookFn = func(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
			return &domain.WebhookEvent{
				TransactionID: "pi_unknown",
				Status:        domain.PaymentCompleted,
			}, nil
		}

		ack, err := f.service.Handle(ctx, "stripe", []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.True(t, ack.Received)
	})

	t.Run("out of order events cannot regress a terminal payment", func(t *testing.T) {
		f := newWebhookFixture()
		payment := f.storeProcessingPayment(t, "pi_123")
		require.NoError(t, payment.Complete("pi_123"))
		require.NoError(t, f.payments.Update(ctx, payment))

		f.provider.ParseWebhookFn = func(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
			return &domain.WebhookEvent{
				TransactionID: "pi_123",
				Status:        domain.PaymentFailed,
			}, nil
		}

		ack, err := f.service.Handle(ctx, "stripe", []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.True(t, ack.Received)

		stored, _ := f.payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentCompleted, stored.Status)
	})
}
