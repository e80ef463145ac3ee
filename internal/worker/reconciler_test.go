package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stuckPayment(t *testing.T, payments *service.MockPaymentStore, transactionID *string) *domain.Payment {
	t.Helper()
	payment, err := domain.NewPayment("user-1", "pro-1", "req-1", 15000, "CLP", domain.ProviderStripe)
	require.NoError(t, err)
	payment.TransactionID = transactionID
	payment.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, payments.Create(context.Background(), payment))
	return payment
}

func TestReconcilerRunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the vendor status to a stuck payment", func(t *testing.T) {
		provider := service.NewMockProvider(domain.ProviderStripe)
		payments := service.NewMockPaymentStore()
		txID := "pi_123"
		payment := stuckPayment(t, payments, &txID)

		provider.GetPaymentStatusFn = func(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
			assert.Equal(t, "pi_123", transactionID)
			return &domain.ChargeResult{TransactionID: transactionID, Status: domain.PaymentCompleted}, nil
		}

		w := NewReconciler(service.NewMockRegistry(provider), payments, time.Minute, 30*time.Minute, 100, testLogger())
		require.NoError(t, w.RunOnce(ctx))

		stored, _ := payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentCompleted, stored.Status)
	})

	t.Run("fails a payment that never reached the vendor", func(t *testing.T) {
		provider := service.NewMockProvider(domain.ProviderStripe)
		payments := service.NewMockPaymentStore()
		payment := stuckPayment(t, payments, nil)

		w := NewReconciler(service.NewMockRegistry(provider), payments, time.Minute, 30*time.Minute, 100, testLogger())
		require.NoError(t, w.RunOnce(ctx))

		stored, _ := payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentFailed, stored.Status)
		require.NotNil(t, stored.ErrorMessage)
	})

	t.Run("leaves a still-processing payment alone", func(t *testing.T) {
		provider := service.NewMockProvider(domain.ProviderStripe)
		payments := service.NewMockPaymentStore()
		txID := "pi_123"
		payment := stuckPayment(t, payments, &txID)

		provider.GetPaymentStatusFn = func(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
			return &domain.ChargeResult{TransactionID: transactionID, Status: domain.PaymentProcessing}, nil
		}

		updated := false
		payments.UpdateFn = func(ctx context.Context, p *domain.Payment) error {
			updated = true
			return nil
		}

		w := NewReconciler(service.NewMockRegistry(provider), payments, time.Minute, 30*time.Minute, 100, testLogger())
		require.NoError(t, w.RunOnce(ctx))

		assert.False(t, updated)
		stored, _ := payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentProcessing, stored.Status)
	})

	t.Run("a vendor still reporting pending leaves the payment processing", func(t *testing.T) {
		provider := service.NewMockProvider(domain.ProviderStripe)
		payments := service.NewMockPaymentStore()
		txID := "pi_123"
		payment := stuckPayment(t, payments, &txID)

		provider.GetPaymentStatusFn = func(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
			return &domain.ChargeResult{TransactionID: transactionID, Status: domain.PaymentPending, RawStatus: "requires_action"}, nil
		}

		updated := false
		payments.UpdateFn = func(ctx context.Context, p *domain.Payment) error {
			updated = true
			return nil
		}

		w := NewReconciler(service.NewMockRegistry(provider), payments, time.Minute, 30*time.Minute, 100, testLogger())
		require.NoError(t, w.RunOnce(ctx))

		assert.False(t, updated)
		stored, _ := payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentProcessing, stored.Status)
	})

	t.Run("a vendor error on one payment does not stop the batch", func(t *testing.T) {
		provider := service.NewMockProvider(domain.ProviderStripe)
		payments := service.NewMockPaymentStore()
		badID := "pi_bad"
		goodID := "pi_good"
		stuckPayment(t, payments, &badID)
		good := stuckPayment(t, payments, &goodID)

		provider.GetPaymentStatusFn = func(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
			if transactionID == "pi_bad" {
				return nil, domain.NewProviderError(domain.ErrCodeStatusCheckFailed, domain.ProviderStripe, assert.AnError)
			}
			return &domain.ChargeResult{TransactionID: transactionID, Status: domain.PaymentCompleted}, nil
		}

		w := NewReconciler(service.NewMockRegistry(provider), payments, time.Minute, 30*time.Minute, 100, testLogger())
		require.NoError(t, w.RunOnce(ctx))

		stored, _ := payments.FindByID(ctx, good.ID)
		assert.Equal(t, domain.PaymentCompleted, stored.Status)
	})

	t.Run("recent processing payments are not touched", func(t *testing.T) {
		provider := service.NewMockProvider(domain.ProviderStripe)
		payments := service.NewMockPaymentStore()

		payment, err := domain.NewPayment("user-1", "pro-1", "req-1", 15000, "CLP", domain.ProviderStripe)
		require.NoError(t, err)
		require.NoError(t, payments.Create(ctx, payment))

		w := NewReconciler(service.NewMockRegistry(provider), payments, time.Minute, 30*time.Minute, 100, testLogger())
		require.NoError(t, w.RunOnce(ctx))

		stored, _ := payments.FindByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentProcessing, stored.Status)
	})
}
