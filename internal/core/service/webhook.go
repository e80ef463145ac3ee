package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// WebhookService routes an inbound vendor event to the right adapter,
// verifies its signature when one is supplied, and applies the normalized
// status to the payment keyed by the vendor's correlation id.
type WebhookService struct {
	registry ports.ProviderRegistry
	payments ports.PaymentStore
	logger   *slog.Logger
}

func NewWebhookService(registry ports.ProviderRegistry, payments ports.PaymentStore, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		registry: registry,
		payments: payments,
		logger:   logger,
	}
}

// WebhookAck is the acknowledgement returned to the vendor.
type WebhookAck struct {
	Received  bool                `json:"received"`
	Provider  domain.ProviderName `json:"provider"`
	Timestamp time.Time           `json:"timestamp"`
}

// Handle processes one inbound webhook delivery. Events that do not resolve
// to a known payment are acknowledged and dropped; the vendor retrying an
// event we cannot use helps nobody.
func (s *WebhookService) Handle(ctx context.Context, providerName string, payload []byte, signature string) (*WebhookAck, error) {
	provider, err := domain.ParseProviderName(providerName)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	// The adapter owns delivery authentication: vendors that sign must see a
	// valid signature on every delivery, so an omitted header is rejected the
	// same as a forged one. Vendors with no signing scheme accept as is.
	if !adapter.VerifyWebhook(payload, signature) {
		return nil, domain.NewUnauthorizedError("webhook signature verification failed")
	}

	event, err := adapter.ParseWebhook(ctx, payload)
	if err != nil {
		return nil, err
	}

	ack := &WebhookAck{Received: true, Provider: provider, Timestamp: time.Now().UTC()}

	if event == nil || event.TransactionID == "" {
		return ack, nil
	}

	payment, err := s.payments.FindByTransactionID(ctx, provider, event.TransactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		s.logger.Warn("webhook for unknown payment",
			"provider", provider,
			"transaction_id", event.TransactionID,
			"event_type", event.Type,
		)
		return ack, nil
	}

	if err := payment.ApplyStatus(event.Status); err != nil {
		// Out-of-order delivery against a terminal payment; acknowledge and move on.
		s.logger.Warn("webhook status not applicable",
			"provider", provider,
			"payment_id", payment.ID,
			"current", payment.Status,
			"incoming", event.Status,
		)
		return ack, nil
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("webhook applied",
		"provider", provider,
		"payment_id", payment.ID,
		"status", payment.Status,
		"event_type", event.Type,
	)

	return ack, nil
}
