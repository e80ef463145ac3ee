package ports

import (
	"context"

	"github.com/sebagarciam/servipay/internal/core/domain"
)

// ProviderPort is the capability contract every payment processor adapter
// satisfies. Not every processor supports every operation: unsupported calls
// fail with METHOD_NOT_SUPPORTED rather than silently degrading.
type ProviderPort interface {
	Name() domain.ProviderName
	// Method reports the primary tokenization protocol of the processor.
	Method() domain.TokenizationMethod
	// TestMode reports whether the adapter was initialized from a public
	// test profile rather than caller credentials.
	TestMode() bool

	TokenizeDirect(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error)
	CreateTokenizationSession(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error)
	CompleteTokenization(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error)

	ProcessPayment(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error)
	RefundPayment(ctx context.Context, req domain.RefundRequest) error
	GetPaymentStatus(ctx context.Context, transactionID string) (*domain.ChargeResult, error)

	// VerifyWebhook authenticates an inbound delivery. Adapters for vendors
	// that sign deliveries reject a missing or invalid signature; adapters
	// with no signing scheme accept.
	VerifyWebhook(payload []byte, signature string) bool
	ParseWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error)
}

// ProviderRegistry resolves processor names to live adapter instances.
type ProviderRegistry interface {
	// Get returns the adapter for name, constructing and caching it on first
	// use. Construction failures are not cached; a later call may retry.
	Get(name domain.ProviderName) (ProviderPort, error)
	// IsAvailable answers without forcing adapter construction.
	IsAvailable(name domain.ProviderName) bool
	// List describes every provider the registry knows about.
	List() []domain.ProviderInfo
}
