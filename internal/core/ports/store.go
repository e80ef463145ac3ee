package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
)

// CardStore persists tokenized cards. Documents are written atomically one at
// a time; the default-card swap is two separate writes (create, then batched
// unset), so a concurrent tokenization for the same user can transiently see
// zero or two defaults.
type CardStore interface {
	Create(ctx context.Context, card *domain.PaymentCard) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentCard, error)
	// FindByToken looks a card up by its vendor-opaque payment token, scoped
	// to the owning user.
	FindByToken(ctx context.Context, userID, token string) (*domain.PaymentCard, error)
	FindByUser(ctx context.Context, userID string) ([]*domain.PaymentCard, error)
	// UnsetDefaults clears is_default on every card of the user except the
	// one named, as a single batched write.
	UnsetDefaults(ctx context.Context, userID string, exceptID uuid.UUID) error
}

// SessionStore persists redirect tokenization sessions.
type SessionStore interface {
	Create(ctx context.Context, session *domain.TokenizationSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.TokenizationSession, error)
	Update(ctx context.Context, session *domain.TokenizationSession) error
}

// PaymentStore persists payment records through their lifecycle.
type PaymentStore interface {
	Create(ctx context.Context, payment *domain.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByTransactionID(ctx context.Context, provider domain.ProviderName, transactionID string) (*domain.Payment, error)
	FindByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Payment, error)
	// FindProcessing returns payments stuck in processing for longer than
	// olderThan, for reconciliation.
	FindProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
}
