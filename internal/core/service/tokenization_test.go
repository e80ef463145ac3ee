package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validCardInput() domain.CardInput {
	return domain.CardInput{
		Number:     "4242424242424242",
		ExpMonth:   12,
		ExpYear:    time.Now().Year() + 2,
		CVV:        "123",
		HolderName: "Maria Gonzalez",
	}
}

type tokenizationFixture struct {
	service  *service.TokenizationService
	provider *service.MockProvider
	cards    *service.MockCardStore
	sessions *service.MockSessionStore
}

func newTokenizationFixture(name domain.ProviderName) *tokenizationFixture {
	provider := service.NewMockProvider(name)
	cards := service.NewMockCardStore()
	sessions := service.NewMockSessionStore()
	return &tokenizationFixture{
		service:  service.NewTokenizationService(service.NewMockRegistry(provider), cards, sessions, testLogger()),
		provider: provider,
		cards:    cards,
		sessions: sessions,
	}
}

func TestTokenizeDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("tokenizes and stores a card", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderMercadoPago)

		card, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
			UserID:   "user-1",
			Email:    "maria@example.com",
			Provider: domain.ProviderMercadoPago,
			Card:     validCardInput(),
			Alias:    "personal",
		})
		require.NoError(t, err)
		assert.Equal(t, "4242", card.LastFour)
		assert.Equal(t, "Visa", card.Brand)

		stored, err := f.cards.FindByID(ctx, card.TokenID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "user-1", stored.UserID)
		assert.Equal(t, "personal", stored.Alias)
	})

	t.Run("rejects invalid card data before touching the vendor", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderMercadoPago)
		called := false
		f.provider.TokenizeDirectFn = func(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error) {
			called = true
			return nil, nil
		}

		bad := validCardInput()
		bad.Number = "4242424242424241"
		_, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
			UserID:   "user-1",
			Provider: domain.ProviderMercadoPago,
			Card:     bad,
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
		assert.False(t, called)
	})

	t.Run("requires a user id", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderMercadoPago)
		_, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
			Provider: domain.ProviderMercadoPago,
			Card:     validCardInput(),
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("propagates adapter failure without storing anything", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderMercadoPago)
		f.provider.TokenizeDirectFn = func(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error) {
			return nil, domain.NewProviderError(domain.ErrCodeTokenizationFailed, domain.ProviderMercadoPago, assert.AnError)
		}

		_, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
			UserID:   "user-1",
			Provider: domain.ProviderMercadoPago,
			Card:     validCardInput(),
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTokenizationFailed))

		cards, _ := f.cards.FindByUser(ctx, "user-1")
		assert.Empty(t, cards)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderMercadoPago)
		_, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
			UserID:   "user-1",
			Provider: domain.ProviderStripe,
			Card:     validCardInput(),
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingConfig))
	})
}

func TestDefaultCardInvariant(t *testing.T) {
	ctx := context.Background()
	f := newTokenizationFixture(domain.ProviderMercadoPago)

	first, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
		UserID:       "user-1",
		Provider:     domain.ProviderMercadoPago,
		Card:         validCardInput(),
		SetAsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := f.service.TokenizeDirect(ctx, service.TokenizeDirectCommand{
		UserID:       "user-1",
		Provider:     domain.ProviderMercadoPago,
		Card:         validCardInput(),
		SetAsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	cards, err := f.cards.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cards, 2)

	defaults := 0
	for _, card := range cards {
		if card.IsDefault {
			defaults++
			assert.Equal(t, second.TokenID, card.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a pending session", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)

		created, err := f.service.CreateSession(ctx, service.CreateSessionCommand{
			UserID:    "user-1",
			Provider:  domain.ProviderTransbank,
			ReturnURL: "https://app.test/return",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.RedirectURL)

		session, err := f.sessions.FindByID(ctx, created.SessionID)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, domain.SessionPending, session.Status)
		assert.Equal(t, "user-1", session.UserID)
	})

	t.Run("requires a return url", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		_, err := f.service.CreateSession(ctx, service.CreateSessionCommand{
			UserID:   "user-1",
			Provider: domain.ProviderTransbank,
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("no session is persisted when the vendor call fails", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		f.provider.CreateTokenizationSessionFn = func(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
			return nil, domain.NewProviderError(domain.ErrCodeSessionCreationFailed, domain.ProviderTransbank, assert.AnError)
		}

		_, err := f.service.CreateSession(ctx, service.CreateSessionCommand{
			UserID:    "user-1",
			Provider:  domain.ProviderTransbank,
			ReturnURL: "https://app.test/return",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSessionCreationFailed))
	})
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T, f *tokenizationFixture) uuid.UUID {
		t.Helper()
		created, err := f.service.CreateSession(ctx, service.CreateSessionCommand{
			UserID:    "user-1",
			Provider:  domain.ProviderTransbank,
			ReturnURL: "https://app.test/return",
		})
		require.NoError(t, err)
		return created.SessionID
	}

	t.Run("completes the session and stores the card", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		sessionID := start(t, f)

		card, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
			Callback:  domain.CallbackData{"TBK_TOKEN": "tbk-token-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "6623", card.LastFour)

		session, err := f.sessions.FindByID(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, session.Status)
		require.NotNil(t, session.CardID)
		assert.Equal(t, card.TokenID, *session.CardID)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		_, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: uuid.New(),
			UserID:    "user-1",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeNotFound))
	})

	t.Run("session owned by another user", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		sessionID := start(t, f)

		_, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-2",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnauthorized))
	})

	t.Run("double completion is rejected", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		sessionID := start(t, f)

		_, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
		})
		require.NoError(t, err)

		_, err = f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSessionProcessed))
	})

	t.Run("adapter failure moves the session to failed", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		sessionID := start(t, f)
		f.provider.CompleteTokenizationFn = func(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error) {
			return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderTransbank, assert.AnError)
		}

		_, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCompletionFailed))

		session, _ := f.sessions.FindByID(ctx, sessionID)
		assert.Equal(t, domain.SessionFailed, session.Status)
		require.NotNil(t, session.ErrorMessage)
	})

	t.Run("adapter failure after local expiry marks the session expired", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		f.provider.CreateTokenizationSessionFn = func(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
			return &domain.SessionResult{
				ProviderSessionID: "tbk-token-1",
				RedirectURL:       "https://webpay.test/init",
				ExpiresAt:         time.Now().Add(-time.Minute),
			}, nil
		}
		sessionID := start(t, f)
		f.provider.CompleteTokenizationFn = func(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error) {
			return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderTransbank, assert.AnError)
		}

		_, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSessionExpired))

		session, _ := f.sessions.FindByID(ctx, sessionID)
		assert.Equal(t, domain.SessionExpired, session.Status)

		// A retry against the now-expired session reports the same thing.
		_, err = f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
		})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSessionExpired))
	})

	t.Run("vendor success after local expiry still completes", func(t *testing.T) {
		f := newTokenizationFixture(domain.ProviderTransbank)
		f.provider.CreateTokenizationSessionFn = func(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
			return &domain.SessionResult{
				ProviderSessionID: "tbk-token-1",
				RedirectURL:       "https://webpay.test/init",
				ExpiresAt:         time.Now().Add(-time.Minute),
			}, nil
		}
		sessionID := start(t, f)

		card, err := f.service.CompleteSession(ctx, service.CompleteSessionCommand{
			SessionID: sessionID,
			UserID:    "user-1",
		})
		require.NoError(t, err)

		session, _ := f.sessions.FindByID(ctx, sessionID)
		assert.Equal(t, domain.SessionCompleted, session.Status)
		require.NotNil(t, session.CardID)
		assert.Equal(t, card.TokenID, *session.CardID)
	})
}
