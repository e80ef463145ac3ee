package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// TokenizationService drives the direct and redirect tokenization protocols
// and owns the stored-card writes, including the default-card invariant.
type TokenizationService struct {
	registry ports.ProviderRegistry
	cards    ports.CardStore
	sessions ports.SessionStore
	logger   *slog.Logger
}

func NewTokenizationService(
	registry ports.ProviderRegistry,
	cards ports.CardStore,
	sessions ports.SessionStore,
	logger *slog.Logger,
) *TokenizationService {
	return &TokenizationService{
		registry: registry,
		cards:    cards,
		sessions: sessions,
		logger:   logger,
	}
}

type TokenizeDirectCommand struct {
	UserID       string
	Email        string
	Provider     domain.ProviderName
	Card         domain.CardInput
	Alias        string
	SetAsDefault bool
}

type CreateSessionCommand struct {
	UserID       string
	Email        string
	Provider     domain.ProviderName
	ReturnURL    string
	SetAsDefault bool
	Metadata     map[string]string
}

type CompleteSessionCommand struct {
	SessionID uuid.UUID
	UserID    string
	Callback  domain.CallbackData
}

// CardResult is the caller-facing view of a freshly tokenized card.
type CardResult struct {
	TokenID   uuid.UUID `json:"token_id"`
	LastFour  string    `json:"card_last4"`
	Brand     string    `json:"card_brand"`
	ExpMonth  int       `json:"card_exp_month,omitempty"`
	ExpYear   int       `json:"card_exp_year,omitempty"`
	IsDefault bool      `json:"is_default"`
}

// SessionCreated is the caller-facing view of a started redirect flow.
type SessionCreated struct {
	SessionID   uuid.UUID `json:"session_id"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenizeDirect runs the single-call tokenization protocol: validate input,
// ask the adapter for a token, persist the card and apply the default-card
// invariant. No session entity is created.
func (s *TokenizationService) TokenizeDirect(ctx context.Context, cmd TokenizeDirectCommand) (*CardResult, error) {
	if cmd.UserID == "" {
		return nil, domain.NewValidationError("user_id is required")
	}
	if err := cmd.Card.Validate(); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	result, err := adapter.TokenizeDirect(ctx, domain.TokenizeRequest{
		UserID: cmd.UserID,
		Email:  cmd.Email,
		Card:   cmd.Card,
	})
	if err != nil {
		s.logger.Warn("direct tokenization failed",
			"provider", cmd.Provider,
			"user_id", cmd.UserID,
			"error", err,
		)
		return nil, err
	}

	card := s.newCard(cmd.UserID, cmd.Provider, cmd.Alias, cmd.SetAsDefault, result)
	if err := s.saveCard(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("card tokenized",
		"provider", cmd.Provider,
		"user_id", cmd.UserID,
		"card_id", card.ID,
		"last4", card.LastFour,
	)

	return cardResult(card), nil
}

// CreateSession starts phase 1 of the redirect protocol: the adapter obtains
// a vendor redirect URL and opaque session token, and a pending session is
// persisted so a different instance can finish the flow.
func (s *TokenizationService) CreateSession(ctx context.Context, cmd CreateSessionCommand) (*SessionCreated, error) {
	if cmd.UserID == "" {
		return nil, domain.NewValidationError("user_id is required")
	}
	if cmd.ReturnURL == "" {
		return nil, domain.NewValidationError("return_url is required")
	}

	adapter, err := s.registry.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	result, err := adapter.CreateTokenizationSession(ctx, domain.SessionRequest{
		UserID:    cmd.UserID,
		Email:     cmd.Email,
		ReturnURL: cmd.ReturnURL,
		Metadata:  cmd.Metadata,
	})
	if err != nil {
		s.logger.Warn("session creation failed",
			"provider", cmd.Provider,
			"user_id", cmd.UserID,
			"error", err,
		)
		return nil, err
	}

	session := domain.NewTokenizationSession(cmd.UserID, cmd.Provider, *result, cmd.ReturnURL, cmd.SetAsDefault, cmd.Metadata)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("tokenization session created",
		"provider", cmd.Provider,
		"user_id", cmd.UserID,
		"session_id", session.ID,
		"expires_at", session.ExpiresAt,
	)

	return &SessionCreated{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// CompleteSession runs phase 2 of the redirect protocol. The session must
// exist, belong to the caller and still be pending. The adapter finishes the
// vendor-side inscription with the callback payload; on success the card is
// persisted and the session completed. The session never stays pending:
// adapter failure moves it to failed, or to expired when the local window had
// already lapsed, in which case the caller gets a session-expired error.
//
// When the vendor honors a completion after our local expiry, the vendor
// wins: the card is real on their side, so we persist it and complete.
func (s *TokenizationService) CompleteSession(ctx context.Context, cmd CompleteSessionCommand) (*CardResult, error) {
	session, err := s.sessions.FindByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NewNotFoundError("tokenization session", cmd.SessionID.String())
	}
	if session.UserID != cmd.UserID {
		return nil, domain.NewUnauthorizedError("tokenization session does not belong to caller")
	}
	switch session.Status {
	case domain.SessionPending:
	case domain.SessionExpired:
		return nil, domain.NewSessionExpiredError(nil)
	default:
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeSessionProcessed,
			Message: "tokenization session has already been processed",
		}
	}

	adapter, err := s.registry.Get(session.Provider)
	if err != nil {
		return nil, err
	}

	expired := session.IsExpired(time.Now().UTC())

	result, err := adapter.CompleteTokenization(ctx, session.ProviderSessionID, cmd.Callback)
	if err != nil {
		s.logger.Warn("tokenization completion failed",
			"provider", session.Provider,
			"session_id", session.ID,
			"expired", expired,
			"error", err,
		)
		if expired {
			if expErr := session.Expire(); expErr == nil {
				_ = s.sessions.Update(ctx, session)
			}
			return nil, domain.NewSessionExpiredError(err)
		}
		if failErr := session.Fail(err.Error()); failErr == nil {
			_ = s.sessions.Update(ctx, session)
		}
		return nil, err
	}

	card := s.newCard(session.UserID, session.Provider, session.Metadata["alias"], session.SetAsDefault, result)
	if err := s.saveCard(ctx, card); err != nil {
		return nil, err
	}

	if err := session.Complete(card.ID); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("tokenization session completed",
		"provider", session.Provider,
		"session_id", session.ID,
		"card_id", card.ID,
	)

	return cardResult(card), nil
}

func (s *TokenizationService) newCard(userID string, provider domain.ProviderName, alias string, setAsDefault bool, result *domain.TokenizationResult) *domain.PaymentCard {
	now := time.Now().UTC()
	return &domain.PaymentCard{
		ID:             uuid.New(),
		UserID:         userID,
		LastFour:       result.LastFour,
		Brand:          result.Brand,
		CardType:       result.CardType,
		ExpMonth:       result.ExpMonth,
		ExpYear:        result.ExpYear,
		Alias:          alias,
		IsDefault:      setAsDefault,
		Provider:       provider,
		PaymentToken:   result.Token,
		TokenExpiresAt: result.TokenExpiresAt,
		RequiresCVV:    result.RequiresCVV,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// saveCard writes the new card and, when it is the default, unsets the flag
// on every other card the user owns. Two writes, not one transaction: the
// unset is idempotent, so a crash between them heals on the next default
// change.
func (s *TokenizationService) saveCard(ctx context.Context, card *domain.PaymentCard) error {
	if err := s.cards.Create(ctx, card); err != nil {
		return err
	}
	if card.IsDefault {
		if err := s.cards.UnsetDefaults(ctx, card.UserID, card.ID); err != nil {
			return err
		}
	}
	return nil
}

func cardResult(card *domain.PaymentCard) *CardResult {
	return &CardResult{
		TokenID:   card.ID,
		LastFour:  card.LastFour,
		Brand:     card.Brand,
		ExpMonth:  card.ExpMonth,
		ExpYear:   card.ExpYear,
		IsDefault: card.IsDefault,
	}
}

// ListCards returns the user's stored cards.
func (s *TokenizationService) ListCards(ctx context.Context, userID string) ([]*domain.PaymentCard, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id is required")
	}
	return s.cards.FindByUser(ctx, userID)
}
