package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the state of a redirect tokenization flow.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionExpired   SessionStatus = "expired"
)

// TokenizationSession is the persisted state machine behind a redirect
// tokenization flow. Phase 2 generally runs on a different instance than
// phase 1, so this lives in the store, never in memory.
//
// A session transitions pending → {completed|failed|expired} exactly once.
type TokenizationSession struct {
	ID                uuid.UUID
	UserID            string
	Provider          ProviderName
	Status            SessionStatus
	ProviderSessionID string
	RedirectURL       string
	ReturnURL         string
	SetAsDefault      bool
	CardID            *uuid.UUID
	ErrorMessage      *string
	Metadata          map[string]string
	ExpiresAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewTokenizationSession builds a pending session from the vendor's half of
// the redirect handshake.
func NewTokenizationSession(userID string, provider ProviderName, result SessionResult, returnURL string, setAsDefault bool, metadata map[string]string) *TokenizationSession {
	now := time.Now().UTC()
	return &TokenizationSession{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          provider,
		Status:            SessionPending,
		ProviderSessionID: result.ProviderSessionID,
		RedirectURL:       result.RedirectURL,
		ReturnURL:         returnURL,
		SetAsDefault:      setAsDefault,
		Metadata:          metadata,
		ExpiresAt:         result.ExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsExpired is an advisory time comparison; expiry is only checked at
// completion time, never actively swept.
func (s *TokenizationSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *TokenizationSession) isTerminal() bool {
	return s.Status != SessionPending
}

// Complete moves the session to its terminal completed state, recording the
// card the inscription produced.
func (s *TokenizationSession) Complete(cardID uuid.UUID) error {
	if s.isTerminal() {
		return &DomainError{
			Code:    ErrCodeSessionProcessed,
			Message: "tokenization session has already been processed",
		}
	}
	s.Status = SessionCompleted
	s.CardID = &cardID
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail records an adapter failure; the session is never left pending.
func (s *TokenizationSession) Fail(message string) error {
	if s.isTerminal() {
		return &DomainError{
			Code:    ErrCodeSessionProcessed,
			Message: "tokenization session has already been processed",
		}
	}
	s.Status = SessionFailed
	s.ErrorMessage = &message
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Expire marks a session whose vendor-side window lapsed before completion.
func (s *TokenizationSession) Expire() error {
	if s.isTerminal() {
		return &DomainError{
			Code:    ErrCodeSessionProcessed,
			Message: "tokenization session has already been processed",
		}
	}
	s.Status = SessionExpired
	s.UpdatedAt = time.Now().UTC()
	return nil
}
