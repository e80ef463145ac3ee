package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sebagarciam/servipay/internal/core/domain"
)

const sessionColumns = `id, user_id, provider, status, provider_session_id, redirect_url,
		return_url, set_as_default, card_id, error_message, metadata, expires_at,
		created_at, updated_at`

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.TokenizationSession) error {
	query := `
		INSERT INTO tokenization_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Provider,
		session.Status,
		session.ProviderSessionID,
		session.RedirectURL,
		session.ReturnURL,
		session.SetAsDefault,
		session.CardID,
		session.ErrorMessage,
		session.Metadata,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tokenization session: %w", err)
	}
	return nil
}

func (s *SessionStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.TokenizationSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tokenization_sessions WHERE id = $1`
	row := s.db.QueryRow(ctx, query, id)

	var session domain.TokenizationSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Provider,
		&session.Status,
		&session.ProviderSessionID,
		&session.RedirectURL,
		&session.ReturnURL,
		&session.SetAsDefault,
		&session.CardID,
		&session.ErrorMessage,
		&session.Metadata,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tokenization session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Update(ctx context.Context, session *domain.TokenizationSession) error {
	query := `
		UPDATE tokenization_sessions
		SET status = $2, card_id = $3, error_message = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query,
		session.ID,
		session.Status,
		session.CardID,
		session.ErrorMessage,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tokenization session: %w", err)
	}
	return nil
}
