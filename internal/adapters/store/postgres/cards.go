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

const cardColumns = `id, user_id, last_four, brand, card_type, exp_month, exp_year,
		alias, is_default, provider, payment_token, token_expires_at, requires_cvv,
		created_at, updated_at`

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) Create(ctx context.Context, card *domain.PaymentCard) error {
	query := `
		INSERT INTO payment_cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.Exec(ctx, query,
		card.ID,
		card.UserID,
		card.LastFour,
		card.Brand,
		card.CardType,
		card.ExpMonth,
		card.ExpYear,
		card.Alias,
		card.IsDefault,
		card.Provider,
		card.PaymentToken,
		card.TokenExpiresAt,
		card.RequiresCVV,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment card: %w", err)
	}
	return nil
}

func (s *CardStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentCard, error) {
	query := `SELECT ` + cardColumns + ` FROM payment_cards WHERE id = $1`
	return scanCard(s.db.QueryRow(ctx, query, id))
}

func (s *CardStore) FindByToken(ctx context.Context, userID, token string) (*domain.PaymentCard, error) {
	query := `SELECT ` + cardColumns + ` FROM payment_cards WHERE user_id = $1 AND payment_token = $2`
	return scanCard(s.db.QueryRow(ctx, query, userID, token))
}

func (s *CardStore) FindByUser(ctx context.Context, userID string) ([]*domain.PaymentCard, error) {
	query := `SELECT ` + cardColumns + ` FROM payment_cards WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.PaymentCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// UnsetDefaults clears is_default on every other card of the user as one
// batched statement. Idempotent: re-running it is harmless.
func (s *CardStore) UnsetDefaults(ctx context.Context, userID string, exceptID uuid.UUID) error {
	query := `
		UPDATE payment_cards
		SET is_default = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND id <> $2 AND is_default = TRUE
	`
	if _, err := s.db.Exec(ctx, query, userID, exceptID); err != nil {
		return fmt.Errorf("failed to unset default cards: %w", err)
	}
	return nil
}

func scanCard(row pgx.Row) (*domain.PaymentCard, error) {
	var card domain.PaymentCard
	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.LastFour,
		&card.Brand,
		&card.CardType,
		&card.ExpMonth,
		&card.ExpYear,
		&card.Alias,
		&card.IsDefault,
		&card.Provider,
		&card.PaymentToken,
		&card.TokenExpiresAt,
		&card.RequiresCVV,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment card: %w", err)
	}
	return &card, nil
}
