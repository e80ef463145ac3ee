package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sebagarciam/servipay/internal/core/domain"
)

const paymentColumns = `id, user_id, professional_id, service_request_id, amount, currency,
		provider, status, transaction_id, error_message, created_at, updated_at`

type PaymentStore struct {
	db *pgxpool.Pool
}

func NewPaymentStore(db *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.ProfessionalID,
		payment.ServiceRequestID,
		payment.Amount,
		payment.Currency,
		payment.Provider,
		payment.Status,
		payment.TransactionID,
		payment.ErrorMessage,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *PaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(s.db.QueryRow(ctx, query, id))
}

func (s *PaymentStore) FindByTransactionID(ctx context.Context, provider domain.ProviderName, transactionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider = $1 AND transaction_id = $2`
	return scanPayment(s.db.QueryRow(ctx, query, provider, transactionID))
}

func (s *PaymentStore) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (s *PaymentStore) FindProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.db.Query(ctx, query, domain.PaymentProcessing, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (s *PaymentStore) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, transaction_id = $3, error_message = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query,
		payment.ID,
		payment.Status,
		payment.TransactionID,
		payment.ErrorMessage,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func collectPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.ProfessionalID,
		&payment.ServiceRequestID,
		&payment.Amount,
		&payment.Currency,
		&payment.Provider,
		&payment.Status,
		&payment.TransactionID,
		&payment.ErrorMessage,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &payment, nil
}
