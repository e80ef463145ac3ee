package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// PaymentService turns a stored token into a processor charge. The Payment
// record is written in processing before any vendor call, so every attempt
// leaves an auditable record even under vendor outages.
type PaymentService struct {
	registry ports.ProviderRegistry
	cards    ports.CardStore
	sessions ports.SessionStore
	payments ports.PaymentStore
	logger   *slog.Logger
}

func NewPaymentService(
	registry ports.ProviderRegistry,
	cards ports.CardStore,
	sessions ports.SessionStore,
	payments ports.PaymentStore,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		registry: registry,
		cards:    cards,
		sessions: sessions,
		payments: payments,
		logger:   logger,
	}
}

// ProcessPaymentCommand identifies the card either by token id or by a
// completed tokenization session; exactly one must be set.
type ProcessPaymentCommand struct {
	UserID           string
	ProfessionalID   string
	ServiceRequestID string
	Amount           int64
	Currency         string
	Provider         domain.ProviderName
	Description      string
	TokenID          *uuid.UUID
	SessionID        *uuid.UUID
	CVV              string
}

func (cmd ProcessPaymentCommand) validate() error {
	if cmd.UserID == "" {
		return domain.NewValidationError("user_id is required")
	}
	if cmd.ProfessionalID == "" {
		return domain.NewValidationError("professional_id is required")
	}
	if (cmd.TokenID == nil) == (cmd.SessionID == nil) {
		return domain.NewValidationError("exactly one of token_id or session_id is required")
	}
	return nil
}

// Process executes one charge: pre-write the payment, resolve the token,
// enforce ownership, dispatch to the adapter and finalize the record.
func (s *PaymentService) Process(ctx context.Context, cmd ProcessPaymentCommand) (*domain.Payment, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	payment, err := domain.NewPayment(cmd.UserID, cmd.ProfessionalID, cmd.ServiceRequestID, cmd.Amount, cmd.Currency, cmd.Provider)
	if err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	card, err := s.resolveCard(ctx, cmd)
	if err != nil {
		s.failPayment(ctx, payment, err)
		return nil, err
	}
	if card.UserID != cmd.UserID {
		err := domain.NewUnauthorizedError("card does not belong to caller")
		s.failPayment(ctx, payment, err)
		return nil, err
	}

	result, err := adapter.ProcessPayment(ctx, domain.ChargeRequest{
		PaymentID:        payment.ID.String(),
		UserID:           cmd.UserID,
		ServiceRequestID: cmd.ServiceRequestID,
		Amount:           cmd.Amount,
		Currency:         cmd.Currency,
		Description:      cmd.Description,
		Token:            card.Token(),
		CVV:              cmd.CVV,
	})
	if err != nil {
		s.failPayment(ctx, payment, err)
		s.logger.Warn("payment failed",
			"provider", cmd.Provider,
			"payment_id", payment.ID,
			"error", err,
		)
		return nil, err
	}

	// A pending result is not a settled outcome: 3DS challenges and async
	// captures report pending until the vendor finishes. Record the vendor
	// reference and stay in processing; a webhook or the reconciler settles it.
	payment.TransactionID = &result.TransactionID
	if result.Status != domain.PaymentPending {
		if err := payment.ApplyStatus(result.Status); err != nil {
			return nil, err
		}
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment processed",
		"provider", cmd.Provider,
		"payment_id", payment.ID,
		"transaction_id", result.TransactionID,
		"status", payment.Status,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)

	return payment, nil
}

// resolveCard finds the stored card behind token_id or session_id. A token
// id is tried first as the card-store primary key, then as the vendor-opaque
// token, both scoped to the caller.
func (s *PaymentService) resolveCard(ctx context.Context, cmd ProcessPaymentCommand) (*domain.PaymentCard, error) {
	if cmd.TokenID != nil {
		card, err := s.cards.FindByID(ctx, *cmd.TokenID)
		if err != nil {
			return nil, err
		}
		if card == nil {
			card, err = s.cards.FindByToken(ctx, cmd.UserID, cmd.TokenID.String())
			if err != nil {
				return nil, err
			}
		}
		if card == nil {
			return nil, domain.NewNotFoundError("card", cmd.TokenID.String())
		}
		return card, nil
	}

	session, err := s.sessions.FindByID(ctx, *cmd.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NewNotFoundError("tokenization session", cmd.SessionID.String())
	}
	if session.Status != domain.SessionCompleted || session.CardID == nil {
		return nil, domain.NewValidationError("tokenization session has not completed")
	}
	card, err := s.cards.FindByID(ctx, *session.CardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, domain.NewNotFoundError("card", session.CardID.String())
	}
	return card, nil
}

// failPayment records the failure before the error is propagated. A payment
// already in a terminal state is left as is.
func (s *PaymentService) failPayment(ctx context.Context, payment *domain.Payment, cause error) {
	if err := payment.Fail(cause.Error()); err != nil {
		return
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		s.logger.Error("failed to record payment failure",
			"payment_id", payment.ID,
			"error", err,
		)
	}
}

// RefundCommand refunds a completed payment, partially when Amount is set.
type RefundCommand struct {
	PaymentID uuid.UUID
	Amount    *int64
}

func (s *PaymentService) Refund(ctx context.Context, cmd RefundCommand) (*domain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.NewNotFoundError("payment", cmd.PaymentID.String())
	}
	if payment.TransactionID == nil {
		return nil, domain.NewValidationError("payment has no provider transaction to refund")
	}
	if err := payment.CanTransitionTo(domain.PaymentRefunded); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(payment.Provider)
	if err != nil {
		return nil, err
	}

	// A nil amount means a full refund; resolve it here so adapters always
	// receive a concrete figure.
	amount := cmd.Amount
	if amount == nil {
		amount = &payment.Amount
	}
	if *amount <= 0 || *amount > payment.Amount {
		return nil, domain.NewValidationError("refund amount must be positive and no greater than the payment amount")
	}

	if err := adapter.RefundPayment(ctx, domain.RefundRequest{
		TransactionID: *payment.TransactionID,
		Amount:        amount,
		Currency:      payment.Currency,
	}); err != nil {
		s.logger.Warn("refund failed",
			"provider", payment.Provider,
			"payment_id", payment.ID,
			"error", err,
		)
		return nil, err
	}

	if err := payment.Refund(); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment refunded",
		"provider", payment.Provider,
		"payment_id", payment.ID,
	)

	return payment, nil
}

// GetPayment retrieves a payment by id.
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.NewNotFoundError("payment", id.String())
	}
	return payment, nil
}

// ListPayments returns payments made by the user, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID string, limit, offset int) ([]*domain.Payment, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.payments.FindByUser(ctx, userID, limit, offset)
}
