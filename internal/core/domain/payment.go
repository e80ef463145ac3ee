package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the shared six-state taxonomy every vendor vocabulary is
// normalized onto.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Payment represents one charge attempt against a professional's services.
// It is created in processing before the vendor is called, so every attempt
// leaves an auditable record even if the process dies mid-call.
type Payment struct {
	ID               uuid.UUID
	UserID           string
	ProfessionalID   string
	ServiceRequestID string
	Amount           int64
	Currency         string
	Provider         ProviderName
	Status           PaymentStatus
	TransactionID    *string
	ErrorMessage     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPayment builds a payment in processing state, ready to be persisted
// before the vendor call is dispatched.
func NewPayment(userID, professionalID, serviceRequestID string, amount int64, currency string, provider ProviderName) (*Payment, error) {
	if amount <= 0 {
		return nil, NewValidationError("amount must be greater than zero")
	}
	if currency == "" {
		return nil, NewValidationError("currency is required")
	}
	now := time.Now().UTC()
	return &Payment{
		ID:               uuid.New(),
		UserID:           userID,
		ProfessionalID:   professionalID,
		ServiceRequestID: serviceRequestID,
		Amount:           amount,
		Currency:         currency,
		Provider:         provider,
		Status:           PaymentProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CanTransitionTo validates a status change against the payment lifecycle.
//
// Valid transitions are:
//   - pending → processing, cancelled, failed
//   - processing → completed, failed, cancelled
//   - completed → refunded
//
// failed, cancelled and refunded are terminal.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case PaymentFailed, PaymentCancelled, PaymentRefunded:
		return NewInvalidTransitionError(p.Status, target)

	case PaymentPending:
		if target == PaymentProcessing || target == PaymentCancelled || target == PaymentFailed {
			return nil
		}

	case PaymentProcessing:
		if target == PaymentCompleted || target == PaymentFailed || target == PaymentCancelled {
			return nil
		}

	case PaymentCompleted:
		if target == PaymentRefunded {
			return nil
		}
	}
	return NewInvalidTransitionError(p.Status, target)
}

func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	default:
		return false
	}
}

// Complete records a successful vendor charge.
func (p *Payment) Complete(transactionID string) error {
	if err := p.CanTransitionTo(PaymentCompleted); err != nil {
		return err
	}
	p.Status = PaymentCompleted
	p.TransactionID = &transactionID
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail records a vendor failure without losing the audit trail.
func (p *Payment) Fail(message string) error {
	if err := p.CanTransitionTo(PaymentFailed); err != nil {
		return err
	}
	p.Status = PaymentFailed
	p.ErrorMessage = &message
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Refund marks a completed payment as refunded.
func (p *Payment) Refund() error {
	if err := p.CanTransitionTo(PaymentRefunded); err != nil {
		return err
	}
	p.Status = PaymentRefunded
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyStatus applies a normalized vendor status, used by webhook handling
// and reconciliation. A no-op when the status is unchanged.
func (p *Payment) ApplyStatus(status PaymentStatus) error {
	if p.Status == status {
		return nil
	}
	if err := p.CanTransitionTo(status); err != nil {
		return err
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}
