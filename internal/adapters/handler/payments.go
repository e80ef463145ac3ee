package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/service"
)

type ProcessPaymentRequest struct {
	UserID           string `json:"user_id" validate:"required"`
	ProfessionalID   string `json:"professional_id" validate:"required"`
	ServiceRequestID string `json:"service_request_id"`
	Amount           int64  `json:"amount" validate:"required,gt=0"`
	Currency         string `json:"currency" validate:"required,len=3"`
	Provider         string `json:"provider" validate:"required"`
	Description      string `json:"description"`
	TokenID          string `json:"token_id"`
	SessionID        string `json:"session_id"`
	CVV              string `json:"cvv" validate:"omitempty,numeric,min=3,max=4"`
}

type paymentView struct {
	ID               uuid.UUID `json:"id"`
	UserID           string    `json:"user_id"`
	ProfessionalID   string    `json:"professional_id"`
	ServiceRequestID string    `json:"service_request_id,omitempty"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Provider         string    `json:"provider"`
	Status           string    `json:"status"`
	TransactionID    *string   `json:"transaction_id,omitempty"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toPaymentView(p *domain.Payment) paymentView {
	return paymentView{
		ID:               p.ID,
		UserID:           p.UserID,
		ProfessionalID:   p.ProfessionalID,
		ServiceRequestID: p.ServiceRequestID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Provider:         string(p.Provider),
		Status:           string(p.Status),
		TransactionID:    p.TransactionID,
		ErrorMessage:     p.ErrorMessage,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// HandleProcessPayment charges a stored token. The card is identified by
// token_id or by a completed tokenization session, never both.
func (h *Handler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req ProcessPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	provider, err := domain.ParseProviderName(req.Provider)
	if err != nil {
		respondWithError(w, err)
		return
	}

	cmd := service.ProcessPaymentCommand{
		UserID:           req.UserID,
		ProfessionalID:   req.ProfessionalID,
		ServiceRequestID: req.ServiceRequestID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Provider:         provider,
		Description:      req.Description,
		CVV:              req.CVV,
	}

	if req.TokenID != "" {
		id, err := uuid.Parse(req.TokenID)
		if err != nil {
			respondWithError(w, domain.NewValidationError("invalid token_id"))
			return
		}
		cmd.TokenID = &id
	}
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			respondWithError(w, domain.NewValidationError("invalid session_id"))
			return
		}
		cmd.SessionID = &id
	}

	payment, err := h.payments.Process(r.Context(), cmd)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toPaymentView(payment))
}

type RefundRequest struct {
	Amount *int64 `json:"amount" validate:"omitempty,gt=0"`
}

// HandleRefund refunds a completed payment, partially when amount is set.
func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondWithError(w, domain.NewValidationError("invalid payment id"))
		return
	}

	// An empty body is a full refund.
	var req RefundRequest
	if body, readErr := io.ReadAll(r.Body); readErr == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondWithError(w, domain.NewValidationError("invalid JSON body"))
			return
		}
	}

	payment, err := h.payments.Refund(r.Context(), service.RefundCommand{
		PaymentID: paymentID,
		Amount:    req.Amount,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toPaymentView(payment))
}

func (h *Handler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondWithError(w, domain.NewValidationError("invalid payment id"))
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toPaymentView(payment))
}

func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	payments, err := h.payments.ListPayments(r.Context(), query.Get("user_id"), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}

	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, toPaymentView(p))
	}

	respondWithJSON(w, http.StatusOK, views)
}
