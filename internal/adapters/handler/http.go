package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
	"github.com/sebagarciam/servipay/internal/core/service"
)

type TokenizationService interface {
	TokenizeDirect(ctx context.Context, cmd service.TokenizeDirectCommand) (*service.CardResult, error)
	CreateSession(ctx context.Context, cmd service.CreateSessionCommand) (*service.SessionCreated, error)
	CompleteSession(ctx context.Context, cmd service.CompleteSessionCommand) (*service.CardResult, error)
	ListCards(ctx context.Context, userID string) ([]*domain.PaymentCard, error)
}

type PaymentService interface {
	Process(ctx context.Context, cmd service.ProcessPaymentCommand) (*domain.Payment, error)
	Refund(ctx context.Context, cmd service.RefundCommand) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, userID string, limit, offset int) ([]*domain.Payment, error)
}

type WebhookService interface {
	Handle(ctx context.Context, providerName string, payload []byte, signature string) (*service.WebhookAck, error)
}

type Handler struct {
	tokenization TokenizationService
	payments     PaymentService
	webhooks     WebhookService
	registry     ports.ProviderRegistry
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewHandler(
	tokenization TokenizationService,
	payments PaymentService,
	webhooks WebhookService,
	registry ports.ProviderRegistry,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tokenization: tokenization,
		payments:     payments,
		webhooks:     webhooks,
		registry:     registry,
		validate:     validator.New(),
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /tokenize", h.HandleTokenizeDirect)
	mux.HandleFunc("POST /tokenize/sessions", h.HandleCreateSession)
	mux.HandleFunc("POST /tokenize/sessions/{id}/complete", h.HandleCompleteSession)
	mux.HandleFunc("GET /cards", h.HandleListCards)
	mux.HandleFunc("POST /payments", h.HandleProcessPayment)
	mux.HandleFunc("POST /payments/{id}/refund", h.HandleRefund)
	mux.HandleFunc("GET /payments/{id}", h.HandleGetPayment)
	mux.HandleFunc("GET /payments", h.HandleListPayments)
	mux.HandleFunc("GET /providers", h.HandleListProviders)
	mux.HandleFunc("POST /webhooks/{provider}", h.HandleWebhook)
	mux.HandleFunc("GET /health", h.HandleHealth)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
