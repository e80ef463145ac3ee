package mercadopago

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// Card tokens issued by /v1/card_tokens are short-lived; the stored card
// must be re-tokenized after this window.
const cardTokenLifetime = 7 * 24 * time.Hour

// Adapter implements the provider contract over the Mercado Pago REST API.
// Payments against a stored token require a fresh CVV, so cards report
// RequiresCVV.
type Adapter struct {
	client        *Client
	webhookSecret string
	logger        *slog.Logger
}

func New(cfg config.MercadoPagoConfig, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:        NewClient(cfg),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

func (a *Adapter) Name() domain.ProviderName { return domain.ProviderMercadoPago }
func (a *Adapter) Method() domain.TokenizationMethod { return domain.MethodDirect }
func (a *Adapter) TestMode() bool { return false }

func (a *Adapter) TokenizeDirect(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error) {
	resp, err := a.client.CreateCardToken(ctx, cardTokenRequest{
		CardNumber:      strings.ReplaceAll(req.Card.Number, " ", ""),
		ExpirationMonth: req.Card.ExpMonth,
		ExpirationYear:  req.Card.ExpYear,
		SecurityCode:    req.Card.CVV,
		Cardholder:      cardholder{Name: req.Card.HolderName},
	})
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeTokenizationFailed, domain.ProviderMercadoPago, err)
	}

	expiresAt := time.Now().UTC().Add(cardTokenLifetime)
	return &domain.TokenizationResult{
		Token:          resp.ID,
		LastFour:       resp.LastFourDigits,
		Brand:          req.Card.Brand(),
		CardType:       "credit",
		ExpMonth:       resp.ExpirationMonth,
		ExpYear:        resp.ExpirationYear,
		TokenExpiresAt: &expiresAt,
		RequiresCVV:    true,
	}, nil
}

func (a *Adapter) CreateTokenizationSession(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
	return nil, domain.NewMethodNotSupportedError(domain.ProviderMercadoPago, "redirect tokenization")
}

func (a *Adapter) CompleteTokenization(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error) {
	return nil, domain.NewMethodNotSupportedError(domain.ProviderMercadoPago, "redirect tokenization")
}

func (a *Adapter) ProcessPayment(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	body := paymentRequest{
		TransactionAmount: amountToUnits(req.Amount, req.Currency),
		Token:             req.Token.Token,
		Description:       req.Description,
		Installments:      1,
		ExternalReference: req.PaymentID,
	}
	resp, err := a.client.CreatePayment(ctx, req.PaymentID, body)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodePaymentFailed, domain.ProviderMercadoPago, err)
	}

	status := mapStatus(resp.Status)
	if status == domain.PaymentFailed {
		return nil, domain.NewProviderError(domain.ErrCodePaymentFailed, domain.ProviderMercadoPago,
			fmt.Errorf("payment %d rejected: %s", resp.ID, resp.StatusDetail))
	}

	return &domain.ChargeResult{
		TransactionID: strconv.FormatInt(resp.ID, 10),
		Status:        status,
		RawStatus:     resp.Status,
	}, nil
}

func (a *Adapter) RefundPayment(ctx context.Context, req domain.RefundRequest) error {
	var units *float64
	if req.Amount != nil {
		u := amountToUnits(*req.Amount, req.Currency)
		units = &u
	}
	if err := a.client.RefundPayment(ctx, req.TransactionID, units); err != nil {
		return domain.NewProviderError(domain.ErrCodeRefundFailed, domain.ProviderMercadoPago, err)
	}
	return nil
}

func (a *Adapter) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
	resp, err := a.client.GetPayment(ctx, transactionID)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeStatusCheckFailed, domain.ProviderMercadoPago, err)
	}
	return &domain.ChargeResult{
		TransactionID: strconv.FormatInt(resp.ID, 10),
		Status:        mapStatus(resp.Status),
		RawStatus:     resp.Status,
	}, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature of the raw payload. With a
// secret configured every delivery must carry a valid signature; with none
// there is no scheme to enforce and deliveries pass.
func (a *Adapter) VerifyWebhook(payload []byte, signature string) bool {
	if a.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

type webhookPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ParseWebhook normalizes a payment notification. Mercado Pago events carry
// only the payment id, so the current status is fetched from the API.
func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var event webhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.NewValidationError("malformed webhook payload")
	}
	if event.Type != "payment" || event.Data.ID == "" {
		// Other topics (plan, invoice, ...) are acknowledged and dropped.
		return nil, nil
	}

	resp, err := a.client.GetPayment(ctx, event.Data.ID)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeStatusCheckFailed, domain.ProviderMercadoPago, err)
	}

	return &domain.WebhookEvent{
		Provider:      domain.ProviderMercadoPago,
		Type:          event.Action,
		TransactionID: event.Data.ID,
		Status:        mapStatus(resp.Status),
		RawStatus:     resp.Status,
	}, nil
}

// amountToUnits converts minor units to the decimal currency units the API
// expects. CLP has no minor unit.
func amountToUnits(amount int64, currency string) float64 {
	if strings.EqualFold(currency, "CLP") {
		return float64(amount)
	}
	return float64(amount) / 100
}

var _ ports.ProviderPort = (*Adapter)(nil)
