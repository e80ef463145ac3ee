// Package stripe adapts the Stripe SDK to the provider contract. Direct
// tokenization creates a reusable payment method; redirect tokenization uses
// a Checkout session in setup mode.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/setupintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

type Adapter struct {
	webhookSecret string
	sessionTTL    time.Duration
	logger        *slog.Logger
}

// New configures the global SDK key. Repeated initialization with the same
// config is harmless, which matters when two cold-start invocations race.
func New(cfg config.StripeConfig, sessionTTL time.Duration, logger *slog.Logger) *Adapter {
	stripe.Key = cfg.SecretKey
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Adapter{
		webhookSecret: cfg.WebhookSecret,
		sessionTTL:    sessionTTL,
		logger:        logger,
	}
}

func (a *Adapter) Name() domain.ProviderName { return domain.ProviderStripe }
func (a *Adapter) Method() domain.TokenizationMethod { return domain.MethodDirect }
func (a *Adapter) TestMode() bool { return false }

func (a *Adapter) TokenizeDirect(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error) {
	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(strings.ReplaceAll(req.Card.Number, " ", "")),
			ExpMonth: stripe.Int64(int64(req.Card.ExpMonth)),
			ExpYear:  stripe.Int64(int64(req.Card.ExpYear)),
			CVC:      stripe.String(req.Card.CVV),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(req.Card.HolderName),
		},
	}
	params.Context = ctx

	pm, err := paymentmethod.New(params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeTokenizationFailed, domain.ProviderStripe, err)
	}

	return tokenizationResult(pm), nil
}

func (a *Adapter) CreateTokenizationSession(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
	expiresAt := time.Now().UTC().Add(a.sessionTTL)
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSetup)),
		SuccessURL:         stripe.String(req.ReturnURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(req.ReturnURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ExpiresAt:          stripe.Int64(expiresAt.Unix()),
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeSessionCreationFailed, domain.ProviderStripe, err)
	}

	return &domain.SessionResult{
		ProviderSessionID: sess.ID,
		RedirectURL:       sess.URL,
		ExpiresAt:         time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

func (a *Adapter) CompleteTokenization(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	sess, err := checkoutsession.Get(providerSessionID, getParams)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderStripe, err)
	}
	if sess.SetupIntent == nil {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderStripe,
			fmt.Errorf("checkout session %s has no setup intent", providerSessionID))
	}

	siParams := &stripe.SetupIntentParams{}
	siParams.Context = ctx
	si, err := setupintent.Get(sess.SetupIntent.ID, siParams)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderStripe, err)
	}
	if si.Status != stripe.SetupIntentStatusSucceeded || si.PaymentMethod == nil {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderStripe,
			fmt.Errorf("setup intent %s not completed (status %s)", si.ID, si.Status))
	}

	pmParams := &stripe.PaymentMethodParams{}
	pmParams.Context = ctx
	pm, err := paymentmethod.Get(si.PaymentMethod.ID, pmParams)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderStripe, err)
	}

	return tokenizationResult(pm), nil
}

func (a *Adapter) ProcessPayment(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.Token.Token),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.AddMetadata("payment_id", req.PaymentID)
	params.AddMetadata("service_request_id", req.ServiceRequestID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodePaymentFailed, domain.ProviderStripe, err)
	}

	return &domain.ChargeResult{
		TransactionID: pi.ID,
		Status:        mapStatus(string(pi.Status)),
		RawStatus:     string(pi.Status),
	}, nil
}

func (a *Adapter) RefundPayment(ctx context.Context, req domain.RefundRequest) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
	}
	if req.Amount != nil {
		params.Amount = stripe.Int64(*req.Amount)
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		return domain.NewProviderError(domain.ErrCodeRefundFailed, domain.ProviderStripe, err)
	}
	return nil
}

func (a *Adapter) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(transactionID, params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeStatusCheckFailed, domain.ProviderStripe, err)
	}
	return &domain.ChargeResult{
		TransactionID: pi.ID,
		Status:        mapStatus(string(pi.Status)),
		RawStatus:     string(pi.Status),
	}, nil
}

// VerifyWebhook authenticates the delivery with the endpoint secret. Stripe
// signs every delivery, so a missing secret or signature rejects it.
func (a *Adapter) VerifyWebhook(payload []byte, signature string) bool {
	if a.webhookSecret == "" {
		return false
	}
	_, err := webhook.ConstructEvent(payload, signature, a.webhookSecret)
	return err == nil
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.NewValidationError("malformed webhook payload")
	}

	eventType := string(event.Type)
	status, relevant := mapEventType(eventType)
	if !relevant {
		return nil, nil
	}

	var object struct {
		ID            string `json:"id"`
		PaymentIntent string `json:"payment_intent"`
	}
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		return nil, domain.NewValidationError("malformed webhook payload")
	}

	transactionID := object.ID
	if object.PaymentIntent != "" {
		// charge.* events reference the intent indirectly.
		transactionID = object.PaymentIntent
	}

	return &domain.WebhookEvent{
		Provider:      domain.ProviderStripe,
		Type:          eventType,
		TransactionID: transactionID,
		Status:        status,
		RawStatus:     eventType,
	}, nil
}

func tokenizationResult(pm *stripe.PaymentMethod) *domain.TokenizationResult {
	result := &domain.TokenizationResult{Token: pm.ID, CardType: "credit"}
	if pm.Card != nil {
		result.LastFour = pm.Card.Last4
		result.Brand = brandName(string(pm.Card.Brand))
		result.ExpMonth = int(pm.Card.ExpMonth)
		result.ExpYear = int(pm.Card.ExpYear)
		result.CardType = string(pm.Card.Funding)
	}
	return result
}

func brandName(brand string) string {
	switch brand {
	case "visa":
		return "Visa"
	case "mastercard":
		return "Mastercard"
	case "amex":
		return "American Express"
	case "discover":
		return "Discover"
	case "diners":
		return "Diners Club"
	default:
		return brand
	}
}

var _ ports.ProviderPort = (*Adapter)(nil)
