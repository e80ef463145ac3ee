package transbank

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// Adapter implements the provider contract over Webpay OneClick Mall.
// OneClick has no direct tokenization path and no webhooks; both fail with
// METHOD_NOT_SUPPORTED.
type Adapter struct {
	client        *Client
	childCommerce string
	sessionTTL    time.Duration
	testMode      bool
	logger        *slog.Logger
}

func New(cfg config.TransbankConfig, sessionTTL time.Duration, testMode bool, logger *slog.Logger) *Adapter {
	if sessionTTL <= 0 {
		sessionTTL = 10 * time.Minute
	}
	return &Adapter{
		client:        NewClient(cfg),
		childCommerce: cfg.ChildCommerce,
		sessionTTL:    sessionTTL,
		testMode:      testMode,
		logger:        logger,
	}
}

func (a *Adapter) Name() domain.ProviderName { return domain.ProviderTransbank }
func (a *Adapter) Method() domain.TokenizationMethod { return domain.MethodRedirect }
func (a *Adapter) TestMode() bool { return a.testMode }

func (a *Adapter) TokenizeDirect(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error) {
	return nil, domain.NewMethodNotSupportedError(domain.ProviderTransbank, "direct tokenization")
}

func (a *Adapter) CreateTokenizationSession(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
	resp, err := a.client.StartInscription(ctx, req.UserID, req.Email, req.ReturnURL)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeSessionCreationFailed, domain.ProviderTransbank, err)
	}
	return &domain.SessionResult{
		ProviderSessionID: resp.Token,
		RedirectURL:       resp.URLWebpay + "?TBK_TOKEN=" + resp.Token,
		ExpiresAt:         time.Now().UTC().Add(a.sessionTTL),
	}, nil
}

func (a *Adapter) CompleteTokenization(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error) {
	// Transbank posts the same token back as TBK_TOKEN; trust the stored
	// session handle over the callback payload.
	resp, err := a.client.FinishInscription(ctx, providerSessionID)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderTransbank, err)
	}
	if resp.ResponseCode != 0 {
		return nil, domain.NewProviderError(domain.ErrCodeCompletionFailed, domain.ProviderTransbank,
			fmt.Errorf("inscription rejected with response code %d", resp.ResponseCode))
	}
	return &domain.TokenizationResult{
		Token:    resp.TbkUser,
		LastFour: lastFour(resp.CardNumber),
		Brand:    resp.CardType,
		CardType: strings.ToLower(resp.CardType),
	}, nil
}

func (a *Adapter) ProcessPayment(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	buyOrder := buyOrderRef(req.PaymentID)
	resp, err := a.client.Authorize(ctx, authorizeRequest{
		Username: req.Token.UserID,
		TbkUser:  req.Token.Token,
		BuyOrder: buyOrder,
		Details: []transactionDetail{
			{
				CommerceCode:       a.childCommerce,
				BuyOrder:           buyOrder + "-1",
				Amount:             req.Amount,
				InstallmentsNumber: 1,
			},
		},
	})
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodePaymentFailed, domain.ProviderTransbank, err)
	}
	if len(resp.Details) == 0 {
		return nil, domain.NewProviderError(domain.ErrCodePaymentFailed, domain.ProviderTransbank,
			fmt.Errorf("authorization returned no transaction details"))
	}

	detail := resp.Details[0]
	if detail.ResponseCode != 0 {
		return nil, domain.NewProviderError(domain.ErrCodePaymentFailed, domain.ProviderTransbank,
			fmt.Errorf("authorization rejected with response code %d", detail.ResponseCode))
	}

	return &domain.ChargeResult{
		TransactionID: resp.BuyOrder,
		Status:        mapStatus(detail.Status),
		RawStatus:     detail.Status,
	}, nil
}

func (a *Adapter) RefundPayment(ctx context.Context, req domain.RefundRequest) error {
	if req.Amount == nil {
		return domain.NewProviderError(domain.ErrCodeRefundFailed, domain.ProviderTransbank,
			fmt.Errorf("transbank refunds require an explicit amount"))
	}
	resp, err := a.client.Refund(ctx, req.TransactionID, refundRequest{
		CommerceCode:   a.childCommerce,
		DetailBuyOrder: req.TransactionID + "-1",
		Amount:         *req.Amount,
	})
	if err != nil {
		return domain.NewProviderError(domain.ErrCodeRefundFailed, domain.ProviderTransbank, err)
	}
	if resp.ResponseCode != 0 {
		return domain.NewProviderError(domain.ErrCodeRefundFailed, domain.ProviderTransbank,
			fmt.Errorf("refund rejected with response code %d", resp.ResponseCode))
	}
	return nil
}

func (a *Adapter) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
	resp, err := a.client.Status(ctx, transactionID)
	if err != nil {
		return nil, domain.NewProviderError(domain.ErrCodeStatusCheckFailed, domain.ProviderTransbank, err)
	}
	raw := ""
	if len(resp.Details) > 0 {
		raw = resp.Details[0].Status
	}
	return &domain.ChargeResult{
		TransactionID: resp.BuyOrder,
		Status:        mapStatus(raw),
		RawStatus:     raw,
	}, nil
}

// VerifyWebhook accepts unconditionally: OneClick has no signing scheme, and
// ParseWebhook rejects the delivery anyway.
func (a *Adapter) VerifyWebhook(payload []byte, signature string) bool {
	return true
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	return nil, domain.NewMethodNotSupportedError(domain.ProviderTransbank, "webhooks")
}

// buyOrderRef compacts the payment id into a Webpay buy order. The API caps
// buy_order at 26 ASCII characters, so the UUID loses its hyphens and is cut
// to 24, leaving room for the "-1" detail suffix.
func buyOrderRef(paymentID string) string {
	ref := strings.ReplaceAll(paymentID, "-", "")
	if len(ref) > 24 {
		ref = ref[:24]
	}
	return ref
}

// lastFour extracts the tail from Transbank's masked card numbers, which
// arrive like "XXXXXXXXXXXX6623".
func lastFour(masked string) string {
	if len(masked) < 4 {
		return masked
	}
	return masked[len(masked)-4:]
}

var _ ports.ProviderPort = (*Adapter)(nil)
