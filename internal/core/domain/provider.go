package domain

import "time"

// ProviderName identifies a payment processor. Adapters are selected by this
// enum, never by runtime type inspection.
type ProviderName string

const (
	ProviderTransbank   ProviderName = "transbank"
	ProviderMercadoPago ProviderName = "mercadopago"
	ProviderStripe      ProviderName = "stripe"
)

// ParseProviderName validates a caller-supplied provider string.
func ParseProviderName(s string) (ProviderName, error) {
	switch ProviderName(s) {
	case ProviderTransbank, ProviderMercadoPago, ProviderStripe:
		return ProviderName(s), nil
	default:
		return "", NewUnknownProviderError(s)
	}
}

// TokenizationMethod is the primary tokenization protocol a provider exposes.
type TokenizationMethod string

const (
	MethodDirect   TokenizationMethod = "direct"
	MethodRedirect TokenizationMethod = "redirect"
)

// TokenizeRequest carries raw card data into a direct tokenization call.
type TokenizeRequest struct {
	UserID string
	Email  string
	Card   CardInput
}

// TokenizationResult is what an adapter hands back after the vendor has
// swallowed the PAN and issued a reusable reference.
type TokenizationResult struct {
	Token          string
	LastFour       string
	Brand          string
	CardType       string
	ExpMonth       int
	ExpYear        int
	TokenExpiresAt *time.Time
	RequiresCVV    bool
}

// SessionRequest starts a redirect (two-phase) tokenization flow.
type SessionRequest struct {
	UserID    string
	Email     string
	ReturnURL string
	Metadata  map[string]string
}

// SessionResult is the vendor half of a redirect session: where to send the
// user and the opaque handle we need to finish the inscription later.
type SessionResult struct {
	ProviderSessionID string
	RedirectURL       string
	ExpiresAt         time.Time
}

// CallbackData is the payload the vendor posts back to our return URL.
type CallbackData map[string]string

// ChargeRequest asks an adapter to move money using a stored token.
type ChargeRequest struct {
	PaymentID        string
	UserID           string
	ServiceRequestID string
	Amount           int64
	Currency         string
	Description      string
	Token            CardToken
	CVV              string
}

// RefundRequest reverses a charge; a nil Amount means a full refund.
type RefundRequest struct {
	TransactionID string
	Amount        *int64
	Currency      string
}

// ChargeResult carries the vendor reference and the normalized status back to
// the payment executor, which owns the Payment record.
type ChargeResult struct {
	TransactionID string
	Status        PaymentStatus
	RawStatus     string
}

// WebhookEvent is a vendor notification normalized to our vocabulary.
type WebhookEvent struct {
	Provider      ProviderName
	Type          string
	TransactionID string
	Status        PaymentStatus
	RawStatus     string
}

// ProviderInfo describes one registered processor for discovery responses.
type ProviderInfo struct {
	Provider ProviderName       `json:"provider"`
	Method   TokenizationMethod `json:"method"`
	Enabled  bool               `json:"enabled"`
	TestMode bool               `json:"isTestMode"`
}
