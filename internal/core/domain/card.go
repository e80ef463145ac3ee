package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentCard is a stored, tokenized card. The PAN never touches this struct;
// only the masked tail and the vendor-opaque token survive tokenization.
type PaymentCard struct {
	ID             uuid.UUID
	UserID         string
	LastFour       string
	Brand          string
	CardType       string
	ExpMonth       int
	ExpYear        int
	Alias          string
	IsDefault      bool
	Provider       ProviderName
	PaymentToken   string
	TokenExpiresAt *time.Time
	RequiresCVV    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CardToken is the transient, adapter-facing view of a stored card. It is
// built on demand and never persisted.
type CardToken struct {
	CardID   uuid.UUID
	UserID   string
	Token    string
	Brand    string
	LastFour string
}

// Token returns the adapter-facing view of the card.
func (c *PaymentCard) Token() CardToken {
	return CardToken{
		CardID:   c.ID,
		UserID:   c.UserID,
		Token:    c.PaymentToken,
		Brand:    c.Brand,
		LastFour: c.LastFour,
	}
}

// CardInput is raw card data as submitted for direct tokenization.
type CardInput struct {
	Number     string
	ExpMonth   int
	ExpYear    int
	CVV        string
	HolderName string
}

// Validate checks the card input before it is sent to any vendor.
func (c CardInput) Validate() error {
	number := strings.ReplaceAll(c.Number, " ", "")
	if len(number) < 13 || len(number) > 19 {
		return NewValidationError("card number must be 13 to 19 digits")
	}
	if !luhnValid(number) {
		return NewValidationError("card number failed checksum validation")
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return NewValidationError("invalid expiry month")
	}
	now := time.Now()
	if c.ExpYear < now.Year() || (c.ExpYear == now.Year() && c.ExpMonth < int(now.Month())) {
		return NewValidationError("card has expired")
	}
	if len(c.CVV) < 3 || len(c.CVV) > 4 {
		return NewValidationError("invalid security code")
	}
	if c.HolderName == "" {
		return NewValidationError("card holder name is required")
	}
	return nil
}

// LastFour returns the masked tail of the card number.
func (c CardInput) LastFour() string {
	number := strings.ReplaceAll(c.Number, " ", "")
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}

// Brand infers the card network from the number prefix.
func (c CardInput) Brand() string {
	number := strings.ReplaceAll(c.Number, " ", "")
	switch {
	case strings.HasPrefix(number, "4"):
		return "Visa"
	case hasPrefixInRange(number, 51, 55) || hasPrefixInRange(number, 2221, 2720):
		return "Mastercard"
	case strings.HasPrefix(number, "34") || strings.HasPrefix(number, "37"):
		return "American Express"
	case strings.HasPrefix(number, "6011") || strings.HasPrefix(number, "65"):
		return "Discover"
	case strings.HasPrefix(number, "36") || strings.HasPrefix(number, "30"):
		return "Diners Club"
	default:
		return "Unknown"
	}
}

func hasPrefixInRange(number string, lo, hi int) bool {
	width := len(strconv.Itoa(lo))
	if len(number) < width {
		return false
	}
	prefix := 0
	for _, r := range number[:width] {
		if r < '0' || r > '9' {
			return false
		}
		prefix = prefix*10 + int(r-'0')
	}
	return prefix >= lo && prefix <= hi
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		r := number[i]
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
