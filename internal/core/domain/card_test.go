package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func validStoredCard() *domain.PaymentCard {
	return &domain.PaymentCard{
		ID:           uuid.New(),
		UserID:       "user-1",
		LastFour:     "4242",
		Brand:        "Visa",
		Provider:     domain.ProviderStripe,
		PaymentToken: "pm_123",
	}
}

func validCard() domain.CardInput {
	return domain.CardInput{
		Number:     "4242424242424242",
		ExpMonth:   12,
		ExpYear:    time.Now().Year() + 2,
		CVV:        "123",
		HolderName: "Maria Gonzalez",
	}
}

func TestCardInputValidate(t *testing.T) {
	t.Run("accepts a valid card", func(t *testing.T) {
		assert.NoError(t, validCard().Validate())
	})

	t.Run("accepts spaces in the number", func(t *testing.T) {
		card := validCard()
		card.Number = "4242 4242 4242 4242"
		assert.NoError(t, card.Validate())
	})

	t.Run("rejects a failed checksum", func(t *testing.T) {
		card := validCard()
		card.Number = "4242424242424241"
		err := card.Validate()
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("rejects a short number", func(t *testing.T) {
		card := validCard()
		card.Number = "42424242"
		assert.Error(t, card.Validate())
	})

	t.Run("rejects an expired card", func(t *testing.T) {
		card := validCard()
		card.ExpYear = time.Now().Year() - 1
		assert.Error(t, card.Validate())
	})

	t.Run("rejects an invalid month", func(t *testing.T) {
		card := validCard()
		card.ExpMonth = 13
		assert.Error(t, card.Validate())
	})

	t.Run("rejects a bad cvv", func(t *testing.T) {
		card := validCard()
		card.CVV = "12"
		assert.Error(t, card.Validate())
	})

	t.Run("rejects a missing holder name", func(t *testing.T) {
		card := validCard()
		card.HolderName = ""
		assert.Error(t, card.Validate())
	})
}

func TestCardInputBrand(t *testing.T) {
	cases := []struct {
		number string
		brand  string
	}{
		{"4242424242424242", "Visa"},
		{"5555555555554444", "Mastercard"},
		{"2223003122003222", "Mastercard"},
		{"378282246310005", "American Express"},
		{"6011111111111117", "Discover"},
		{"36227206271667", "Diners Club"},
		{"9999999999999999", "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.brand, func(t *testing.T) {
			card := domain.CardInput{Number: tc.number}
			assert.Equal(t, tc.brand, card.Brand())
		})
	}
}

func TestCardInputLastFour(t *testing.T) {
	card := domain.CardInput{Number: "4242 4242 4242 4242"}
	assert.Equal(t, "4242", card.LastFour())
}

func TestPaymentCardToken(t *testing.T) {
	card := validStoredCard()
	token := card.Token()
	assert.Equal(t, card.ID, token.CardID)
	assert.Equal(t, card.UserID, token.UserID)
	assert.Equal(t, card.PaymentToken, token.Token)
	assert.Equal(t, card.LastFour, token.LastFour)
}
