// Package mercadopago adapts the Mercado Pago card-token API to the provider
// contract. Tokenization is direct: card data goes straight to the vendor in
// exchange for a token; there is no hosted redirect page.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sebagarciam/servipay/internal/config"
)

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(cfg config.MercadoPagoConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type cardholder struct {
	Name string `json:"name"`
}

type cardTokenRequest struct {
	CardNumber      string     `json:"card_number"`
	ExpirationMonth int        `json:"expiration_month"`
	ExpirationYear  int        `json:"expiration_year"`
	SecurityCode    string     `json:"security_code"`
	Cardholder      cardholder `json:"cardholder"`
}

type cardTokenResponse struct {
	ID              string `json:"id"`
	LastFourDigits  string `json:"last_four_digits"`
	FirstSixDigits  string `json:"first_six_digits"`
	ExpirationMonth int    `json:"expiration_month"`
	ExpirationYear  int    `json:"expiration_year"`
	DateDue         string `json:"date_due"`
}

type payer struct {
	Email string `json:"email,omitempty"`
}

type paymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Token             string  `json:"token"`
	Description       string  `json:"description,omitempty"`
	Installments      int     `json:"installments"`
	ExternalReference string  `json:"external_reference,omitempty"`
	Payer             *payer  `json:"payer,omitempty"`
}

type paymentResponse struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
}

type refundBody struct {
	Amount float64 `json:"amount,omitempty"`
}

type mpError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// CreateCardToken exchanges raw card data for a single-use token.
func (c *Client) CreateCardToken(ctx context.Context, req cardTokenRequest) (*cardTokenResponse, error) {
	var resp cardTokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/card_tokens", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePayment charges a tokenized card. idempotencyKey deduplicates
// retried requests on the vendor side.
func (c *Client) CreatePayment(ctx context.Context, idempotencyKey string, req paymentRequest) (*paymentResponse, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments", idempotencyKey, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefundPayment refunds a payment; a nil amount means a full refund.
func (c *Client) RefundPayment(ctx context.Context, paymentID string, amount *float64) error {
	var body any
	if amount != nil {
		body = refundBody{Amount: *amount}
	}
	return c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refunds", "", body, nil)
}

// GetPayment fetches the current vendor state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*paymentResponse, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshalling json: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	if idempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr mpError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("mercadopago returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("mercadopago returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding json response: %w", err)
		}
	}
	return nil
}
