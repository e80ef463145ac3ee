// Package transbank adapts Webpay OneClick Mall to the provider contract.
// OneClick card inscription is redirect-based: Transbank hosts the card entry
// page and posts a TBK_TOKEN back to our return URL.
package transbank

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

const (
	inscriptionPath = "/rswebpaytransaction/api/oneclick/v1.2/inscriptions"
	transactionPath = "/rswebpaytransaction/api/oneclick/v1.2/transactions"
)

// Client is a thin REST client for the OneClick Mall API.
type Client struct {
	baseURL      string
	commerceCode string
	apiKey       string
	httpClient   *http.Client
}

func NewClient(cfg config.TransbankConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		commerceCode: cfg.CommerceCode,
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type inscriptionStartRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	ResponseURL string `json:"response_url"`
}

type inscriptionStartResponse struct {
	Token     string `json:"token"`
	URLWebpay string `json:"url_webpay"`
}

type inscriptionFinishResponse struct {
	ResponseCode      int    `json:"response_code"`
	TbkUser           string `json:"tbk_user"`
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type"`
	CardNumber        string `json:"card_number"`
}

type transactionDetail struct {
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
	Amount             int64  `json:"amount"`
	InstallmentsNumber int    `json:"installments_number"`
}

type authorizeRequest struct {
	Username string              `json:"username"`
	TbkUser  string              `json:"tbk_user"`
	BuyOrder string              `json:"buy_order"`
	Details  []transactionDetail `json:"details"`
}

type transactionDetailResponse struct {
	AmountString      json.Number `json:"amount"`
	Status            string      `json:"status"`
	AuthorizationCode string      `json:"authorization_code"`
	ResponseCode      int         `json:"response_code"`
	BuyOrder          string      `json:"buy_order"`
}

type transactionResponse struct {
	BuyOrder        string                      `json:"buy_order"`
	TransactionDate string                      `json:"transaction_date"`
	Details         []transactionDetailResponse `json:"details"`
}

type refundRequest struct {
	CommerceCode   string `json:"commerce_code"`
	DetailBuyOrder string `json:"detail_buy_order"`
	Amount         int64  `json:"amount"`
}

type refundResponse struct {
	Type         string `json:"type"`
	ResponseCode int    `json:"response_code"`
}

type apiError struct {
	ErrorMessage string `json:"error_message"`
}

// StartInscription begins a card inscription and returns the vendor token
// plus the Webpay page the user must be redirected to.
func (c *Client) StartInscription(ctx context.Context, username, email, responseURL string) (*inscriptionStartResponse, error) {
	req := inscriptionStartRequest{Username: username, Email: email, ResponseURL: responseURL}
	var resp inscriptionStartResponse
	if err := c.do(ctx, http.MethodPost, inscriptionPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FinishInscription confirms an inscription using the TBK_TOKEN Transbank
// posted back to the return URL.
func (c *Client) FinishInscription(ctx context.Context, token string) (*inscriptionFinishResponse, error) {
	var resp inscriptionFinishResponse
	if err := c.do(ctx, http.MethodPut, inscriptionPath+"/"+token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Authorize charges an inscribed card.
func (c *Client) Authorize(ctx context.Context, req authorizeRequest) (*transactionResponse, error) {
	var resp transactionResponse
	if err := c.do(ctx, http.MethodPost, transactionPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refund reverses or nullifies a charge, full or partial.
func (c *Client) Refund(ctx context.Context, buyOrder string, req refundRequest) (*refundResponse, error) {
	var resp refundResponse
	if err := c.do(ctx, http.MethodPost, transactionPath+"/"+buyOrder+"/refunds", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the current state of a charge.
func (c *Client) Status(ctx context.Context, buyOrder string) (*transactionResponse, error) {
	var resp transactionResponse
	if err := c.do(ctx, http.MethodGet, transactionPath+"/"+buyOrder, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
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
	httpReq.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
	httpReq.Header.Set("Tbk-Api-Key-Secret", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return fmt.Errorf("transbank returned status %d: %s", resp.StatusCode, apiErr.ErrorMessage)
		}
		return fmt.Errorf("transbank returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding json response: %w", err)
		}
	}
	return nil
}
