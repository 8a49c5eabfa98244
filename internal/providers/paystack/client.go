// Package paystack is a thin client for the payment provider: transaction
// verification, transfer recipients, transfers, bank listing and account
// resolution, plus webhook signature validation.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.paystack.co"

// Client calls the provider REST API with bearer authentication.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// New builds a Client with a request timeout.
func New(secretKey string) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at a different host. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rawMap map[string]any
	_ = json.Unmarshal(raw, &rawMap)

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return rawMap, fmt.Errorf("paystack: decode %s: %w", path, err)
	}
	if resp.StatusCode >= 400 || !envelope.Status {
		return rawMap, fmt.Errorf("paystack: %s failed: %s", path, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return rawMap, fmt.Errorf("paystack: decode %s data: %w", path, err)
		}
	}
	return rawMap, nil
}

// TransactionData is the subset of a verified transaction the ledger needs.
// Amount is in kobo.
type TransactionData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
}

// AmountDecimal converts the kobo amount to naira.
func (t *TransactionData) AmountDecimal() decimal.Decimal {
	return decimal.NewFromInt(t.Amount).Div(decimal.NewFromInt(100))
}

// VerifyTransaction re-verifies a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*TransactionData, map[string]any, error) {
	var data TransactionData
	raw, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
	if err != nil {
		return nil, raw, err
	}
	return &data, raw, nil
}

// CreateTransferRecipient provisions a payout recipient and returns its code.
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, map[string]any, error) {
	body := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	raw, err := c.do(ctx, http.MethodPost, "/transferrecipient", body, &data)
	if err != nil {
		return "", raw, err
	}
	return data.RecipientCode, raw, nil
}

// InitiateTransfer starts a payout. amount is in naira; the provider is paid
// in kobo.
func (c *Client) InitiateTransfer(ctx context.Context, recipient string, amount decimal.Decimal, reference, reason string) (map[string]any, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"recipient": recipient,
		"reference": reference,
		"reason":    reason,
	}
	return c.do(ctx, http.MethodPost, "/transfer", body, nil)
}

// Bank is a provider-listed bank.
type Bank struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Country string `json:"country"`
}

// ListBanks fetches the bank directory for a country.
func (c *Client) ListBanks(ctx context.Context, country string) ([]Bank, error) {
	var banks []Bank
	_, err := c.do(ctx, http.MethodGet, "/bank?country="+url.QueryEscape(country), nil, &banks)
	return banks, err
}

// ResolvedAccount is the owner of a bank account number.
type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ResolveAccount looks up the account name behind a number and bank code.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	var account ResolvedAccount
	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))
	if _, err := c.do(ctx, http.MethodGet, path, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ValidSignature checks the webhook HMAC-SHA512 of the raw body against the
// x-paystack-signature header value.
func ValidSignature(secretKey string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
