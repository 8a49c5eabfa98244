package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("sk_test_secret").WithBaseURL(server.URL), server
}

func TestVerifyTransaction(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/transaction/verify/KP-1-ABCDEFGHIJ", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "success",
				"reference": "KP-1-ABCDEFGHIJ",
				"amount":    150050,
				"currency":  "NGN",
			},
		})
	})

	data, raw, err := client.VerifyTransaction(context.Background(), "KP-1-ABCDEFGHIJ")
	require.NoError(t, err)
	assert.Equal(t, "success", data.Status)
	assert.True(t, data.AmountDecimal().Equal(decimal.NewFromFloat(1500.50)))
	assert.NotNil(t, raw["data"])
}

func TestVerifyTransactionFailure(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Transaction reference not found",
		})
	})

	_, _, err := client.VerifyTransaction(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction reference not found")
}

func TestCreateTransferRecipient(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transferrecipient", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nuban", body["type"])
		assert.Equal(t, "NGN", body["currency"])
		assert.Equal(t, "0123456789", body["account_number"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"recipient_code": "RCP_abc123"},
		})
	})

	code, _, err := client.CreateTransferRecipient(context.Background(), "Ada Obi", "0123456789", "044")
	require.NoError(t, err)
	assert.Equal(t, "RCP_abc123", code)
}

func TestInitiateTransferSendsKobo(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "balance", body["source"])
		assert.EqualValues(t, 4500, body["amount"])
		assert.Equal(t, "RCP_abc123", body["recipient"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "pending"},
		})
	})

	_, err := client.InitiateTransfer(context.Background(), "RCP_abc123", decimal.NewFromInt(45), "KP-1-X", "Payout")
	require.NoError(t, err)
}

func TestResolveAccount(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0123456789", r.URL.Query().Get("account_number"))
		assert.Equal(t, "044", r.URL.Query().Get("bank_code"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"account_number": "0123456789",
				"account_name":   "ADA OBI",
			},
		})
	})

	account, err := client.ResolveAccount(context.Background(), "0123456789", "044")
	require.NoError(t, err)
	assert.Equal(t, "ADA OBI", account.AccountName)
}

func TestValidSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidSignature(secret, body, signature))
	assert.False(t, ValidSignature(secret, body, "bad-signature"))
	assert.False(t, ValidSignature("other-secret", body, signature))
	assert.False(t, ValidSignature(secret, []byte(`{"event":"tampered"}`), signature))
}
