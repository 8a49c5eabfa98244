package prembly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-key", "test-app").WithBaseURL(server.URL)
}

func TestVerifyNationalID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vnin", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "test-app", r.Header.Get("app-id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "12345678901", body["number"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"data": map[string]any{
					"firstname":         "PAUL",
					"surname":           "OKAFOR",
					"birthdate":         "01-01-1990",
					"telephoneno":       "08012345678",
					"residence_address": "12 Marina Road",
					"self_origin_state": "Anambra",
					"residence_state":   "Lagos",
					"residence_town":    "Ikeja",
					"photo":             "base64...",
				},
			},
		})
	})

	profile, raw, err := client.VerifyNationalID(context.Background(), "12345678901")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "PAUL", profile.FirstName)
	assert.Equal(t, "OKAFOR", profile.LastName)
	assert.Equal(t, "01-01-1990", profile.DOB)
	assert.Equal(t, "Lagos", profile.StateOfResidence)
	assert.Equal(t, "Ikeja", profile.CityOfResidence)
	assert.NotNil(t, raw)
}

func TestVerifyNationalIDLookupFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": false,
			"data":   map[string]any{"detail": "Record not found"},
		})
	})

	profile, raw, err := client.VerifyNationalID(context.Background(), "00000000000")
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Equal(t, "Record not found", raw["detail"])
}

func TestVerifyBVN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bvn", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"firstName":          "PAUL",
				"lastName":           "OKAFOR",
				"dateOfBirth":        "01-Jan-1990",
				"phoneNumber1":       "",
				"phoneNumber2":       "08087654321",
				"residentialAddress": "12 Marina Road",
				"stateOfOrigin":      "Anambra",
				"stateOfResidence":   "Lagos",
				"base64Image":        "base64...",
			},
		})
	})

	profile, _, err := client.VerifyBVN(context.Background(), "22123456789")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "PAUL", profile.FirstName)
	// The secondary phone number backfills an empty primary.
	assert.Equal(t, "08087654321", profile.PhoneNumber)
	assert.Equal(t, "Lagos", profile.StateOfResidence)
}

func TestVerifyBVNServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid number"})
	})

	profile, raw, err := client.VerifyBVN(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Equal(t, "Invalid number", raw["message"])
}
