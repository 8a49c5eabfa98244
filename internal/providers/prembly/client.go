// Package prembly is a thin client for the identity verification provider.
package prembly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.prembly.com/verification"

// Client calls the verification API with the configured credentials.
type Client struct {
	baseURL string
	apiKey  string
	appID   string
	http    *http.Client
}

func New(apiKey, appID string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		appID:   appID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at a different host. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Profile is the normalized identity record extracted from a lookup. Field
// names line up with KYCVerificationData.
type Profile struct {
	FirstName        string
	LastName         string
	DOB              string
	PhoneNumber      string
	Email            string
	Gender           string
	Address          string
	StateOfOrigin    string
	StateOfResidence string
	CityOfResidence  string
	ImageString      string
}

func (c *Client) post(ctx context.Context, path string, body any) (int, map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("x-api-key", "Bearer "+c.apiKey)
	req.Header.Set("app-id", c.appID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("prembly: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("prembly: decode %s: %w", path, err)
	}
	return resp.StatusCode, parsed, nil
}

func str(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func nested(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// VerifyNationalID looks up a NIN. A failed lookup returns a nil profile with
// the raw response preserved for audit.
func (c *Client) VerifyNationalID(ctx context.Context, idNumber string) (*Profile, map[string]any, error) {
	status, resp, err := c.post(ctx, "/vnin", map[string]string{"number": idNumber})
	if err != nil {
		return nil, resp, err
	}

	responseData := nested(resp, "data")
	if status >= 400 || responseData == nil {
		return nil, responseData, nil
	}
	record := nested(responseData, "data")
	if record == nil {
		return nil, responseData, nil
	}

	return &Profile{
		FirstName:        str(record, "firstname"),
		LastName:         str(record, "surname"),
		DOB:              str(record, "birthdate"),
		PhoneNumber:      str(record, "telephoneno"),
		Email:            str(record, "email"),
		Gender:           str(record, "gender"),
		Address:          str(record, "residence_address"),
		StateOfOrigin:    str(record, "self_origin_state"),
		StateOfResidence: str(record, "residence_state"),
		CityOfResidence:  str(record, "residence_town"),
		ImageString:      str(record, "photo"),
	}, responseData, nil
}

// VerifyBVN looks up a BVN. A failed lookup returns a nil profile with the
// raw response preserved for audit.
func (c *Client) VerifyBVN(ctx context.Context, idNumber string) (*Profile, map[string]any, error) {
	status, resp, err := c.post(ctx, "/bvn", map[string]string{"number": idNumber})
	if err != nil {
		return nil, resp, err
	}

	if status >= 400 {
		return nil, resp, nil
	}
	record := nested(resp, "data")
	if record == nil {
		return nil, resp, nil
	}

	return &Profile{
		FirstName:        str(record, "firstName"),
		LastName:         str(record, "lastName"),
		DOB:              str(record, "dateOfBirth"),
		PhoneNumber:      str(record, "phoneNumber1", "phoneNumber2"),
		Email:            str(record, "email"),
		Gender:           str(record, "gender"),
		Address:          str(record, "residentialAddress"),
		StateOfOrigin:    str(record, "stateOfOrigin"),
		StateOfResidence: str(record, "stateOfResidence"),
		ImageString:      str(record, "base64Image"),
	}, resp, nil
}
