package crypto

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *AESCipher {
	t.Helper()
	c, err := NewAESCipher("0123456789abcdef", "fedcba9876543210")
	require.NoError(t, err)
	return c
}

func TestNewAESCipherValidatesLengths(t *testing.T) {
	_, err := NewAESCipher("short", "fedcba9876543210")
	assert.Error(t, err)

	_, err = NewAESCipher("0123456789abcdef", "short")
	assert.Error(t, err)

	for _, key := range []string{
		"0123456789abcdef",
		"0123456789abcdef01234567",
		"0123456789abcdef0123456789abcdef",
	} {
		_, err = NewAESCipher(key, "fedcba9876543210")
		assert.NoError(t, err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plain := range []string{"hello", "ada@example.com", "1234.50", "a longer value spanning more than one block"} {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestDecryptPassThroughValues(t *testing.T) {
	c := newTestCipher(t)

	for _, v := range []string{"", "null", "None"} {
		dec, err := c.Decrypt(v)
		require.NoError(t, err)
		assert.Equal(t, v, dec)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c := newTestCipher(t)

	_, err := c.Decrypt("not base64 at all!!!")
	assert.Error(t, err)

	// Valid base64 but not block aligned.
	_, err = c.Decrypt("YWJj")
	assert.Error(t, err)
}

func TestEncryptNestedStringifiesScalars(t *testing.T) {
	c := newTestCipher(t)

	out, err := c.EncryptNested(map[string]any{
		"name":    "Ada",
		"balance": decimal.NewFromFloat(12.5),
		"count":   3,
		"flags":   []any{"a", true},
		"nothing": nil,
	})
	require.NoError(t, err)

	m := out.(map[string]any)
	for key, v := range m {
		if key == "flags" {
			continue
		}
		dec, err := c.Decrypt(v.(string))
		require.NoError(t, err)
		switch key {
		case "name":
			assert.Equal(t, "Ada", dec)
		case "balance":
			assert.Equal(t, "12.5", dec)
		case "count":
			assert.Equal(t, "3", dec)
		case "nothing":
			assert.Equal(t, "", dec)
		}
	}

	flags := m["flags"].([]any)
	dec, err := c.Decrypt(flags[1].(string))
	require.NoError(t, err)
	assert.Equal(t, "true", dec)
}

func TestDecryptBodyRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.EncryptNested(map[string]any{
		"email":    "ada@example.com",
		"password": "s3cretpass",
	})
	require.NoError(t, err)

	body := c.DecryptBody(enc.(map[string]any))
	require.NotNil(t, body)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "s3cretpass", body["password"])
}

func TestDecryptBodyMalformedReturnsNil(t *testing.T) {
	c := newTestCipher(t)

	body := c.DecryptBody(map[string]any{"email": "not encrypted plain text"})
	assert.Nil(t, body)
}
