// Package crypto implements the AES-CBC payload cipher used for clients that
// require encrypted request and response bodies.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AESCipher encrypts and decrypts strings with AES-CBC, PKCS7 padding and a
// fixed IV shared with the mobile clients.
type AESCipher struct {
	key    []byte
	vector []byte
}

// NewAESCipher builds a cipher from the configured key and vector. The key
// must be 16, 24 or 32 bytes and the vector one AES block.
func NewAESCipher(key, vector string) (*AESCipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("crypto: invalid key length %d", len(key))
	}
	if len(vector) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: invalid vector length %d", len(vector))
	}
	return &AESCipher{key: []byte(key), vector: []byte(vector)}, nil
}

// Encrypt returns the base64 ciphertext of raw. Empty input passes through.
func (c *AESCipher) Encrypt(raw string) (string, error) {
	if raw == "" {
		return raw, nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(raw), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.vector).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Empty and null-ish inputs pass through unchanged.
func (c *AESCipher) Decrypt(enc string) (string, error) {
	if enc == "" || enc == "null" || enc == "None" {
		return enc, nil
	}
	text, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", err
	}
	if len(text) == 0 || len(text)%aes.BlockSize != 0 {
		return "", errors.New("crypto: ciphertext is not block aligned")
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(text))
	cipher.NewCBCDecrypter(block, c.vector).CryptBlocks(out, text)
	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// EncryptNested walks a decoded JSON value and encrypts every leaf. Scalars
// are stringified first so clients decrypt a uniform shape.
func (c *AESCipher) EncryptNested(ob any) (any, error) {
	switch v := ob.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			enc, err := c.EncryptNested(item)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			enc, err := c.EncryptNested(item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case nil:
		return c.Encrypt("")
	case string:
		return c.Encrypt(v)
	case decimal.Decimal:
		return c.Encrypt(v.String())
	default:
		return c.Encrypt(fmt.Sprintf("%v", v))
	}
}

func (c *AESCipher) decryptNested(ob any) (any, error) {
	switch v := ob.(type) {
	case map[string]any:
		for k, item := range v {
			dec, err := c.decryptNested(item)
			if err != nil {
				return nil, err
			}
			v[k] = dec
		}
		return v, nil
	case []any:
		for i, item := range v {
			dec, err := c.decryptNested(item)
			if err != nil {
				return nil, err
			}
			v[i] = dec
		}
		return v, nil
	case string:
		return c.Decrypt(v)
	default:
		return c.Decrypt(fmt.Sprintf("%v", v))
	}
}

// DecryptBody decrypts every leaf of a request body. A malformed body returns
// nil rather than an error so the caller can reject it as a bad request.
func (c *AESCipher) DecryptBody(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		dec, err := c.decryptNested(v)
		if err != nil {
			logrus.WithField("position", "crypto.DecryptBody").Warnf("decrypt error: %v", err)
			return nil
		}
		out[k] = dec
	}
	return out
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("crypto: invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("crypto: invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("crypto: invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
