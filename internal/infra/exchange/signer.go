package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// Signer handles execution API authentication signatures
type Signer struct {
	accessKey  string
	secretKey  string
	passphrase string
}

// NewSigner creates a new Signer instance
func NewSigner(accessKey, secretKey, passphrase string) *Signer {
	return &Signer{
		accessKey:  accessKey,
		secretKey:  secretKey,
		passphrase: passphrase,
	}
}

// GenerateHeaders creates the auth headers for a request.
// method: GET, POST, etc.
// path: /v1/orders (no host)
// query: param=1&test=2 (empty if none)
// body: json string (empty if none)
//
// The string to sign is timestamp + method + path[?query] + body, signed
// with HMAC-SHA256 and base64-encoded.
func (s *Signer) GenerateHeaders(method, path, query, body string) map[string]string {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

	fullPath := path
	if query != "" {
		fullPath = path + "?" + query
	}

	payload := timestamp + method + fullPath + body

	sign := computeHmacSha256(payload, s.secretKey)

	headers := map[string]string{
		"ACCESS-KEY":        s.accessKey,
		"ACCESS-SIGN":       sign,
		"ACCESS-TIMESTAMP":  timestamp,
		"ACCESS-PASSPHRASE": s.passphrase,
		"Content-Type":      "application/json",
	}

	return headers
}

func computeHmacSha256(message string, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
