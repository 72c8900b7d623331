package authorizenet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"strings"
)

// ComputeSignature returns the base64 HMAC-SHA512 of body under key
func ComputeSignature(key string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature header against the raw
// body. The optional "sha512=" prefix on the header is tolerated. An
// empty key bypasses validation.
func VerifySignature(key string, body []byte, signatureHeader string) bool {
	if key == "" {
		return true
	}
	header := strings.TrimSpace(signatureHeader)
	header = strings.TrimPrefix(header, "sha512=")
	if header == "" {
		return false
	}
	expected := ComputeSignature(key, body)
	return hmac.Equal([]byte(expected), []byte(header))
}
