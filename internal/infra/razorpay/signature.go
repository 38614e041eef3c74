package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the X-Razorpay-Signature header against the raw
// request body: HMAC-SHA256 over body keyed by the webhook secret, lowercase
// hex. The comparison is constant-time; a malformed or empty signature is a
// plain mismatch, never an error.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	expected := h.Sum(nil)

	return hmac.Equal(expected, provided)
}
