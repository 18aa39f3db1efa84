package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

const SignatureHeader = "X-Paystack-Signature"

// Sign returns the hex HMAC-SHA512 of body keyed with the gateway secret,
// the value the gateway sends in SignatureHeader.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature compares in constant time. Malformed hex never matches.
func ValidSignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
