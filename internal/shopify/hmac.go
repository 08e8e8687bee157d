package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyWebhookHMAC checks the X-Shopify-Hmac-Sha256 header against the raw
// request body. The header carries a base64 SHA-256 HMAC keyed by the app
// secret.
func VerifyWebhookHMAC(secret string, body []byte, headerValue string) bool {
	if secret == "" || headerValue == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(headerValue))
}
