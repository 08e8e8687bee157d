package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookHMAC(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":5001,"name":"#1042"}`)

	assert.True(t, VerifyWebhookHMAC(secret, body, sign(secret, body)))
	assert.False(t, VerifyWebhookHMAC(secret, body, sign("other_secret", body)))
	assert.False(t, VerifyWebhookHMAC(secret, []byte(`{"id":5002}`), sign(secret, body)))
	assert.False(t, VerifyWebhookHMAC(secret, body, ""))
	assert.False(t, VerifyWebhookHMAC("", body, sign(secret, body)))
	assert.False(t, VerifyWebhookHMAC(secret, body, "not-base64!"))
}

func TestParseTime(t *testing.T) {
	got := ParseTime("2026-08-10T09:00:00-04:00")
	assert.Equal(t, time.Date(2026, 8, 10, 13, 0, 0, 0, time.UTC), got)

	// garbage and empty both fall back to roughly now
	for _, in := range []string{"", "yesterday"} {
		diff := time.Since(ParseTime(in))
		assert.Less(t, diff, time.Minute)
	}
}
