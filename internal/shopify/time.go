package shopify

import "time"

// ParseTime reads a Shopify timestamp (RFC3339, possibly with a zone
// offset). Empty or unparseable input falls back to the current time so a
// sloppy payload never aborts an upsert.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
