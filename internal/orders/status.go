package orders

import "strings"

const (
	FulfillmentUnfulfilled = "UNFULFILLED"
	FinancialPending       = "PENDING"
	StatusCancelled        = "CANCELLED"
)

// NormalizeFulfillmentStatus uppercases a REST webhook status, defaulting to
// UNFULFILLED when the payload carries none.
func NormalizeFulfillmentStatus(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return FulfillmentUnfulfilled
	}
	return s
}

func NormalizeFinancialStatus(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return FinancialPending
	}
	return s
}
