package orders

import (
	"math"
	"strconv"
)

// MoneyCents converts a Shopify decimal money string ("129.95") to cents.
// Unparseable input yields 0; amounts are display data, not billing.
func MoneyCents(amount string) int64 {
	if amount == "" {
		return 0
	}
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}
