package orders

import "strings"

const saddleTag = "saddles"

// IsSaddle reports whether a product tag set marks a line item as a saddle.
// The rule is an exact, case-insensitive match on the "saddles" tag; earlier
// substring/type/SKU heuristics were dropped because they misclassified
// accessories like "Saddles-Leather". Both the bulk sync and the webhook
// path classify through this function.
func IsSaddle(tags []string) bool {
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), saddleTag) {
			return true
		}
	}
	return false
}
