package serials

import (
	"fmt"
	"strings"
)

// Normalize trims every submitted value. Position is meaningful, so empty
// entries are kept in place for Validate to report.
func Normalize(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// Validate checks a normalized submission against the required quantity:
// entry count must equal quantity, every entry must be non-empty, and no two
// entries may repeat. All violations are collected into one error.
func Validate(values []string, quantity int) error {
	var problems []string

	if len(values) != quantity {
		problems = append(problems, fmt.Sprintf("expected %d serial numbers, got %d", quantity, len(values)))
	}

	nonEmpty := 0
	for _, v := range values {
		if v != "" {
			nonEmpty++
		}
	}
	if nonEmpty != quantity {
		problems = append(problems, fmt.Sprintf("all %d serial numbers must be filled in", quantity))
	}

	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if seen[v] {
			problems = append(problems, fmt.Sprintf("duplicate serial number: %s", v))
		}
		seen[v] = true
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
