package serials

import (
	"errors"
	"fmt"
	"strings"
)

var ErrLineItemNotFound = errors.New("line item not found")

// ValidationError aggregates every violation in one submission so the form
// can show them all at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Conflict is a submitted serial value already owned by another line item.
type Conflict struct {
	Value     string
	OrderName string
}

type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	msgs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		msgs = append(msgs, fmt.Sprintf("%s (already used in %s)", c.Value, c.OrderName))
	}
	return "duplicate serial numbers: " + strings.Join(msgs, ", ")
}
