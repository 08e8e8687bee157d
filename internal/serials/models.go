package serials

import "time"

// SerialNumber is one physical unit's serial, keyed by (line item, unit
// index). Unit indices are 1-based and contiguous up to the line item's
// quantity; a serial value is unique across the whole store.
type SerialNumber struct {
	ID         string    `json:"id"`
	LineItemID string    `json:"line_item_id"`
	UnitIndex  int       `json:"unit_index"`
	Value      string    `json:"serial_number"`
	EnteredAt  time.Time `json:"entered_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
