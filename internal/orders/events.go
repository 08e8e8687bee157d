package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderSynced    = "OrderSynced"
	EventOrderCancelled = "OrderCancelled"
	EventReviewRequired = "ReviewRequired"
	EventSerialsSaved   = "SerialsSaved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload types per event ----

type OrderSyncedPayload struct {
	Shop            string `json:"shop"`
	TotalOrders     int    `json:"total_orders"`
	TotalLineItems  int    `json:"total_line_items"`
	SaddleLineItems int    `json:"saddle_line_items"`
	BatchCount      int    `json:"batch_count"`
}

type OrderCancelledPayload struct {
	Shop           string `json:"shop"`
	ShopifyOrderID string `json:"shopify_order_id"`
	OrderName      string `json:"order_name"`
}

// ReviewRequiredPayload flags a quantity decrease below the entered serial
// count. Serials stay untouched; a human decides what to prune.
type ReviewRequiredPayload struct {
	Shop              string `json:"shop"`
	ShopifyOrderID    string `json:"shopify_order_id"`
	ShopifyLineItemID string `json:"shopify_line_item_id"`
	ProductTitle      string `json:"product_title"`
	OldQuantity       int    `json:"old_quantity"`
	NewQuantity       int    `json:"new_quantity"`
	SerialCount       int    `json:"serial_count"`
}

type SerialsSavedPayload struct {
	LineItemID string `json:"line_item_id"`
	Count      int    `json:"count"`
}
