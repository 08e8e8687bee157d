package orders

import "time"

// Order mirrors one Shopify order we track locally. ShopifyOrderID is the
// stable upsert key; rows are never deleted (cancellation is a status
// change).
type Order struct {
	ID                string    `json:"id"`
	ShopifyOrderID    string    `json:"shopify_order_id"`
	Shop              string    `json:"shop"`
	OrderNumber       string    `json:"order_number"`
	OrderName         string    `json:"order_name"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	FulfillmentStatus string    `json:"fulfillment_status"`
	FinancialStatus   string    `json:"financial_status"`
	CustomerName      string    `json:"customer_name"`
	CustomerEmail     string    `json:"customer_email"`
	CustomerPhone     string    `json:"customer_phone"`
	TotalCents        int64     `json:"total_cents"`
	Currency          string    `json:"currency"`
	Tags              string    `json:"tags"`
	Note              string    `json:"note"`
	LastSyncedAt      time.Time `json:"last_synced_at"`
}

// LineItem belongs to exactly one Order. ShopifyLineItemID is the stable
// upsert key. Quantity is mutable through order edits.
type LineItem struct {
	ID                string `json:"id"`
	OrderID           string `json:"order_id"`
	ShopifyLineItemID string `json:"shopify_line_item_id"`
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id"`
	ProductTitle      string `json:"product_title"`
	VariantTitle      string `json:"variant_title"`
	SKU               string `json:"sku"`
	Quantity          int    `json:"quantity"`
	PriceCents        int64  `json:"price_cents"`
	IsSaddle          bool   `json:"is_saddle"`
	ProductType       string `json:"product_type"`
	ProductTags       string `json:"product_tags"`
}

// ItemState is the pre-upsert snapshot the webhook reconciler compares
// incoming quantities against.
type ItemState struct {
	LineItemID  string
	Quantity    int
	SerialCount int
}

// UpsertStats reports what one order upsert actually changed.
type UpsertStats struct {
	OrderID      string
	OrderCreated bool
	ItemsCreated int
	ItemsUpdated int
}
