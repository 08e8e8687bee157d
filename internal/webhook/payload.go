package webhook

import (
	"encoding/json"
	"fmt"
)

// OrderPayload is the REST-shaped order Shopify posts to webhook endpoints.
// Unlike the GraphQL sync nodes, ids are numeric and product tags are not
// embedded.
type OrderPayload struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	OrderNumber       json.Number       `json:"order_number"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	FinancialStatus   string            `json:"financial_status"`
	Customer          *Customer         `json:"customer"`
	TotalPrice        string            `json:"total_price"`
	Currency          string            `json:"currency"`
	Tags              string            `json:"tags"`
	Note              string            `json:"note"`
	LineItems         []LineItemPayload `json:"line_items"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type LineItemPayload struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
	ProductID    int64  `json:"product_id"`
	VariantID    int64  `json:"variant_id"`
	ProductType  string `json:"product_type"`
}

// CustomerName prefers "First Last", falling back to the email address.
func (c *Customer) CustomerName() string {
	if c == nil {
		return ""
	}
	if c.FirstName != "" && c.LastName != "" {
		return c.FirstName + " " + c.LastName
	}
	return c.Email
}

// Webhook payloads carry bare numeric ids; local rows are keyed by the
// GraphQL GID form, so both paths converge on the same upsert key.
func OrderGID(id int64) string    { return fmt.Sprintf("gid://shopify/Order/%d", id) }
func LineItemGID(id int64) string { return fmt.Sprintf("gid://shopify/LineItem/%d", id) }
func ProductGID(id int64) string  { return fmt.Sprintf("gid://shopify/Product/%d", id) }
func VariantGID(id int64) string  { return fmt.Sprintf("gid://shopify/ProductVariant/%d", id) }
