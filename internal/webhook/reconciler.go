package webhook

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/shopify"
)

type Status string

const (
	StatusSkipped Status = "skipped"
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
)

// Outcome is the explicit reconciliation result; handlers and tests branch
// on Status instead of guessing from an HTTP code.
type Outcome struct {
	Status    Status       `json:"status"`
	Action    string       `json:"action,omitempty"` // created | updated | cancelled
	Reason    string       `json:"reason,omitempty"`
	OrderName string       `json:"order_name,omitempty"`
	Reviews   []ReviewFlag `json:"reviews,omitempty"`
	Err       error        `json:"-"`
}

// ReviewFlag records a quantity decrease below the entered serial count.
type ReviewFlag struct {
	ShopifyLineItemID string `json:"shopify_line_item_id"`
	ProductTitle      string `json:"product_title"`
	OldQuantity       int    `json:"old_quantity"`
	NewQuantity       int    `json:"new_quantity"`
	SerialCount       int    `json:"serial_count"`
}

type Store interface {
	UpsertOrderWithItems(ctx context.Context, ord orders.Order, items []orders.LineItem) (orders.UpsertStats, error)
	ExistingItemStates(ctx context.Context, shopifyLineItemIDs []string) (map[string]orders.ItemState, error)
	MarkCancelled(ctx context.Context, shopifyOrderID string) (bool, string, error)
}

type TagLookup interface {
	ProductTags(ctx context.Context, sess *shopify.Session, productGID string) ([]string, error)
}

type SessionLookup interface {
	ForShop(ctx context.Context, shop string) (*shopify.Session, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Reconciler applies one order webhook to the local store using the same
// classification and upsert rules as the bulk sync. Producers are optional;
// a nil producer just skips the event.
type Reconciler struct {
	Store             Store
	Tags              TagLookup
	Sessions          SessionLookup
	ProducerCancelled Publisher
	ProducerReview    Publisher
	Service           string
}

// Reconcile handles one create/update/cancel event for a shop.
func (r *Reconciler) Reconcile(ctx context.Context, p OrderPayload, eventType, shop string) Outcome {
	itemTags := r.resolveTags(ctx, shop, p.LineItems)

	hasSaddles := false
	for _, li := range p.LineItems {
		if orders.IsSaddle(itemTags[li.ProductID]) {
			hasSaddles = true
			break
		}
	}
	if !hasSaddles {
		return Outcome{Status: StatusSkipped, Reason: "no_saddles", OrderName: p.Name}
	}

	orderGID := OrderGID(p.ID)

	if eventType == "cancelled" {
		found, name, err := r.Store.MarkCancelled(ctx, orderGID)
		if err != nil {
			return Outcome{Status: StatusFailed, Action: "cancelled", Err: err}
		}
		if !found {
			// never tracked this order; nothing to cancel
			return Outcome{Status: StatusSkipped, Reason: "untracked_order", OrderName: p.Name}
		}
		r.publishCancelled(shop, orderGID, name)
		return Outcome{Status: StatusApplied, Action: "cancelled", OrderName: name}
	}

	ord, items := r.convertPayload(shop, p, itemTags)

	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ShopifyLineItemID)
	}
	before, err := r.Store.ExistingItemStates(ctx, itemIDs)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}

	if _, err := r.Store.UpsertOrderWithItems(ctx, ord, items); err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}

	var reviews []ReviewFlag
	for _, it := range items {
		prev, ok := before[it.ShopifyLineItemID]
		if !ok || prev.Quantity == it.Quantity {
			continue
		}
		// Quantity changed. A decrease below the entered serial count is
		// flagged, never auto-pruned: the audit trail survives until a
		// human re-saves the serials.
		if it.Quantity < prev.SerialCount {
			flag := ReviewFlag{
				ShopifyLineItemID: it.ShopifyLineItemID,
				ProductTitle:      it.ProductTitle,
				OldQuantity:       prev.Quantity,
				NewQuantity:       it.Quantity,
				SerialCount:       prev.SerialCount,
			}
			reviews = append(reviews, flag)
			log.Printf("webhook: %s quantity %d -> %d with %d serials entered, manual review needed",
				it.ProductTitle, prev.Quantity, it.Quantity, prev.SerialCount)
			r.publishReview(shop, orderGID, flag)
		}
	}

	action := "updated"
	if eventType == "create" {
		action = "created"
	}
	return Outcome{Status: StatusApplied, Action: action, OrderName: p.Name, Reviews: reviews}
}

// resolveTags fetches product tags per distinct product id. Webhook payloads
// don't embed tags, so this is a remote call on the hot path; any failure
// degrades to "no tags", which classifies the item as non-saddle.
func (r *Reconciler) resolveTags(ctx context.Context, shop string, items []LineItemPayload) map[int64][]string {
	out := make(map[int64][]string, len(items))
	if r.Tags == nil || r.Sessions == nil {
		return out
	}

	sess, err := r.Sessions.ForShop(ctx, shop)
	if err != nil {
		log.Printf("webhook: no session for %s, treating items as non-saddle: %v", shop, err)
		return out
	}

	for _, li := range items {
		if li.ProductID == 0 {
			continue
		}
		if _, done := out[li.ProductID]; done {
			continue
		}
		tags, err := r.Tags.ProductTags(ctx, sess, ProductGID(li.ProductID))
		if err != nil {
			log.Printf("webhook: tags for product %d: %v", li.ProductID, err)
			continue
		}
		out[li.ProductID] = tags
	}
	return out
}

// convertPayload maps the REST payload onto the local model. Only
// saddle-classified line items are kept; the webhook path never writes the
// rest of the order's items.
func (r *Reconciler) convertPayload(shop string, p OrderPayload, itemTags map[int64][]string) (orders.Order, []orders.LineItem) {
	now := time.Now().UTC()

	orderNumber := p.OrderNumber.String()
	if orderNumber == "" {
		orderNumber = p.Name
	}

	ord := orders.Order{
		ShopifyOrderID:    OrderGID(p.ID),
		Shop:              shop,
		OrderNumber:       orderNumber,
		OrderName:         p.Name,
		CreatedAt:         shopify.ParseTime(p.CreatedAt),
		UpdatedAt:         shopify.ParseTime(p.UpdatedAt),
		FulfillmentStatus: orders.NormalizeFulfillmentStatus(p.FulfillmentStatus),
		FinancialStatus:   orders.NormalizeFinancialStatus(p.FinancialStatus),
		CustomerName:      p.Customer.CustomerName(),
		TotalCents:        orders.MoneyCents(p.TotalPrice),
		Currency:          p.Currency,
		Tags:              p.Tags,
		Note:              p.Note,
		LastSyncedAt:      now,
	}
	if p.Customer != nil {
		ord.CustomerEmail = p.Customer.Email
		ord.CustomerPhone = p.Customer.Phone
	}

	var items []orders.LineItem
	for _, li := range p.LineItems {
		tags := itemTags[li.ProductID]
		if !orders.IsSaddle(tags) {
			continue
		}
		item := orders.LineItem{
			ShopifyLineItemID: LineItemGID(li.ID),
			ProductTitle:      li.Title,
			VariantTitle:      li.VariantTitle,
			SKU:               li.SKU,
			Quantity:          li.Quantity,
			PriceCents:        orders.MoneyCents(li.Price),
			IsSaddle:          true,
			ProductType:       li.ProductType,
			ProductTags:       strings.Join(tags, ", "),
		}
		if li.ProductID != 0 {
			item.ProductID = ProductGID(li.ProductID)
		}
		if li.VariantID != 0 {
			item.VariantID = VariantGID(li.VariantID)
		}
		items = append(items, item)
	}
	return ord, items
}

func (r *Reconciler) publishCancelled(shop, orderGID, name string) {
	if r.ProducerCancelled == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCancelled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: orderGID,
		Payload: kafkax.MustMarshal(orders.OrderCancelledPayload{
			Shop: shop, ShopifyOrderID: orderGID, OrderName: name,
		}),
	}
	r.ProducerCancelled.Publish(orders.PartitionKey(orderGID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCancelled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (r *Reconciler) publishReview(shop, orderGID string, flag ReviewFlag) {
	if r.ProducerReview == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventReviewRequired,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: orderGID,
		Payload: kafkax.MustMarshal(orders.ReviewRequiredPayload{
			Shop:              shop,
			ShopifyOrderID:    orderGID,
			ShopifyLineItemID: flag.ShopifyLineItemID,
			ProductTitle:      flag.ProductTitle,
			OldQuantity:       flag.OldQuantity,
			NewQuantity:       flag.NewQuantity,
			SerialCount:       flag.SerialCount,
		}),
	}
	r.ProducerReview.Publish(orders.PartitionKey(orderGID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventReviewRequired)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
