package sync

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/shopify"
)

const (
	maxPageSize       = 250
	defaultMaxBatches = 20
	defaultPageDelay  = 500 * time.Millisecond
)

// PageFetcher pulls one page of the remote order collection.
type PageFetcher interface {
	FetchOrdersPage(ctx context.Context, sess *shopify.Session, cursor string, pageSize int) (*shopify.OrdersPage, error)
}

// Store persists one order and its line items atomically.
type Store interface {
	UpsertOrderWithItems(ctx context.Context, ord orders.Order, items []orders.LineItem) (orders.UpsertStats, error)
}

// Engine runs the bulk order import: cursor pagination newest-first,
// per-order transactional upserts, a fixed delay between pages, and a hard
// batch cap so a misbehaving store cannot loop forever.
type Engine struct {
	Fetcher    PageFetcher
	Store      Store
	MaxBatches int
	PageDelay  time.Duration
}

type Options struct {
	PageSize         int
	OnlySaddleOrders bool
	Since            time.Time // skip orders created before this; zero disables
}

type Result struct {
	Success         bool   `json:"success"`
	TotalOrders     int    `json:"total_orders"`
	TotalLineItems  int    `json:"total_line_items"`
	SaddleLineItems int    `json:"saddle_line_items"`
	BatchCount      int    `json:"batch_count"`
	Error           string `json:"error,omitempty"`
}

// Sync pages through the shop's orders and upserts every kept order. Each
// order commits in its own transaction, so an abort mid-run keeps everything
// already written. A failed page fetch aborts the run; a single bad order
// node is logged and skipped.
func (e *Engine) Sync(ctx context.Context, sess *shopify.Session, opts Options) Result {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	maxBatches := e.MaxBatches
	if maxBatches <= 0 {
		maxBatches = defaultMaxBatches
	}
	delay := e.PageDelay
	if delay <= 0 {
		delay = defaultPageDelay
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	var res Result
	cursor := ""
	for {
		if err := limiter.Wait(ctx); err != nil {
			res.Error = err.Error()
			return res
		}

		page, err := e.Fetcher.FetchOrdersPage(ctx, sess, cursor, pageSize)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.BatchCount++

		for _, node := range page.Orders {
			createdAt := shopify.ParseTime(node.CreatedAt)
			if !opts.Since.IsZero() && createdAt.Before(opts.Since) {
				continue
			}

			ord, items, saddles := convertNode(sess.Shop, node)
			if opts.OnlySaddleOrders && saddles == 0 {
				continue
			}

			if _, err := e.Store.UpsertOrderWithItems(ctx, ord, items); err != nil {
				log.Printf("sync: order %s: %v", node.ID, err)
				continue
			}
			res.TotalOrders++
			res.TotalLineItems += len(items)
			res.SaddleLineItems += saddles
		}

		if !page.HasNextPage || res.BatchCount >= maxBatches {
			break
		}
		cursor = page.EndCursor
	}

	res.Success = true
	return res
}

// convertNode maps a GraphQL order node onto the local model. All of the
// order's line items come back; saddles is how many of them classified.
func convertNode(shop string, node shopify.OrderNode) (orders.Order, []orders.LineItem, int) {
	now := time.Now().UTC()

	ord := orders.Order{
		ShopifyOrderID:    node.ID,
		Shop:              shop,
		OrderNumber:       node.Name,
		OrderName:         node.Name,
		CreatedAt:         shopify.ParseTime(node.CreatedAt),
		UpdatedAt:         shopify.ParseTime(node.UpdatedAt),
		FulfillmentStatus: orders.NormalizeFulfillmentStatus(node.DisplayFulfillmentStatus),
		FinancialStatus:   orders.NormalizeFinancialStatus(node.DisplayFinancialStatus),
		Tags:              strings.Join(node.Tags, ", "),
		Note:              node.Note,
		LastSyncedAt:      now,
	}
	if node.Customer != nil {
		ord.CustomerName = node.Customer.DisplayName
		ord.CustomerEmail = node.Customer.Email
		ord.CustomerPhone = node.Customer.Phone
	}
	if node.TotalPriceSet != nil {
		ord.TotalCents = orders.MoneyCents(node.TotalPriceSet.ShopMoney.Amount)
		ord.Currency = node.TotalPriceSet.ShopMoney.CurrencyCode
	}

	var items []orders.LineItem
	saddles := 0
	for _, e := range node.LineItems.Edges {
		li := e.Node
		item := orders.LineItem{
			ShopifyLineItemID: li.ID,
			ProductTitle:      li.Title,
			VariantTitle:      li.VariantTitle,
			SKU:               li.SKU,
			Quantity:          li.Quantity,
		}
		if li.OriginalUnitPriceSet != nil {
			item.PriceCents = orders.MoneyCents(li.OriginalUnitPriceSet.ShopMoney.Amount)
		}
		if li.Product != nil {
			item.ProductID = li.Product.ID
			item.ProductType = li.Product.ProductType
			item.ProductTags = strings.Join(li.Product.Tags, ", ")
			item.IsSaddle = orders.IsSaddle(li.Product.Tags)
		}
		if li.Variant != nil {
			item.VariantID = li.Variant.ID
		}
		if item.IsSaddle {
			saddles++
		}
		items = append(items, item)
	}
	return ord, items, saddles
}
