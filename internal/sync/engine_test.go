package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/shopify"
)

type fakeFetcher struct {
	pages   []*shopify.OrdersPage
	failAt  int // 1-based page number to fail on; 0 disables
	fetches int
}

func (f *fakeFetcher) FetchOrdersPage(_ context.Context, _ *shopify.Session, cursor string, _ int) (*shopify.OrdersPage, error) {
	f.fetches++
	if f.failAt > 0 && f.fetches == f.failAt {
		return nil, errors.New("throttled")
	}
	idx := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "page-%d", &idx)
	}
	if idx >= len(f.pages) {
		return nil, fmt.Errorf("no page at cursor %q", cursor)
	}
	return f.pages[idx], nil
}

type memStore struct {
	orders  map[string]orders.Order
	items   map[string]orders.LineItem
	upserts int
}

func newMemStore() *memStore {
	return &memStore{orders: map[string]orders.Order{}, items: map[string]orders.LineItem{}}
}

func (s *memStore) UpsertOrderWithItems(_ context.Context, ord orders.Order, items []orders.LineItem) (orders.UpsertStats, error) {
	s.upserts++
	_, existed := s.orders[ord.ShopifyOrderID]
	s.orders[ord.ShopifyOrderID] = ord
	for _, it := range items {
		s.items[it.ShopifyLineItemID] = it
	}
	return orders.UpsertStats{OrderID: ord.ShopifyOrderID, OrderCreated: !existed}, nil
}

func saddleNode(orderID, itemID string, createdAt string) shopify.OrderNode {
	return shopify.OrderNode{
		ID:        orderID,
		Name:      "#" + orderID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		LineItems: shopify.LineItemConnection{Edges: []shopify.LineItemEdge{{
			Node: shopify.LineItemNode{
				ID:       itemID,
				Title:    "Jump Saddle",
				Quantity: 1,
				Product:  &shopify.ProductNode{ID: "gid://shopify/Product/1", Tags: []string{"saddles"}},
			},
		}}},
	}
}

func plainNode(orderID, itemID string, createdAt string) shopify.OrderNode {
	n := saddleNode(orderID, itemID, createdAt)
	n.LineItems.Edges[0].Node.Product.Tags = []string{"bridles"}
	return n
}

func testEngine(f *fakeFetcher, s *memStore) *Engine {
	return &Engine{Fetcher: f, Store: s, MaxBatches: 10, PageDelay: time.Nanosecond}
}

func sessionFor(shop string) *shopify.Session {
	return &shopify.Session{Shop: shop, AccessToken: "token"}
}

func TestSyncPersistsAllPages(t *testing.T) {
	f := &fakeFetcher{pages: []*shopify.OrdersPage{
		{
			Orders:      []shopify.OrderNode{saddleNode("o1", "li1", "2026-08-01T10:00:00Z"), saddleNode("o2", "li2", "2026-08-02T10:00:00Z")},
			HasNextPage: true,
			EndCursor:   "page-1",
		},
		{
			Orders: []shopify.OrderNode{saddleNode("o3", "li3", "2026-08-03T10:00:00Z")},
		},
	}}
	s := newMemStore()

	res := testEngine(f, s).Sync(context.Background(), sessionFor("tack.myshopify.com"), Options{})

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalOrders)
	assert.Equal(t, 3, res.TotalLineItems)
	assert.Equal(t, 3, res.SaddleLineItems)
	assert.Equal(t, 2, res.BatchCount)
	assert.Len(t, s.orders, 3)
	assert.Len(t, s.items, 3)
	assert.Equal(t, "tack.myshopify.com", s.orders["o1"].Shop)
}

func TestSyncRerunIsIdempotent(t *testing.T) {
	f := &fakeFetcher{pages: []*shopify.OrdersPage{
		{Orders: []shopify.OrderNode{saddleNode("o1", "li1", "2026-08-01T10:00:00Z")}},
	}}
	s := newMemStore()
	eng := testEngine(f, s)
	sess := sessionFor("tack.myshopify.com")

	first := eng.Sync(context.Background(), sess, Options{})
	second := eng.Sync(context.Background(), sess, Options{})

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Len(t, s.orders, 1, "rerun must not duplicate rows")
	assert.Len(t, s.items, 1)
	assert.Equal(t, 2, s.upserts)
}

func TestSyncAbortsOnFetchErrorKeepingCommittedPages(t *testing.T) {
	f := &fakeFetcher{
		pages: []*shopify.OrdersPage{
			{
				Orders:      []shopify.OrderNode{saddleNode("o1", "li1", "2026-08-01T10:00:00Z"), saddleNode("o2", "li2", "2026-08-02T10:00:00Z")},
				HasNextPage: true,
				EndCursor:   "page-1",
			},
			{Orders: []shopify.OrderNode{saddleNode("o3", "li3", "2026-08-03T10:00:00Z")}},
		},
		failAt: 2,
	}
	s := newMemStore()

	res := testEngine(f, s).Sync(context.Background(), sessionFor("tack.myshopify.com"), Options{})

	assert.False(t, res.Success)
	assert.Equal(t, "throttled", res.Error)
	// page 1 committed before the failing fetch; it stays
	assert.Len(t, s.orders, 2)
	assert.Equal(t, 2, res.TotalOrders)
}

func TestSyncSinceCutoffSkipsOlderOrders(t *testing.T) {
	f := &fakeFetcher{pages: []*shopify.OrdersPage{
		{Orders: []shopify.OrderNode{
			saddleNode("new", "li1", "2026-08-20T10:00:00Z"),
			saddleNode("old", "li2", "2026-07-01T10:00:00Z"),
		}},
	}}
	s := newMemStore()

	res := testEngine(f, s).Sync(context.Background(), sessionFor("tack.myshopify.com"), Options{
		Since: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalOrders)
	_, ok := s.orders["old"]
	assert.False(t, ok)
}

func TestSyncOnlySaddleOrdersFilter(t *testing.T) {
	f := &fakeFetcher{pages: []*shopify.OrdersPage{
		{Orders: []shopify.OrderNode{
			saddleNode("o1", "li1", "2026-08-01T10:00:00Z"),
			plainNode("o2", "li2", "2026-08-02T10:00:00Z"),
		}},
	}}
	s := newMemStore()

	res := testEngine(f, s).Sync(context.Background(), sessionFor("tack.myshopify.com"), Options{OnlySaddleOrders: true})

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalOrders)
	assert.Equal(t, 1, res.SaddleLineItems)
	_, ok := s.orders["o2"]
	assert.False(t, ok)
}

func TestSyncStopsAtMaxBatches(t *testing.T) {
	// every page claims another follows; the cap must end the run
	endless := &shopify.OrdersPage{
		Orders:      []shopify.OrderNode{saddleNode("o1", "li1", "2026-08-01T10:00:00Z")},
		HasNextPage: true,
		EndCursor:   "page-0",
	}
	f := &fakeFetcher{pages: []*shopify.OrdersPage{endless}}
	s := newMemStore()
	eng := testEngine(f, s)
	eng.MaxBatches = 3

	res := eng.Sync(context.Background(), sessionFor("tack.myshopify.com"), Options{})

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.BatchCount)
	assert.Equal(t, 3, f.fetches)
}

func TestSyncKeepsNonSaddleItemsOfKeptOrders(t *testing.T) {
	mixed := saddleNode("o1", "li1", "2026-08-01T10:00:00Z")
	mixed.LineItems.Edges = append(mixed.LineItems.Edges, shopify.LineItemEdge{
		Node: shopify.LineItemNode{
			ID:       "li2",
			Title:    "Leather Halter",
			Quantity: 2,
			Product:  &shopify.ProductNode{ID: "gid://shopify/Product/2", Tags: []string{"halters"}},
		},
	})
	f := &fakeFetcher{pages: []*shopify.OrdersPage{{Orders: []shopify.OrderNode{mixed}}}}
	s := newMemStore()

	res := testEngine(f, s).Sync(context.Background(), sessionFor("tack.myshopify.com"), Options{})

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.TotalLineItems)
	assert.Equal(t, 1, res.SaddleLineItems)
	require.Contains(t, s.items, "li2")
	assert.False(t, s.items["li2"].IsSaddle)
	assert.True(t, s.items["li1"].IsSaddle)
}
