package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tackroom/saddletrack/internal/serials"
)

var ErrOrderNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// UpsertOrderWithItems writes one order and its line items in a single
// transaction. The upsert is an explicit find-by-external-id then branch:
// a present row gets its mutable fields updated, an absent one is created.
// Re-running against unchanged input changes nothing.
func (r *Repo) UpsertOrderWithItems(ctx context.Context, ord Order, items []LineItem) (UpsertStats, error) {
	var stats UpsertStats

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return stats, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID string
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE shopify_order_id=$1`, ord.ShopifyOrderID).Scan(&orderID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		orderID = uuid.NewString()
		_, err = tx.Exec(ctx, `
			INSERT INTO orders(id, shopify_order_id, shop, order_number, order_name,
				created_at, updated_at, fulfillment_status, financial_status,
				customer_name, customer_email, customer_phone,
				total_cents, currency, tags, note, last_synced_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			orderID, ord.ShopifyOrderID, ord.Shop, ord.OrderNumber, ord.OrderName,
			ord.CreatedAt, ord.UpdatedAt, ord.FulfillmentStatus, ord.FinancialStatus,
			ord.CustomerName, ord.CustomerEmail, ord.CustomerPhone,
			ord.TotalCents, ord.Currency, ord.Tags, ord.Note, ord.LastSyncedAt)
		if err != nil {
			return stats, fmt.Errorf("insert order %s: %w", ord.ShopifyOrderID, err)
		}
		stats.OrderCreated = true
	case err != nil:
		return stats, err
	default:
		// created_at stays as first seen; everything else follows the remote.
		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET order_number=$2, order_name=$3, updated_at=$4,
				fulfillment_status=$5, financial_status=$6,
				customer_name=$7, customer_email=$8, customer_phone=$9,
				total_cents=$10, currency=$11, tags=$12, note=$13, last_synced_at=$14
			WHERE id=$1`,
			orderID, ord.OrderNumber, ord.OrderName, ord.UpdatedAt,
			ord.FulfillmentStatus, ord.FinancialStatus,
			ord.CustomerName, ord.CustomerEmail, ord.CustomerPhone,
			ord.TotalCents, ord.Currency, ord.Tags, ord.Note, ord.LastSyncedAt)
		if err != nil {
			return stats, fmt.Errorf("update order %s: %w", ord.ShopifyOrderID, err)
		}
	}
	stats.OrderID = orderID

	for _, it := range items {
		var itemID string
		err = tx.QueryRow(ctx, `SELECT id FROM line_items WHERE shopify_line_item_id=$1`, it.ShopifyLineItemID).Scan(&itemID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err = tx.Exec(ctx, `
				INSERT INTO line_items(id, order_id, shopify_line_item_id, product_id, variant_id,
					product_title, variant_title, sku, quantity, price_cents,
					is_saddle, product_type, product_tags)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
				uuid.NewString(), orderID, it.ShopifyLineItemID, it.ProductID, it.VariantID,
				it.ProductTitle, it.VariantTitle, it.SKU, it.Quantity, it.PriceCents,
				it.IsSaddle, it.ProductType, it.ProductTags)
			if err != nil {
				return stats, fmt.Errorf("insert line item %s: %w", it.ShopifyLineItemID, err)
			}
			stats.ItemsCreated++
		case err != nil:
			return stats, err
		default:
			_, err = tx.Exec(ctx, `
				UPDATE line_items
				SET product_title=$2, variant_title=$3, sku=$4, quantity=$5,
					price_cents=$6, is_saddle=$7, product_type=$8, product_tags=$9
				WHERE id=$1`,
				itemID, it.ProductTitle, it.VariantTitle, it.SKU, it.Quantity,
				it.PriceCents, it.IsSaddle, it.ProductType, it.ProductTags)
			if err != nil {
				return stats, fmt.Errorf("update line item %s: %w", it.ShopifyLineItemID, err)
			}
			stats.ItemsUpdated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// ExistingItemStates snapshots quantity and entered-serial count for the
// given external line item ids, keyed by external id. Missing ids are simply
// absent from the map.
func (r *Repo) ExistingItemStates(ctx context.Context, shopifyLineItemIDs []string) (map[string]ItemState, error) {
	out := make(map[string]ItemState, len(shopifyLineItemIDs))
	if len(shopifyLineItemIDs) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT li.shopify_line_item_id, li.id, li.quantity, COUNT(sn.id)
		FROM line_items li
		LEFT JOIN serial_numbers sn ON sn.line_item_id = li.id
		WHERE li.shopify_line_item_id = ANY($1)
		GROUP BY li.id, li.shopify_line_item_id, li.quantity`, shopifyLineItemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var extID string
		var st ItemState
		if err := rows.Scan(&extID, &st.LineItemID, &st.Quantity, &st.SerialCount); err != nil {
			return nil, err
		}
		out[extID] = st
	}
	return out, rows.Err()
}

// MarkCancelled flips both status fields to CANCELLED and appends an audit
// note. Returns (false, nil) when the order was never tracked locally;
// cancelling an unknown order is not an error.
func (r *Repo) MarkCancelled(ctx context.Context, shopifyOrderID string) (bool, string, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id, name, note string
	err = tx.QueryRow(ctx, `SELECT id, order_name, note FROM orders WHERE shopify_order_id=$1`, shopifyOrderID).
		Scan(&id, &name, &note)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}

	note = strings.TrimSpace(note + "\n[CANCELLED via webhook]")
	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET fulfillment_status=$2, financial_status=$2, note=$3, last_synced_at=$4
		WHERE id=$1`,
		id, StatusCancelled, note, time.Now().UTC())
	if err != nil {
		return false, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, "", err
	}
	return true, name, nil
}

type ItemSummary struct {
	LineItem
	SerialsEntered int `json:"serials_entered"`
}

type Summary struct {
	Order
	Items []ItemSummary `json:"items"`
}

type ItemDetail struct {
	LineItem
	Serials []serials.SerialNumber `json:"serials"`
}

type Detail struct {
	Order
	Items []ItemDetail `json:"items"`
}

// ListSaddleOrders returns orders that own at least one saddle line item,
// newest first, with per-item serial progress.
func (r *Repo) ListSaddleOrders(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, shopify_order_id, shop, order_number, order_name, created_at, updated_at,
			fulfillment_status, financial_status, customer_name, customer_email, customer_phone,
			total_cents, currency, tags, note, last_synced_at
		FROM orders o
		WHERE EXISTS (SELECT 1 FROM line_items li WHERE li.order_id = o.id AND li.is_saddle)
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	ids := make([]string, 0, limit)
	byID := map[string]int{}
	for rows.Next() {
		var s Summary
		if err := scanOrder(rows, &s.Order); err != nil {
			return nil, err
		}
		byID[s.Order.ID] = len(out)
		ids = append(ids, s.Order.ID)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	irows, err := r.DB.Query(ctx, `
		SELECT li.id, li.order_id, li.shopify_line_item_id, li.product_id, li.variant_id,
			li.product_title, li.variant_title, li.sku, li.quantity, li.price_cents,
			li.is_saddle, li.product_type, li.product_tags, COUNT(sn.id)
		FROM line_items li
		LEFT JOIN serial_numbers sn ON sn.line_item_id = li.id
		WHERE li.order_id = ANY($1) AND li.is_saddle
		GROUP BY li.id
		ORDER BY li.product_title`, ids)
	if err != nil {
		return nil, err
	}
	defer irows.Close()

	for irows.Next() {
		var it ItemSummary
		if err := irows.Scan(&it.ID, &it.OrderID, &it.ShopifyLineItemID, &it.ProductID, &it.VariantID,
			&it.ProductTitle, &it.VariantTitle, &it.SKU, &it.Quantity, &it.PriceCents,
			&it.IsSaddle, &it.ProductType, &it.ProductTags, &it.SerialsEntered); err != nil {
			return nil, err
		}
		if idx, ok := byID[it.OrderID]; ok {
			out[idx].Items = append(out[idx].Items, it)
		}
	}
	return out, irows.Err()
}

// GetOrder loads one order with its saddle line items and their serials
// ordered by unit index.
func (r *Repo) GetOrder(ctx context.Context, id string) (*Detail, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, shopify_order_id, shop, order_number, order_name, created_at, updated_at,
			fulfillment_status, financial_status, customer_name, customer_email, customer_phone,
			total_cents, currency, tags, note, last_synced_at
		FROM orders WHERE id=$1`, id)

	var d Detail
	if err := scanOrder(row, &d.Order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	irows, err := r.DB.Query(ctx, `
		SELECT id, order_id, shopify_line_item_id, product_id, variant_id,
			product_title, variant_title, sku, quantity, price_cents,
			is_saddle, product_type, product_tags
		FROM line_items
		WHERE order_id=$1 AND is_saddle
		ORDER BY product_title`, id)
	if err != nil {
		return nil, err
	}
	defer irows.Close()

	itemIdx := map[string]int{}
	for irows.Next() {
		var it ItemDetail
		if err := irows.Scan(&it.ID, &it.OrderID, &it.ShopifyLineItemID, &it.ProductID, &it.VariantID,
			&it.ProductTitle, &it.VariantTitle, &it.SKU, &it.Quantity, &it.PriceCents,
			&it.IsSaddle, &it.ProductType, &it.ProductTags); err != nil {
			return nil, err
		}
		itemIdx[it.ID] = len(d.Items)
		d.Items = append(d.Items, it)
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}
	if len(d.Items) == 0 {
		return &d, nil
	}

	itemIDs := make([]string, 0, len(d.Items))
	for liID := range itemIdx {
		itemIDs = append(itemIDs, liID)
	}
	srows, err := r.DB.Query(ctx, `
		SELECT id, line_item_id, unit_index, serial_number, entered_at, updated_at
		FROM serial_numbers
		WHERE line_item_id = ANY($1)
		ORDER BY unit_index`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer srows.Close()

	for srows.Next() {
		var sn serials.SerialNumber
		if err := srows.Scan(&sn.ID, &sn.LineItemID, &sn.UnitIndex, &sn.Value, &sn.EnteredAt, &sn.UpdatedAt); err != nil {
			return nil, err
		}
		if idx, ok := itemIdx[sn.LineItemID]; ok {
			d.Items[idx].Serials = append(d.Items[idx].Serials, sn)
		}
	}
	return &d, srows.Err()
}

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.ShopifyOrderID, &o.Shop, &o.OrderNumber, &o.OrderName,
		&o.CreatedAt, &o.UpdatedAt, &o.FulfillmentStatus, &o.FinancialStatus,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.TotalCents, &o.Currency, &o.Tags, &o.Note, &o.LastSyncedAt)
}
