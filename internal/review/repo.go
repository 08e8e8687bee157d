package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Flag is a persisted manual-review marker: a webhook shrank a line item's
// quantity below its entered serial count.
type Flag struct {
	ID                string    `json:"id"`
	Shop              string    `json:"shop"`
	ShopifyOrderID    string    `json:"shopify_order_id"`
	ShopifyLineItemID string    `json:"shopify_line_item_id"`
	ProductTitle      string    `json:"product_title"`
	OldQuantity       int       `json:"old_quantity"`
	NewQuantity       int       `json:"new_quantity"`
	SerialCount       int       `json:"serial_count"`
	Resolved          bool      `json:"resolved"`
	CreatedAt         time.Time `json:"created_at"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Record(ctx context.Context, f Flag) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO review_flags(id, shop, shopify_order_id, shopify_line_item_id,
			product_title, old_quantity, new_quantity, serial_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		f.ID, f.Shop, f.ShopifyOrderID, f.ShopifyLineItemID,
		f.ProductTitle, f.OldQuantity, f.NewQuantity, f.SerialCount)
	return err
}

func (r *Repo) ListOpen(ctx context.Context) ([]Flag, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, shop, shopify_order_id, shopify_line_item_id, product_title,
			old_quantity, new_quantity, serial_count, resolved, created_at
		FROM review_flags
		WHERE NOT resolved
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Flag
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.ID, &f.Shop, &f.ShopifyOrderID, &f.ShopifyLineItemID, &f.ProductTitle,
			&f.OldQuantity, &f.NewQuantity, &f.SerialCount, &f.Resolved, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) Resolve(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE review_flags SET resolved=TRUE WHERE id=$1 AND NOT resolved`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
