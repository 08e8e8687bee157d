package serials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements Store over Postgres. The serial_numbers table carries a
// unique index on the serial value, which backstops FindConflicts against
// check-then-write races between concurrent transactions.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &repoTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type repoTx struct{ tx pgx.Tx }

func (t *repoTx) LineItemQuantity(ctx context.Context, lineItemID string) (int, error) {
	var q int
	err := t.tx.QueryRow(ctx, `SELECT quantity FROM line_items WHERE id=$1`, lineItemID).Scan(&q)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
	}
	if err != nil {
		return 0, err
	}
	return q, nil
}

func (t *repoTx) FindConflicts(ctx context.Context, values []string, excludeLineItemID string) ([]Conflict, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT sn.serial_number, o.order_name
		FROM serial_numbers sn
		JOIN line_items li ON li.id = sn.line_item_id
		JOIN orders o ON o.id = li.order_id
		WHERE sn.serial_number = ANY($1) AND sn.line_item_id <> $2`,
		values, excludeLineItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.Value, &c.OrderName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *repoTx) ListForUpdate(ctx context.Context, lineItemID string) ([]SerialNumber, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, line_item_id, unit_index, serial_number, entered_at, updated_at
		FROM serial_numbers
		WHERE line_item_id=$1
		ORDER BY unit_index
		FOR UPDATE`, lineItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SerialNumber
	for rows.Next() {
		var sn SerialNumber
		if err := rows.Scan(&sn.ID, &sn.LineItemID, &sn.UnitIndex, &sn.Value, &sn.EnteredAt, &sn.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (t *repoTx) UpdateValue(ctx context.Context, id, value string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE serial_numbers SET serial_number=$2, updated_at=$3 WHERE id=$1`,
		id, value, time.Now().UTC())
	return err
}

func (t *repoTx) Create(ctx context.Context, lineItemID string, unitIndex int, value string) error {
	now := time.Now().UTC()
	_, err := t.tx.Exec(ctx, `
		INSERT INTO serial_numbers(id, line_item_id, unit_index, serial_number, entered_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)`,
		uuid.NewString(), lineItemID, unitIndex, value, now)
	return err
}

func (t *repoTx) Delete(ctx context.Context, id string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM serial_numbers WHERE id=$1`, id)
	return err
}
