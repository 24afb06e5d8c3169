package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return faults.Transient("orders create: begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders
			(id, order_number, status, customer_name, phone, email, address,
			 time_slot, deliver_at, payment, courier_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.Number, o.Status, o.CustomerName, o.Phone, o.Email, o.Address,
		o.TimeSlot, o.DeliverAt, o.Payment, o.CourierID, o.CreatedAt, o.UpdatedAt); err != nil {
		return faults.Transient("orders create: insert order", err)
	}
	for _, l := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, variant_id, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, l.ProductID, l.VariantID, l.Qty, l.PriceCents); err != nil {
			return faults.Transient("orders create: insert line", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return faults.Transient("orders create: commit", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_number, status, customer_name, phone, email, address,
		       time_slot, deliver_at, payment, courier_id, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Number, &o.Status, &o.CustomerName, &o.Phone, &o.Email, &o.Address,
			&o.TimeSlot, &o.DeliverAt, &o.Payment, &o.CourierID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, &faults.NotFoundError{Kind: "order", ID: id}
	}
	if err != nil {
		return Order{}, faults.Transient("orders: get", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, variant_id, qty, price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY product_id, variant_id`, id)
	if err != nil {
		return Order{}, faults.Transient("orders: lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.VariantID, &l.Qty, &l.PriceCents); err != nil {
			return Order{}, faults.Transient("orders: scan line", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, faults.Transient("orders: lines", err)
	}
	return o, nil
}

// ApplyTransition locks the order row, re-checks the prior status under
// the lock, then writes the status and the history record in the same
// transaction. Either both land or neither does.
func (r *Repo) ApplyTransition(ctx context.Context, rec HistoryEntry) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return faults.Transient("orders transition: begin", err)
	}
	defer tx.Rollback(ctx)

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, rec.OrderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return &faults.NotFoundError{Kind: "order", ID: rec.OrderID}
	}
	if err != nil {
		return faults.Transient("orders transition: lock", err)
	}
	if current != rec.Prior {
		// A concurrent transition won the race; the caller's read is stale.
		return &faults.TransitionError{From: string(current), To: string(rec.Next), Actor: rec.ActorID}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		rec.OrderID, rec.Next, rec.At); err != nil {
		return faults.Transient("orders transition: update status", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_history(order_id, prior, next, actor_id, at, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.OrderID, rec.Prior, rec.Next, rec.ActorID, rec.At, rec.Note); err != nil {
		return faults.Transient("orders transition: append history", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return faults.Transient("orders transition: commit", err)
	}
	return nil
}

func (r *Repo) History(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, prior, next, actor_id, at, note
		FROM order_history WHERE order_id=$1 ORDER BY at, id`, orderID)
	if err != nil {
		return nil, faults.Transient("orders: history", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.OrderID, &h.Prior, &h.Next, &h.ActorID, &h.At, &h.Note); err != nil {
			return nil, faults.Transient("orders: scan history", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
