package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshcrate/go-drop-orders/internal/faults"
	"github.com/freshcrate/go-drop-orders/internal/ledger"
)

// PgStore implements Store on Postgres. CreateEntries and CancelEntry run
// the ledger mutation and the entry write in one transaction.
type PgStore struct {
	DB     *pgxpool.Pool
	Ledger *ledger.Repo
}

func (s *PgStore) CreateEntries(ctx context.Context, sub Submission) ([]Entry, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, faults.Transient("waitlist create: begin", err)
	}
	defer tx.Rollback(ctx)

	reqs := make([]ledger.Request, 0, len(sub.Items))
	for _, it := range sub.Items {
		reqs = append(reqs, ledger.Request{ProductID: it.ProductID, VariantID: it.VariantID, Qty: it.Qty})
	}
	if err := s.Ledger.ReserveInTx(ctx, tx, sub.BatchID, reqs); err != nil {
		return nil, err // rollback leaves ledger and entries untouched
	}

	now := time.Now().UTC()
	entries := make([]Entry, 0, len(sub.Items))
	for _, it := range sub.Items {
		e := Entry{
			ID:          uuid.NewString(),
			DropID:      sub.DropID,
			BatchID:     sub.BatchID,
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Qty:         it.Qty,
			PriceCents:  it.PriceCents,
			Contact:     sub.Contact,
			PreferredAt: sub.PreferredAt,
			CreatedAt:   now,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO waitlist_entries
				(id, drop_id, batch_id, product_id, variant_id, qty, price_cents,
				 contact_name, contact_phone, contact_email, contact_address,
				 preferred_at, created_at, fulfilled, released)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,false,false)`,
			e.ID, e.DropID, e.BatchID, e.ProductID, e.VariantID, e.Qty, e.PriceCents,
			e.Contact.Name, e.Contact.Phone, e.Contact.Email, e.Contact.Address,
			e.PreferredAt, e.CreatedAt); err != nil {
			return nil, faults.Transient("waitlist create: insert entry", err)
		}
		entries = append(entries, e)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, faults.Transient("waitlist create: commit", err)
	}
	return entries, nil
}

func (s *PgStore) PendingForDrop(ctx context.Context, dropID string) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, drop_id, batch_id, product_id, variant_id, qty, price_cents,
		       contact_name, contact_phone, contact_email, contact_address,
		       preferred_at, created_at, fulfilled, COALESCE(order_id, ''), released
		FROM waitlist_entries
		WHERE drop_id=$1 AND NOT fulfilled AND NOT released
		ORDER BY created_at`, dropID)
	if err != nil {
		return nil, faults.Transient("waitlist: pending", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DropID, &e.BatchID, &e.ProductID, &e.VariantID,
			&e.Qty, &e.PriceCents,
			&e.Contact.Name, &e.Contact.Phone, &e.Contact.Email, &e.Contact.Address,
			&e.PreferredAt, &e.CreatedAt, &e.Fulfilled, &e.OrderID, &e.Released); err != nil {
			return nil, faults.Transient("waitlist: scan entry", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) MarkFulfilled(ctx context.Context, entryID, orderID string) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE waitlist_entries SET fulfilled=true, order_id=$2
		WHERE id=$1 AND NOT fulfilled`, entryID, orderID)
	if err != nil {
		return faults.Transient("waitlist: mark fulfilled", err)
	}
	if ct.RowsAffected() != 1 {
		return &faults.NotFoundError{Kind: "waitlist entry", ID: entryID}
	}
	return nil
}

func (s *PgStore) CancelEntry(ctx context.Context, entryID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return faults.Transient("waitlist cancel: begin", err)
	}
	defer tx.Rollback(ctx)

	var e Entry
	err = tx.QueryRow(ctx, `
		SELECT batch_id, product_id, variant_id, qty, fulfilled, released
		FROM waitlist_entries WHERE id=$1 FOR UPDATE`, entryID).
		Scan(&e.BatchID, &e.ProductID, &e.VariantID, &e.Qty, &e.Fulfilled, &e.Released)
	if errors.Is(err, pgx.ErrNoRows) {
		return &faults.NotFoundError{Kind: "waitlist entry", ID: entryID}
	}
	if err != nil {
		return faults.Transient("waitlist cancel: lock entry", err)
	}
	if e.Released {
		return &faults.ValidationError{Field: "entry", Reason: "already released"}
	}
	if e.Fulfilled {
		return &faults.ValidationError{Field: "entry", Reason: "already fulfilled"}
	}

	if err := s.Ledger.ReleaseInTx(ctx, tx, e.BatchID, []ledger.Request{
		{ProductID: e.ProductID, VariantID: e.VariantID, Qty: e.Qty},
	}); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE waitlist_entries SET released=true WHERE id=$1`, entryID); err != nil {
		return faults.Transient("waitlist cancel: mark released", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return faults.Transient("waitlist cancel: commit", err)
	}
	return nil
}
