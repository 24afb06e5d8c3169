package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

// Repo implements Store on Postgres. Row locks (FOR UPDATE) close the
// check-then-act race between concurrent reservers of the same line.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Reserve(ctx context.Context, batchID string, reqs []Request) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return faults.Transient("ledger reserve: begin", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ReserveInTx(ctx, tx, batchID, reqs); err != nil {
		return err // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return faults.Transient("ledger reserve: commit", err)
	}
	return nil
}

// ReserveInTx runs the locked check-and-increment inside a caller-owned
// transaction, so a multi-write operation (ledger + waitlist entries) can
// commit or roll back as one unit.
func (r *Repo) ReserveInTx(ctx context.Context, tx pgx.Tx, batchID string, reqs []Request) error {
	var active bool
	err := tx.QueryRow(ctx, `SELECT active FROM batches WHERE id=$1`, batchID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return &faults.NotFoundError{Kind: "batch", ID: batchID}
	}
	if err != nil {
		return faults.Transient("ledger reserve: batch lookup", err)
	}
	if !active {
		return &faults.ValidationError{Field: "batch", Reason: "not active"}
	}

	var shortfalls []faults.CapacityDetail
	for _, req := range reqs {
		var quantity, reserved int
		err := tx.QueryRow(ctx, `
			SELECT quantity, reserved FROM batch_lines
			WHERE batch_id=$1 AND product_id=$2 AND variant_id=$3
			FOR UPDATE`,
			batchID, req.ProductID, req.VariantID).Scan(&quantity, &reserved)
		if errors.Is(err, pgx.ErrNoRows) {
			return &faults.NotFoundError{Kind: "batch line", ID: req.ProductID}
		}
		if err != nil {
			return faults.Transient("ledger reserve: lock line", err)
		}
		if quantity-reserved < req.Qty {
			shortfalls = append(shortfalls, faults.CapacityDetail{
				ProductID: req.ProductID,
				VariantID: req.VariantID,
				Requested: req.Qty,
				Available: quantity - reserved,
			})
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE batch_lines SET reserved = reserved + $4
			WHERE batch_id=$1 AND product_id=$2 AND variant_id=$3`,
			batchID, req.ProductID, req.VariantID, req.Qty); err != nil {
			return faults.Transient("ledger reserve: increment", err)
		}
	}

	if len(shortfalls) > 0 {
		return &faults.CapacityError{Details: shortfalls}
	}
	return nil
}

func (r *Repo) Release(ctx context.Context, batchID string, reqs []Request) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return faults.Transient("ledger release: begin", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ReleaseInTx(ctx, tx, batchID, reqs); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return faults.Transient("ledger release: commit", err)
	}
	return nil
}

// ReleaseInTx is the in-transaction counterpart of Release.
func (r *Repo) ReleaseInTx(ctx context.Context, tx pgx.Tx, batchID string, reqs []Request) error {
	for _, req := range reqs {
		var reserved int
		err := tx.QueryRow(ctx, `
			SELECT reserved FROM batch_lines
			WHERE batch_id=$1 AND product_id=$2 AND variant_id=$3
			FOR UPDATE`,
			batchID, req.ProductID, req.VariantID).Scan(&reserved)
		if errors.Is(err, pgx.ErrNoRows) {
			return &faults.NotFoundError{Kind: "batch line", ID: req.ProductID}
		}
		if err != nil {
			return faults.Transient("ledger release: lock line", err)
		}
		if reserved < req.Qty {
			return &faults.ValidationError{
				Field:  "qty",
				Reason: "release exceeds reserved count",
			}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE batch_lines SET reserved = reserved - $4
			WHERE batch_id=$1 AND product_id=$2 AND variant_id=$3`,
			batchID, req.ProductID, req.VariantID, req.Qty); err != nil {
			return faults.Transient("ledger release: decrement", err)
		}
	}
	return nil
}

func (r *Repo) Batch(ctx context.Context, id string) (Batch, error) {
	var b Batch
	err := r.DB.QueryRow(ctx, `SELECT id, label, arrive_at, active FROM batches WHERE id=$1`, id).
		Scan(&b.ID, &b.Label, &b.ArriveAt, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, &faults.NotFoundError{Kind: "batch", ID: id}
	}
	if err != nil {
		return Batch{}, faults.Transient("ledger: batch", err)
	}
	lines, err := r.linesFor(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	b.Lines = lines
	return b, nil
}

func (r *Repo) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, label, arrive_at, active FROM batches ORDER BY arrive_at`)
	if err != nil {
		return nil, faults.Transient("ledger: list batches", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Label, &b.ArriveAt, &b.Active); err != nil {
			return nil, faults.Transient("ledger: scan batch", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Transient("ledger: list batches", err)
	}
	for i := range out {
		lines, err := r.linesFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (r *Repo) linesFor(ctx context.Context, batchID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT batch_id, product_id, variant_id, quantity, reserved
		FROM batch_lines WHERE batch_id=$1 ORDER BY product_id, variant_id`, batchID)
	if err != nil {
		return nil, faults.Transient("ledger: lines", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.BatchID, &l.ProductID, &l.VariantID, &l.Quantity, &l.Reserved); err != nil {
			return nil, faults.Transient("ledger: scan line", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
