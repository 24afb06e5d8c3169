package drops

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Get(ctx context.Context, id string) (Drop, error) {
	var d Drop
	err := r.DB.QueryRow(ctx, `
		SELECT id, product_id, batch_id, arrive_at, capacity, active
		FROM drops WHERE id=$1`, id).
		Scan(&d.ID, &d.ProductID, &d.BatchID, &d.ArriveAt, &d.Capacity, &d.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Drop{}, &faults.NotFoundError{Kind: "drop", ID: id}
	}
	if err != nil {
		return Drop{}, faults.Transient("drops: get", err)
	}
	return d, nil
}
