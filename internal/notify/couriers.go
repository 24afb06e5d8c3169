package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

type PgCouriers struct{ DB *pgxpool.Pool }

func (c *PgCouriers) Phone(ctx context.Context, courierID string) (string, error) {
	var phone string
	err := c.DB.QueryRow(ctx, `SELECT phone FROM couriers WHERE id=$1`, courierID).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &faults.NotFoundError{Kind: "courier", ID: courierID}
	}
	if err != nil {
		return "", faults.Transient("couriers: phone", err)
	}
	return phone, nil
}
