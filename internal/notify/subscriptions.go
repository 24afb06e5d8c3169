package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

// PgSubscriptions stores push subscriptions in Postgres, keyed by the
// customer's phone (or email when no phone exists).
type PgSubscriptions struct{ DB *pgxpool.Pool }

func (s *PgSubscriptions) TargetsFor(ctx context.Context, customerKey string) ([]string, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT target FROM push_subscriptions WHERE customer_key=$1`, customerKey)
	if err != nil {
		return nil, faults.Transient("subscriptions: targets", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, faults.Transient("subscriptions: scan", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PgSubscriptions) Delete(ctx context.Context, target string) error {
	if _, err := s.DB.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE target=$1`, target); err != nil {
		return faults.Transient("subscriptions: delete", err)
	}
	return nil
}
