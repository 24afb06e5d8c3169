package orders

import "context"

// Store persists orders and their append-only history. ApplyTransition
// must write the new status and the history record as one atomic unit:
// they never diverge. It must also fail with *faults.TransitionError when
// the order's current status no longer matches rec.Prior, so two
// concurrent transitions cannot both succeed past a stale read.
type Store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	ApplyTransition(ctx context.Context, rec HistoryEntry) error
	History(ctx context.Context, orderID string) ([]HistoryEntry, error)
}
