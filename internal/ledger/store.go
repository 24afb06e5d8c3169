package ledger

import "context"

// Store is the reservation ledger. Reserve and Release are all-or-nothing
// across the requests of a single call: either every line is mutated or
// none is. Implementations must make the capacity check and the counter
// update atomic with respect to concurrent callers on the same line.
type Store interface {
	// Reserve increments Reserved on every requested line. Returns
	// *faults.CapacityError carrying current availability when any line
	// lacks capacity, *faults.NotFoundError when a line does not exist.
	Reserve(ctx context.Context, batchID string, reqs []Request) error

	// Release is the symmetric inverse. A release that would drive a
	// line's Reserved below zero is rejected, never silently clamped.
	Release(ctx context.Context, batchID string, reqs []Request) error

	Batch(ctx context.Context, id string) (Batch, error)
	ListBatches(ctx context.Context) ([]Batch, error)
}
