package waitlist

import "context"

// Store persists waitlist entries. CreateEntries must reserve ledger
// capacity and insert the entries as a single atomic unit: a failed
// capacity check on any item leaves the ledger and the entries untouched.
type Store interface {
	CreateEntries(ctx context.Context, sub Submission) ([]Entry, error)
	PendingForDrop(ctx context.Context, dropID string) ([]Entry, error)
	MarkFulfilled(ctx context.Context, entryID, orderID string) error

	// CancelEntry returns the entry's capacity to the ledger and marks it
	// released. Cancelling an already-released or fulfilled entry is an
	// error, never a silent double release.
	CancelEntry(ctx context.Context, entryID string) error
}
