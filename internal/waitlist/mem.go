package waitlist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freshcrate/go-drop-orders/internal/faults"
	"github.com/freshcrate/go-drop-orders/internal/ledger"
)

// MemStore is an in-memory Store for tests. The embedded ledger MemStore
// already makes each reserve/release atomic; the entry map mutations sit
// behind their own mutex.
type MemStore struct {
	Ledger *ledger.MemStore

	mu      sync.Mutex
	entries map[string]*Entry
}

func NewMemStore(l *ledger.MemStore) *MemStore {
	return &MemStore{Ledger: l, entries: make(map[string]*Entry)}
}

func (m *MemStore) CreateEntries(ctx context.Context, sub Submission) ([]Entry, error) {
	reqs := make([]ledger.Request, 0, len(sub.Items))
	for _, it := range sub.Items {
		reqs = append(reqs, ledger.Request{ProductID: it.ProductID, VariantID: it.VariantID, Qty: it.Qty})
	}
	if err := m.Ledger.Reserve(ctx, sub.BatchID, reqs); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	out := make([]Entry, 0, len(sub.Items))
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
		cp := e
		m.entries[e.ID] = &cp
		out = append(out, e)
	}
	return out, nil
}

func (m *MemStore) PendingForDrop(ctx context.Context, dropID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.DropID == dropID && !e.Fulfilled && !e.Released {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *MemStore) MarkFulfilled(ctx context.Context, entryID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.Fulfilled {
		return &faults.NotFoundError{Kind: "waitlist entry", ID: entryID}
	}
	e.Fulfilled = true
	e.OrderID = orderID
	return nil
}

func (m *MemStore) CancelEntry(ctx context.Context, entryID string) error {
	// Hold the entry lock across the ledger release so two concurrent
	// cancels cannot both pass the Released check. The ledger never calls
	// back into this store, so the lock order is safe.
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryID]
	if !ok {
		return &faults.NotFoundError{Kind: "waitlist entry", ID: entryID}
	}
	if e.Released {
		return &faults.ValidationError{Field: "entry", Reason: "already released"}
	}
	if e.Fulfilled {
		return &faults.ValidationError{Field: "entry", Reason: "already fulfilled"}
	}
	if err := m.Ledger.Release(ctx, e.BatchID, []ledger.Request{
		{ProductID: e.ProductID, VariantID: e.VariantID, Qty: e.Qty},
	}); err != nil {
		return err
	}
	e.Released = true
	return nil
}
