package orders

import (
	"context"
	"sync"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

// MemStore is an in-memory Store for tests. One mutex covers both the
// order map and the history log, which makes ApplyTransition atomic the
// same way the Postgres transaction does.
type MemStore struct {
	mu      sync.Mutex
	orders  map[string]*Order
	history map[string][]HistoryEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders:  make(map[string]*Order),
		history: make(map[string][]HistoryEntry),
	}
}

func (m *MemStore) Create(ctx context.Context, o Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.ID]; exists {
		return &faults.ValidationError{Field: "id", Reason: "order already exists"}
	}
	cp := o
	cp.Lines = append([]Line(nil), o.Lines...)
	m.orders[o.ID] = &cp
	return nil
}

func (m *MemStore) Get(ctx context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, &faults.NotFoundError{Kind: "order", ID: id}
	}
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return cp, nil
}

func (m *MemStore) ApplyTransition(ctx context.Context, rec HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[rec.OrderID]
	if !ok {
		return &faults.NotFoundError{Kind: "order", ID: rec.OrderID}
	}
	if o.Status != rec.Prior {
		return &faults.TransitionError{From: string(o.Status), To: string(rec.Next), Actor: rec.ActorID}
	}
	o.Status = rec.Next
	o.UpdatedAt = rec.At
	m.history[rec.OrderID] = append(m.history[rec.OrderID], rec)
	return nil
}

func (m *MemStore) History(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryEntry(nil), m.history[orderID]...), nil
}
