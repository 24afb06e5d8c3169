package drops

import (
	"context"
	"sync"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

type MemStore struct {
	mu    sync.Mutex
	drops map[string]Drop
}

func NewMemStore() *MemStore {
	return &MemStore{drops: make(map[string]Drop)}
}

func (m *MemStore) Add(d Drop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[d.ID] = d
}

func (m *MemStore) Get(ctx context.Context, id string) (Drop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drops[id]
	if !ok {
		return Drop{}, &faults.NotFoundError{Kind: "drop", ID: id}
	}
	return d, nil
}
