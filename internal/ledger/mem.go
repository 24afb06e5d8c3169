package ledger

import (
	"context"
	"sync"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

// MemStore is an in-memory Store for tests and local runs. A single mutex
// serializes all mutations, which gives the same all-or-nothing guarantee
// the Postgres implementation gets from its transaction.
type MemStore struct {
	mu      sync.Mutex
	batches map[string]*Batch
}

func NewMemStore() *MemStore {
	return &MemStore{batches: make(map[string]*Batch)}
}

// AddBatch seeds a batch. Intended for test setup and local fixtures.
func (m *MemStore) AddBatch(b Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := b
	cp.Lines = append([]Line(nil), b.Lines...)
	m.batches[b.ID] = &cp
}

func (m *MemStore) Reserve(ctx context.Context, batchID string, reqs []Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID]
	if !ok {
		return &faults.NotFoundError{Kind: "batch", ID: batchID}
	}
	if !b.Active {
		return &faults.ValidationError{Field: "batch", Reason: "not active"}
	}

	// A submission may name the same line more than once, so quantities
	// are totalled per line before the capacity check. Checking each
	// request against the pre-mutation remainder would let duplicates
	// slip past it.
	totals, order, err := totalPerLine(b.Lines, reqs)
	if err != nil {
		return err
	}
	var shortfalls []faults.CapacityDetail
	for _, i := range order {
		if b.Lines[i].Remaining() < totals[i] {
			shortfalls = append(shortfalls, faults.CapacityDetail{
				ProductID: b.Lines[i].ProductID,
				VariantID: b.Lines[i].VariantID,
				Requested: totals[i],
				Available: b.Lines[i].Remaining(),
			})
		}
	}
	if len(shortfalls) > 0 {
		return &faults.CapacityError{Details: shortfalls}
	}
	for _, i := range order {
		b.Lines[i].Reserved += totals[i]
	}
	return nil
}

func (m *MemStore) Release(ctx context.Context, batchID string, reqs []Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID]
	if !ok {
		return &faults.NotFoundError{Kind: "batch", ID: batchID}
	}
	totals, order, err := totalPerLine(b.Lines, reqs)
	if err != nil {
		return err
	}
	for _, i := range order {
		if b.Lines[i].Reserved < totals[i] {
			return &faults.ValidationError{Field: "qty", Reason: "release exceeds reserved count"}
		}
	}
	for _, i := range order {
		b.Lines[i].Reserved -= totals[i]
	}
	return nil
}

// totalPerLine resolves each request to its line index and sums the
// quantities per line, preserving first-seen order.
func totalPerLine(lines []Line, reqs []Request) (map[int]int, []int, error) {
	totals := make(map[int]int, len(reqs))
	order := make([]int, 0, len(reqs))
	for _, req := range reqs {
		i := findLine(lines, req.ProductID, req.VariantID)
		if i < 0 {
			return nil, nil, &faults.NotFoundError{Kind: "batch line", ID: req.ProductID}
		}
		if _, seen := totals[i]; !seen {
			order = append(order, i)
		}
		totals[i] += req.Qty
	}
	return totals, order, nil
}

func (m *MemStore) Batch(ctx context.Context, id string) (Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return Batch{}, &faults.NotFoundError{Kind: "batch", ID: id}
	}
	cp := *b
	cp.Lines = append([]Line(nil), b.Lines...)
	return cp, nil
}

func (m *MemStore) ListBatches(ctx context.Context) ([]Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Batch, 0, len(m.batches))
	for _, b := range m.batches {
		cp := *b
		cp.Lines = append([]Line(nil), b.Lines...)
		out = append(out, cp)
	}
	return out, nil
}

func findLine(lines []Line, productID, variantID string) int {
	for i := range lines {
		if lines[i].ProductID == productID && lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}
