package ledger

import "time"

// Batch is a scheduled arrival of products. Lines are never deleted while
// referenced; capacity accounting happens on the line counters only.
type Batch struct {
	ID       string
	Label    string
	ArriveAt time.Time
	Active   bool
	Lines    []Line
}

// Line tracks capacity for one product/variant inside a batch.
// Invariant: 0 <= Reserved <= Quantity at all times.
type Line struct {
	BatchID   string
	ProductID string
	VariantID string // empty when the product has no variants
	Quantity  int
	Reserved  int
}

func (l Line) Remaining() int { return l.Quantity - l.Reserved }

// Request is one line of a reserve or release call.
type Request struct {
	ProductID string
	VariantID string
	Qty       int
}
