package waitlist

import (
	"context"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

// Registrar validates customer submissions and records them against the
// reservation ledger. It triggers no notifications; that is the caller's
// decision.
type Registrar struct {
	Store Store
}

// Submit records one waitlist submission. Validation failures reject the
// request before the ledger is touched; a capacity shortfall on any item
// rejects the whole submission with current availability.
func (r *Registrar) Submit(ctx context.Context, sub Submission) ([]Entry, error) {
	if sub.BatchID == "" {
		return nil, &faults.ValidationError{Field: "batch_id", Reason: "required"}
	}
	if len(sub.Items) == 0 {
		return nil, &faults.ValidationError{Field: "items", Reason: "at least one item required"}
	}
	for _, it := range sub.Items {
		if it.ProductID == "" {
			return nil, &faults.ValidationError{Field: "product_id", Reason: "required"}
		}
		if it.Qty <= 0 {
			return nil, &faults.ValidationError{Field: "qty", Reason: "must be positive"}
		}
	}
	if sub.Contact.Name == "" {
		return nil, &faults.ValidationError{Field: "contact.name", Reason: "required"}
	}
	if sub.Contact.Phone == "" && sub.Contact.Email == "" {
		return nil, &faults.ValidationError{Field: "contact", Reason: "phone or email required"}
	}

	return r.Store.CreateEntries(ctx, sub)
}
