package waitlist

import "time"

// Contact is the customer snapshot stored with each entry. It is captured
// at submission time so later profile edits do not change where an order
// gets delivered.
type Contact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Entry is one customer's reservation against a batch line, made before
// the batch arrives. PriceCents is the unit price captured at submission.
type Entry struct {
	ID          string
	DropID      string
	BatchID     string
	ProductID   string
	VariantID   string
	Qty         int
	PriceCents  int
	Contact     Contact
	PreferredAt *time.Time // requested delivery date, nil when the customer left it open
	CreatedAt   time.Time
	Fulfilled   bool
	OrderID     string // set once the converter created an order from this entry
	Released    bool   // set when the entry was cancelled and capacity returned
}

// Item is one (product/variant, qty) pair of a submission.
type Item struct {
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

// Submission is a customer's complete waitlist request. All items stand
// or fall together.
type Submission struct {
	BatchID     string     `json:"batch_id"`
	DropID      string     `json:"drop_id"`
	Contact     Contact    `json:"contact"`
	Items       []Item     `json:"items"`
	PreferredAt *time.Time `json:"preferred_at,omitempty"`
}
