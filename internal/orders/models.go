package orders

import "time"

type Order struct {
	ID     string
	Number string // human-readable, e.g. FD-250905-3A1F
	Status Status
	Lines  []Line

	CustomerName string
	Phone        string
	Email        string
	Address      string
	TimeSlot     string
	DeliverAt    time.Time
	Payment      string
	CourierID    string // empty until a courier is assigned

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line captures the unit price at order creation; later catalog price
// changes never reach existing orders.
type Line struct {
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

func (o Order) TotalCents() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Qty * l.PriceCents
	}
	return total
}

// HistoryEntry is one immutable record of the order's append-only audit
// trail. Entries are never mutated or removed.
type HistoryEntry struct {
	OrderID string    `json:"order_id"`
	Prior   Status    `json:"prior"`
	Next    Status    `json:"next"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
	Note    string    `json:"note,omitempty"`
}
