package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventStatusChanged    = "OrderStatusChanged"
	EventDeliveryReminder = "DeliveryReminder"
)

// Envelope wraps every event published by the core. The notifier consumes
// these asynchronously; delivery outcome never feeds back into the
// business operation that emitted the event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// Payloads carry the contact snapshot so the notifier never has to query
// the order back.

type OrderCreatedPayload struct {
	OrderID      string `json:"order_id"`
	Number       string `json:"number"`
	TotalCents   int    `json:"total_cents"`
	Source       string `json:"source"` // checkout | waitlist
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

type StatusChangedPayload struct {
	OrderID      string `json:"order_id"`
	Number       string `json:"number"`
	Prior        Status `json:"prior"`
	Next         Status `json:"next"`
	ActorID      string `json:"actor_id"`
	Role         Role   `json:"role"`
	CourierID    string `json:"courier_id,omitempty"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`

	// Routing hints decided by the state machine: ReadyForAssembly on
	// entering PREP from elsewhere, NotifyCourier when a courier is
	// assigned and the order enters PREP or IN_TRANSIT.
	ReadyForAssembly bool `json:"ready_for_assembly,omitempty"`
	NotifyCourier    bool `json:"notify_courier,omitempty"`
}

type DeliveryReminderPayload struct {
	OrderID      string    `json:"order_id"`
	Number       string    `json:"number"`
	DeliverAt    time.Time `json:"deliver_at"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
}
