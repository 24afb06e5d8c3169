package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/freshcrate/go-drop-orders/internal/faults"
	kafkax "github.com/freshcrate/go-drop-orders/internal/kafka"
)

// Publisher is the slice of the kafka producer the service needs; tests
// substitute a capturing fake.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Producers holds one topic-bound publisher per event type, mirroring the
// one-writer-per-topic wiring in the mains.
type Producers struct {
	Created  Publisher
	Status   Publisher
	Reminder Publisher
}

// Service is the order state machine. Orders are mutated only through
// Transition; the persisted status and its history record land together
// or not at all, and notification events are emitted only after the write
// committed.
type Service struct {
	Store       Store
	Producers   Producers
	ServiceName string
	Log         *zap.SugaredLogger

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Draft is the pre-validated checkout payload an order is built from.
type Draft struct {
	Lines        []Line
	CustomerName string
	Phone        string
	Email        string
	Address      string
	TimeSlot     string
	DeliverAt    time.Time
	Payment      string
	CourierID    string
	Source       string // checkout | waitlist
}

// Create builds a NEW order from the draft, persists it and emits an
// OrderCreated event. Line prices are taken from the draft as-is: they
// were captured upstream and stay immune to catalog changes.
func (s *Service) Create(ctx context.Context, d Draft) (Order, error) {
	if len(d.Lines) == 0 {
		return Order{}, &faults.ValidationError{Field: "lines", Reason: "at least one line required"}
	}
	for _, l := range d.Lines {
		if l.ProductID == "" || l.Qty <= 0 {
			return Order{}, &faults.ValidationError{Field: "lines", Reason: "product and positive qty required"}
		}
	}
	if d.CustomerName == "" || d.Address == "" {
		return Order{}, &faults.ValidationError{Field: "customer", Reason: "name and address required"}
	}

	now := s.now()
	o := Order{
		ID:           uuid.NewString(),
		Number:       newOrderNumber(now),
		Status:       StatusNew,
		Lines:        d.Lines,
		CustomerName: d.CustomerName,
		Phone:        d.Phone,
		Email:        d.Email,
		Address:      d.Address,
		TimeSlot:     d.TimeSlot,
		DeliverAt:    d.DeliverAt,
		Payment:      d.Payment,
		CourierID:    d.CourierID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Create(ctx, o); err != nil {
		return Order{}, err
	}

	source := d.Source
	if source == "" {
		source = "checkout"
	}
	s.publish(s.Producers.Created, o.ID, EventOrderCreated, OrderCreatedPayload{
		OrderID:      o.ID,
		Number:       o.Number,
		TotalCents:   o.TotalCents(),
		Source:       source,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Email:        o.Email,
	})
	return o, nil
}

// Transition moves the order to the target status on behalf of an actor.
// Moves outside the actor's row of the transition table are rejected. A
// failed persistence write is returned unchanged and appends no history.
func (s *Service) Transition(ctx context.Context, orderID string, role Role, actorID string, to Status, note string) (Order, error) {
	if !ValidStatus(to) {
		return Order{}, &faults.ValidationError{Field: "status", Reason: "unknown status"}
	}
	if !ValidRole(role) {
		return Order{}, &faults.ValidationError{Field: "role", Reason: "unknown role"}
	}

	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(role, o.Status, to) {
		return Order{}, &faults.TransitionError{From: string(o.Status), To: string(to), Actor: string(role)}
	}

	rec := HistoryEntry{
		OrderID: orderID,
		Prior:   o.Status,
		Next:    to,
		ActorID: actorID,
		At:      s.now(),
		Note:    note,
	}
	if err := s.Store.ApplyTransition(ctx, rec); err != nil {
		return Order{}, err
	}
	o.Status = to
	o.UpdatedAt = rec.At

	s.publish(s.Producers.Status, o.ID, EventStatusChanged, StatusChangedPayload{
		OrderID:          o.ID,
		Number:           o.Number,
		Prior:            rec.Prior,
		Next:             rec.Next,
		ActorID:          actorID,
		Role:             role,
		CourierID:        o.CourierID,
		CustomerName:     o.CustomerName,
		Phone:            o.Phone,
		Email:            o.Email,
		ReadyForAssembly: to == StatusPrep && rec.Prior != StatusPrep,
		NotifyCourier:    (to == StatusPrep || to == StatusInTransit) && o.CourierID != "",
	})
	return o, nil
}

// EmitDeliveryReminder publishes a reminder event for an order created
// from a waitlist entry.
func (s *Service) EmitDeliveryReminder(o Order) {
	s.publish(s.Producers.Reminder, o.ID, EventDeliveryReminder, DeliveryReminderPayload{
		OrderID:      o.ID,
		Number:       o.Number,
		DeliverAt:    o.DeliverAt,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Email:        o.Email,
	})
}

func (s *Service) publish(p Publisher, orderID, eventType string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if s.Log != nil {
		s.Log.Debugw("event published", "type", eventType, "order_id", orderID)
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("FD-%s-%s", now.Format("060102"), suffix)
}
