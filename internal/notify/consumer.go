package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/freshcrate/go-drop-orders/internal/kafka"
	"github.com/freshcrate/go-drop-orders/internal/orders"
	"github.com/freshcrate/go-drop-orders/internal/redisx"
)

// Couriers resolves an assigned courier's phone for direct notifications.
type Couriers interface {
	Phone(ctx context.Context, courierID string) (string, error)
}

// EventConsumer turns order event envelopes into dispatcher events. It is
// installed as the handler of the notifier's Kafka consumers. Dispatch
// outcomes are logged, never returned: a redelivered message would
// re-notify, so processing commits once the event was decoded and
// dispatched regardless of per-channel failures.
type EventConsumer struct {
	Dispatcher  *Dispatcher
	Redis       *redis.Client
	Couriers    Couriers
	ServiceName string
	Log         *zap.SugaredLogger
}

func (c *EventConsumer) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// Dedup by event id so redelivery does not double-send.
	dkey := fmt.Sprintf(redisx.KeyDedup, c.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, c.Redis, dkey); exists {
		return nil
	}
	_ = c.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	ev, ok, err := c.eventFor(ctx, env)
	if err != nil {
		return err
	}
	if !ok {
		return nil // unknown event type, ignore
	}
	c.Dispatcher.Dispatch(ctx, ev)
	return nil
}

func (c *EventConsumer) eventFor(ctx context.Context, env orders.Envelope) (Event, bool, error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return Event{}, false, err
		}
		return Event{
			Kind:         KindNewOrder,
			OrderID:      p.OrderID,
			OrderNumber:  p.Number,
			CustomerName: p.CustomerName,
			Phone:        p.Phone,
			Email:        p.Email,
			NotifyStaff:  true, // ops always sees new orders
		}, true, nil

	case orders.EventStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
		if err != nil {
			return Event{}, false, err
		}
		ev := Event{
			Kind:         KindStatusChange,
			OrderID:      p.OrderID,
			OrderNumber:  p.Number,
			Status:       string(p.Next),
			CustomerName: p.CustomerName,
			Phone:        p.Phone,
			Email:        p.Email,
			NotifyStaff:  p.ReadyForAssembly,
		}
		if p.NotifyCourier && p.CourierID != "" {
			ev.CourierID = p.CourierID
			if c.Couriers != nil {
				phone, err := c.Couriers.Phone(ctx, p.CourierID)
				if err != nil {
					c.Log.Warnw("courier phone lookup failed", "courier_id", p.CourierID, "error", err)
				} else {
					ev.CourierPhone = phone
				}
			}
		}
		return ev, true, nil

	case orders.EventDeliveryReminder:
		p, err := kafkax.UnwrapPayload[orders.DeliveryReminderPayload](env.Payload)
		if err != nil {
			return Event{}, false, err
		}
		return Event{
			Kind:         KindDeliveryReminder,
			OrderID:      p.OrderID,
			OrderNumber:  p.Number,
			DeliverAt:    p.DeliverAt,
			CustomerName: p.CustomerName,
			Phone:        p.Phone,
			Email:        p.Email,
		}, true, nil
	}
	return Event{}, false, nil
}
