// Package notify fans logical order events out to delivery channels.
// Every channel attempt is independent: one channel failing, timing out
// or being unconfigured never blocks the others and never surfaces to the
// business operation that produced the event.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelPush  Channel = "push"
	ChannelStaff Channel = "staff"
)

const (
	KindNewOrder         = "new_order"
	KindStatusChange     = "status_change"
	KindDeliveryReminder = "delivery_reminder"
)

// Event is one logical notification, already flattened by the consumer:
// it carries the contact snapshot and routing flags, no lookups needed.
type Event struct {
	Kind         string
	OrderID      string
	OrderNumber  string
	Status       string
	CustomerName string
	Phone        string
	Email        string
	DeliverAt    time.Time

	// NotifyStaff routes the event to the internal staff channel
	// (new orders, ready-for-assembly). CourierID routes a copy to the
	// assigned courier's SMS.
	NotifyStaff  bool
	CourierID    string
	CourierPhone string
}

// Sender is the narrow collaborator contract for one delivery channel.
type Sender interface {
	Send(ctx context.Context, target, payload string) error
}

// ErrSubscriptionGone is returned by push senders when the endpoint
// reports the subscription no longer exists.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Subscriptions stores push targets per customer. The dispatcher deletes
// targets the push endpoint reports as gone.
type Subscriptions interface {
	TargetsFor(ctx context.Context, customerKey string) ([]string, error)
	Delete(ctx context.Context, target string) error
}

type Outcome struct {
	Channel Channel
	Target  string
	Err     error
}

// Dispatcher fans one event out to every configured channel. A nil
// sender means the channel has no credentials and is skipped, observable
// only in the logs.
type Dispatcher struct {
	SMS   Sender
	Email Sender
	Chat  Sender
	Push  Sender
	Staff Sender

	Subs        Subscriptions
	StaffTarget string
	Timeout     time.Duration
	Log         *zap.SugaredLogger
}

func (d *Dispatcher) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 5 * time.Second
}

type attempt struct {
	ch     Channel
	sender Sender
	target string
}

// Dispatch runs all channel attempts concurrently and collects their
// outcomes without short-circuiting on the first failure. It never
// returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) []Outcome {
	msg := render(ev)
	var attempts []attempt

	add := func(ch Channel, s Sender, target string) {
		if target == "" {
			return
		}
		if s == nil {
			d.Log.Debugw("channel not configured, skipping", "channel", ch, "order_id", ev.OrderID)
			return
		}
		attempts = append(attempts, attempt{ch: ch, sender: s, target: target})
	}

	add(ChannelSMS, d.SMS, ev.Phone)
	add(ChannelEmail, d.Email, ev.Email)
	add(ChannelChat, d.Chat, ev.Phone) // chat targets share the phone identifier
	if ev.NotifyStaff {
		add(ChannelStaff, d.Staff, d.StaffTarget)
	}
	if ev.CourierID != "" {
		add(ChannelSMS, d.SMS, ev.CourierPhone)
	}
	if d.Push != nil && d.Subs != nil {
		key := ev.Phone
		if key == "" {
			key = ev.Email
		}
		targets, err := d.Subs.TargetsFor(ctx, key)
		if err != nil {
			d.Log.Warnw("push target lookup failed", "order_id", ev.OrderID, "error", err)
		}
		for _, tgt := range targets {
			add(ChannelPush, d.Push, tgt)
		}
	}

	var mu sync.Mutex
	outcomes := make([]Outcome, 0, len(attempts))
	g := new(errgroup.Group)
	for _, a := range attempts {
		a := a
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, d.timeout())
			defer cancel()

			err := a.sender.Send(cctx, a.target, msg)
			if err != nil {
				d.Log.Warnw("channel send failed",
					"channel", a.ch, "target", a.target, "order_id", ev.OrderID, "error", err)
				if a.ch == ChannelPush && errors.Is(err, ErrSubscriptionGone) {
					if derr := d.Subs.Delete(ctx, a.target); derr != nil {
						d.Log.Warnw("stale subscription cleanup failed", "target", a.target, "error", derr)
					} else {
						d.Log.Infow("stale push subscription removed", "target", a.target)
					}
				}
			}
			mu.Lock()
			outcomes = append(outcomes, Outcome{Channel: a.ch, Target: a.target, Err: err})
			mu.Unlock()
			return nil // channel failures never propagate
		})
	}
	_ = g.Wait()
	return outcomes
}

func render(ev Event) string {
	switch ev.Kind {
	case KindNewOrder:
		return fmt.Sprintf("Order %s received. We'll let you know when it's on the way.", ev.OrderNumber)
	case KindDeliveryReminder:
		return fmt.Sprintf("Order %s arrives %s.", ev.OrderNumber, ev.DeliverAt.Format("Mon 15:04"))
	default:
		return fmt.Sprintf("Order %s is now %s.", ev.OrderNumber, ev.Status)
	}
}
