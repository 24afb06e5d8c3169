package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string // targets
	fail error
}

func (f *fakeSender) Send(ctx context.Context, target, payload string) error {
	f.mu.Lock()
	f.sent = append(f.sent, target)
	f.mu.Unlock()
	return f.fail
}

func (f *fakeSender) targets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeSubs struct {
	mu      sync.Mutex
	targets []string
	deleted []string
}

func (f *fakeSubs) TargetsFor(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.targets...), nil
}

func (f *fakeSubs) Delete(ctx context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, target)
	return nil
}

func event() Event {
	return Event{
		Kind:         KindStatusChange,
		OrderID:      "o1",
		OrderNumber:  "FD-250905-3A1F",
		Status:       "PREP",
		CustomerName: "Mara Lindt",
		Phone:        "+4915112345",
		Email:        "mara@example.org",
	}
}

func TestOneChannelFailureDoesNotBlockOthers(t *testing.T) {
	sms := &fakeSender{fail: errors.New("gateway 500")}
	email := &fakeSender{}
	subs := &fakeSubs{targets: []string{"push-token-1"}}
	push := &fakeSender{}

	d := &Dispatcher{
		SMS: sms, Email: email, Push: push,
		Subs: subs,
		Log:  zap.NewNop().Sugar(),
	}
	outcomes := d.Dispatch(context.Background(), event())

	if len(email.targets()) != 1 || len(push.targets()) != 1 {
		t.Fatalf("email/push did not run after sms failure: email=%v push=%v",
			email.targets(), push.targets())
	}
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			if o.Channel != ChannelSMS {
				t.Fatalf("unexpected failing channel %s", o.Channel)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("failed outcomes = %d, want 1", failed)
	}
}

func TestUnconfiguredChannelSkipped(t *testing.T) {
	email := &fakeSender{}
	d := &Dispatcher{
		Email: email, // sms, chat, push all unconfigured
		Log:   zap.NewNop().Sugar(),
	}
	outcomes := d.Dispatch(context.Background(), event())
	if len(outcomes) != 1 || outcomes[0].Channel != ChannelEmail {
		t.Fatalf("outcomes = %+v, want email only", outcomes)
	}
}

func TestGoneSubscriptionDeleted(t *testing.T) {
	subs := &fakeSubs{targets: []string{"stale-token"}}
	push := &fakeSender{fail: ErrSubscriptionGone}
	d := &Dispatcher{
		Push: push,
		Subs: subs,
		Log:  zap.NewNop().Sugar(),
	}
	d.Dispatch(context.Background(), event())

	subs.mu.Lock()
	defer subs.mu.Unlock()
	if len(subs.deleted) != 1 || subs.deleted[0] != "stale-token" {
		t.Fatalf("deleted = %v, want [stale-token]", subs.deleted)
	}
}

func TestStaffChannelOnlyForOperationalEvents(t *testing.T) {
	staff := &fakeSender{}
	d := &Dispatcher{
		Staff:       staff,
		StaffTarget: "ops-room",
		Log:         zap.NewNop().Sugar(),
	}

	d.Dispatch(context.Background(), event()) // NotifyStaff unset
	if len(staff.targets()) != 0 {
		t.Fatalf("staff notified without routing flag")
	}

	ev := event()
	ev.NotifyStaff = true
	d.Dispatch(context.Background(), ev)
	if got := staff.targets(); len(got) != 1 || got[0] != "ops-room" {
		t.Fatalf("staff targets = %v", got)
	}
}

func TestCourierCopyWhenAssigned(t *testing.T) {
	sms := &fakeSender{}
	d := &Dispatcher{SMS: sms, Log: zap.NewNop().Sugar()}

	ev := event()
	ev.CourierID = "courier-7"
	ev.CourierPhone = "+4915199999"
	d.Dispatch(context.Background(), ev)

	got := sms.targets()
	if len(got) != 2 {
		t.Fatalf("sms targets = %v, want customer and courier", got)
	}
}
