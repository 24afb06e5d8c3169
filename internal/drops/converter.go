package drops

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/freshcrate/go-drop-orders/internal/orders"
	"github.com/freshcrate/go-drop-orders/internal/waitlist"
)

// Summary reports one conversion run.
type Summary struct {
	Attempted int      `json:"attempted"`
	Created   int      `json:"created"`
	OrderIDs  []string `json:"order_ids"`
}

// Converter drains a drop's pending waitlist entries into confirmed
// orders when the goods arrive. Entries are processed in isolation: one
// entry's failure never aborts the rest, it stays pending for the next
// run. A per-drop mutex serializes concurrent runs on the same drop so an
// impatient admin double-click cannot double-convert.
type Converter struct {
	Drops    Store
	Waitlist waitlist.Store
	Orders   *orders.Service
	Log      *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*dropLock
}

// dropLock is refcounted so idle entries can be evicted from the map;
// without that the map would grow with every distinct drop id for the
// life of the process.
type dropLock struct {
	sync.Mutex
	refs int
}

func (c *Converter) acquireDrop(dropID string) *dropLock {
	c.mu.Lock()
	if c.locks == nil {
		c.locks = make(map[string]*dropLock)
	}
	l, ok := c.locks[dropID]
	if !ok {
		l = &dropLock{}
		c.locks[dropID] = l
	}
	l.refs++
	c.mu.Unlock()
	l.Lock()
	return l
}

func (c *Converter) releaseDrop(dropID string, l *dropLock) {
	l.Unlock()
	c.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, dropID)
	}
	c.mu.Unlock()
}

// Process converts every pending entry of the drop. Re-running on a drop
// with no new entries yields Created == 0, since fulfilled entries are
// skipped at the store.
func (c *Converter) Process(ctx context.Context, dropID string) (Summary, error) {
	lock := c.acquireDrop(dropID)
	defer c.releaseDrop(dropID, lock)

	d, err := c.Drops.Get(ctx, dropID)
	if err != nil {
		return Summary{}, err
	}
	entries, err := c.Waitlist.PendingForDrop(ctx, dropID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Attempted: len(entries)}
	for _, e := range entries {
		o, err := c.convertEntry(ctx, d, e)
		if err != nil {
			c.Log.Warnw("entry conversion failed, left pending",
				"drop_id", dropID, "entry_id", e.ID, "error", err)
			continue
		}
		sum.Created++
		sum.OrderIDs = append(sum.OrderIDs, o.ID)
	}
	c.Log.Infow("drop processed",
		"drop_id", dropID, "attempted", sum.Attempted, "created", sum.Created)
	return sum, nil
}

func (c *Converter) convertEntry(ctx context.Context, d Drop, e waitlist.Entry) (orders.Order, error) {
	deliverAt := d.ArriveAt.Add(24 * time.Hour) // default when no preferred date
	if e.PreferredAt != nil {
		deliverAt = *e.PreferredAt
	}

	o, err := c.Orders.Create(ctx, orders.Draft{
		Lines: []orders.Line{{
			ProductID:  e.ProductID,
			VariantID:  e.VariantID,
			Qty:        e.Qty,
			PriceCents: e.PriceCents, // captured at submission
		}},
		CustomerName: e.Contact.Name,
		Phone:        e.Contact.Phone,
		Email:        e.Contact.Email,
		Address:      e.Contact.Address,
		DeliverAt:    deliverAt,
		Source:       "waitlist",
	})
	if err != nil {
		return orders.Order{}, err
	}
	if err := c.Waitlist.MarkFulfilled(ctx, e.ID, o.ID); err != nil {
		// The order exists but the entry stayed pending; surface it so the
		// next run does not silently double-create.
		return orders.Order{}, err
	}
	c.Orders.EmitDeliveryReminder(o)
	return o, nil
}
