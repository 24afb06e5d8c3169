package drops

import (
	"context"
	"time"
)

// Drop is a per-product scheduled arrival used to convert waitlist
// intents into real orders once the goods are in.
type Drop struct {
	ID        string
	ProductID string
	BatchID   string
	ArriveAt  time.Time
	Capacity  int // 0 means uncapped
	Active    bool
}

type Store interface {
	Get(ctx context.Context, id string) (Drop, error)
}
