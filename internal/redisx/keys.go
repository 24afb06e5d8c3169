package redisx

import "time"

const (
	// Cache order status for dashboard reads: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing in the notifier: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
