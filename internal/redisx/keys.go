package redisx

import "time"

const (
	// Idempotent order placement: idem:order:place:{customer_id}:{key} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s:%s"

	// Cached order status: order_status:{order_id} -> StatusSnapshot JSON
	KeyOrderStatus = "order_status:%s"

	// Deleted order tombstone: order_deleted:{order_id} -> "1"
	KeyOrderDeleted = "order_deleted:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLTombstone   = 48 * time.Hour
)
