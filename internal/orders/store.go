package orders

import (
	"context"
	"time"
)

// Store is the transactional persistence the order engine runs against.
type Store interface {
	// WithTx runs fn in one transaction. A non-nil error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id string) (*Order, error)
	// ListOrders returns orders newest first; an empty customerID lists all.
	ListOrders(ctx context.Context, customerID string) ([]Order, error)
	DeleteOrder(ctx context.Context, id string) (*Order, error)
}

// Tx is the set of statements the engine issues inside a transaction.
type Tx interface {
	// LockProducts reads and row-locks the given products. Unknown ids are absent from the result.
	LockProducts(ctx context.Context, ids []string) (map[string]*Product, error)
	// DecrementStock fails with a Conflict error if stock would drop below zero.
	DecrementStock(ctx context.Context, productID string, qty int) error
	// IncrementStock fails with a NotFound error if the product no longer exists.
	IncrementStock(ctx context.Context, productID string, qty int) error
	// InsertOrder persists o and its items, filling ids and timestamps.
	InsertOrder(ctx context.Context, o *Order) error
	// LockOrder loads an order with its items and row-locks it.
	LockOrder(ctx context.Context, id string) (*Order, error)
	SetStatus(ctx context.Context, id string, s Status) (time.Time, error)
}

// Publisher sends an event to a topic after the owning transaction commits.
type Publisher interface {
	Publish(topic string, key, value []byte)
}

// StatusCache is a read-through cache of order status snapshots.
type StatusCache interface {
	GetStatus(ctx context.Context, orderID string) (*StatusSnapshot, error)
	SetStatus(ctx context.Context, s StatusSnapshot) error
	Forget(ctx context.Context, orderID string) error
}

// Idempotency remembers which order a customer's idempotency key produced.
type Idempotency interface {
	Lookup(ctx context.Context, customerID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, customerID, key, orderID string) error
}

// Recorder observes engine outcomes.
type Recorder interface {
	ObserveTx(op, outcome string, d time.Duration)
	OrderPlaced(total float64)
	OrderCancelled()
}
