package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderDeleted       = "OrderDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

type ItemLine struct {
	ProductID string          `json:"product_id"`
	Size      string          `json:"size"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID     string          `json:"order_id"`
	CustomerID  string          `json:"customer_id"`
	Items       []ItemLine      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	PlacedAt    time.Time       `json:"placed_at"`
}

type OrderStatusChangedPayload struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	ChangedAt  time.Time `json:"changed_at"`
}

type OrderCancelledPayload struct {
	OrderID    string     `json:"order_id"`
	CustomerID string     `json:"customer_id"`
	Restocked  []ItemLine `json:"restocked"`
	At         time.Time  `json:"at"`
}

type OrderDeletedPayload struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	LastStatus Status    `json:"last_status"`
	At         time.Time `json:"at"`
}

func itemLines(items []OrderItem) []ItemLine {
	out := make([]ItemLine, 0, len(items))
	for _, it := range items {
		out = append(out, ItemLine{ProductID: it.ProductID, Size: it.SelectedSize, Qty: it.Quantity, Price: it.Price})
	}
	return out
}

type traceKey struct{}

// WithTraceID tags ctx with the request id carried into published envelopes.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}
