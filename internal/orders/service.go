package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service places orders and drives their lifecycle. Publisher, Cache,
// Idempotency, Metrics and Log are optional.
type Service struct {
	Store       Store
	Publisher   Publisher
	Cache       StatusCache
	Idempotency Idempotency
	Metrics     Recorder
	Log         *slog.Logger
	ServiceName string
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Log
}

// PlaceOrder validates the cart against live inventory, reserves stock and
// persists the order in a single transaction.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, in PlaceOrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, Errorf(KindInvalidInput, "cart is empty")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" || strings.TrimSpace(in.Phone) == "" {
		return nil, Errorf(KindInvalidInput, "shipping address and phone are required")
	}

	if o := s.replay(ctx, customerID, in.IdempotencyKey); o != nil {
		return o, nil
	}

	start := time.Now()
	var order *Order
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		o, err := placeInTx(ctx, tx, customerID, in)
		order = o
		return err
	})
	s.observe("place", start, err)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" && s.Idempotency != nil {
		if err := s.Idempotency.Remember(ctx, customerID, in.IdempotencyKey, order.ID); err != nil {
			s.log().WarnContext(ctx, "remember idempotency key", "order_id", order.ID, "err", err)
		}
	}
	s.cacheStatus(ctx, order)
	s.emit(ctx, TopicOrderPlaced, EventOrderPlaced, order.ID, OrderPlacedPayload{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Items:       itemLines(order.Items),
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		PlacedAt:    order.CreatedAt,
	})
	if s.Metrics != nil {
		s.Metrics.OrderPlaced(order.TotalAmount.InexactFloat64())
	}
	s.log().InfoContext(ctx, "order placed",
		"order_id", order.ID, "customer_id", customerID,
		"items", len(order.Items), "total", order.TotalAmount.String())
	return order, nil
}

func placeInTx(ctx context.Context, tx Tx, customerID string, in PlaceOrderInput) (*Order, error) {
	products, err := tx.LockProducts(ctx, distinctProductIDs(in.Items))
	if err != nil {
		return nil, err
	}

	order := &Order{
		CustomerID:      customerID,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Phone:           strings.TrimSpace(in.Phone),
		Status:          StatusPending,
		TotalAmount:     decimal.Zero,
		Items:           make([]OrderItem, 0, len(in.Items)),
	}
	for i, line := range in.Items {
		if strings.TrimSpace(line.Size) == "" {
			return nil, Errorf(KindInvalidInput, "size required for item %d", i+1)
		}
		if line.Quantity <= 0 {
			return nil, Errorf(KindInvalidInput, "quantity must be at least 1 for item %d", i+1)
		}
		p, ok := products[line.ProductID]
		if !ok {
			return nil, Errorf(KindNotFound, "product %s not found", line.ProductID)
		}
		if !p.HasSize(line.Size) {
			return nil, Errorf(KindInvalidInput, "size %s is not available for %s", line.Size, p.Name)
		}
		if p.Stock < line.Quantity {
			return nil, Errorf(KindConflict, "insufficient stock for %s", p.Name)
		}

		price := ResolvePrice(p, line.Size)
		if err := tx.DecrementStock(ctx, p.ID, line.Quantity); err != nil {
			return nil, err
		}
		// later lines for the same product see the reduced figure
		p.Stock -= line.Quantity

		item := OrderItem{
			ProductID:    p.ID,
			Quantity:     line.Quantity,
			Price:        price,
			SelectedSize: line.Size,
			Product:      p.Summary(),
		}
		order.TotalAmount = order.TotalAmount.Add(item.Subtotal())
		order.Items = append(order.Items, item)
	}

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// distinctProductIDs returns the cart's product ids sorted, so concurrent
// placements lock rows in the same order.
func distinctProductIDs(lines []CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)
	return ids
}

func (s *Service) replay(ctx context.Context, customerID, key string) *Order {
	if key == "" || s.Idempotency == nil {
		return nil
	}
	orderID, ok, err := s.Idempotency.Lookup(ctx, customerID, key)
	if err != nil {
		s.log().WarnContext(ctx, "idempotency lookup", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil || o.CustomerID != customerID {
		return nil
	}
	s.log().InfoContext(ctx, "order replayed", "order_id", o.ID, "customer_id", customerID)
	return o
}

// CancelOrder lets the owner cancel a pending order, returning every item's
// quantity to stock in the same transaction that flips the status.
func (s *Service) CancelOrder(ctx context.Context, orderID, requesterID string) (*Order, error) {
	start := time.Now()
	var order *Order
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.CustomerID != requesterID {
			return Errorf(KindForbidden, "you can only cancel your own orders")
		}
		if !CanCancel(o.Status) {
			return Errorf(KindInvalidState, "cannot cancel a %s order", strings.ToLower(string(o.Status)))
		}
		for _, it := range o.Items {
			if it.ProductID == "" {
				return Errorf(KindInvalidInput, "invalid product reference in order item %s", it.ID)
			}
			if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		at, err := tx.SetStatus(ctx, o.ID, StatusCancelled)
		if err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.UpdatedAt = at
		order = o
		return nil
	})
	s.observe("cancel", start, err)
	if err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, order)
	s.emit(ctx, TopicOrderCancelled, EventOrderCancelled, order.ID, OrderCancelledPayload{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Restocked:  itemLines(order.Items),
		At:         order.UpdatedAt,
	})
	if s.Metrics != nil {
		s.Metrics.OrderCancelled()
	}
	s.log().InfoContext(ctx, "order cancelled", "order_id", order.ID, "customer_id", requesterID)
	return order, nil
}

// UpdateStatus overwrites an order's status on behalf of an administrator.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	next, ok := ParseStatus(status)
	if !ok {
		return nil, Errorf(KindInvalidInput, "unknown order status %q", status)
	}

	start := time.Now()
	var (
		order *Order
		prev  Status
	)
	err := s.Store.WithTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, next) {
			return Errorf(KindInvalidState, "cannot move order from %s to %s", o.Status, next)
		}
		at, err := tx.SetStatus(ctx, o.ID, next)
		if err != nil {
			return err
		}
		prev = o.Status
		o.Status = next
		o.UpdatedAt = at
		order = o
		return nil
	})
	s.observe("update_status", start, err)
	if err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, order)
	s.emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, order.ID, OrderStatusChangedPayload{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		From:       prev,
		To:         next,
		ChangedAt:  order.UpdatedAt,
	})
	s.log().InfoContext(ctx, "order status updated", "order_id", order.ID, "from", prev, "to", next)
	return order, nil
}

// DeleteOrder hard-deletes an order and its items. Stock is not restored.
func (s *Service) DeleteOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.Store.DeleteOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Forget(ctx, o.ID); err != nil {
			s.log().WarnContext(ctx, "forget cached status", "order_id", o.ID, "err", err)
		}
	}
	s.emit(ctx, TopicOrderDeleted, EventOrderDeleted, o.ID, OrderDeletedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		LastStatus: o.Status,
		At:         time.Now().UTC(),
	})
	s.log().InfoContext(ctx, "order deleted", "order_id", o.ID)
	return o, nil
}

// GetOrder returns an order visible to the requester: its owner or an admin.
func (s *Service) GetOrder(ctx context.Context, orderID, requesterID string, role auth.Role) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(o.CustomerID, requesterID, role) {
		return nil, Errorf(KindForbidden, "unauthorized access to this order")
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, requesterID string, role auth.Role) ([]Order, error) {
	customer := requesterID
	if role == auth.RoleAdmin {
		customer = ""
	}
	return s.Store.ListOrders(ctx, customer)
}

// GetOrderStatus serves the status from cache, falling back to the store.
func (s *Service) GetOrderStatus(ctx context.Context, orderID, requesterID string, role auth.Role) (*StatusSnapshot, error) {
	if s.Cache != nil {
		if snap, err := s.Cache.GetStatus(ctx, orderID); err == nil {
			if !canView(snap.CustomerID, requesterID, role) {
				return nil, Errorf(KindForbidden, "unauthorized access to this order")
			}
			return snap, nil
		}
	}
	o, err := s.GetOrder(ctx, orderID, requesterID, role)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	snap := o.Snapshot()
	return &snap, nil
}

func canView(ownerID, requesterID string, role auth.Role) bool {
	return role == auth.RoleAdmin || ownerID == requesterID
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetStatus(ctx, o.Snapshot()); err != nil {
		s.log().WarnContext(ctx, "cache order status", "order_id", o.ID, "err", err)
	}
}

func (s *Service) emit(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.Publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.log().ErrorContext(ctx, "marshal event payload", "event", eventType, "err", err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       TraceID(ctx),
		CorrelationID: orderID,
		Payload:       body,
	}
	b, err := json.Marshal(env)
	if err != nil {
		s.log().ErrorContext(ctx, "marshal event", "event", eventType, "err", err)
		return
	}
	s.Publisher.Publish(topic, PartitionKey(orderID), b)
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.Metrics.ObserveTx(op, outcome, time.Since(start))
}
