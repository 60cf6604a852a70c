package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store. WithTx works on a copy of the state and
// swaps it in only when fn succeeds, so failed transactions leave no trace.
type memStore struct {
	mu       sync.Mutex
	products map[string]*Product
	orders   map[string]*Order
	clock    time.Time

	// failInsert forces InsertOrder to fail after stock was decremented.
	failInsert error
}

func newMemStore(products ...*Product) *memStore {
	s := &memStore{
		products: map[string]*Product{},
		orders:   map[string]*Order{},
		clock:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, p := range products {
		s.products[p.ID] = cloneProduct(p)
	}
	return s
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, products: map[string]*Product{}, orders: map[string]*Order{}}
	for id, p := range s.products {
		tx.products[id] = cloneProduct(p)
	}
	for id, o := range s.orders {
		tx.orders[id] = cloneOrder(o)
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.products = tx.products
	s.orders = tx.orders
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, Errorf(KindNotFound, "order not found")
	}
	return cloneOrder(o), nil
}

func (s *memStore) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Order{}
	for _, o := range s.orders {
		if customerID == "" || o.CustomerID == customerID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) DeleteOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, Errorf(KindNotFound, "order not found")
	}
	delete(s.orders, id)
	return o, nil
}

type memTx struct {
	s        *memStore
	products map[string]*Product
	orders   map[string]*Order
}

func (t *memTx) LockProducts(ctx context.Context, ids []string) (map[string]*Product, error) {
	out := make(map[string]*Product, len(ids))
	for _, id := range ids {
		if p, ok := t.products[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	p, ok := t.products[productID]
	if !ok || p.Stock < qty {
		return Errorf(KindConflict, "insufficient stock for %s", productID)
	}
	p.Stock -= qty
	return nil
}

func (t *memTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	p, ok := t.products[productID]
	if !ok {
		return Errorf(KindNotFound, "product %s not found", productID)
	}
	p.Stock += qty
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	if t.s.failInsert != nil {
		return t.s.failInsert
	}
	t.s.clock = t.s.clock.Add(time.Second)
	o.ID = uuid.NewString()
	o.CreatedAt = t.s.clock
	o.UpdatedAt = t.s.clock
	for i := range o.Items {
		o.Items[i].ID = fmt.Sprintf("%s-%d", o.ID, i)
		o.Items[i].OrderID = o.ID
	}
	t.orders[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, id string) (*Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, Errorf(KindNotFound, "order not found")
	}
	return cloneOrder(o), nil
}

func (t *memTx) SetStatus(ctx context.Context, id string, st Status) (time.Time, error) {
	o, ok := t.orders[id]
	if !ok {
		return time.Time{}, Errorf(KindNotFound, "order not found")
	}
	t.s.clock = t.s.clock.Add(time.Second)
	o.Status = st
	o.UpdatedAt = t.s.clock
	return o.UpdatedAt, nil
}

func cloneProduct(p *Product) *Product {
	c := *p
	c.Sizes = append([]string(nil), p.Sizes...)
	c.Images = append([]string(nil), p.Images...)
	c.VariantPrices = make(VariantPrices, len(p.VariantPrices))
	for k, v := range p.VariantPrices {
		c.VariantPrices[k] = v
	}
	return &c
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	return &c
}
