package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgStore is the Postgres-backed Store.
type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const orderColumns = `id::text, customer_id, shipping_address, phone, total_amount, status, created_at, updated_at`

const itemsQuery = `
	SELECT oi.id::text, oi.order_id::text, COALESCE(oi.product_id::text, ''), oi.quantity, oi.price, oi.selected_size,
	       p.id::text, p.name, p.images, p.base_price
	FROM order_items oi
	LEFT JOIN products p ON p.id = oi.product_id
	WHERE oi.order_id = ANY($1::uuid[])
	ORDER BY oi.position`

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.CustomerID, &o.ShippingAddress, &o.Phone, &o.TotalAmount, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.Items = []OrderItem{}
	return &o, nil
}

// loadItems fills Items for every order in byID.
func loadItems(ctx context.Context, q queryer, byID map[string]*Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, uuid.MustParse(id))
	}
	rows, err := q.Query(ctx, itemsQuery, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it        OrderItem
			pid, name *string
			images    []string
			base      decimal.NullDecimal
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.SelectedSize,
			&pid, &name, &images, &base); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if pid != nil {
			it.Product = &ProductSummary{ID: *pid, Name: deref(name), Images: images, BasePrice: base.Decimal}
		}
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func getOrder(ctx context.Context, q queryer, id string, lock bool) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, Errorf(KindNotFound, "order not found")
	}
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Errorf(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if err := loadItems(ctx, q, map[string]*Order{o.ID: o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PgStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	return getOrder(ctx, s.DB, id, false)
}

func (s *PgStore) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if customerID != "" {
		sql += ` WHERE customer_id = $1`
		args = append(args, customerID)
	}
	sql += ` ORDER BY created_at DESC, id`

	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var list []*Order
	byID := map[string]*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if err := loadItems(ctx, s.DB, byID); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(list))
	for _, o := range list {
		out = append(out, *o)
	}
	return out, nil
}

func (s *PgStore) DeleteOrder(ctx context.Context, id string) (*Order, error) {
	var deleted *Order
	err := s.WithTx(ctx, func(tx Tx) error {
		t := tx.(*pgTx)
		o, err := getOrder(ctx, t.tx, id, true)
		if err != nil {
			return err
		}
		// order_items go with the order (ON DELETE CASCADE)
		if _, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		deleted = o
		return nil
	})
	return deleted, err
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockProducts(ctx context.Context, ids []string) (map[string]*Product, error) {
	valid := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			valid = append(valid, u)
		}
	}
	out := make(map[string]*Product, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	// ORDER BY id fixes the lock order across concurrent placements.
	rows, err := t.tx.Query(ctx, `
		SELECT `+ProductColumns+`
		FROM products WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`, valid)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	// callers look products up by the id they sent, which may not be canonical
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		if u, err := uuid.Parse(id); err == nil {
			if p, ok := out[u.String()]; ok {
				out[id] = p
			}
		}
	}
	return out, nil
}

func (t *pgTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return Errorf(KindConflict, "insufficient stock for product %s", productID)
	}
	return nil
}

func (t *pgTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return Errorf(KindNotFound, "product %s not found", productID)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	o.ID = uuid.NewString()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(id, customer_id, shipping_address, phone, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		o.ID, o.CustomerID, o.ShippingAddress, o.Phone, o.TotalAmount, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Classify(fmt.Errorf("insert order: %w", err))
	}

	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		it.ID = uuid.NewString()
		it.OrderID = o.ID
		batch.Queue(`
			INSERT INTO order_items(id, order_id, product_id, quantity, price, selected_size, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price, it.SelectedSize, i)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return Classify(fmt.Errorf("insert order items: %w", err))
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (*Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *pgTx) SetStatus(ctx context.Context, id string, s Status) (time.Time, error) {
	var at time.Time
	err := t.tx.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		id, string(s)).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, Errorf(KindNotFound, "order not found")
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("update order status: %w", err)
	}
	return at, nil
}

// Classify maps Postgres constraint violations onto domain error kinds.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return Errorf(KindConflict, "duplicate entry: %s", pgErr.ConstraintName)
	case "23503":
		return Errorf(KindInvalidInput, "invalid reference: %s", pgErr.ConstraintName)
	case "23514":
		return Errorf(KindConflict, "constraint violated: %s", pgErr.ConstraintName)
	}
	return err
}
