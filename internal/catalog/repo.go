package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	CreateCategory(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CategoryExists(ctx context.Context, id string) (bool, error)

	CreateProduct(ctx context.Context, in ProductInput) (*orders.Product, error)
	GetProduct(ctx context.Context, id string) (*orders.Product, error)
	ListProducts(ctx context.Context, q ListQuery) ([]orders.Product, int, error)
	UpdateProduct(ctx context.Context, id string, p ProductPatch) (*orders.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type PgRepo struct{ DB *pgxpool.Pool }

func (r *PgRepo) CreateCategory(ctx context.Context, name string) (*Category, error) {
	c := Category{Name: name}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO categories(name) VALUES ($1) RETURNING id::text, created_at, updated_at`, name,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		err = orders.Classify(fmt.Errorf("insert category: %w", err))
		if orders.KindOf(err) == orders.KindConflict {
			return nil, orders.Errorf(orders.KindConflict, "category already exists")
		}
		return nil, err
	}
	return &c, nil
}

func (r *PgRepo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id::text, c.name, c.created_at, c.updated_at, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgRepo) DeleteCategory(ctx context.Context, id string) error {
	if !validID(id) {
		return orders.Errorf(orders.KindNotFound, "category not found")
	}
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id::text FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Errorf(orders.KindNotFound, "category not found")
	}
	if err != nil {
		return fmt.Errorf("lock category: %w", err)
	}

	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&n); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return orders.Errorf(orders.KindConflict, "cannot delete category: %d products are assigned to it", n)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return orders.Classify(fmt.Errorf("delete category: %w", err))
	}
	return tx.Commit(ctx)
}

func (r *PgRepo) CategoryExists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return ok, nil
}

func (r *PgRepo) CreateProduct(ctx context.Context, in ProductInput) (*orders.Product, error) {
	vp, err := json.Marshal(in.VariantPrices)
	if err != nil {
		return nil, fmt.Errorf("encode variant prices: %w", err)
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(category_id, name, description, variant_type, base_price, stock, sizes, variant_prices, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+orders.ProductColumns,
		in.CategoryID, in.Name, in.Description, in.VariantType, in.BasePrice, in.Stock, in.Sizes, vp, in.Images)
	p, err := orders.ScanProduct(row)
	if err != nil {
		return nil, orders.Classify(err)
	}
	return p, nil
}

func (r *PgRepo) GetProduct(ctx context.Context, id string) (*orders.Product, error) {
	if !validID(id) {
		return nil, orders.Errorf(orders.KindNotFound, "product not found")
	}
	p, err := orders.ScanProduct(r.DB.QueryRow(ctx, `SELECT `+orders.ProductColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.Errorf(orders.KindNotFound, "product not found")
	}
	return p, err
}

func (r *PgRepo) ListProducts(ctx context.Context, q ListQuery) ([]orders.Product, int, error) {
	where, args := q.where()

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	n := len(args)
	sql := `SELECT ` + orders.ProductColumns + ` FROM products` + where + q.orderBy() +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.DB.Query(ctx, sql, append(args, q.Limit, q.offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []orders.Product{}
	for rows.Next() {
		p, err := orders.ScanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return out, total, nil
}

func (r *PgRepo) UpdateProduct(ctx context.Context, id string, p ProductPatch) (*orders.Product, error) {
	if !validID(id) {
		return nil, orders.Errorf(orders.KindNotFound, "product not found")
	}
	var (
		sets []string
		args = []any{id}
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.VariantType != nil {
		set("variant_type", *p.VariantType)
	}
	if p.Sizes != nil {
		set("sizes", *p.Sizes)
	}
	if p.VariantPrices != nil {
		b, err := json.Marshal(*p.VariantPrices)
		if err != nil {
			return nil, fmt.Errorf("encode variant prices: %w", err)
		}
		set("variant_prices", b)
	}
	if p.BasePrice != nil {
		set("base_price", *p.BasePrice)
	}
	if p.Stock != nil {
		set("stock", *p.Stock)
	}
	if p.Images != nil {
		set("images", *p.Images)
	}
	if p.CategoryID != nil {
		set("category_id", *p.CategoryID)
	}
	if len(sets) == 0 {
		return r.GetProduct(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	row := r.DB.QueryRow(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+orders.ProductColumns, args...)
	out, err := orders.ScanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.Errorf(orders.KindNotFound, "product not found")
	}
	if err != nil {
		return nil, orders.Classify(err)
	}
	return out, nil
}

// DeleteProduct removes a product. Order items keep their snapshot and lose
// the reference (ON DELETE SET NULL).
func (r *PgRepo) DeleteProduct(ctx context.Context, id string) error {
	if !validID(id) {
		return orders.Errorf(orders.KindNotFound, "product not found")
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return orders.Classify(fmt.Errorf("delete product: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return orders.Errorf(orders.KindNotFound, "product not found")
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
