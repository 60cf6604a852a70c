package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// sortColumns whitelists the sortBy values clients may send.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"price":     "base_price",
	"basePrice": "base_price",
	"stock":     "stock",
}

// ListQuery is a validated product listing request.
type ListQuery struct {
	SearchTerm string
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SortColumn string
	Desc       bool
	Page       int
	Limit      int
}

func (q ListQuery) offset() int { return (q.Page - 1) * q.Limit }

// ParseListQuery reads listing parameters from a query string. The sort
// shorthand (price-low, price-high) wins over sortBy/sortOrder.
func ParseListQuery(v url.Values) (ListQuery, error) {
	q := ListQuery{
		SearchTerm: strings.TrimSpace(v.Get("searchTerm")),
		CategoryID: strings.TrimSpace(v.Get("category")),
		SortColumn: "created_at",
		Desc:       true,
		Page:       defaultPage,
		Limit:      defaultLimit,
	}

	var err error
	if q.Page, err = positiveInt(v.Get("page"), defaultPage); err != nil {
		return q, orders.Errorf(orders.KindInvalidInput, "invalid page: %s", v.Get("page"))
	}
	if q.Limit, err = positiveInt(v.Get("limit"), defaultLimit); err != nil {
		return q, orders.Errorf(orders.KindInvalidInput, "invalid limit: %s", v.Get("limit"))
	}
	q.Limit = min(q.Limit, maxLimit)

	if q.CategoryID != "" {
		if _, err := uuid.Parse(q.CategoryID); err != nil {
			return q, orders.Errorf(orders.KindInvalidInput, "invalid category id: %s", q.CategoryID)
		}
	}
	if q.MinPrice, err = optionalPrice(v.Get("minPrice")); err != nil {
		return q, orders.Errorf(orders.KindInvalidInput, "invalid minPrice: %s", v.Get("minPrice"))
	}
	if q.MaxPrice, err = optionalPrice(v.Get("maxPrice")); err != nil {
		return q, orders.Errorf(orders.KindInvalidInput, "invalid maxPrice: %s", v.Get("maxPrice"))
	}

	if sb := v.Get("sortBy"); sb != "" {
		col, ok := sortColumns[sb]
		if !ok {
			return q, orders.Errorf(orders.KindInvalidInput, "cannot sort by %s", sb)
		}
		q.SortColumn = col
	}
	switch strings.ToLower(v.Get("sortOrder")) {
	case "":
	case "asc":
		q.Desc = false
	case "desc":
		q.Desc = true
	default:
		return q, orders.Errorf(orders.KindInvalidInput, "sortOrder must be asc or desc")
	}

	switch v.Get("sort") {
	case "price-low":
		q.SortColumn, q.Desc = "base_price", false
	case "price-high":
		q.SortColumn, q.Desc = "base_price", true
	}
	return q, nil
}

func positiveInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}

func optionalPrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// where renders the filter clause and its positional arguments.
func (q ListQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.SearchTerm != "" {
		p := arg("%" + escapeLike(q.SearchTerm) + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if q.CategoryID != "" {
		conds = append(conds, "category_id = "+arg(q.CategoryID)+"::uuid")
	}
	if q.MinPrice != nil {
		conds = append(conds, "base_price >= "+arg(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		conds = append(conds, "base_price <= "+arg(*q.MaxPrice))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q ListQuery) orderBy() string {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id", q.SortColumn, dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
