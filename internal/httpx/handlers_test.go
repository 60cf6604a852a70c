package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenSessions map[string]auth.Identity

func (s tokenSessions) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, auth.ErrNoSession
	}
	return id, nil
}

var sessions = tokenSessions{
	"cust":  {UserID: "c-1", Role: auth.RoleCustomer},
	"admin": {UserID: "a-1", Role: auth.RoleAdmin},
}

type fakeOrders struct {
	placed     orders.PlaceOrderInput
	placedBy   string
	traceID    string
	err        error
	listedRole auth.Role
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, customerID string, in orders.PlaceOrderInput) (*orders.Order, error) {
	f.placed, f.placedBy, f.traceID = in, customerID, orders.TraceID(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Order{ID: "o-1", CustomerID: customerID, Status: orders.StatusPending, TotalAmount: decimal.NewFromInt(360)}, nil
}

func (f *fakeOrders) CancelOrder(ctx context.Context, orderID, requesterID string) (*orders.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Order{ID: orderID, CustomerID: requesterID, Status: orders.StatusCancelled}, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, orderID, status string) (*orders.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	st, _ := orders.ParseStatus(status)
	return &orders.Order{ID: orderID, Status: st}, nil
}

func (f *fakeOrders) DeleteOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Order{ID: orderID}, nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, orderID, requesterID string, role auth.Role) (*orders.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Order{ID: orderID, CustomerID: requesterID}, nil
}

func (f *fakeOrders) ListOrders(ctx context.Context, requesterID string, role auth.Role) ([]orders.Order, error) {
	f.listedRole = role
	return []orders.Order{{ID: "o-1"}, {ID: "o-2"}}, nil
}

func (f *fakeOrders) GetOrderStatus(ctx context.Context, orderID, requesterID string, role auth.Role) (*orders.StatusSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.StatusSnapshot{OrderID: orderID, CustomerID: requesterID, Status: orders.StatusShipped}, nil
}

type fakeCatalog struct {
	query catalog.ListQuery
	err   error
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, name string) (*catalog.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.Category{ID: "cat-1", Name: name}, nil
}
func (f *fakeCatalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{ID: "cat-1", Name: "Kurtas", ProductCount: 2}}, nil
}
func (f *fakeCatalog) DeleteCategory(ctx context.Context, id string) error { return f.err }
func (f *fakeCatalog) CreateProduct(ctx context.Context, in catalog.ProductInput) (*orders.Product, error) {
	return &orders.Product{ID: "p-1", Name: in.Name, BasePrice: in.BasePrice}, nil
}
func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*orders.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Product{ID: id, VariantPrices: orders.VariantPrices{"M": decimal.NewFromInt(120)}}, nil
}
func (f *fakeCatalog) ListProducts(ctx context.Context, q catalog.ListQuery) (*catalog.ProductPage, error) {
	f.query = q
	return &catalog.ProductPage{
		Meta: catalog.Meta{Page: q.Page, Limit: q.Limit, TotalCount: 1, TotalPages: 1},
		Data: []orders.Product{{ID: "p-1"}},
	}, nil
}
func (f *fakeCatalog) UpdateProduct(ctx context.Context, id string, p catalog.ProductPatch) (*orders.Product, error) {
	return &orders.Product{ID: id}, nil
}
func (f *fakeCatalog) DeleteProduct(ctx context.Context, id string) error { return f.err }

func newTestRouter(o *fakeOrders, c *fakeCatalog) *chi.Mux {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(log, nil, nil)
	(&OrdersHandler{Svc: o, Sessions: sessions, Log: log, Timeout: time.Second}).Register(r)
	(&CatalogHandler{Svc: c, Sessions: sessions, Log: log, Timeout: time.Second}).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, token, body string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestPlaceOrder_Created(t *testing.T) {
	o := &fakeOrders{}
	r := newTestRouter(o, &fakeCatalog{})

	body := `{"items":[{"productId":"p1","quantity":3,"size":"M"}],"shippingAddress":"Jl. 1","phone":"0812"}`
	rec, out := do(t, r, http.MethodPost, "/api/order", "cust", body, "Idempotency-Key", " key-1 ")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, out["success"])
	data := out["data"].(map[string]any)
	assert.Equal(t, "o-1", data["id"])
	assert.Equal(t, "360", data["totalAmount"])

	assert.Equal(t, "c-1", o.placedBy)
	assert.Equal(t, "key-1", o.placed.IdempotencyKey)
	require.Len(t, o.placed.Items, 1)
	assert.Equal(t, 3, o.placed.Items[0].Quantity)
	assert.NotEmpty(t, o.traceID)
}

func TestPlaceOrder_BadJSON(t *testing.T) {
	r := newTestRouter(&fakeOrders{}, &fakeCatalog{})
	rec, out := do(t, r, http.MethodPost, "/api/order", "cust", `{"items":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "invalid_input", out["code"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{orders.Errorf(orders.KindInvalidInput, "cart is empty"), http.StatusBadRequest, "cart is empty"},
		{orders.Errorf(orders.KindNotFound, "order not found"), http.StatusNotFound, "order not found"},
		{orders.Errorf(orders.KindConflict, "insufficient stock for Shirt"), http.StatusConflict, "insufficient stock for Shirt"},
		{orders.Errorf(orders.KindForbidden, "you can only cancel your own orders"), http.StatusForbidden, "you can only cancel your own orders"},
		{orders.Errorf(orders.KindInvalidState, "cannot cancel a shipped order"), http.StatusBadRequest, "cannot cancel a shipped order"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			r := newTestRouter(&fakeOrders{err: tt.err}, &fakeCatalog{})
			rec, out := do(t, r, http.MethodPatch, "/api/order/cancel/o-1", "cust", "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, out["message"])
			assert.Equal(t, false, out["success"])
		})
	}
}

func TestOrderRoutes_Auth(t *testing.T) {
	r := newTestRouter(&fakeOrders{}, &fakeCatalog{})

	tests := []struct {
		name, method, path, token, body string
		code                             int
	}{
		{"list without session", http.MethodGet, "/api/order", "", "", http.StatusUnauthorized},
		{"list with unknown token", http.MethodGet, "/api/order", "stale", "", http.StatusUnauthorized},
		{"customer cannot update status", http.MethodPatch, "/api/order/update-status/o-1", "cust", `{"status":"SHIPPED"}`, http.StatusForbidden},
		{"admin updates status", http.MethodPatch, "/api/order/update-status/o-1", "admin", `{"status":"SHIPPED"}`, http.StatusOK},
		{"admin cannot cancel", http.MethodPatch, "/api/order/cancel/o-1", "admin", "", http.StatusForbidden},
		{"customer cancels", http.MethodPatch, "/api/order/cancel/o-1", "cust", "", http.StatusOK},
		{"customer cannot delete", http.MethodDelete, "/api/order/o-1", "cust", "", http.StatusForbidden},
		{"admin deletes", http.MethodDelete, "/api/order/o-1", "admin", "", http.StatusOK},
		{"admin places", http.MethodPost, "/api/order", "admin", `{"items":[]}`, http.StatusCreated},
		{"customer reads status", http.MethodGet, "/api/order/o-1/status", "cust", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, r, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestListOrders_Count(t *testing.T) {
	o := &fakeOrders{}
	r := newTestRouter(o, &fakeCatalog{})

	rec, out := do(t, r, http.MethodGet, "/api/order", "admin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), out["count"])
	assert.Len(t, out["data"], 2)
	assert.Equal(t, auth.RoleAdmin, o.listedRole)
}

func TestUpdateStatus_Message(t *testing.T) {
	r := newTestRouter(&fakeOrders{}, &fakeCatalog{})
	rec, out := do(t, r, http.MethodPatch, "/api/order/update-status/o-1", "admin", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order status successfully updated to DELIVERED", out["message"])
}

func TestGetOrderStatus_Body(t *testing.T) {
	r := newTestRouter(&fakeOrders{}, &fakeCatalog{})
	rec, out := do(t, r, http.MethodGet, "/api/order/o-9/status", "cust", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "o-9", data["order_id"])
	assert.Equal(t, "SHIPPED", data["status"])
}

func TestCatalogRoutes(t *testing.T) {
	c := &fakeCatalog{}
	r := newTestRouter(&fakeOrders{}, c)

	rec, out := do(t, r, http.MethodGet, "/api/product?sort=price-low&page=2&limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	meta := out["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["page"])
	assert.Equal(t, float64(5), meta["limit"])
	assert.Equal(t, "base_price", c.query.SortColumn)
	assert.False(t, c.query.Desc)

	rec, _ = do(t, r, http.MethodGet, "/api/product?page=zero", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = do(t, r, http.MethodGet, "/api/product/p-7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	assert.Equal(t, map[string]any{"M": float64(120)}, data["variantPrices"])

	rec, _ = do(t, r, http.MethodPost, "/api/product", "cust", `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = do(t, r, http.MethodPost, "/api/product", "admin", `{"name":"Kurta","basePrice":"99.90"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "99.9", out["data"].(map[string]any)["basePrice"])

	rec, _ = do(t, r, http.MethodPatch, "/api/product/p-1", "admin", `{"stock":4}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = do(t, r, http.MethodGet, "/api/category", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["count"])

	rec, _ = do(t, r, http.MethodPost, "/api/category", "admin", `{"name":"Kurtas"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCatalogRoutes_Errors(t *testing.T) {
	c := &fakeCatalog{err: orders.Errorf(orders.KindConflict, "cannot delete category: 2 products are assigned to it")}
	r := newTestRouter(&fakeOrders{}, c)

	rec, out := do(t, r, http.MethodDelete, "/api/category/cat-1", "admin", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", out["code"])

	c.err = orders.Errorf(orders.KindNotFound, "product not found")
	rec, _ = do(t, r, http.MethodGet, "/api/product/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(&fakeOrders{}, &fakeCatalog{})
	rec, _ := do(t, r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

type countingRecorder struct{ routes []string }

func (c *countingRecorder) ObserveHTTP(method, route string, code int) {
	c.routes = append(c.routes, method+" "+route)
}

func TestRouter_RecordsRoutePattern(t *testing.T) {
	rec := &countingRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(log, rec, http.NotFoundHandler())
	(&OrdersHandler{Svc: &fakeOrders{}, Sessions: sessions, Log: log}).Register(r)

	do(t, r, http.MethodGet, "/api/order/o-1", "cust", "")
	require.Len(t, rec.routes, 1)
	assert.Equal(t, "GET /api/order/{id}", rec.routes[0])
}
