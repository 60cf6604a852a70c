package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, customerID string, in orders.PlaceOrderInput) (*orders.Order, error)
	CancelOrder(ctx context.Context, orderID, requesterID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*orders.Order, error)
	DeleteOrder(ctx context.Context, orderID string) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID, requesterID string, role auth.Role) (*orders.Order, error)
	ListOrders(ctx context.Context, requesterID string, role auth.Role) ([]orders.Order, error)
	GetOrderStatus(ctx context.Context, orderID, requesterID string, role auth.Role) (*orders.StatusSnapshot, error)
}

type OrdersHandler struct {
	Svc      OrderService
	Sessions auth.Sessions
	Log      *slog.Logger
	Timeout  time.Duration
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	anyone := auth.Require(h.Sessions, h.Log, auth.RoleCustomer, auth.RoleAdmin)
	admin := auth.Require(h.Sessions, h.Log, auth.RoleAdmin)
	customer := auth.Require(h.Sessions, h.Log, auth.RoleCustomer)

	r.Route("/api/order", func(r chi.Router) {
		r.With(anyone).Get("/", h.listOrders)
		r.With(anyone).Post("/", h.placeOrder)
		r.With(admin).Patch("/update-status/{id}", h.updateStatus)
		r.With(customer).Patch("/cancel/{id}", h.cancelOrder)
		r.With(anyone).Get("/{id}", h.getOrder)
		r.With(anyone).Get("/{id}/status", h.getOrderStatus)
		r.With(admin).Delete("/{id}", h.deleteOrder)
	})
}

// scope bounds the request and tags it with the request id for published events.
func (h *OrdersHandler) scope(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	return withTimeout(ctx, h.Timeout)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in orders.PlaceOrderInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	ctx, cancel := h.scope(r)
	defer cancel()

	o, err := h.Svc.PlaceOrder(ctx, id.UserID, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusCreated, "Order placed successfully", o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := h.scope(r)
	defer cancel()

	list, err := h.Svc.ListOrders(ctx, id.UserID, id.Role)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	n := len(list)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Orders fetched successfully", Count: &n, Data: list})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := h.scope(r)
	defer cancel()

	o, err := h.Svc.GetOrder(ctx, chi.URLParam(r, "id"), id.UserID, id.Role)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Order details retrieved", o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := h.scope(r)
	defer cancel()

	snap, err := h.Svc.GetOrderStatus(ctx, chi.URLParam(r, "id"), id.UserID, id.Role)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Order status retrieved", snap)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := h.scope(r)
	defer cancel()

	o, err := h.Svc.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Order status successfully updated to "+string(o.Status), o)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := h.scope(r)
	defer cancel()

	o, err := h.Svc.CancelOrder(ctx, chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Your order has been cancelled and stock has been restored", o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.scope(r)
	defer cancel()

	o, err := h.Svc.DeleteOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Order has been permanently removed", o)
}
