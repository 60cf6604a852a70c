package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	CreateCategory(ctx context.Context, name string) (*catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateProduct(ctx context.Context, in catalog.ProductInput) (*orders.Product, error)
	GetProduct(ctx context.Context, id string) (*orders.Product, error)
	ListProducts(ctx context.Context, q catalog.ListQuery) (*catalog.ProductPage, error)
	UpdateProduct(ctx context.Context, id string, p catalog.ProductPatch) (*orders.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type CatalogHandler struct {
	Svc      CatalogService
	Sessions auth.Sessions
	Log      *slog.Logger
	Timeout  time.Duration
}

type createCategoryReq struct {
	Name string `json:"name"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	admin := auth.Require(h.Sessions, h.Log, auth.RoleAdmin)

	r.Route("/api/category", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.With(admin).Post("/", h.createCategory)
		r.With(admin).Delete("/{id}", h.deleteCategory)
	})
	r.Route("/api/product", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.With(admin).Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.With(admin).Patch("/{id}", h.updateProduct)
		r.With(admin).Delete("/{id}", h.deleteProduct)
	})
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	c, err := h.Svc.CreateCategory(ctx, req.Name)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusCreated, "Category created successfully", c)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	list, err := h.Svc.ListCategories(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	n := len(list)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Categories fetched successfully", Count: &n, Data: list})
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Svc.DeleteCategory(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Category deleted successfully", nil)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	p, err := h.Svc.CreateProduct(ctx, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusCreated, "Product created successfully", p)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := catalog.ParseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	page, err := h.Svc.ListProducts(ctx, q)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "All products retrieved successfully", Meta: page.Meta, Data: page.Data})
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	p, err := h.Svc.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product details retrieved", p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.ProductPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	p, err := h.Svc.UpdateProduct(ctx, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product updated successfully", p)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Svc.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product deleted successfully", nil)
}
