package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/users"
	"github.com/go-chi/chi/v5"
)

type UserService interface {
	Me(ctx context.Context, id auth.Identity) (*users.Profile, error)
	List(ctx context.Context) ([]users.Profile, error)
	UpdateProfile(ctx context.Context, id auth.Identity, targetID string, p users.ProfilePatch) (*users.Profile, error)
}

type UsersHandler struct {
	Svc      UserService
	Sessions auth.Sessions
	Log      *slog.Logger
	Timeout  time.Duration
}

func (h *UsersHandler) Register(r chi.Router) {
	anyone := auth.Require(h.Sessions, h.Log, auth.RoleCustomer, auth.RoleAdmin)
	admin := auth.Require(h.Sessions, h.Log, auth.RoleAdmin)

	r.Route("/api/user", func(r chi.Router) {
		r.With(anyone).Get("/me", h.me)
		r.With(admin).Get("/all-users", h.list)
		r.With(anyone).Patch("/update-profile", h.updateProfile)
		r.With(admin).Patch("/update-profile/{id}", h.updateProfile)
	})
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	p, err := h.Svc.Me(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Profile retrieved successfully", p)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	list, err := h.Svc.List(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	n := len(list)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "All users fetched successfully", Count: &n, Data: list})
}

func (h *UsersHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var patch users.ProfilePatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := withTimeout(r.Context(), h.Timeout)
	defer cancel()

	p, err := h.Svc.UpdateProfile(ctx, id, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Profile updated successfully", p)
}
