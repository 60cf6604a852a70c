package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

type Service struct {
	Repo Repository
	Log  *slog.Logger
}

// Me returns the caller's profile, creating it on first use.
func (s *Service) Me(ctx context.Context, id auth.Identity) (*Profile, error) {
	if id.UserID == "" {
		return nil, orders.Errorf(orders.KindForbidden, "you are not logged in")
	}
	return s.Repo.Ensure(ctx, id.UserID, id.Role)
}

func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.Repo.List(ctx)
}

// UpdateProfile edits targetID's profile, or the caller's own when targetID is
// empty. Only admins may edit someone else.
func (s *Service) UpdateProfile(ctx context.Context, id auth.Identity, targetID string, p ProfilePatch) (*Profile, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		targetID = id.UserID
	}
	if targetID == "" {
		return nil, orders.Errorf(orders.KindInvalidInput, "target user id is missing")
	}
	if targetID != id.UserID && !id.IsAdmin() {
		return nil, orders.Errorf(orders.KindForbidden, "you are not authorized to update this profile")
	}

	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return nil, orders.Errorf(orders.KindInvalidInput, "name cannot be empty")
		}
		p.Name = &n
	}
	if p.Phone != nil {
		ph := strings.TrimSpace(*p.Phone)
		p.Phone = &ph
	}

	if targetID == id.UserID {
		if _, err := s.Repo.Ensure(ctx, id.UserID, id.Role); err != nil {
			return nil, err
		}
	}
	if p.empty() {
		return s.Repo.Get(ctx, targetID)
	}

	out, err := s.Repo.Update(ctx, targetID, p)
	if err != nil {
		return nil, err
	}
	s.Log.InfoContext(ctx, "profile updated", "user_id", targetID, "by", id.UserID)
	return out, nil
}
