// Package auth resolves the caller's identity from a session issued by the
// external identity provider and guards routes by role.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

var ErrNoSession = errors.New("session not found")

// Sessions looks up the identity behind a session token.
type Sessions interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// KeySession is where the identity provider stores sessions: session:{token} -> {"user_id","role"}.
const KeySession = "session:%s"

type RedisSessions struct {
	Client *redis.Client
}

func (s *RedisSessions) Resolve(ctx context.Context, token string) (Identity, error) {
	b, err := s.Client.Get(ctx, fmt.Sprintf(KeySession, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrNoSession
	}
	if err != nil {
		return Identity{}, fmt.Errorf("redis get session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	if id.UserID == "" {
		return Identity{}, ErrNoSession
	}
	id.Role = Role(strings.ToUpper(string(id.Role)))
	return id, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	if c, err := r.Cookie("session_token"); err == nil {
		return c.Value
	}
	return ""
}

// Require resolves the session and rejects callers whose role is not listed.
// With no roles any authenticated caller passes.
func Require(sessions Sessions, log *slog.Logger, roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "Unauthorized Access")
				return
			}
			id, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					log.ErrorContext(r.Context(), "resolve session", "err", err)
				}
				deny(w, http.StatusUnauthorized, "Unauthorized Access")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, id.Role) {
				deny(w, http.StatusForbidden, "Permission Denied: You don't have the required role")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
