// Package users serves customer profiles. Rows are keyed by the identity
// provider's user id; the provider owns credentials and sessions.
package users

import (
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
)

type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone"`
	Image     *string   `json:"image"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfilePatch carries the editable fields; nil means unchanged.
type ProfilePatch struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Image *string `json:"image"`
}

func (p ProfilePatch) empty() bool {
	return p.Name == nil && p.Phone == nil && p.Image == nil
}
