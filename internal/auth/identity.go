package auth

import (
	"context"

	"ms-booking/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller, resolved once by the middleware and
// passed explicitly to services from there on.
type Identity struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role"`
}

func (i Identity) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}
