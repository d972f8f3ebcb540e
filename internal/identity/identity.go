// Package identity resolves bearer credentials to callers and carries the caller
// through the request context.
package identity

import "context"

// Role grants access levels to a caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// IsAdmin reports whether the caller holds the administrative role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller may read a resource owned by ownerID.
func (i Identity) CanAccess(ownerID string) bool {
	return i.IsAdmin() || (i.UserID != "" && i.UserID == ownerID)
}

// Resolver turns a bearer credential into an identity.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}

type contextKey struct{}

// WithIdentity stores the caller on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller stored by the authentication middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Directory records callers seen by the service so their name and email can be
// shown next to the orders they own.
type Directory interface {
	Upsert(ctx context.Context, id Identity) error
	Lookup(ctx context.Context, userIDs []string) (map[string]Identity, error)
}
