// Package identity carries the verified caller identity through a request.
//
// Authentication itself happens upstream (token verification is an external
// collaborator); this service receives the already-verified pair via the
// X-User-Id / X-User-Role headers and only performs authorization checks.
package identity

import "context"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleUser:
		return true
	}
	return false
}

// Identity is the verified caller attached to each request.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Owns reports whether the identity owns the given user-scoped resource.
func (i Identity) Owns(userID string) bool { return i.UserID == userID }

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the identity set by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
