// Package identity resolves external identity-provider tokens into a
// verified caller and role.
package identity

import (
	"context"

	"pressroom/internal/models"
)

// Role is the caller's privilege level.
type Role int

const (
	RoleMember Role = iota
	RoleAdmin
)

// ParseRole maps the provider's role claim. Only "admin" grants RoleAdmin.
func ParseRole(claim string) Role {
	if claim == "admin" {
		return RoleAdmin
	}
	return RoleMember
}

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "member"
}

// Identity is the caller of a single request.
type Identity struct {
	Present  bool
	CallerID string
	Role     Role
	Name     string
	Email    string
	Avatar   string
}

// Anonymous is the identity of a request without a session.
var Anonymous = Identity{}

// Member builds a present member identity.
func Member(callerID string) Identity {
	return Identity{Present: true, CallerID: callerID, Role: RoleMember}
}

// Admin builds a present admin identity.
func Admin(callerID string) Identity {
	return Identity{Present: true, CallerID: callerID, Role: RoleAdmin}
}

// IsAdmin reports whether the identity is present and holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Present && i.Role == RoleAdmin
}

// Require fails with Unauthenticated when no identity is present.
func (i Identity) Require() error {
	if !i.Present || i.CallerID == "" {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return nil
}

// RequireAdmin fails with Unauthenticated or Unauthorized unless the
// caller is an admin.
func (i Identity) RequireAdmin(action string) error {
	if err := i.Require(); err != nil {
		return err
	}
	if i.Role != RoleAdmin {
		return models.NewUnauthorizedError("Only admins can " + action)
	}
	return nil
}

// CanActFor reports whether the caller owns ownerID's content or is an admin.
func (i Identity) CanActFor(ownerID string) bool {
	if !i.Present {
		return false
	}
	return i.Role == RoleAdmin || i.CallerID == ownerID
}

type ctxKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Anonymous
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}
