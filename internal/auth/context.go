// ABOUTME: AuthContext type and request-context plumbing
// ABOUTME: Encodes the effective-tenant rule for role-based scoping

package auth

import (
	"context"

	"github.com/botdesk/botdesk/internal/store"
)

// AuthContext carries the authenticated caller's identity through a request.
type AuthContext struct {
	UserID   string
	Role     string
	TenantID string // the user's own tenant; empty for admin and support

	// ActiveTenantID is the tenant an admin has selected to act on.
	// Ignored for other roles.
	ActiveTenantID string
}

// IsAdmin reports whether the caller has the platform admin role.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == store.RoleAdmin
}

// EffectiveTenantID resolves the tenant scope for data access. Users are
// always scoped to their own tenant regardless of any header they send.
// Admins act on their selected tenant (empty until they pick one). Support
// gets the cross-tenant view.
func (a *AuthContext) EffectiveTenantID() string {
	switch a.Role {
	case store.RoleUser:
		return a.TenantID
	case store.RoleAdmin:
		return a.ActiveTenantID
	default:
		return ""
	}
}

type contextKey struct{}

// WithAuth returns a context carrying the auth context.
func WithAuth(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext extracts the auth context, if present.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(*AuthContext)
	return ac, ok
}

// MustFromContext extracts the auth context and panics if absent. Only for
// handlers behind the auth middleware.
func MustFromContext(ctx context.Context) *AuthContext {
	ac, ok := FromContext(ctx)
	if !ok {
		panic("auth context missing; handler not behind auth middleware")
	}
	return ac
}
