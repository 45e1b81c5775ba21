// ABOUTME: HTTP middleware resolving bearer tokens into auth contexts
// ABOUTME: Applies the X-Active-Tenant header for admin callers only

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// ActiveTenantHeader names the tenant an admin is acting on.
const ActiveTenantHeader = "X-Active-Tenant"

// Middleware verifies bearer tokens and attaches the auth context to the
// request. Requests without a valid token get 401.
type Middleware struct {
	verifier *JWTVerifier
	logger   *slog.Logger
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(verifier *JWTVerifier, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		verifier: verifier,
		logger:   logger.With("component", "auth"),
	}
}

// Require wraps a handler so it only runs with a valid session token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("token verification failed", "error", err)
			unauthorized(w, "invalid or expired token")
			return
		}

		ac := &AuthContext{
			UserID:   claims.UserID,
			Role:     claims.Role,
			TenantID: claims.TenantID,
		}
		// Only admins may select a tenant; the header is ignored for
		// everyone else so users cannot escape their own tenant.
		if ac.IsAdmin() {
			ac.ActiveTenantID = r.Header.Get(ActiveTenantHeader)
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), ac)))
	})
}

// RequireAdmin wraps a handler so it only runs for platform admins. Must be
// nested inside Require.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := FromContext(r.Context())
		if !ok {
			unauthorized(w, "missing bearer token")
			return
		}
		if !ac.IsAdmin() {
			forbidden(w, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func forbidden(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusForbidden, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
