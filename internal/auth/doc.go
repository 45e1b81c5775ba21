// Package auth handles console authentication: password verification, JWT
// issue/verify, and the HTTP middleware that resolves a request's auth
// context including the effective tenant scope.
//
// Tenant scoping follows the caller's role: users are pinned to their own
// tenant, admins act on the tenant selected via the X-Active-Tenant header,
// and support staff see across tenants (empty scope).
package auth
