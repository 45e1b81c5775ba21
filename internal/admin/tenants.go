// ABOUTME: Tenant provisioning service
// ABOUTME: Admin-only create/update/suspend with audit logging

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/botdesk/botdesk/internal/store"
)

// Tenant service errors
var (
	ErrTenantNameRequired = errors.New("tenant display name is required")
	ErrInvalidTenantKind  = errors.New("tenant kind must be managed or selfserve")
)

// TenantService manages customer tenants.
type TenantService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTenantService creates the tenant service.
func NewTenantService(st store.Store, logger *slog.Logger) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		store:  st,
		logger: logger.With("component", "admin.tenants"),
	}
}

// CreateTenant provisions a new tenant.
func (s *TenantService) CreateTenant(ctx context.Context, actorID, displayName, kind string) (*store.Tenant, error) {
	if displayName == "" {
		return nil, ErrTenantNameRequired
	}
	if kind == "" {
		kind = store.TenantKindManaged
	}
	if kind != store.TenantKindManaged && kind != store.TenantKindSelfserve {
		return nil, ErrInvalidTenantKind
	}

	now := time.Now().UTC()
	tenant := &store.Tenant{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Kind:        kind,
		Status:      store.TenantStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	s.audit(ctx, actorID, store.AuditTenantCreated, tenant.ID, map[string]any{
		"display_name": displayName,
		"kind":         kind,
	})
	s.logger.Info("tenant created", "tenant_id", tenant.ID, "display_name", displayName)
	return tenant, nil
}

// GetTenant returns one tenant.
func (s *TenantService) GetTenant(ctx context.Context, id string) (*store.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// ListTenants returns all tenants.
func (s *TenantService) ListTenants(ctx context.Context) ([]*store.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// RenameTenant changes a tenant's display name.
func (s *TenantService) RenameTenant(ctx context.Context, actorID, id, displayName string) (*store.Tenant, error) {
	if displayName == "" {
		return nil, ErrTenantNameRequired
	}

	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	tenant.DisplayName = displayName
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("renaming tenant: %w", err)
	}

	s.audit(ctx, actorID, store.AuditTenantUpdated, id, map[string]any{
		"display_name": displayName,
	})
	return tenant, nil
}

// SuspendTenant marks a tenant suspended. Suspension is terminal for
// console purposes; there is no hard delete.
func (s *TenantService) SuspendTenant(ctx context.Context, actorID, id string) (*store.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status == store.TenantStatusSuspended {
		return tenant, nil
	}

	tenant.Status = store.TenantStatusSuspended
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("suspending tenant: %w", err)
	}

	s.audit(ctx, actorID, store.AuditTenantSuspended, id, nil)
	s.logger.Info("tenant suspended", "tenant_id", id)
	return tenant, nil
}

// audit records an administrative action. Audit failures are logged, not
// surfaced; the action itself already succeeded.
func (s *TenantService) audit(ctx context.Context, actorID, action, targetID string, detail map[string]any) {
	entry := &store.AuditEntry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: "tenant",
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("audit append failed", "action", action, "error", err)
	}
}
