// ABOUTME: Store interface and data types for admin console persistence
// ABOUTME: Defines Tenant, Bot, ConsoleUser, AuditEntry and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateTenant is returned when a tenant with the same display name already exists
var ErrDuplicateTenant = errors.New("tenant already exists")

// ErrDuplicateBot is returned when a tenant already has a bot with the same name
var ErrDuplicateBot = errors.New("bot already exists")

// ErrDuplicateEmail is returned when a console user with the same email already exists
var ErrDuplicateEmail = errors.New("email already registered")

// Tenant kinds. Managed tenants are provisioned by support staff;
// selfserve tenants signed up on their own.
const (
	TenantKindManaged   = "managed"
	TenantKindSelfserve = "selfserve"
)

// Tenant statuses
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Tenant represents one customer account
type Tenant struct {
	ID          string
	DisplayName string
	Kind        string // "managed" or "selfserve"
	Status      string // "active" or "suspended"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Bot statuses
const (
	BotStatusEnabled  = "enabled"
	BotStatusDisabled = "disabled"
)

// Bot represents one chatbot owned by a tenant. WelcomeMessage is markdown;
// it is rendered to HTML when the widget config is served.
type Bot struct {
	ID             string
	TenantID       string
	Name           string
	Description    string
	WelcomeMessage string
	Status         string // "enabled" or "disabled"
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Console user roles
const (
	RoleAdmin   = "admin"   // platform staff: full cross-tenant access
	RoleUser    = "user"    // customer: scoped to their own tenant
	RoleSupport = "support" // read-only cross-tenant access
)

// ConsoleUser represents a login to the admin console
type ConsoleUser struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string // "admin", "user", or "support"
	TenantID     string // empty for admin and support roles
	CreatedAt    time.Time
}

// Audit actions
const (
	AuditTenantCreated   = "tenant.created"
	AuditTenantUpdated   = "tenant.updated"
	AuditTenantSuspended = "tenant.suspended"
	AuditBotCreated      = "bot.created"
	AuditBotUpdated      = "bot.updated"
	AuditBotDeleted      = "bot.deleted"
	AuditUserLoggedIn    = "user.logged_in"
)

// AuditEntry records one administrative action
type AuditEntry struct {
	ID         string
	ActorID    string
	Action     string
	TargetType string // "tenant", "bot", "user"
	TargetID   string
	Detail     map[string]any
	CreatedAt  time.Time
}

// Store defines the interface for console persistence
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	UpdateTenant(ctx context.Context, tenant *Tenant) error

	// Bots
	CreateBot(ctx context.Context, bot *Bot) error
	GetBot(ctx context.Context, id string) (*Bot, error)
	GetBotByName(ctx context.Context, tenantID, name string) (*Bot, error)
	ListBots(ctx context.Context, tenantID string) ([]*Bot, error)
	UpdateBot(ctx context.Context, bot *Bot) error
	DeleteBot(ctx context.Context, id string) error

	// Console users
	CreateConsoleUser(ctx context.Context, user *ConsoleUser) error
	GetConsoleUser(ctx context.Context, id string) (*ConsoleUser, error)
	GetConsoleUserByEmail(ctx context.Context, email string) (*ConsoleUser, error)

	// Audit log
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error)

	// Close releases database resources
	Close() error
}
