// ABOUTME: In-memory Store implementation for tests
// ABOUTME: Mirrors SQLiteStore semantics including duplicate detection and ordering

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore implements Store in memory. It is safe for concurrent use.
type MockStore struct {
	mu      sync.Mutex
	tenants map[string]*Tenant
	bots    map[string]*Bot
	users   map[string]*ConsoleUser
	audit   []*AuditEntry
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{
		tenants: make(map[string]*Tenant),
		bots:    make(map[string]*Bot),
		users:   make(map[string]*ConsoleUser),
	}
}

// Close is a no-op for the mock store
func (m *MockStore) Close() error {
	return nil
}

// CreateTenant inserts a new tenant
func (m *MockStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tenants {
		if t.DisplayName == tenant.DisplayName {
			return ErrDuplicateTenant
		}
	}
	cp := *tenant
	m.tenants[tenant.ID] = &cp
	return nil
}

// GetTenant retrieves a tenant by ID
func (m *MockStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListTenants returns all tenants ordered by display name
func (m *MockStore) ListTenants(ctx context.Context) ([]*Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tenants []*Tenant
	for _, t := range m.tenants {
		cp := *t
		tenants = append(tenants, &cp)
	}
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].DisplayName < tenants[j].DisplayName
	})
	return tenants, nil
}

// UpdateTenant updates an existing tenant's mutable fields
func (m *MockStore) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tenants[tenant.ID]
	if !ok {
		return ErrNotFound
	}
	for id, t := range m.tenants {
		if id != tenant.ID && t.DisplayName == tenant.DisplayName {
			return ErrDuplicateTenant
		}
	}
	existing.DisplayName = tenant.DisplayName
	existing.Kind = tenant.Kind
	existing.Status = tenant.Status
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateBot inserts a new bot
func (m *MockStore) CreateBot(ctx context.Context, bot *Bot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bots {
		if b.TenantID == bot.TenantID && b.Name == bot.Name {
			return ErrDuplicateBot
		}
	}
	cp := *bot
	m.bots[bot.ID] = &cp
	return nil
}

// GetBot retrieves a bot by ID
func (m *MockStore) GetBot(ctx context.Context, id string) (*Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// GetBotByName retrieves a bot by its name within a tenant
func (m *MockStore) GetBotByName(ctx context.Context, tenantID, name string) (*Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bots {
		if b.TenantID == tenantID && b.Name == name {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListBots returns a tenant's bots ordered by name. An empty tenantID
// returns all bots across tenants.
func (m *MockStore) ListBots(ctx context.Context, tenantID string) ([]*Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bots []*Bot
	for _, b := range m.bots {
		if tenantID != "" && b.TenantID != tenantID {
			continue
		}
		cp := *b
		bots = append(bots, &cp)
	}
	sort.Slice(bots, func(i, j int) bool {
		return bots[i].Name < bots[j].Name
	})
	return bots, nil
}

// UpdateBot updates an existing bot's mutable fields
func (m *MockStore) UpdateBot(ctx context.Context, bot *Bot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.bots[bot.ID]
	if !ok {
		return ErrNotFound
	}
	for id, b := range m.bots {
		if id != bot.ID && b.TenantID == existing.TenantID && b.Name == bot.Name {
			return ErrDuplicateBot
		}
	}
	existing.Name = bot.Name
	existing.Description = bot.Description
	existing.WelcomeMessage = bot.WelcomeMessage
	existing.Status = bot.Status
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteBot removes a bot
func (m *MockStore) DeleteBot(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bots[id]; !ok {
		return ErrNotFound
	}
	delete(m.bots, id)
	return nil
}

// CreateConsoleUser inserts a new console user
func (m *MockStore) CreateConsoleUser(ctx context.Context, user *ConsoleUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// GetConsoleUser retrieves a console user by ID
func (m *MockStore) GetConsoleUser(ctx context.Context, id string) (*ConsoleUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetConsoleUserByEmail retrieves a console user by email
func (m *MockStore) GetConsoleUserByEmail(ctx context.Context, email string) (*ConsoleUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// AppendAudit records an administrative action
func (m *MockStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.audit = append(m.audit, &cp)
	return nil
}

// ListAudit returns the most recent audit entries, newest first
func (m *MockStore) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	entries := make([]*AuditEntry, len(m.audit))
	for i, e := range m.audit {
		cp := *e
		entries[i] = &cp
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
