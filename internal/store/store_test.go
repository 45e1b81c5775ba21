// ABOUTME: Shared behavioral tests run against both Store implementations
// ABOUTME: Covers CRUD, duplicate detection, ordering, and audit semantics

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenant(name string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		ID:          uuid.NewString(),
		DisplayName: name,
		Kind:        TenantKindManaged,
		Status:      TenantStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newBot(tenantID, name string) *Bot {
	now := time.Now().UTC()
	return &Bot{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Name:           name,
		Description:    "a helpful bot",
		WelcomeMessage: "**Hello!** How can I help?",
		Status:         BotStatusEnabled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newUser(email, role, tenantID string) *ConsoleUser {
	return &ConsoleUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "$2a$10$fakehash",
		Role:         role,
		TenantID:     tenantID,
		CreatedAt:    time.Now().UTC(),
	}
}

// testStoreBehavior exercises the Store contract against an implementation.
func testStoreBehavior(t *testing.T, setup func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("tenant round trip", func(t *testing.T) {
		s := setup(t)
		tenant := newTenant("Acme Corp")
		require.NoError(t, s.CreateTenant(ctx, tenant))

		got, err := s.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", got.DisplayName)
		assert.Equal(t, TenantKindManaged, got.Kind)
		assert.Equal(t, TenantStatusActive, got.Status)
	})

	t.Run("tenant not found", func(t *testing.T) {
		s := setup(t)
		_, err := s.GetTenant(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate tenant display name rejected", func(t *testing.T) {
		s := setup(t)
		require.NoError(t, s.CreateTenant(ctx, newTenant("Acme Corp")))
		err := s.CreateTenant(ctx, newTenant("Acme Corp"))
		assert.ErrorIs(t, err, ErrDuplicateTenant)
	})

	t.Run("list tenants ordered by display name", func(t *testing.T) {
		s := setup(t)
		require.NoError(t, s.CreateTenant(ctx, newTenant("Zenith")))
		require.NoError(t, s.CreateTenant(ctx, newTenant("Acme")))
		require.NoError(t, s.CreateTenant(ctx, newTenant("Mid")))

		tenants, err := s.ListTenants(ctx)
		require.NoError(t, err)
		require.Len(t, tenants, 3)
		assert.Equal(t, "Acme", tenants[0].DisplayName)
		assert.Equal(t, "Mid", tenants[1].DisplayName)
		assert.Equal(t, "Zenith", tenants[2].DisplayName)
	})

	t.Run("update tenant status", func(t *testing.T) {
		s := setup(t)
		tenant := newTenant("Acme")
		require.NoError(t, s.CreateTenant(ctx, tenant))

		tenant.Status = TenantStatusSuspended
		require.NoError(t, s.UpdateTenant(ctx, tenant))

		got, err := s.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, TenantStatusSuspended, got.Status)
	})

	t.Run("update missing tenant", func(t *testing.T) {
		s := setup(t)
		err := s.UpdateTenant(ctx, newTenant("Ghost"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bot round trip and lookup by name", func(t *testing.T) {
		s := setup(t)
		tenant := newTenant("Acme")
		require.NoError(t, s.CreateTenant(ctx, tenant))

		bot := newBot(tenant.ID, "support-bot")
		require.NoError(t, s.CreateBot(ctx, bot))

		got, err := s.GetBot(ctx, bot.ID)
		require.NoError(t, err)
		assert.Equal(t, "support-bot", got.Name)
		assert.Equal(t, "**Hello!** How can I help?", got.WelcomeMessage)

		byName, err := s.GetBotByName(ctx, tenant.ID, "support-bot")
		require.NoError(t, err)
		assert.Equal(t, bot.ID, byName.ID)
	})

	t.Run("duplicate bot name within tenant rejected", func(t *testing.T) {
		s := setup(t)
		tenant := newTenant("Acme")
		require.NoError(t, s.CreateTenant(ctx, tenant))
		require.NoError(t, s.CreateBot(ctx, newBot(tenant.ID, "support-bot")))

		err := s.CreateBot(ctx, newBot(tenant.ID, "support-bot"))
		assert.ErrorIs(t, err, ErrDuplicateBot)
	})

	t.Run("same bot name allowed across tenants", func(t *testing.T) {
		s := setup(t)
		a := newTenant("Acme")
		b := newTenant("Beta")
		require.NoError(t, s.CreateTenant(ctx, a))
		require.NoError(t, s.CreateTenant(ctx, b))

		require.NoError(t, s.CreateBot(ctx, newBot(a.ID, "support-bot")))
		assert.NoError(t, s.CreateBot(ctx, newBot(b.ID, "support-bot")))
	})

	t.Run("list bots scoped to tenant", func(t *testing.T) {
		s := setup(t)
		a := newTenant("Acme")
		b := newTenant("Beta")
		require.NoError(t, s.CreateTenant(ctx, a))
		require.NoError(t, s.CreateTenant(ctx, b))
		require.NoError(t, s.CreateBot(ctx, newBot(a.ID, "bot-1")))
		require.NoError(t, s.CreateBot(ctx, newBot(a.ID, "bot-2")))
		require.NoError(t, s.CreateBot(ctx, newBot(b.ID, "bot-3")))

		bots, err := s.ListBots(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, bots, 2)
		assert.Equal(t, "bot-1", bots[0].Name)
		assert.Equal(t, "bot-2", bots[1].Name)

		all, err := s.ListBots(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("update and delete bot", func(t *testing.T) {
		s := setup(t)
		tenant := newTenant("Acme")
		require.NoError(t, s.CreateTenant(ctx, tenant))
		bot := newBot(tenant.ID, "support-bot")
		require.NoError(t, s.CreateBot(ctx, bot))

		bot.Status = BotStatusDisabled
		bot.WelcomeMessage = "updated"
		require.NoError(t, s.UpdateBot(ctx, bot))

		got, err := s.GetBot(ctx, bot.ID)
		require.NoError(t, err)
		assert.Equal(t, BotStatusDisabled, got.Status)
		assert.Equal(t, "updated", got.WelcomeMessage)

		require.NoError(t, s.DeleteBot(ctx, bot.ID))
		_, err = s.GetBot(ctx, bot.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteBot(ctx, bot.ID), ErrNotFound)
	})

	t.Run("console user round trip and email uniqueness", func(t *testing.T) {
		s := setup(t)
		user := newUser("ops@acme.test", RoleUser, "tenant-1")
		require.NoError(t, s.CreateConsoleUser(ctx, user))

		got, err := s.GetConsoleUserByEmail(ctx, "ops@acme.test")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "tenant-1", got.TenantID)

		byID, err := s.GetConsoleUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "ops@acme.test", byID.Email)

		err = s.CreateConsoleUser(ctx, newUser("ops@acme.test", RoleAdmin, ""))
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("admin user has empty tenant", func(t *testing.T) {
		s := setup(t)
		user := newUser("root@platform.test", RoleAdmin, "")
		require.NoError(t, s.CreateConsoleUser(ctx, user))

		got, err := s.GetConsoleUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, got.TenantID)
	})

	t.Run("audit log newest first with detail", func(t *testing.T) {
		s := setup(t)
		base := time.Now().UTC()
		for i, action := range []string{AuditTenantCreated, AuditBotCreated, AuditBotUpdated} {
			require.NoError(t, s.AppendAudit(ctx, &AuditEntry{
				ID:         uuid.NewString(),
				ActorID:    "actor-1",
				Action:     action,
				TargetType: "bot",
				TargetID:   "bot-1",
				Detail:     map[string]any{"seq": float64(i)},
				CreatedAt:  base.Add(time.Duration(i) * time.Second),
			}))
		}

		entries, err := s.ListAudit(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, AuditBotUpdated, entries[0].Action)
		assert.Equal(t, AuditBotCreated, entries[1].Action)
		assert.Equal(t, float64(2), entries[0].Detail["seq"])
	})
}
