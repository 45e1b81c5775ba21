// ABOUTME: Tests for the bot management service
// ABOUTME: Covers tenant scoping, suspended-tenant guard, and widget config rendering

package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botdesk/botdesk/internal/store"
)

func setupBotService(t *testing.T) (*BotService, *TenantService, *store.Tenant) {
	t.Helper()
	st := store.NewMockStore()
	tenants := NewTenantService(st, nil)
	bots := NewBotService(st, nil)

	tenant, err := tenants.CreateTenant(context.Background(), "actor-1", "Acme", "")
	require.NoError(t, err)
	return bots, tenants, tenant
}

func TestBotService_CreateRequiresTenantScope(t *testing.T) {
	bots, _, _ := setupBotService(t)

	_, err := bots.CreateBot(context.Background(), "actor-1", "", BotInput{Name: "bot"})
	assert.ErrorIs(t, err, ErrTenantRequired)
}

func TestBotService_CreateRejectsSuspendedTenant(t *testing.T) {
	bots, tenants, tenant := setupBotService(t)
	ctx := context.Background()

	_, err := tenants.SuspendTenant(ctx, "actor-1", tenant.ID)
	require.NoError(t, err)

	_, err = bots.CreateBot(ctx, "actor-1", tenant.ID, BotInput{Name: "bot"})
	assert.ErrorIs(t, err, ErrTenantSuspended)
}

func TestBotService_CrossTenantAccessLooksLikeNotFound(t *testing.T) {
	bots, tenants, tenant := setupBotService(t)
	ctx := context.Background()

	other, err := tenants.CreateTenant(ctx, "actor-1", "Beta", "")
	require.NoError(t, err)

	bot, err := bots.CreateBot(ctx, "actor-1", tenant.ID, BotInput{Name: "secret-bot"})
	require.NoError(t, err)

	_, err = bots.GetBot(ctx, other.ID, bot.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = bots.DeleteBot(ctx, "actor-1", other.ID, bot.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBotService_EmptyScopeReadsAcrossTenants(t *testing.T) {
	bots, tenants, tenant := setupBotService(t)
	ctx := context.Background()

	other, err := tenants.CreateTenant(ctx, "actor-1", "Beta", "")
	require.NoError(t, err)
	_, err = bots.CreateBot(ctx, "actor-1", tenant.ID, BotInput{Name: "bot-a"})
	require.NoError(t, err)
	_, err = bots.CreateBot(ctx, "actor-1", other.ID, BotInput{Name: "bot-b"})
	require.NoError(t, err)

	all, err := bots.ListBots(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := bots.ListBots(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, scoped, 1)
}

func TestBotService_UpdateAndDeleteRequireTenantScope(t *testing.T) {
	bots, _, tenant := setupBotService(t)
	ctx := context.Background()

	bot, err := bots.CreateBot(ctx, "actor-1", tenant.ID, BotInput{Name: "bot"})
	require.NoError(t, err)

	_, err = bots.UpdateBot(ctx, "actor-1", "", bot.ID, BotInput{Name: "renamed"})
	assert.ErrorIs(t, err, ErrTenantRequired)

	err = bots.DeleteBot(ctx, "actor-1", "", bot.ID)
	assert.ErrorIs(t, err, ErrTenantRequired)
}

func TestBotService_WidgetConfig_RendersMarkdown(t *testing.T) {
	bots, _, tenant := setupBotService(t)
	ctx := context.Background()

	bot, err := bots.CreateBot(ctx, "actor-1", tenant.ID, BotInput{
		Name:           "support-bot",
		WelcomeMessage: "**Hello!** How can I help?",
	})
	require.NoError(t, err)

	cfg, err := bots.WidgetConfigFor(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, bot.ID, cfg.BotID)
	assert.Equal(t, "support-bot", cfg.Name)
	assert.Contains(t, cfg.WelcomeHTML, "<strong>Hello!</strong>")
}

func TestBotService_WidgetConfig_FallbackForMissingOrDisabled(t *testing.T) {
	bots, _, tenant := setupBotService(t)
	ctx := context.Background()

	cfg, err := bots.WidgetConfigFor(ctx, "no-such-bot")
	require.NoError(t, err)
	assert.Contains(t, cfg.WelcomeHTML, "isn't connected to an assistant")
	assert.Empty(t, cfg.Name)

	bot, err := bots.CreateBot(ctx, "actor-1", tenant.ID, BotInput{
		Name:   "dark-bot",
		Status: store.BotStatusDisabled,
	})
	require.NoError(t, err)

	cfg, err = bots.WidgetConfigFor(ctx, bot.ID)
	require.NoError(t, err)
	assert.Contains(t, cfg.WelcomeHTML, "isn't connected to an assistant")
}

func TestBotService_WidgetConfig_EmptyBotIDUsesFallback(t *testing.T) {
	bots, _, _ := setupBotService(t)

	cfg, err := bots.WidgetConfigFor(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, cfg.WelcomeHTML, "isn't connected to an assistant")
}
