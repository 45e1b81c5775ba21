// ABOUTME: Bot management service scoped to the caller's effective tenant
// ABOUTME: Renders welcome markdown to HTML for the public widget config

package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/botdesk/botdesk/internal/store"
)

// Bot service errors
var (
	ErrBotNameRequired = errors.New("bot name is required")
	ErrTenantRequired  = errors.New("no tenant scope; admins must select a tenant")
	ErrTenantSuspended = errors.New("tenant is suspended")
	ErrInvalidStatus   = errors.New("bot status must be enabled or disabled")
)

// widgetFallbackWelcome is served when the requested bot is missing or
// disabled, mirroring the widget's own unconfigured-assistant message.
const widgetFallbackWelcome = "This chat isn't connected to an assistant yet. Please check back later."

// BotService manages bots within a tenant.
type BotService struct {
	store    store.Store
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// NewBotService creates the bot service.
func NewBotService(st store.Store, logger *slog.Logger) *BotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotService{
		store:    st,
		markdown: goldmark.New(),
		logger:   logger.With("component", "admin.bots"),
	}
}

// BotInput carries the mutable fields of a bot.
type BotInput struct {
	Name           string
	Description    string
	WelcomeMessage string
	Status         string
}

func (in *BotInput) validate() error {
	if in.Name == "" {
		return ErrBotNameRequired
	}
	if in.Status == "" {
		in.Status = store.BotStatusEnabled
	}
	if in.Status != store.BotStatusEnabled && in.Status != store.BotStatusDisabled {
		return ErrInvalidStatus
	}
	return nil
}

// CreateBot adds a bot to the tenant. The tenant must exist and be active.
func (s *BotService) CreateBot(ctx context.Context, actorID, tenantID string, in BotInput) (*store.Bot, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving tenant: %w", err)
	}
	if tenant.Status == store.TenantStatusSuspended {
		return nil, ErrTenantSuspended
	}

	now := time.Now().UTC()
	bot := &store.Bot{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Name:           in.Name,
		Description:    in.Description,
		WelcomeMessage: in.WelcomeMessage,
		Status:         in.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}

	s.audit(ctx, actorID, store.AuditBotCreated, bot.ID, map[string]any{
		"tenant_id": tenantID,
		"name":      in.Name,
	})
	s.logger.Info("bot created", "bot_id", bot.ID, "tenant_id", tenantID, "name", in.Name)
	return bot, nil
}

// GetBot returns one bot if it belongs to the tenant scope. An empty
// tenantID (support, or admin with no selection) grants read access to any
// bot.
func (s *BotService) GetBot(ctx context.Context, tenantID, botID string) (*store.Bot, error) {
	bot, err := s.store.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if tenantID != "" && bot.TenantID != tenantID {
		// Cross-tenant probes look identical to missing bots.
		return nil, store.ErrNotFound
	}
	return bot, nil
}

// ListBots returns the tenant's bots, or all bots for an empty scope.
func (s *BotService) ListBots(ctx context.Context, tenantID string) ([]*store.Bot, error) {
	return s.store.ListBots(ctx, tenantID)
}

// UpdateBot replaces a bot's mutable fields. Mutations require a concrete
// tenant scope.
func (s *BotService) UpdateBot(ctx context.Context, actorID, tenantID, botID string, in BotInput) (*store.Bot, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	bot, err := s.GetBot(ctx, tenantID, botID)
	if err != nil {
		return nil, err
	}
	bot.Name = in.Name
	bot.Description = in.Description
	bot.WelcomeMessage = in.WelcomeMessage
	bot.Status = in.Status
	if err := s.store.UpdateBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("updating bot: %w", err)
	}

	s.audit(ctx, actorID, store.AuditBotUpdated, botID, map[string]any{
		"tenant_id": tenantID,
		"name":      in.Name,
		"status":    in.Status,
	})
	return bot, nil
}

// DeleteBot removes a bot within the tenant scope.
func (s *BotService) DeleteBot(ctx context.Context, actorID, tenantID, botID string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if _, err := s.GetBot(ctx, tenantID, botID); err != nil {
		return err
	}
	if err := s.store.DeleteBot(ctx, botID); err != nil {
		return fmt.Errorf("deleting bot: %w", err)
	}

	s.audit(ctx, actorID, store.AuditBotDeleted, botID, map[string]any{
		"tenant_id": tenantID,
	})
	s.logger.Info("bot deleted", "bot_id", botID, "tenant_id", tenantID)
	return nil
}

// WidgetConfig is the public configuration served to an embedded widget.
type WidgetConfig struct {
	BotID       string `json:"bot_id"`
	Name        string `json:"name"`
	WelcomeHTML string `json:"welcome_html"`
}

// WidgetConfigFor resolves the widget configuration for a bot. Missing or
// disabled bots yield the informational fallback rather than an error so a
// misconfigured embed still renders something sensible.
func (s *BotService) WidgetConfigFor(ctx context.Context, botID string) (*WidgetConfig, error) {
	fallback := &WidgetConfig{BotID: botID, WelcomeHTML: "<p>" + widgetFallbackWelcome + "</p>"}

	if botID == "" {
		return fallback, nil
	}
	bot, err := s.store.GetBot(ctx, botID)
	if errors.Is(err, store.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving bot: %w", err)
	}
	if bot.Status != store.BotStatusEnabled {
		return fallback, nil
	}

	html, err := s.renderMarkdown(bot.WelcomeMessage)
	if err != nil {
		s.logger.Warn("welcome markdown render failed", "bot_id", botID, "error", err)
		html = "<p>" + widgetFallbackWelcome + "</p>"
	}
	return &WidgetConfig{BotID: bot.ID, Name: bot.Name, WelcomeHTML: html}, nil
}

func (s *BotService) renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *BotService) audit(ctx context.Context, actorID, action, targetID string, detail map[string]any) {
	entry := &store.AuditEntry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: "bot",
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("audit append failed", "action", action, "error", err)
	}
}
