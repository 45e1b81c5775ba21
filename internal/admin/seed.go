// ABOUTME: TOML bot-pack seeding
// ABOUTME: Idempotent by bot name within a tenant; existing bots are updated in place

package admin

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/botdesk/botdesk/internal/store"
)

// botPack is the on-disk seed file format:
//
//	[[bots]]
//	name = "support-bot"
//	description = "Answers support questions"
//	welcome = "**Hi!** How can I help?"
//	disabled = false
type botPack struct {
	Bots []packBot `toml:"bots"`
}

type packBot struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Welcome     string `toml:"welcome"`
	Disabled    bool   `toml:"disabled"`
}

// SeedResult reports what a seed run did.
type SeedResult struct {
	Created int
	Updated int
}

// SeedFromFile loads a bot pack and applies it to the tenant.
func (s *BotService) SeedFromFile(ctx context.Context, actorID, tenantID, path string) (*SeedResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bot pack: %w", err)
	}
	return s.Seed(ctx, actorID, tenantID, raw)
}

// Seed applies a TOML bot pack to the tenant. Seeding is idempotent by bot
// name: existing bots are updated to the pack's definition, new ones are
// created.
func (s *BotService) Seed(ctx context.Context, actorID, tenantID string, pack []byte) (*SeedResult, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	var p botPack
	if err := toml.Unmarshal(pack, &p); err != nil {
		return nil, fmt.Errorf("parsing bot pack: %w", err)
	}

	result := &SeedResult{}
	for _, pb := range p.Bots {
		if pb.Name == "" {
			return result, fmt.Errorf("bot pack entry missing name: %w", ErrBotNameRequired)
		}

		status := store.BotStatusEnabled
		if pb.Disabled {
			status = store.BotStatusDisabled
		}
		in := BotInput{
			Name:           pb.Name,
			Description:    pb.Description,
			WelcomeMessage: pb.Welcome,
			Status:         status,
		}

		existing, err := s.store.GetBotByName(ctx, tenantID, pb.Name)
		switch {
		case err == nil:
			if _, err := s.UpdateBot(ctx, actorID, tenantID, existing.ID, in); err != nil {
				return result, fmt.Errorf("updating seeded bot %q: %w", pb.Name, err)
			}
			result.Updated++
		case errors.Is(err, store.ErrNotFound):
			if _, err := s.CreateBot(ctx, actorID, tenantID, in); err != nil {
				return result, fmt.Errorf("creating seeded bot %q: %w", pb.Name, err)
			}
			result.Created++
		default:
			return result, fmt.Errorf("looking up seeded bot %q: %w", pb.Name, err)
		}
	}

	s.logger.Info("bot pack applied",
		"tenant_id", tenantID,
		"created", result.Created,
		"updated", result.Updated)
	return result, nil
}
