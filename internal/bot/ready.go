// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/runicbabble/runicbabble/internal/glyph"
	"github.com/runicbabble/runicbabble/internal/madouji"
	"github.com/runicbabble/runicbabble/pkg/errutil"
)

// HandleReady sets the presence, then loads the emoji catalog and registers
// slash commands in the background. Messages arriving before the catalog
// is loaded render with unmapped characters.
func (b *Bot) HandleReady(ctx context.Context, r *discordgo.Ready) {
	defer b.recoverPanic(ctx, eventReady)

	appID := ""
	if r.User != nil {
		b.selfID.Store(r.User.ID)
		appID = r.User.ID
		b.logger.InfoContext(ctx, "logged on", "user", r.User.Username, "user_id", r.User.ID)
	}
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}

	if b.opts.Activity != "" {
		if err := b.session.UpdateListeningStatus(b.opts.Activity); err != nil {
			errutil.LogErrorContext(ctx, b.logger, "failed to set presence", err)
		}
	}

	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.recoverPanic(ctx, eventReady)

		b.LoadEmotes(ctx, guildIDs)
		if appID != "" {
			b.RegisterCommands(ctx, appID)
		}
	}()
}

// LoadEmotes fetches the custom emojis of every guild and populates the
// emote table from them. Guilds that fail are skipped.
func (b *Bot) LoadEmotes(ctx context.Context, guildIDs []string) {
	ctx, span := b.begin(ctx, "bot.load_emotes", attribute.Int("guild.count", len(guildIDs)))
	var err error
	defer end(span, &err)

	catalog := glyph.MapCatalog{}
	for _, id := range guildIDs {
		emojis, gErr := b.session.GuildEmojis(id)
		if gErr != nil {
			errutil.LogErrorContext(ctx, b.logger, "failed to fetch guild emojis", gErr, "guild_id", id)
			continue
		}
		for _, e := range emojis {
			if e == nil || e.Name == "" {
				continue
			}
			if _, seen := catalog[e.Name]; !seen {
				catalog[e.Name] = e.MessageFormat()
			}
		}
	}

	missing := b.emotes.Populate(madouji.EmojiNames(), catalog)
	span.SetAttributes(attribute.Int("emotes.resolved", b.emotes.Len()))
	if len(missing) > 0 {
		b.logger.WarnContext(ctx, "some Madouji emojis are unavailable", "missing", len(missing))
	}
	b.logger.InfoContext(ctx, "emote table ready", "resolved", b.emotes.Len())
}
