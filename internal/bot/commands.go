// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/runicbabble/runicbabble/internal/webhook"
	"github.com/runicbabble/runicbabble/internal/wrap"
	"github.com/runicbabble/runicbabble/pkg/errutil"
)

// Slash command defaults.
const (
	DefaultLineWidth = 8
	DefaultFontSize  = 32
)

// Slash command and option names.
const (
	CommandMdj  = "mdj"
	CommandHelp = "help"

	optionContent   = "content"
	optionWrap      = "wrap"
	optionLineWidth = "line-width"
)

// HelpText answers /help.
const HelpText = "**Runic Babble** converts ASCII text into the constructed writing system Madouji, " +
	"created by the Cult of 74.\n\n" +
	"To learn more, visit the official server: https://discord.gg/mg4mCZGFq9"

// ack is the invisible reply that closes an interaction answered by webhook.
const ack = "\u200d"

const (
	msgRateLimited  = "You are sending too fast, try again in a moment."
	msgRenderFailed = "Sorry, that could not be rendered."
)

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandMdj,
			Description: "Render the entire message as Madouji",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionContent,
					Description: "The message to be rendered",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionWrap,
					Description: "What line wrapping model to use",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: wrap.ModeNone.String(), Value: wrap.ModeNone.String()},
						{Name: wrap.ModeFlow.String(), Value: wrap.ModeFlow.String()},
						{Name: wrap.ModeForce.String(), Value: wrap.ModeForce.String()},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionLineWidth,
					Description: "max amount of characters in a line",
				},
			},
		},
		{
			Name:        CommandHelp,
			Description: "Get help with using the bot",
		},
	}
}

// RegisterCommands creates the slash commands in every configured guild,
// or once globally when SyncSlash is set. Failures are logged per command.
func (b *Bot) RegisterCommands(ctx context.Context, appID string) {
	guilds := b.opts.GuildIDs
	if b.opts.SyncSlash {
		guilds = []string{""}
	}

	for _, guildID := range guilds {
		for _, cmd := range Commands() {
			if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				errutil.LogErrorContext(ctx, b.logger, "failed to register slash command", err,
					"command", cmd.Name, "guild_id", guildID)
				continue
			}
			b.logger.DebugContext(ctx, "registered slash command", "command", cmd.Name, "guild_id", guildID)
		}
	}
}

// HandleInteraction answers slash commands.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	defer b.recoverPanic(ctx, eventInteraction)

	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	ctx, span := b.begin(ctx, "bot.interaction",
		attribute.String("command.name", data.Name),
		attribute.String("channel.id", i.ChannelID),
	)
	var err error
	defer end(span, &err)

	switch data.Name {
	case CommandHelp:
		err = b.respond(i, &discordgo.InteractionResponseData{
			Content: HelpText,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	case CommandMdj:
		err = b.slashMdj(ctx, i, data)
	default:
		b.logger.WarnContext(ctx, "unknown slash command", "command", data.Name)
		return
	}

	if err != nil {
		errutil.LogErrorContext(ctx, b.logger, "slash command failed", err, "command", data.Name)
		b.metrics.RecordEvent(eventInteraction, statusError)
		return
	}
	b.metrics.RecordEvent(eventInteraction, statusSuccess)
}

// mdjArgs are the parsed /mdj options.
type mdjArgs struct {
	content   string
	directive wrap.Directive
}

func (b *Bot) parseMdj(data discordgo.ApplicationCommandInteractionData) mdjArgs {
	args := mdjArgs{directive: wrap.Directive{Mode: wrap.ModeNone, Width: b.opts.LineWidth}}
	for _, opt := range data.Options {
		switch opt.Name {
		case optionContent:
			args.content = opt.StringValue()
		case optionWrap:
			args.directive.Mode = wrap.ParseMode(opt.StringValue())
		case optionLineWidth:
			args.directive.Width = int(opt.IntValue())
		}
	}
	return args
}

func (b *Bot) slashMdj(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	user := interactionUser(i)
	if user == nil {
		return errors.New("interaction without user")
	}

	if b.limiter != nil {
		if err := b.limiter.Check(user.ID); err != nil {
			b.metrics.RecordEvent(eventInteraction, statusRateLimited)
			return b.respond(i, &discordgo.InteractionResponseData{
				Content: msgRateLimited,
				Flags:   discordgo.MessageFlagsEphemeral,
			})
		}
	}

	args := b.parseMdj(data)
	payload, err := b.pipeline.Image(ctx, args.content, b.opts.FontSize, args.directive)
	if err != nil {
		errutil.LogErrorContext(ctx, b.logger, "render failed", err, "channel_id", i.ChannelID)
		return b.respond(i, &discordgo.InteractionResponseData{
			Content: msgRenderFailed,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	}

	err = b.hooks.Post(ctx, i.ChannelID, webhook.Message{
		Username:  displayName(i.Member, user),
		AvatarURL: user.AvatarURL(""),
		Files:     files(payload),
	})
	switch {
	case err == nil:
		b.metrics.RecordPost(viaWebhook)
		return b.respond(i, &discordgo.InteractionResponseData{
			Content: ack,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	case errors.Is(err, webhook.ErrPostingDenied):
		b.metrics.RecordPost(viaBot)
		return b.respond(i, &discordgo.InteractionResponseData{Files: files(payload)})
	default:
		return err
	}
}

func (b *Bot) respond(i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// interactionUser returns the invoking user in guilds and DMs alike.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
