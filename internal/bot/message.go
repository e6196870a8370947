// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package bot

import (
	"bytes"
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/runicbabble/runicbabble/internal/render"
	"github.com/runicbabble/runicbabble/internal/webhook"
	"github.com/runicbabble/runicbabble/pkg/errutil"
)

// Post sender labels.
const (
	viaWebhook = "webhook"
	viaBot     = "bot"
)

// HandleMessage renders messages containing Madouji markup and replaces
// them with the rendering. A message that is a single language block
// becomes an image; otherwise inline markers become emotes. Other
// messages, and messages from bots and webhooks, are ignored.
func (b *Bot) HandleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	defer b.recoverPanic(ctx, eventMessage)

	if m == nil || m.Message == nil || m.Author == nil {
		return
	}
	if m.Author.Bot || m.WebhookID != "" || m.Author.ID == b.selfID.Load().(string) {
		return
	}
	_, isBlock := b.langs.Find(m.Content)
	if !isBlock && !b.pipeline.Marker().ContainsInline(m.Content) {
		return
	}

	ctx, span := b.begin(ctx, "bot.message",
		attribute.String("channel.id", m.ChannelID),
		attribute.String("user.id", m.Author.ID),
		attribute.Bool("message.block", isBlock),
	)
	var err error
	defer end(span, &err)

	if b.limiter != nil {
		if limitErr := b.limiter.Check(m.Author.ID); limitErr != nil {
			span.SetAttributes(attribute.Bool("message.rate_limited", true))
			b.logger.DebugContext(ctx, "message rate limited", "user_id", m.Author.ID)
			b.metrics.RecordEvent(eventMessage, statusRateLimited)
			return
		}
	}

	payload, err := b.renderMessage(ctx, m.Content, isBlock)
	if err != nil {
		errutil.LogErrorContext(ctx, b.logger, "render failed", err, "channel_id", m.ChannelID)
		b.metrics.RecordEvent(eventMessage, statusError)
		return
	}
	if payload == nil {
		return
	}

	if delErr := b.session.ChannelMessageDelete(m.ChannelID, m.ID); delErr != nil {
		errutil.LogErrorContext(ctx, b.logger, "failed to delete original message", delErr,
			"channel_id", m.ChannelID, "message_id", m.ID)
	}

	if err = b.post(ctx, m.ChannelID, m.Member, m.Author, payload); err != nil {
		errutil.LogErrorContext(ctx, b.logger, "failed to post rendering", err, "channel_id", m.ChannelID)
		b.metrics.RecordEvent(eventMessage, statusError)
		return
	}
	b.metrics.RecordEvent(eventMessage, statusSuccess)
}

func (b *Bot) renderMessage(ctx context.Context, content string, isBlock bool) (*render.Payload, error) {
	if isBlock {
		return b.langs.Render(ctx, content, b.opts.FontSize)
	}
	payload, ok := b.pipeline.Emotes(content)
	if !ok {
		return nil, nil
	}
	return payload, nil
}

// post sends payload to channelID under the author's identity, falling back
// to posting as the bot when webhooks are denied.
func (b *Bot) post(ctx context.Context, channelID string, member *discordgo.Member, user *discordgo.User, payload *render.Payload) error {
	err := b.hooks.Post(ctx, channelID, webhook.Message{
		Content:   payload.Content,
		Username:  displayName(member, user),
		AvatarURL: user.AvatarURL(""),
		Files:     files(payload),
	})
	if err == nil {
		b.metrics.RecordPost(viaWebhook)
		return nil
	}
	if !errors.Is(err, webhook.ErrPostingDenied) {
		return err
	}

	b.logger.InfoContext(ctx, "webhooks denied, posting as bot", "channel_id", channelID)
	_, err = b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: payload.Content,
		Files:   files(payload),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	if err != nil {
		return err
	}
	b.metrics.RecordPost(viaBot)
	return nil
}

// files converts the payload attachment. Each call returns fresh readers.
func files(p *render.Payload) []*discordgo.File {
	if p.File == nil {
		return nil
	}
	return []*discordgo.File{{
		Name:        p.File.Name,
		ContentType: p.File.ContentType,
		Reader:      bytes.NewReader(p.File.Data),
	}}
}

// displayName prefers the guild nickname, then the global display name.
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
