// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package webhook posts messages through per-channel webhooks so that
// rendered text appears under the original author's name and avatar.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/runicbabble/runicbabble/internal/store"
)

// CodePostingDenied marks ErrPostingDenied.
const CodePostingDenied = "POSTING_DENIED"

// ErrPostingDenied is returned when the bot may not manage or use webhooks
// in a channel. Callers fall back to posting as the bot.
var ErrPostingDenied = errors.New("webhook posting denied")

// NamePrefix starts the name of every webhook the bot creates.
const NamePrefix = "runicbabble-"

// Name returns the webhook name used for channelID.
func Name(channelID string) string {
	return NamePrefix + channelID
}

// API is the part of the Discord REST API the cache uses.
// *discordgo.Session implements it.
type API interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Store persists webhooks across restarts. *store.WebhookStore implements it.
type Store interface {
	Get(ctx context.Context, channelID string) (store.Webhook, bool, error)
	Put(ctx context.Context, w store.Webhook) error
	Delete(ctx context.Context, channelID string) error
}

// Message is posted under an assumed identity.
type Message struct {
	Content   string
	Username  string
	AvatarURL string
	Files     []*discordgo.File
}

// Cache finds or creates one webhook per channel and posts through it.
// At most one webhook is created per channel even under concurrent use.
type Cache struct {
	api   API
	store Store

	mu    sync.RWMutex
	hooks map[string]store.Webhook
	group singleflight.Group
}

// NewCache creates a cache. st may be nil, in which case webhooks are
// only remembered in memory.
func NewCache(api API, st Store) *Cache {
	return &Cache{
		api:   api,
		store: st,
		hooks: make(map[string]store.Webhook),
	}
}

// Get returns the webhook for channelID, looking in memory, then the
// store, then the channel's existing webhooks, and creating one last.
func (c *Cache) Get(ctx context.Context, channelID string) (store.Webhook, error) {
	c.mu.RLock()
	w, ok := c.hooks[channelID]
	c.mu.RUnlock()
	if ok {
		return w, nil
	}

	v, err, _ := c.group.Do(channelID, func() (any, error) {
		return c.resolve(ctx, channelID)
	})
	if err != nil {
		return store.Webhook{}, err
	}
	return v.(store.Webhook), nil
}

func (c *Cache) resolve(ctx context.Context, channelID string) (store.Webhook, error) {
	c.mu.RLock()
	w, ok := c.hooks[channelID]
	c.mu.RUnlock()
	if ok {
		return w, nil
	}

	if c.store != nil {
		w, ok, err := c.store.Get(ctx, channelID)
		if err != nil {
			slog.WarnContext(ctx, "webhook store lookup failed", "channel_id", channelID, "error", err)
		} else if ok {
			c.remember(w)
			return w, nil
		}
	}

	w, err := c.find(channelID)
	if err != nil {
		return store.Webhook{}, err
	}
	if w.ID == "" {
		hook, err := c.api.WebhookCreate(channelID, Name(channelID), "")
		if err != nil {
			return store.Webhook{}, classify(err, channelID, "create webhook")
		}
		w = store.Webhook{ChannelID: channelID, ID: hook.ID, Token: hook.Token}
		slog.InfoContext(ctx, "created webhook", "channel_id", channelID, "webhook_id", hook.ID)
	}

	c.remember(w)
	if c.store != nil {
		if err := c.store.Put(ctx, w); err != nil {
			slog.WarnContext(ctx, "webhook store write failed", "channel_id", channelID, "error", err)
		}
	}
	return w, nil
}

// find looks for a usable webhook the bot created earlier.
func (c *Cache) find(channelID string) (store.Webhook, error) {
	hooks, err := c.api.ChannelWebhooks(channelID)
	if err != nil {
		return store.Webhook{}, classify(err, channelID, "list webhooks")
	}
	name := Name(channelID)
	for _, h := range hooks {
		if h.Name == name && h.Token != "" {
			return store.Webhook{ChannelID: channelID, ID: h.ID, Token: h.Token}, nil
		}
	}
	return store.Webhook{}, nil
}

func (c *Cache) remember(w store.Webhook) {
	c.mu.Lock()
	c.hooks[w.ChannelID] = w
	c.mu.Unlock()
}

// Forget drops the webhook of channelID from memory and the store.
func (c *Cache) Forget(ctx context.Context, channelID string) {
	c.mu.Lock()
	delete(c.hooks, channelID)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, channelID); err != nil {
			slog.WarnContext(ctx, "webhook store delete failed", "channel_id", channelID, "error", err)
		}
	}
}

// Post sends msg to channelID through its webhook. A webhook deleted in the
// meantime is recreated once. Permission failures return ErrPostingDenied.
func (c *Cache) Post(ctx context.Context, channelID string, msg Message) error {
	w, err := c.Get(ctx, channelID)
	if err != nil {
		return err
	}

	err = c.execute(w, msg)
	if status(err) == http.StatusNotFound {
		slog.InfoContext(ctx, "webhook disappeared, recreating", "channel_id", channelID, "webhook_id", w.ID)
		c.Forget(ctx, channelID)
		if w, err = c.Get(ctx, channelID); err != nil {
			return err
		}
		err = c.execute(w, msg)
	}
	if err != nil {
		return classify(err, channelID, "execute webhook")
	}
	return nil
}

func (c *Cache) execute(w store.Webhook, msg Message) error {
	_, err := c.api.WebhookExecute(w.ID, w.Token, false, &discordgo.WebhookParams{
		Content:   msg.Content,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		Files:     msg.Files,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	return err
}

// Len returns the number of channels with a known webhook.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hooks)
}

// status returns the HTTP status of a Discord REST error, or 0.
func status(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

func classify(err error, channelID, op string) error {
	if status(err) == http.StatusForbidden {
		return oops.Code(CodePostingDenied).
			With("channel_id", channelID).
			With("operation", op).
			Wrap(errors.Join(ErrPostingDenied, err))
	}
	return oops.With("channel_id", channelID).With("operation", op).Wrap(err)
}
