// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package bot connects the Madouji renderers to Discord. It listens for
// messages with Madouji markup and for slash commands, and reposts the
// rendered result under the author's identity.
package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/runicbabble/runicbabble/internal/glyph"
	"github.com/runicbabble/runicbabble/internal/lang"
	"github.com/runicbabble/runicbabble/internal/logging"
	"github.com/runicbabble/runicbabble/internal/observability"
	"github.com/runicbabble/runicbabble/internal/ratelimit"
	"github.com/runicbabble/runicbabble/internal/render"
	"github.com/runicbabble/runicbabble/internal/webhook"
)

var tracer = otel.Tracer("runicbabble/bot")

// Intents are the gateway intents the bot needs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent

// Event kinds for metrics.
const (
	eventMessage     = "message"
	eventInteraction = "interaction"
	eventReady       = "ready"
)

// Event statuses for metrics.
const (
	statusSuccess     = "success"
	statusError       = "error"
	statusRateLimited = "rate_limited"
	statusPanic       = "panic"
)

// Session is the part of the Discord API the bot calls.
// *discordgo.Session implements it.
type Session interface {
	webhook.API
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	GuildEmojis(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Emoji, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	UpdateListeningStatus(name string) error
}

// Options tune bot behaviour.
type Options struct {
	// Activity is shown as "Listening to <Activity>".
	Activity string
	// FontSize is used for every rendered image.
	FontSize float64
	// LineWidth is the /mdj default when no line-width is given.
	LineWidth int
	// GuildIDs receive the slash commands, unless SyncSlash is set.
	GuildIDs []string
	// SyncSlash registers slash commands globally.
	SyncSlash bool
}

// Deps are the collaborators of a Bot. Limiter and Metrics may be nil.
type Deps struct {
	Session  Session
	Pipeline *render.Pipeline
	Langs    *lang.Registry
	Emotes   *glyph.Table
	Webhooks *webhook.Cache
	Limiter  *ratelimit.Limiter
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Bot handles gateway events.
type Bot struct {
	session  Session
	pipeline *render.Pipeline
	langs    *lang.Registry
	emotes   *glyph.Table
	hooks    *webhook.Cache
	limiter  *ratelimit.Limiter
	metrics  *observability.Metrics
	logger   *slog.Logger
	opts     Options

	selfID atomic.Value // string
	wg     sync.WaitGroup
}

// New creates a bot.
func New(deps Deps, opts Options) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultLineWidth
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	b := &Bot{
		session:  deps.Session,
		pipeline: deps.Pipeline,
		langs:    deps.Langs,
		emotes:   deps.Emotes,
		hooks:    deps.Webhooks,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		logger:   logger.With("component", "bot"),
		opts:     opts,
	}
	b.selfID.Store("")
	return b
}

// Attach installs the bot's handlers on s. ctx is the parent of every
// handler context. The returned function removes the handlers.
func (b *Bot) Attach(ctx context.Context, s *discordgo.Session) func() {
	removers := []func(){
		s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			b.HandleReady(ctx, r)
		}),
		s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			b.HandleMessage(ctx, m)
		}),
		s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			b.HandleInteraction(ctx, i)
		}),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// Ready reports whether the emote table has been populated.
func (b *Bot) Ready() bool {
	return b.emotes.Ready()
}

// Wait blocks until background work started by handlers has finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// begin starts a span and tags ctx with a fresh request ID.
func (b *Bot) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	id := ulid.Make().String()
	ctx = logging.WithRequestID(ctx, id)
	attrs = append(attrs, attribute.String("request.id", id))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// end finishes span, recording *errp if set.
func end(span trace.Span, errp *error) {
	if err := *errp; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// recoverPanic keeps a failing handler from taking down the gateway loop.
// It must be deferred directly.
func (b *Bot) recoverPanic(ctx context.Context, kind string) {
	if r := recover(); r != nil {
		b.logger.ErrorContext(ctx, "handler panicked",
			"event", kind,
			"panic", r,
			"stack", string(debug.Stack()),
		)
		b.metrics.RecordEvent(kind, statusPanic)
	}
}
