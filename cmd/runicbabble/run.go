// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/runicbabble/runicbabble/internal/bot"
	"github.com/runicbabble/runicbabble/internal/config"
	"github.com/runicbabble/runicbabble/internal/glyph"
	"github.com/runicbabble/runicbabble/internal/lang"
	mdjlang "github.com/runicbabble/runicbabble/internal/lang/madouji"
	"github.com/runicbabble/runicbabble/internal/logging"
	"github.com/runicbabble/runicbabble/internal/observability"
	"github.com/runicbabble/runicbabble/internal/raster"
	"github.com/runicbabble/runicbabble/internal/ratelimit"
	"github.com/runicbabble/runicbabble/internal/render"
	"github.com/runicbabble/runicbabble/internal/store"
	"github.com/runicbabble/runicbabble/internal/webhook"
	"github.com/runicbabble/runicbabble/pkg/errutil"
)

const serviceName = "runicbabble"

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve Madouji renderings",
		Long: `Connect to the Discord gateway, render messages containing Madouji
markup and answer the /mdj and /help slash commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.SetDefault(serviceName, version, cfg.Log.Format)

			if err := runBot(cmd.Context(), cfg); err != nil {
				errutil.LogError(slog.Default(), "bot stopped with error", err)
				return err
			}
			return nil
		},
	}

	config.BindFlags(cmd.Flags())
	return cmd
}

// runBot wires every component and serves until a signal arrives or the
// observability server fails.
func runBot(ctx context.Context, cfg *config.Config) error {
	token, err := cfg.BotToken()
	if err != nil {
		return oops.Hint("set BOT_TOKEN or discord.bot_token").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := raster.New()
	if _, err := r.Font(cfg.Render.FontPath); err != nil {
		return err
	}

	emotes := glyph.NewTable()
	pipeline := render.NewPipeline(emotes, r, cfg.Render.FontPath)

	langs := lang.NewRegistry(r)
	if err := langs.Register(mdjlang.New(cfg.Render.FontPath)); err != nil {
		return err
	}
	langs.Seal()

	hookStore, err := store.Open(ctx, cfg.DB.Main.Location)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := hookStore.Close(); closeErr != nil {
			slog.Warn("error closing webhook store", "error", closeErr)
		}
	}()

	var (
		obsServer *observability.Server
		metrics   *observability.Metrics
		limiter   *ratelimit.Limiter
	)
	limitCfg := ratelimit.Config{Burst: cfg.RateLimit.Burst, PerSecond: cfg.RateLimit.PerSecond}
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, emotes.Ready)
		render.RegisterMetrics(obsServer.Registry())
		metrics = obsServer.Metrics()
		limiter = ratelimit.NewWithRegistry(limitCfg, obsServer.Registry())

		obsErrCh, err := obsServer.Start()
		if err != nil {
			limiter.Close()
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	} else {
		limiter = ratelimit.New(limitCfg)
	}
	defer limiter.Close()

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return oops.Wrapf(err, "create discord session")
	}
	session.Identify.Intents = bot.Intents

	b := bot.New(bot.Deps{
		Session:  session,
		Pipeline: pipeline,
		Langs:    langs,
		Emotes:   emotes,
		Webhooks: webhook.NewCache(session, hookStore),
		Limiter:  limiter,
		Metrics:  metrics,
	}, bot.Options{
		Activity:  cfg.Discord.Activity,
		FontSize:  cfg.Render.FontSize,
		LineWidth: cfg.Render.LineWidth,
		GuildIDs:  cfg.Discord.GuildIDs,
		SyncSlash: cfg.Discord.SyncSlash,
	})
	detach := b.Attach(ctx, session)
	defer detach()

	if err := session.Open(); err != nil {
		return oops.Wrapf(err, "open discord gateway")
	}
	slog.Info("bot started", "languages", langs.Names(), "sync_slash", cfg.Discord.SyncSlash)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	if err := session.Close(); err != nil {
		slog.Warn("error closing discord session", "error", err)
	}
	b.Wait()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
