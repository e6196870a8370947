// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package config loads bot configuration from defaults, YAML files,
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/oops"

	"github.com/runicbabble/runicbabble/internal/logging"
)

// Error codes returned by the package.
const (
	CodeMissingKey = "MISSING_KEY"
	CodeInvalid    = "INVALID_CONFIG"
)

// ErrMissingKey is wrapped by every lookup of an absent or empty key.
var ErrMissingKey = errors.New("missing configuration key")

// Keys with a meaning outside the typed struct.
const (
	KeyBotToken   = "discord.bot_token"
	KeyDBLocation = "db.main.location"
)

// Config is the typed bot configuration.
type Config struct {
	Discord   DiscordConfig   `koanf:"discord"`
	DB        DBConfig        `koanf:"db"`
	Render    RenderConfig    `koanf:"render"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// DiscordConfig configures the gateway session and slash commands.
type DiscordConfig struct {
	BotToken string `koanf:"bot_token"`
	// SyncSlash registers slash commands globally instead of per guild.
	SyncSlash bool     `koanf:"sync_slash"`
	GuildIDs  []string `koanf:"guild_ids"`
	Activity  string   `koanf:"activity"`
}

// DBConfig lists databases by role.
type DBConfig struct {
	Main DatabaseConfig `koanf:"main"`
}

// DatabaseConfig locates one database, e.g. "sqlite:///runic.sqlite".
type DatabaseConfig struct {
	Location string `koanf:"location"`
}

// RenderConfig configures image rendering.
type RenderConfig struct {
	FontPath  string  `koanf:"font_path"`
	FontSize  float64 `koanf:"font_size"`
	LineWidth int     `koanf:"line_width"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
}

// MetricsConfig configures the observability server. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// RateLimitConfig configures per-user rate limiting.
type RateLimitConfig struct {
	Burst     int     `koanf:"burst"`
	PerSecond float64 `koanf:"per_second"`
}

// Defaults returns the built-in configuration as flat koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"discord.bot_token":    "",
		"discord.sync_slash":   false,
		"discord.guild_ids":    []string{},
		"discord.activity":     "the whispers of the otherworld",
		"db.main.location":     "sqlite:///runic.sqlite",
		"render.font_path":     "config/res/fonts/Madouji.ttf",
		"render.font_size":     32.0,
		"render.line_width":    8,
		"log.format":           logging.FormatJSON,
		"metrics.addr":         "127.0.0.1:9100",
		"ratelimit.burst":      5,
		"ratelimit.per_second": 1.0,
	}
}

// Validate checks the values the bot cannot run without.
// The bot token is checked separately by BotToken.
func (c *Config) Validate() error {
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		return oops.Code(CodeInvalid).With("key", "log.format").Wrap(err)
	}
	if c.Render.FontPath == "" {
		return oops.Code(CodeInvalid).With("key", "render.font_path").Errorf("font path is empty")
	}
	if c.Render.FontSize <= 0 {
		return oops.Code(CodeInvalid).
			With("key", "render.font_size").
			Errorf("font size must be positive, got %v", c.Render.FontSize)
	}
	if c.Render.LineWidth <= 0 {
		return oops.Code(CodeInvalid).
			With("key", "render.line_width").
			Errorf("line width must be positive, got %d", c.Render.LineWidth)
	}
	if _, err := c.Discord.Guilds(); err != nil {
		return err
	}
	return nil
}

// BotToken returns the Discord bot token or an ErrMissingKey error.
func (c *Config) BotToken() (string, error) {
	if c.Discord.BotToken == "" {
		return "", missingKey(KeyBotToken)
	}
	return c.Discord.BotToken, nil
}

// Guilds parses the configured guild IDs.
func (d DiscordConfig) Guilds() ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(d.GuildIDs))
	for _, raw := range d.GuildIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return nil, oops.Code(CodeInvalid).
				With("key", "discord.guild_ids").
				With("guild_id", raw).
				Errorf("guild ID is not a snowflake")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func missingKey(key string) error {
	return oops.Code(CodeMissingKey).With("key", key).Wrap(ErrMissingKey)
}
