// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package config

import (
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
)

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"bot-token":    KeyBotToken,
	"sync-slash":   "discord.sync_slash",
	"guild-id":     "discord.guild_ids",
	"db-location":  KeyDBLocation,
	"font-path":    "render.font_path",
	"font-size":    "render.font_size",
	"line-width":   "render.line_width",
	"log-format":   "log.format",
	"metrics-addr": "metrics.addr",
}

// BindFlags declares the flags that override configuration keys. Only
// flags set explicitly take effect; their defaults never shadow files.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("bot-token", "", "Discord bot token (prefer BOT_TOKEN)")
	fs.Bool("sync-slash", false, "register slash commands globally")
	fs.StringSlice("guild-id", nil, "guild to register slash commands in (repeatable)")
	fs.String("db-location", "", "webhook database location, e.g. sqlite:///runic.sqlite")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	BindRenderFlags(fs)
}

// BindRenderFlags declares only the flags that affect rendering.
func BindRenderFlags(fs *pflag.FlagSet) {
	fs.String("font-path", "", "Madouji font file")
	fs.Float64("font-size", 0, "font size for images")
	fs.Int("line-width", 0, "default line width for /mdj")
}

// flagKey returns the posflag callback mapping a flag of fs to its key,
// skipping flags that were not set.
func flagKey(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}
