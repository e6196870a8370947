// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package config

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/runicbabble/runicbabble/internal/xdg"
)

// Loader defaults.
const (
	DefaultDir     = "config"
	DefaultPattern = "*.yaml"
	delim          = "."
)

// Options controls where configuration is read from.
type Options struct {
	// Dir is scanned recursively for configuration files. When empty,
	// DefaultDir is used if it exists, otherwise the XDG config directory.
	Dir string
	// Pattern filters file names. Defaults to DefaultPattern.
	Pattern string
	// Flags overlays explicitly set command line flags, see BindFlags.
	Flags *pflag.FlagSet
}

// Loader holds the merged configuration.
type Loader struct {
	k     *koanf.Koanf
	files []string
}

// Load merges defaults, files, environment and flags.
func Load(opts Options) (*Loader, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(Defaults(), delim), nil); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "load defaults")
	}

	dir, err := resolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	filter, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.Code(CodeInvalid).With("pattern", pattern).Wrapf(err, "compile file pattern")
	}

	files, err := scan(dir, filter)
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalid).With("file", path).Wrapf(err, "load config file")
		}
		slog.Debug("loaded config file", "file", path)
	}

	if err := k.Load(env.ProviderWithValue("", delim, envKey), nil); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "load environment")
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, delim, k, flagKey(opts.Flags)), nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "load flags")
		}
	}

	return &Loader{k: k, files: files}, nil
}

// resolveDir picks the directory to scan. An empty result means no files.
func resolveDir(dir string) (string, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return "", oops.Code(CodeInvalid).With("dir", dir).Wrapf(err, "config directory")
		}
		if !info.IsDir() {
			return "", oops.Code(CodeInvalid).With("dir", dir).Errorf("config path is not a directory")
		}
		return dir, nil
	}

	if isDir(DefaultDir) {
		return DefaultDir, nil
	}
	xdgDir, err := xdg.ConfigDir()
	if err == nil && isDir(xdgDir) {
		return xdgDir, nil
	}
	return "", nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// scan returns the files under dir whose base name matches filter, in
// lexical order.
func scan(dir string, filter glob.Glob) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filter.Match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code(CodeInvalid).With("dir", dir).Wrapf(err, "scan config directory")
	}
	return files, nil
}

// Files lists the configuration files that were merged, in load order.
func (l *Loader) Files() []string {
	return l.files
}

// Get returns the value at a dotted path.
func (l *Loader) Get(path string) (any, error) {
	if !l.k.Exists(path) {
		return nil, missingKey(path)
	}
	return l.k.Get(path), nil
}

// String returns the non-empty string at a dotted path.
func (l *Loader) String(path string) (string, error) {
	s := l.k.String(path)
	if s == "" {
		return "", missingKey(path)
	}
	return s, nil
}

// Config unmarshals and validates the merged configuration.
func (l *Loader) Config() (*Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envAliases are environment variables the bot reads under short names.
var envAliases = map[string]string{
	"BOT_TOKEN":   KeyBotToken,
	"DB_LOCATION": KeyDBLocation,
}

// EnvPrefix marks generic overrides: RUNICBABBLE_RENDER__FONT_SIZE sets
// render.font_size.
const EnvPrefix = "RUNICBABBLE_"

// envKey maps an environment variable to a config key. Empty variables and
// variables it does not know map to "" and are ignored.
func envKey(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	key, ok := envAliases[name]
	if !ok {
		rest, found := strings.CutPrefix(name, EnvPrefix)
		if !found || rest == "" {
			return "", nil
		}
		key = strings.ToLower(strings.ReplaceAll(rest, "__", delim))
	}
	if key == "discord.guild_ids" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
