// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/runicbabble/runicbabble/internal/config"
)

// Global flags available to all subcommands.
var (
	configDir     string
	configPattern string
)

// NewRootCmd creates the root command for the RunicBabble CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runicbabble",
		Short: "RunicBabble - Madouji for Discord",
		Long: `RunicBabble converts ASCII text into the constructed writing system
Madouji, either as custom emoji sequences or as images, and reposts it
under the author's name on Discord.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"directory scanned for config files (default: ./config, then XDG_CONFIG_HOME/runicbabble)")
	cmd.PersistentFlags().StringVar(&configPattern, "config-pattern", config.DefaultPattern,
		"glob selecting config files inside the config directory")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewRenderCmd())

	return cmd
}

// loadConfig merges configuration for cmd, honouring its explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader, err := config.Load(config.Options{
		Dir:     configDir,
		Pattern: configPattern,
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	return loader.Config()
}
