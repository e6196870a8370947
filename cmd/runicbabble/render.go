// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/runicbabble/runicbabble/internal/config"
	"github.com/runicbabble/runicbabble/internal/glyph"
	"github.com/runicbabble/runicbabble/internal/madouji"
	"github.com/runicbabble/runicbabble/internal/raster"
	"github.com/runicbabble/runicbabble/internal/render"
	"github.com/runicbabble/runicbabble/internal/wrap"
)

// renderFlags holds the flags of the render subcommand.
type renderFlags struct {
	emotes bool
	wrap   string
	out    string
}

// NewRenderCmd creates the render subcommand, which renders text offline.
func NewRenderCmd() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [text...]",
		Short: "Render Madouji without connecting to Discord",
		Long: `Render text as a Madouji image, or with --emotes as the emote string
the bot would post. Emote names are printed as :name: since no guild
catalog is available offline. Text is read from stdin when no argument
is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.emotes, "emotes", false, "print the emote rendering instead of an image")
	cmd.Flags().StringVar(&flags.wrap, "wrap", wrap.ModeNone.String(), "wrap mode for images: none, flow or force")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "PNG output file (default stdout)")
	config.BindRenderFlags(cmd.Flags())

	return cmd
}

func runRender(cmd *cobra.Command, args []string, flags renderFlags) error {
	text, err := renderInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	table := glyph.NewTable()
	pipeline := render.NewPipeline(table, raster.New(), cfg.Render.FontPath)

	if flags.emotes {
		table.Populate(madouji.EmojiNames(), glyph.CatalogFunc(func(name string) (string, bool) {
			return ":" + name + ":", true
		}))
		_, err := fmt.Fprintln(cmd.OutOrStdout(), pipeline.EmoteText(text))
		return err
	}

	d := wrap.Directive{Mode: wrap.ParseMode(flags.wrap), Width: cfg.Render.LineWidth}
	payload, err := pipeline.Image(cmd.Context(), text, cfg.Render.FontSize, d)
	if err != nil {
		return err
	}

	if flags.out == "" {
		_, err := cmd.OutOrStdout().Write(payload.File.Data)
		return err
	}
	if err := os.WriteFile(flags.out, payload.File.Data, 0o600); err != nil {
		return oops.With("path", flags.out).Wrapf(err, "write image")
	}
	return nil
}

// renderInput joins args, or reads all of r when there are none.
func renderInput(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", oops.Wrapf(err, "read stdin")
	}
	return strings.TrimRight(string(data), "\n"), nil
}
