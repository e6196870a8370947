// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package render turns marked-up messages into Madouji, either as emoji
// sequences or as PNG images.
//
// A Pipeline holds no per-message state and may be used from many goroutines.
package render

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/runicbabble/runicbabble/internal/detect"
	"github.com/runicbabble/runicbabble/internal/glyph"
	"github.com/runicbabble/runicbabble/internal/madouji"
	"github.com/runicbabble/runicbabble/internal/wrap"
)

// CodeRenderFailed marks errors from the rasterizer.
const CodeRenderFailed = "RENDER_FAILED"

// Rasterizer draws text with a font and returns PNG data.
type Rasterizer interface {
	Render(text, fontPath string, size float64) ([]byte, error)
}

// Pipeline renders Madouji messages.
type Pipeline struct {
	marker   *detect.Marker
	emotes   *glyph.Table
	raster   Rasterizer
	fontPath string
}

// NewPipeline creates a pipeline mapping emotes through table and drawing
// images with raster and the font at fontPath.
func NewPipeline(table *glyph.Table, raster Rasterizer, fontPath string) *Pipeline {
	return &Pipeline{
		marker:   detect.NewMarker(madouji.Tag),
		emotes:   table,
		raster:   raster,
		fontPath: fontPath,
	}
}

// Marker returns the marker the pipeline detects.
func (p *Pipeline) Marker() *detect.Marker {
	return p.marker
}

// EmoteText composes text and maps it to emote tokens.
func (p *Pipeline) EmoteText(text string) string {
	return p.emotes.Map(madouji.Compose(text))
}

// Emotes replaces every inline marker in message with its emote rendering.
// It reports false when message holds no marker, in which case the message
// is to be left alone.
func (p *Pipeline) Emotes(message string) (*Payload, bool) {
	start := time.Now()
	content, ok := p.marker.ReplaceInline(message, p.EmoteText)
	if !ok {
		RecordRender(ModeEmote, StatusNotApplicable)
		return nil, false
	}
	RecordRender(ModeEmote, StatusSuccess)
	RecordDuration(ModeEmote, time.Since(start))
	return &Payload{Content: content}, true
}

// Image composes content, wraps it per d and draws it at fontSize.
func (p *Pipeline) Image(ctx context.Context, content string, fontSize float64, d wrap.Directive) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code(CodeRenderFailed).Wrap(err)
	}
	start := time.Now()
	text := wrap.Apply(madouji.Compose(content), d)

	data, err := p.raster.Render(text, p.fontPath, fontSize)
	if err != nil {
		RecordRender(ModeImage, StatusError)
		return nil, oops.Code(CodeRenderFailed).
			With("wrap", d.Mode.String()).
			With("line_width", d.Width).
			Wrap(err)
	}
	RecordRender(ModeImage, StatusSuccess)
	RecordDuration(ModeImage, time.Since(start))
	return &Payload{File: NewFile(ImageFilename, data)}, nil
}
