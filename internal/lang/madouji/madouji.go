// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package madouji registers Madouji as an image language. Messages that
// consist of a single ```mdj block are drawn with the Madouji font.
package madouji

import (
	"github.com/runicbabble/runicbabble/internal/detect"
	script "github.com/runicbabble/runicbabble/internal/madouji"
	"github.com/runicbabble/runicbabble/internal/wrap"
)

// Name is the registry name of the language.
const Name = "madouji"

// Language implements lang.Language for Madouji blocks.
type Language struct {
	marker   *detect.Marker
	fontPath string
}

// New creates the language drawing with the font at fontPath.
func New(fontPath string) *Language {
	return &Language{
		marker:   detect.NewMarker(script.Tag),
		fontPath: fontPath,
	}
}

// Name returns "madouji".
func (l *Language) Name() string { return Name }

// FontPath returns the configured font path. Every block uses the same font.
func (l *Language) FontPath(string) string { return l.fontPath }

// IsResponsible reports whether message is a single Madouji block.
func (l *Language) IsResponsible(message string) bool {
	return l.marker.IsBlock(message)
}

// Format composes the block payload and applies its wrap directive.
// A message that is not a block is returned unchanged.
func (l *Language) Format(message string) string {
	block, ok := l.marker.ParseBlock(message)
	if !ok {
		return message
	}
	return wrap.Apply(script.Compose(block.Payload), block.Directive)
}
