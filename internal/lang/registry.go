// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package lang holds the registry of constructed languages the bot can
// render as images.
package lang

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/runicbabble/runicbabble/internal/render"
)

// Error codes returned by the registry.
const (
	CodeRegistrySealed    = "REGISTRY_SEALED"
	CodeDuplicateLanguage = "DUPLICATE_LANGUAGE"
)

// Language recognises messages written in one script and prepares them
// for drawing.
type Language interface {
	// Name identifies the language in logs and metrics.
	Name() string
	// IsResponsible reports whether the language handles message.
	IsResponsible(message string) bool
	// Format returns the text to draw for a message it is responsible for.
	Format(message string) string
	// FontPath is the font a message it is responsible for is drawn with.
	FontPath(message string) string
}

// Registry holds languages in registration order.
// Registration happens during startup; once sealed the registry is read
// without locking.
type Registry struct {
	mu     sync.Mutex
	langs  []Language
	sealed atomic.Bool
	raster render.Rasterizer
}

// NewRegistry creates an empty registry drawing with raster.
func NewRegistry(raster render.Rasterizer) *Registry {
	return &Registry{raster: raster}
}

// Register appends l. It fails once the registry is sealed or when a
// language with the same name is already registered.
func (r *Registry) Register(l Language) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return oops.Code(CodeRegistrySealed).
			With("language", l.Name()).
			Errorf("language registry is sealed")
	}
	for _, existing := range r.langs {
		if existing.Name() == l.Name() {
			return oops.Code(CodeDuplicateLanguage).
				With("language", l.Name()).
				Errorf("language already registered")
		}
	}

	r.langs = append(r.langs, l)
	slog.Info("registered language", "language", l.Name())
	return nil
}

// Seal stops further registration. Calling it more than once is harmless.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

func (r *Registry) languages() []Language {
	if r.sealed.Load() {
		return r.langs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Language(nil), r.langs...)
}

// Names returns the registered language names in registration order.
func (r *Registry) Names() []string {
	langs := r.languages()
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = l.Name()
	}
	return names
}

// Find returns the first language responsible for message.
func (r *Registry) Find(message string) (Language, bool) {
	for _, l := range r.languages() {
		if l.IsResponsible(message) {
			return l, true
		}
	}
	return nil, false
}

// Render draws message with the first responsible language.
// It returns a nil payload when no language accepts the message.
func (r *Registry) Render(ctx context.Context, message string, fontSize float64) (*render.Payload, error) {
	l, ok := r.Find(message)
	if !ok {
		render.RecordRender(render.ModeLanguage, render.StatusNotApplicable)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, oops.Code(render.CodeRenderFailed).With("language", l.Name()).Wrap(err)
	}

	start := time.Now()
	fontPath := l.FontPath(message)
	data, err := r.raster.Render(l.Format(message), fontPath, fontSize)
	if err != nil {
		render.RecordRender(render.ModeLanguage, render.StatusError)
		return nil, oops.Code(render.CodeRenderFailed).
			With("language", l.Name()).
			With("font_path", fontPath).
			Wrap(err)
	}
	render.RecordRender(render.ModeLanguage, render.StatusSuccess)
	render.RecordDuration(render.ModeLanguage, time.Since(start))

	return &render.Payload{File: render.NewFile(render.LanguageFilename, data)}, nil
}
