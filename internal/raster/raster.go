// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package raster draws multi-line text into transparent PNG images using
// OpenType fonts loaded from disk.
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Error codes for rasterization failures.
const (
	CodeFontLoad = "FONT_LOAD_FAILED"
	CodeDraw     = "DRAW_FAILED"
)

// dpi makes one point equal one pixel, so the font size is a pixel size.
const dpi = 72

// Foreground is the text colour.
var Foreground color.Color = color.White

// Rasterizer renders text with fonts identified by path.
// Parsed fonts are cached; a Rasterizer is safe for concurrent use.
type Rasterizer struct {
	mu       sync.Mutex
	fonts    map[string]*opentype.Font
	readFile func(string) ([]byte, error)
}

// New creates a Rasterizer reading font files from the local filesystem.
func New() *Rasterizer {
	return &Rasterizer{
		fonts:    make(map[string]*opentype.Font),
		readFile: os.ReadFile,
	}
}

// AddFont parses data and stores it under path, bypassing the filesystem.
func (r *Rasterizer) AddFont(path string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return oops.Code(CodeFontLoad).With("font_path", path).Wrap(err)
	}
	r.mu.Lock()
	r.fonts[path] = f
	r.mu.Unlock()
	return nil
}

// Font returns the parsed font at path, loading it on first use.
func (r *Rasterizer) Font(path string) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.fonts[path]; ok {
		return f, nil
	}
	data, err := r.readFile(path)
	if err != nil {
		return nil, oops.Code(CodeFontLoad).With("font_path", path).Wrap(err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, oops.Code(CodeFontLoad).With("font_path", path).Wrap(err)
	}
	r.fonts[path] = f
	return f, nil
}

// Render draws text with the font at fontPath and returns it PNG encoded.
func (r *Rasterizer) Render(text, fontPath string, size float64) ([]byte, error) {
	f, err := r.Font(fontPath)
	if err != nil {
		return nil, err
	}
	img, err := Draw(f, text, size)
	if err != nil {
		return nil, oops.With("font_path", fontPath).Wrap(err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, oops.Code(CodeDraw).Wrap(err)
	}
	return buf.Bytes(), nil
}

// Draw renders text line by line onto a transparent image sized to the
// text bounds. Newlines start a new line. Empty text yields a 1x1 image,
// the smallest size a PNG can hold.
func Draw(f *opentype.Font, text string, size float64) (*image.NRGBA, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, oops.Code(CodeDraw).With("size", size).Wrap(err)
	}
	defer face.Close()

	lines := strings.Split(text, "\n")
	metrics := face.Metrics()

	var width fixed.Int26_6
	for _, line := range lines {
		width = max(width, font.MeasureString(face, line))
	}
	height := metrics.Height.Mul(fixed.I(len(lines)-1)) + metrics.Ascent + metrics.Descent

	img := image.NewNRGBA(image.Rect(0, 0, max(width.Ceil(), 1), max(height.Ceil(), 1)))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(Foreground),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{
			X: 0,
			Y: metrics.Ascent + metrics.Height.Mul(fixed.I(i)),
		}
		d.DrawString(line)
	}
	return img, nil
}
