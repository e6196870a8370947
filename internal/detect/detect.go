// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package detect recognizes the marker syntax users write to request a
// rendering, and extracts the payload and wrap directive from it.
//
// Two forms exist for a tag such as "mdj":
//
//   - inline: `mdj text` anywhere in a message; each occurrence is replaced
//     in place and a backslash right before the opening backtick escapes it.
//   - block: the whole message is ```mdj[-width[!]] text```, optionally
//     selecting flow wrapping (-width) or forced wrapping (-width!).
package detect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/runicbabble/runicbabble/internal/wrap"
)

// Block is the content of a block marker.
type Block struct {
	Payload   string
	Directive wrap.Directive
}

// Marker matches the inline and block syntax for one tag.
// A Marker is immutable and safe for concurrent use.
type Marker struct {
	tag    string
	inline *regexp.Regexp
	block  *regexp.Regexp
}

// NewMarker compiles the marker patterns for tag.
func NewMarker(tag string) *Marker {
	q := regexp.QuoteMeta(tag)
	return &Marker{
		tag:    tag,
		inline: regexp.MustCompile("`" + q + `\s([^` + "`" + `]*)` + "`"),
		block:  regexp.MustCompile("(?s)\\A```" + q + `(?:-(\d+)(!)?)?\s(.*)` + "```\\n?\\z"),
	}
}

// Tag returns the marker tag.
func (m *Marker) Tag() string {
	return m.tag
}

// ReplaceInline replaces every unescaped inline marker in message with
// fn(payload). It reports false, and returns message unchanged, when no
// marker was found.
func (m *Marker) ReplaceInline(message string, fn func(payload string) string) (string, bool) {
	var b strings.Builder
	found := false
	last, pos := 0, 0
	for pos < len(message) {
		loc := m.inline.FindStringSubmatchIndex(message[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if start > 0 && message[start-1] == '\\' {
			// Escaped: retry just past the opening backtick.
			pos = start + 1
			continue
		}
		if !found {
			b.Grow(len(message))
			found = true
		}
		b.WriteString(message[last:start])
		b.WriteString(fn(message[pos+loc[2] : pos+loc[3]]))
		last, pos = end, end
	}
	if !found {
		return message, false
	}
	b.WriteString(message[last:])
	return b.String(), true
}

// ContainsInline reports whether message holds at least one unescaped
// inline marker.
func (m *Marker) ContainsInline(message string) bool {
	_, ok := m.ReplaceInline(message, func(string) string { return "" })
	return ok
}

// ParseBlock matches the whole message against the block syntax.
// A width that does not fit an int, or is zero, yields no wrapping.
func (m *Marker) ParseBlock(message string) (Block, bool) {
	sub := m.block.FindStringSubmatch(message)
	if sub == nil {
		return Block{}, false
	}
	return Block{
		Payload:   strings.TrimSpace(sub[3]),
		Directive: parseDirective(sub[1], sub[2] == "!"),
	}, true
}

// IsBlock reports whether the whole message is a block marker.
func (m *Marker) IsBlock(message string) bool {
	return m.block.MatchString(message)
}

func parseDirective(width string, force bool) wrap.Directive {
	if width == "" {
		return wrap.NoWrap
	}
	n, err := strconv.Atoi(width)
	if err != nil || n <= 0 {
		return wrap.NoWrap
	}
	if force {
		return wrap.Directive{Mode: wrap.ModeForce, Width: n}
	}
	return wrap.Directive{Mode: wrap.ModeFlow, Width: n}
}
