// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package wrap reflows composed text into lines of bounded width.
//
// Widths count code points. Grapheme clusters and display width are not
// considered, so combining marks count as their own column.
package wrap

import (
	"slices"
	"strings"
)

// Mode selects the line breaking policy.
type Mode int

// Supported wrap modes.
const (
	// ModeNone leaves text untouched.
	ModeNone Mode = iota
	// ModeFlow breaks greedily at spaces and newlines.
	ModeFlow
	// ModeForce cuts every Width code points regardless of words.
	ModeForce
)

// String returns the name used by the slash command choices.
func (m Mode) String() string {
	switch m {
	case ModeFlow:
		return "flow"
	case ModeForce:
		return "force"
	default:
		return "none"
	}
}

// ParseMode maps a mode name to a Mode. Unknown names select ModeNone.
func ParseMode(name string) Mode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "flow":
		return ModeFlow
	case "force":
		return ModeForce
	default:
		return ModeNone
	}
}

// Directive is a parsed wrap request. The zero value means no wrapping.
type Directive struct {
	Mode  Mode
	Width int
}

// NoWrap is the directive that leaves text unchanged.
var NoWrap = Directive{}

// Apply wraps text according to d. Directives with a non-positive width
// are treated as NoWrap.
func Apply(text string, d Directive) string {
	if d.Width <= 0 {
		return text
	}
	switch d.Mode {
	case ModeFlow:
		return Flow(text, d.Width)
	case ModeForce:
		return Force(text, d.Width)
	default:
		return text
	}
}

// Force cuts text every width code points, counted from the last break.
// A newline found before the cut, or exactly at it, becomes the break instead
// and counting restarts after it. No newline is appended past the end.
func Force(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	n := len(runes)

	out := make([]rune, 0, n+n/width+1)
	cursor := 0
	for cursor < n {
		skip := cursor + min(width, n-cursor)
		nl := slices.Index(runes[cursor:min(skip+1, n)], '\n')
		if nl >= 0 {
			skip = cursor + nl + 1
		}
		out = append(out, runes[cursor:skip]...)
		cursor = skip
		if nl < 0 && cursor < n {
			out = append(out, '\n')
		}
	}
	return string(out)
}

// Flow performs greedy word wrapping at spaces and newlines.
//
// linestart marks the first code point of the current output line and split1
// the start of the pending segment, just after the latest delimiter. A break
// is inserted before the pending segment once the line would reach width,
// unless the segment already starts the line or holds only its delimiter.
// Existing newlines are kept and never get a break next to them.
func Flow(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	n := len(runes)

	out := make([]rune, 0, n+n/width+1)
	linestart, split1 := 0, 0
	for cursor := 0; cursor < n; cursor++ {
		c := runes[cursor]
		if c != ' ' && c != '\n' {
			continue
		}
		if cursor-linestart >= width && split1 > linestart && cursor > split1 {
			out = append(out, '\n')
			linestart = split1
		}
		out = append(out, runes[split1:cursor+1]...)
		split1 = cursor + 1
		if c == '\n' {
			linestart = split1
		}
	}
	if split1 < n && n-linestart >= width && split1 > linestart {
		out = append(out, '\n')
	}
	out = append(out, runes[split1:]...)
	return string(out)
}
