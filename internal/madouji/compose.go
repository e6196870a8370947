// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package madouji holds the Madouji script tables: the diacritic digraphs
// accepted on input and the emoji names used for emote rendering.
package madouji

import "strings"

// WDoubleAcute stands in for w̋, which has no precomposed code point.
const WDoubleAcute = 'µ'

// composer rewrites letter+apostrophe digraphs in a single left-to-right pass.
// strings.Replacer never rescans its own output, so "a''" yields "á'".
var composer = strings.NewReplacer(
	"a'", "á", "A'", "á",
	"e'", "é", "E'", "é",
	"i'", "í", "I'", "í",
	"o'", "ó", "O'", "ó",
	"u'", "ú", "U'", "ú",
	"y'", "ý", "Y'", "ý",
	"w'", string(WDoubleAcute), "W'", string(WDoubleAcute),
)

// Compose replaces every accent digraph in s with its accented letter.
// The result is always lower case for the accented letter, and characters
// outside the digraph set are kept as they are.
func Compose(s string) string {
	return composer.Replace(s)
}
