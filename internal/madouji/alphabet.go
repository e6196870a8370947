// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package madouji

// Alphabet lists the plain letters that have a dedicated Madouji emoji.
// Upper case entries are distinct glyphs, not case variants.
const Alphabet = "uoaeyiwUOAEYIWpbtdkgmnqjrlRfFsSxhvVzZ"

// Tag marks Madouji text in messages.
const Tag = "mdj"

// EmojiPrefix is shared by every Madouji emoji name.
const EmojiPrefix = "mdj_"

// specials maps composed letters and punctuation to their emoji suffix.
var specials = map[rune]string{
	'ú':          "u_",
	'ó':          "o_",
	'á':          "a_",
	'é':          "e_",
	'ý':          "y_",
	'í':          "i_",
	WDoubleAcute: "w_",
	' ':          "space",
	'.':          "dot",
	',':          "comma",
	'?':          "question",
	'#':          "direction",
}

// EmojiNames returns the emoji name for every character that has one.
// The map is freshly allocated on each call.
func EmojiNames() map[rune]string {
	names := make(map[rune]string, len(Alphabet)+len(specials))
	for _, c := range Alphabet {
		names[c] = EmojiPrefix + string(c)
	}
	for c, suffix := range specials {
		names[c] = EmojiPrefix + suffix
	}
	return names
}
