// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package glyph maps characters to renderable tokens, such as custom emoji
// handles, resolved against a live catalog.
package glyph

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Catalog resolves an emoji name to the token that renders it.
type Catalog interface {
	Resolve(name string) (token string, ok bool)
}

// CatalogFunc adapts a function to the Catalog interface.
type CatalogFunc func(name string) (string, bool)

// Resolve calls f(name).
func (f CatalogFunc) Resolve(name string) (string, bool) {
	return f(name)
}

// MapCatalog is a Catalog backed by a name to token map.
type MapCatalog map[string]string

// Resolve looks name up in the map.
func (c MapCatalog) Resolve(name string) (string, bool) {
	token, ok := c[name]
	return token, ok
}

// Table maps runes to tokens.
//
// A Table starts empty, in which state Map returns its input unchanged.
// Populate fills it once the catalog is available; readers may call Map
// concurrently with Populate and see either the old or the new contents.
type Table struct {
	mu     sync.RWMutex
	tokens map[rune]string
	ready  atomic.Bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{tokens: map[rune]string{}}
}

// Populate resolves every name against catalog and replaces the table
// contents. Names the catalog cannot resolve are left out, so their
// characters pass through unchanged. It returns the unresolved names.
func (t *Table) Populate(names map[rune]string, catalog Catalog) []string {
	tokens := make(map[rune]string, len(names))
	var missing []string
	for c, name := range names {
		token, ok := catalog.Resolve(name)
		if !ok || token == "" {
			missing = append(missing, name)
			continue
		}
		tokens[c] = token
	}

	t.mu.Lock()
	t.tokens = tokens
	t.mu.Unlock()
	t.ready.Store(true)

	return missing
}

// Ready reports whether Populate has completed at least once.
func (t *Table) Ready() bool {
	return t.ready.Load()
}

// Len returns the number of resolved characters.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tokens)
}

// Lookup returns the token for c.
func (t *Table) Lookup(c rune) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	token, ok := t.tokens[c]
	return token, ok
}

// Map replaces each rune of text that has a token, keeping the order and
// passing every other rune through verbatim.
func (t *Table) Map(text string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.tokens) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, c := range text {
		if token, ok := t.tokens[c]; ok {
			b.WriteString(token)
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}
