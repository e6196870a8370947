// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package glyph

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCatalog() Catalog {
	return CatalogFunc(func(name string) (string, bool) {
		return ":" + name + ":", true
	})
}

func TestTable_BeforePopulate(t *testing.T) {
	table := NewTable()

	assert.False(t, table.Ready())
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, "áé hello", table.Map("áé hello"))

	_, ok := table.Lookup('a')
	assert.False(t, ok)
}

func TestTable_Populate(t *testing.T) {
	table := NewTable()
	missing := table.Populate(map[rune]string{'á': "a", 'é': "e"}, MapCatalog{"a": ":a:", "e": ":e:"})

	assert.Empty(t, missing)
	assert.True(t, table.Ready())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, ":a::e:", table.Map("áé"))
}

func TestTable_MapPassesUnknownRunes(t *testing.T) {
	table := NewTable()
	table.Populate(map[rune]string{'a': "mdj_a", ' ': "mdj_space"}, echoCatalog())

	assert.Equal(t, ":mdj_a::mdj_space:7!:mdj_a:", table.Map("a 7!a"))
}

func TestTable_UnresolvedNamesPassThrough(t *testing.T) {
	table := NewTable()
	missing := table.Populate(
		map[rune]string{'a': "mdj_a", 'b': "mdj_b", 'c': "mdj_c"},
		MapCatalog{"mdj_a": "<A>", "mdj_c": ""},
	)

	sort.Strings(missing)
	assert.Equal(t, []string{"mdj_b", "mdj_c"}, missing)
	assert.Equal(t, "<A>bc", table.Map("abc"))
	assert.True(t, table.Ready())
}

func TestTable_PopulateReplacesContents(t *testing.T) {
	table := NewTable()
	table.Populate(map[rune]string{'a': "x"}, MapCatalog{"x": "1"})
	table.Populate(map[rune]string{'b': "y"}, MapCatalog{"y": "2"})

	assert.Equal(t, "a2", table.Map("ab"))
}

func TestTable_ConcurrentPopulateAndMap(t *testing.T) {
	table := NewTable()
	names := map[rune]string{'a': "a", 'b': "b"}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			table.Populate(names, echoCatalog())
		}()
		go func() {
			defer wg.Done()
			got := table.Map("ab")
			assert.Contains(t, []string{"ab", ":a::b:"}, got)
		}()
	}
	wg.Wait()

	require.True(t, table.Ready())
	assert.Equal(t, ":a::b:", table.Map("ab"))
}
