// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package categories maps human category selections to YggTorrent category identifiers.
package categories

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// All is the sentinel id meaning "no category filter".
const All = "all"

// ErrUnknownCategory is returned when a category matches no alias and no known site id.
var ErrUnknownCategory = errors.New("unknown category")

// UnknownCategoryError carries the rejected input and close aliases.
type UnknownCategoryError struct {
	Input       string
	Suggestions []string
}

func (e *UnknownCategoryError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown category %q", e.Input)
	}
	return fmt.Sprintf("unknown category %q (did you mean %s?)", e.Input, strings.Join(e.Suggestions, ", "))
}

func (e *UnknownCategoryError) Is(target error) bool {
	if target == ErrUnknownCategory {
		return true
	}
	_, ok := target.(*UnknownCategoryError)
	return ok
}

// Entry is a single alias to id mapping.
type Entry struct {
	Alias string `json:"alias" yaml:"alias"`
	ID    string `json:"id" yaml:"id"`
}

// Map is an immutable alias table. The zero value is not usable, see Default.
type Map struct {
	standard map[string]string
	extended map[string]string
	siteIDs  map[string]string
	ordered  []Entry
}

const maxSuggestions = 3

var defaultMap = sync.OnceValue(func() *Map {
	return New(standardAliases, extendedAliases, siteCategories)
})

// Default returns the shared YggTorrent category table.
func Default() *Map {
	return defaultMap()
}

// New builds a Map. Site category slugs are folded (lowercase, accents removed)
// and registered as extended aliases unless an explicit extended alias already exists.
func New(standard, extended []Entry, site map[string]string) *Map {
	m := &Map{
		standard: make(map[string]string, len(standard)),
		extended: make(map[string]string, len(extended)+len(site)),
		siteIDs:  make(map[string]string, len(site)),
		ordered:  make([]Entry, 0, len(standard)+len(extended)+len(site)),
	}

	for _, e := range standard {
		key := normalize(e.Alias)
		if _, dup := m.standard[key]; dup {
			continue
		}
		m.standard[key] = e.ID
		m.ordered = append(m.ordered, Entry{Alias: key, ID: e.ID})
	}

	for _, e := range extended {
		key := normalize(e.Alias)
		if _, dup := m.extended[key]; dup {
			continue
		}
		if _, shadowed := m.standard[key]; shadowed {
			continue
		}
		m.extended[key] = e.ID
		m.ordered = append(m.ordered, Entry{Alias: key, ID: e.ID})
	}

	ids := make([]string, 0, len(site))
	for id, name := range site {
		m.siteIDs[id] = name
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	for _, id := range ids {
		key := normalize(site[id])
		if _, dup := m.extended[key]; dup {
			continue
		}
		if _, shadowed := m.standard[key]; shadowed {
			continue
		}
		m.extended[key] = id
		m.ordered = append(m.ordered, Entry{Alias: key, ID: id})
	}

	return m
}

// Resolve maps a user category to a site id.
// Precedence: standard alias, extended alias, numeric passthrough, then "all" for empty input.
func (m *Map) Resolve(userCategory string) (string, error) {
	key := normalize(userCategory)
	if key == "" || key == All {
		return All, nil
	}

	if id, ok := m.standard[key]; ok {
		return id, nil
	}
	if id, ok := m.extended[key]; ok {
		return id, nil
	}
	if isDigits(key) {
		if _, ok := m.siteIDs[key]; ok {
			return key, nil
		}
	}

	return "", &UnknownCategoryError{Input: userCategory, Suggestions: m.suggest(key)}
}

// All returns every alias in a stable order: standard, extended, then site slugs by id.
func (m *Map) All() []Entry {
	out := make([]Entry, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// Count returns the number of distinct site categories.
func (m *Map) Count() int {
	return len(m.siteIDs)
}

// Name returns the site slug for an id.
func (m *Map) Name(id string) (string, bool) {
	name, ok := m.siteIDs[id]
	return name, ok
}

// IsStandard reports whether alias is one of the host runtime's standard categories.
func (m *Map) IsStandard(alias string) bool {
	_, ok := m.standard[normalize(alias)]
	return ok
}

func (m *Map) suggest(key string) []string {
	if key == "" {
		return nil
	}
	aliases := make([]string, 0, len(m.ordered))
	for _, e := range m.ordered {
		aliases = append(aliases, e.Alias)
	}
	ranks := fuzzy.RankFindNormalizedFold(key, aliases)
	sort.Sort(ranks)

	out := make([]string, 0, maxSuggestions)
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == maxSuggestions {
			return out
		}
	}

	// typos never match as subsequences, fall back to edit distance
	for _, alias := range aliases {
		if fuzzy.LevenshteinDistance(key, alias) <= 2 && !slices.Contains(out, alias) {
			out = append(out, alias)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

var accentFolder = runes.Remove(runes.In(unicode.Mn))

// normalize lowercases, trims, folds accents and maps spaces to underscores.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, accentFolder, norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), "_")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
