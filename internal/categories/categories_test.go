// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package categories

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	m := Default()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty defaults to all", input: "", want: All},
		{name: "all", input: "all", want: All},
		{name: "standard alias", input: "movies", want: "2183"},
		{name: "standard alias case insensitive", input: "  TV ", want: "2184"},
		{name: "extended alias", input: "manga", want: "2155"},
		{name: "extended alias with space", input: "games windows", want: "2161"},
		{name: "standard wins over extended", input: "books", want: "2140"},
		{name: "site slug with accent", input: "série-tv", want: "2184"},
		{name: "site slug folded", input: "animation-serie", want: "2179"},
		{name: "site slug only", input: "hentai", want: "2190"},
		{name: "numeric passthrough", input: "2183", want: "2183"},
		{name: "numeric passthrough parent", input: "2145", want: "2145"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	m := Default()

	tests := []struct {
		name  string
		input string
	}{
		{name: "unknown alias", input: "invalid_category"},
		{name: "unknown numeric id", input: "9999"},
		{name: "negative number", input: "-2183"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.Resolve(tt.input)
			require.Error(t, err)
			assert.Empty(t, id)
			assert.True(t, errors.Is(err, ErrUnknownCategory))

			var catErr *UnknownCategoryError
			require.True(t, errors.As(err, &catErr))
			assert.Equal(t, tt.input, catErr.Input)
		})
	}
}

func TestResolveSuggestions(t *testing.T) {
	_, err := Default().Resolve("moviez")

	var catErr *UnknownCategoryError
	require.True(t, errors.As(err, &catErr))
	assert.Contains(t, catErr.Suggestions, "movies")
	assert.Contains(t, err.Error(), "did you mean")
}

func TestAllOrdering(t *testing.T) {
	entries := Default().All()
	require.NotEmpty(t, entries)

	assert.Equal(t, Entry{Alias: "all", ID: All}, entries[0])
	assert.Equal(t, Entry{Alias: "movies", ID: "2183"}, entries[1])
	assert.Equal(t, Entry{Alias: "books", ID: "2140"}, entries[8])
	assert.Equal(t, Entry{Alias: "animation", ID: "2178"}, entries[9])

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		_, dup := seen[e.Alias]
		assert.False(t, dup, "alias %s listed twice", e.Alias)
		seen[e.Alias] = struct{}{}
		if e.ID != All {
			assert.Regexp(t, `^\d+$`, e.ID)
		}
	}

	// mutating the copy must not leak into the table
	entries[0].ID = "mutated"
	assert.Equal(t, All, Default().All()[0].ID)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 62, Default().Count())
	assert.Greater(t, Default().Count(), 60)
}

func TestName(t *testing.T) {
	name, ok := Default().Name("2184")
	require.True(t, ok)
	assert.Equal(t, "série-tv", name)

	_, ok = Default().Name("1")
	assert.False(t, ok)
}

func TestIsStandard(t *testing.T) {
	m := Default()
	assert.True(t, m.IsStandard("Movies"))
	assert.False(t, m.IsStandard("manga"))
}
