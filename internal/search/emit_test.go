// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() Row {
	return Row{
		Title:       "The.Matrix.1999.1080p.BluRay.x264-GROUP",
		TorrentID:   "555",
		CategoryID:  "2183",
		SizeBytes:   1288490189,
		Seeders:     42,
		Leechers:    3,
		PublishedAt: time.Date(2024, 4, 25, 12, 0, 0, 0, time.UTC),
		DownloadURL: "https://yggapi.eu/torrent/555/download?passkey=pk",
		DescURL:     "https://www.yggtorrent.org/torrent/555",
		InfoHash:    "0123456789abcdef0123456789abcdef01234567",
		MagnetURI:   BuildMagnetURI("0123456789abcdef0123456789abcdef01234567", "The.Matrix"),
	}
}

func TestToResult(t *testing.T) {
	row := sampleRow()

	res := ToResult(row, false)
	assert.Equal(t, Result{
		Name:          row.Title,
		HumanSize:     "1.2 GiB",
		Seeders:       42,
		Leechers:      3,
		PublishedDate: row.PublishedAt,
		Link:          row.DownloadURL,
		DescLink:      row.DescURL,
	}, res)

	assert.Equal(t, row.MagnetURI, ToResult(row, true).Link)
	assert.Equal(t, "-", HumanSize(0))
}

func TestNovaPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewNovaPrinter(&buf, "https://yggapi.eu", false)

	row := sampleRow()
	require.NoError(t, p.Emit(row))

	row.Title = "pipe | in\nname"
	row.SizeBytes = 0
	row.PublishedAt = UnknownDate
	require.NoError(t, p.Emit(row))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"https://yggapi.eu/torrent/555/download?passkey=pk|The.Matrix.1999.1080p.BluRay.x264-GROUP|1288490189|42|3|https://yggapi.eu|https://www.yggtorrent.org/torrent/555|1714046400",
		lines[0])
	assert.Equal(t,
		"https://yggapi.eu/torrent/555/download?passkey=pk|pipe - in name|-1|42|3|https://yggapi.eu|https://www.yggtorrent.org/torrent/555|-1",
		lines[1])
}

func TestJSONPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewJSONPrinter(&buf, true)
	require.NoError(t, p.Emit(sampleRow()))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "The.Matrix.1999.1080p.BluRay.x264-GROUP", out["name"])
	assert.Equal(t, "555", out["torrentId"])
	assert.Equal(t, "film", out["category"])
	assert.Equal(t, "1.2 GiB", out["humanSize"])
	assert.Equal(t, "2024-04-25T12:00:00Z", out["publishedAt"])
	assert.True(t, strings.HasPrefix(out["link"].(string), "magnet:?"))

	release, ok := out["release"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "The Matrix", release["title"])
	assert.EqualValues(t, 1999, release["year"])
	assert.Equal(t, "1080p", release["resolution"])
	assert.Equal(t, "GROUP", release["group"])
}

func TestJSONPrinter_UnknownDateOmitted(t *testing.T) {
	var buf bytes.Buffer
	row := sampleRow()
	row.PublishedAt = UnknownDate
	row.CategoryID = ""
	require.NoError(t, NewJSONPrinter(&buf, false).Emit(row))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.NotContains(t, out, "publishedAt")
	assert.NotContains(t, out, "category")
	assert.Equal(t, row.DownloadURL, out["link"])
}
