// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/yggsearch/internal/categories"
)

func clearPasskeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"YGG_PASSKEY", "YGG_PASSKEY_FILE", "YGGSEARCH__PASSKEY", "YGGSEARCH__PASSKEY_FILE"} {
		t.Setenv(name, "")
	}
}

type testSite struct {
	server        *httptest.Server
	searchStatus  int
	searchCalls   atomic.Int32
	discoverCalls atomic.Int32
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	site := &testSite{searchStatus: http.StatusOK}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/@ygg":
			site.discoverCalls.Add(1)
			fmt.Fprint(w, `<html><body><a href="https://www.yggtorrent.test/">YggTorrent</a></body></html>`)
		case "/torrents":
			site.searchCalls.Add(1)
			if site.searchStatus != http.StatusOK {
				w.WriteHeader(site.searchStatus)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[
				{"id": 1, "title": "Ubuntu 24.04 Desktop", "size": 6114770944, "seeders": 42, "leechers": 3, "uploaded_at": "2024-04-25T12:00:00Z"},
				{"id": 2, "title": "Ubuntu 24.04 Server", "size": 2754981888, "seeders": 7, "leechers": 1, "uploaded_at": "2024-04-26T12:00:00Z"}
			]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.server.Close)
	return site
}

func writeTestConfig(t *testing.T, site *testSite, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`logLevel = "ERROR"
metricsTextfile = %q

[api]
baseUrl = %q

[discovery]
url = %q

[cache]
backend = "memory"

[search]
retryDelay = "0s"
%s`, filepath.Join(dir, "metrics.prom"), site.server.URL, site.server.URL+"/@ygg", extra)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	require.NoError(t, root.Execute())
	return out.String()
}

func TestSearchCommand_NovaOutput(t *testing.T) {
	clearPasskeyEnv(t)
	site := newTestSite(t)
	dir := writeTestConfig(t, site, "")

	out := execute(t, "--config-dir", dir, "search", "ubuntu", "24.04")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "|")
	require.Len(t, fields, 8)
	assert.Equal(t, site.server.URL+"/torrent/1/download?passkey=YOUR_PASSKEY_HERE", fields[0])
	assert.Equal(t, "Ubuntu 24.04 Desktop", fields[1])
	assert.Equal(t, "6114770944", fields[2])
	assert.Equal(t, "42", fields[3])
	assert.Equal(t, "3", fields[4])
	assert.Equal(t, site.server.URL, fields[5], "engine_url is where searches went")
	assert.Equal(t, "1714046400", fields[7])

	assert.EqualValues(t, 1, site.discoverCalls.Load())
	assert.EqualValues(t, 1, site.searchCalls.Load(), "short first page ends the search")

	metricsOut, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metricsOut), `yggsearch_discovery_total{outcome="discovered"} 1`)
}

func TestSearchCommand_JSONWithPasskey(t *testing.T) {
	clearPasskeyEnv(t)
	site := newTestSite(t)
	dir := writeTestConfig(t, site, "")
	t.Setenv("YGG_PASSKEY", "secret")

	out := execute(t, "--config-dir", dir, "search", "--json", "--filter", "Seeders >= 10", "ubuntu")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)

	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &row))
	assert.Equal(t, "Ubuntu 24.04 Desktop", row["name"])
	assert.Equal(t, site.server.URL+"/torrent/1/download?passkey=secret", row["link"])
	assert.Equal(t, "5.7 GiB", row["humanSize"])
}

func TestSearchCommand_FetchFailureStillSucceeds(t *testing.T) {
	clearPasskeyEnv(t)
	site := newTestSite(t)
	site.searchStatus = http.StatusServiceUnavailable
	dir := writeTestConfig(t, site, "maxRetries = 2\n")

	out := execute(t, "--config-dir", dir, "search", "ubuntu")

	assert.Empty(t, strings.TrimSpace(out))
	assert.EqualValues(t, 2, site.searchCalls.Load())
}

func TestSearchCommand_BadConfigFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("this is = = not toml"), 0o644))

	root := newRootCommand()
	root.SetArgs([]string{"--config-dir", dir, "search", "ubuntu"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.Error(t, root.Execute())
}

func TestResolveURLCommand(t *testing.T) {
	site := newTestSite(t)
	dir := writeTestConfig(t, site, "")

	out := execute(t, "--config-dir", dir, "resolve-url", "--refresh")
	assert.Equal(t, "https://www.yggtorrent.test\n", out)
	assert.EqualValues(t, 1, site.discoverCalls.Load())
}

func TestSearchCommand_DataDirHoldsURLCache(t *testing.T) {
	clearPasskeyEnv(t)
	site := newTestSite(t)
	dir := writeTestConfig(t, site, "")
	content, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	content = bytes.Replace(content, []byte(`backend = "memory"`), []byte(`backend = "file"`), 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), content, 0o644))

	dataDir := t.TempDir()
	execute(t, "--config-dir", dir, "--data-dir", dataDir, "search", "ubuntu")

	assert.FileExists(t, filepath.Join(dataDir, ".ygg_url_cache.json"))
	assert.NoFileExists(t, filepath.Join(dir, ".ygg_url_cache.json"))
}

func TestEngineURL(t *testing.T) {
	tests := []struct {
		name    string
		apiBase string
		siteURL string
		want    string
	}{
		{name: "api base wins", apiBase: "https://api.test", siteURL: "https://www.yggtorrent.test", want: "https://api.test"},
		{name: "site when no api base", apiBase: "", siteURL: "https://www.yggtorrent.test", want: "https://www.yggtorrent.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engineURL(tt.apiBase, tt.siteURL))
		})
	}
}

func TestWriteCategories(t *testing.T) {
	m := categories.Default()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeCategories(&buf, m, "text"))
		assert.True(t, strings.HasPrefix(buf.String(), "ALIAS"))
		assert.Contains(t, buf.String(), fmt.Sprintf("%d categories", m.Count()))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeCategories(&buf, m, "json"))
		var entries []categories.Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
		assert.Len(t, entries, m.Count())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeCategories(&buf, m, "yaml"))
		var entries []categories.Entry
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &entries))
		assert.Equal(t, m.All(), entries)
	})

	t.Run("unsupported", func(t *testing.T) {
		require.Error(t, writeCategories(&bytes.Buffer{}, m, "xml"))
	})
}

func TestConfigFilePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.conf")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.Equal(t, filepath.Join(dir, "config.toml"), configFilePath(dir))
	assert.Equal(t, "/etc/yggsearch/other.toml", configFilePath("/etc/yggsearch/other.toml"))
	assert.Equal(t, file, configFilePath(file))
}

func TestSearchOptions_PageLimit(t *testing.T) {
	assert.Equal(t, 4, searchOptions{}.pageLimit(4))
	assert.Equal(t, 2, searchOptions{pages: 2, pagesSet: true}.pageLimit(4))
	assert.Equal(t, 0, searchOptions{pages: -1, pagesSet: true}.pageLimit(4))
	assert.Equal(t, 0, searchOptions{}.pageLimit(-3))
}
