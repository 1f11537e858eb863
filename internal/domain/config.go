// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

// Config is built once at startup and threaded into the fetcher and the search engine.
type Config struct {
	Version         string
	LogLevel        string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath         string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize      int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups   int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir         string `toml:"dataDir" mapstructure:"dataDir"`
	Passkey         string `toml:"passkey" mapstructure:"passkey"`
	PasskeyFile     string `toml:"passkeyFile" mapstructure:"passkeyFile"`
	MetricsTextfile string `toml:"metricsTextfile" mapstructure:"metricsTextfile"`

	API       APIConfig       `toml:"api" mapstructure:"api"`
	Discovery DiscoveryConfig `toml:"discovery" mapstructure:"discovery"`
	Cache     CacheConfig     `toml:"cache" mapstructure:"cache"`
	Search    SearchConfig    `toml:"search" mapstructure:"search"`
}

type APIConfig struct {
	BaseURL   string `toml:"baseUrl" mapstructure:"baseUrl"`
	UserAgent string `toml:"userAgent" mapstructure:"userAgent"`
}

type DiscoveryConfig struct {
	URL         string        `toml:"url" mapstructure:"url"`
	FallbackURL string        `toml:"fallbackUrl" mapstructure:"fallbackUrl"`
	Domain      string        `toml:"domain" mapstructure:"domain"`
	Timeout     time.Duration `toml:"timeout" mapstructure:"timeout"`
}

type CacheConfig struct {
	Backend string        `toml:"backend" mapstructure:"backend"`
	Path    string        `toml:"path" mapstructure:"path"`
	TTL     time.Duration `toml:"ttl" mapstructure:"ttl"`
}

type SearchConfig struct {
	PerPage        int           `toml:"perPage" mapstructure:"perPage"`
	OrderBy        string        `toml:"orderBy" mapstructure:"orderBy"`
	MaxRetries     int           `toml:"maxRetries" mapstructure:"maxRetries"`
	RetryDelay     time.Duration `toml:"retryDelay" mapstructure:"retryDelay"`
	RequestTimeout time.Duration `toml:"requestTimeout" mapstructure:"requestTimeout"`
	MaxPages       int           `toml:"maxPages" mapstructure:"maxPages"`
	Filter         string        `toml:"filter" mapstructure:"filter"`
}
