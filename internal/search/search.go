// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package search runs paginated keyword searches against the site API and turns listing
// pages into normalized result rows.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/yggsearch/internal/categories"
	"github.com/autobrr/yggsearch/internal/metrics"
	"github.com/autobrr/yggsearch/internal/retrieve"
)

const (
	DefaultPerPage        = 100
	DefaultOrderBy        = "seeders"
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	// PlaceholderPasskey is what download links carry until a real passkey is configured.
	PlaceholderPasskey = "YOUR_PASSKEY_HERE"
)

var (
	// ErrFetchFailure is matched by *FetchError once a page exhausted its retries.
	ErrFetchFailure = errors.New("search page fetch failed")
	// ErrParseFailure marks a page or row that could not be interpreted.
	ErrParseFailure = errors.New("search result parse failed")
)

// FetchError describes a page that could not be retrieved.
type FetchError struct {
	URL      string
	Page     int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s) failed after %d attempt(s): %v", e.Page, e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	if target == ErrFetchFailure {
		return true
	}
	_, ok := target.(*FetchError)
	return ok
}

// Request is one search invocation. PageLimit <= 0 means no limit.
type Request struct {
	Query     string
	Category  string
	PageLimit int
}

// Row is a normalized search result.
type Row struct {
	Title       string
	TorrentID   string
	CategoryID  string
	SizeBytes   int64
	Seeders     int
	Leechers    int
	PublishedAt time.Time
	DownloadURL string
	DescURL     string
	InfoHash    string
	MagnetURI   string
}

// Link returns the magnet URI when preferMagnet is set and one is known, else the download URL.
func (r Row) Link(preferMagnet bool) string {
	if preferMagnet && r.MagnetURI != "" {
		return r.MagnetURI
	}
	return r.DownloadURL
}

// URLResolver yields the current site base URL. It must not fail.
type URLResolver interface {
	Resolve(ctx context.Context) string
}

// CategoryResolver maps a user category to a site id.
type CategoryResolver interface {
	Resolve(userCategory string) (string, error)
}

// Config carries the engine settings. Zero values get defaults, except RetryDelay where zero
// means retrying immediately.
type Config struct {
	// APIBaseURL receives search and download requests. Empty means the discovered site URL.
	APIBaseURL     string
	Passkey        string
	PerPage        int
	OrderBy        string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration

	// Filter is an optional boolean expression evaluated against each Row.
	Filter string
}

func (c Config) withDefaults() Config {
	if c.PerPage <= 0 {
		c.PerPage = DefaultPerPage
	}
	if strings.TrimSpace(c.OrderBy) == "" {
		c.OrderBy = DefaultOrderBy
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if strings.TrimSpace(c.Passkey) == "" {
		c.Passkey = PlaceholderPasskey
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	return c
}

// Engine builds lazy result streams. It holds no per-search state.
type Engine struct {
	cfg        Config
	resolver   URLResolver
	categories CategoryResolver
	retriever  retrieve.Retriever
	filter     *vm.Program
	metrics    *metrics.Collector
}

// Option customises an Engine.
type Option func(*Engine)

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithCategories replaces the default category table.
func WithCategories(c CategoryResolver) Option {
	return func(e *Engine) {
		if c != nil {
			e.categories = c
		}
	}
}

// NewEngine wires an Engine. A filter that does not compile is logged and ignored.
func NewEngine(cfg Config, resolver URLResolver, retriever retrieve.Retriever, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg.withDefaults(),
		resolver:   resolver,
		categories: categories.Default(),
		retriever:  retriever,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if strings.TrimSpace(e.cfg.Filter) != "" {
		program, err := CompileFilter(e.cfg.Filter)
		if err != nil {
			log.Warn().Err(err).Str("filter", e.cfg.Filter).Msg("ignoring invalid result filter")
		} else {
			e.filter = program
		}
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// HasPasskey reports whether download links carry a real passkey.
func (e *Engine) HasPasskey() bool {
	return e.cfg.Passkey != PlaceholderPasskey
}

// Search starts a new lazy search. Nothing touches the network until the first Next call.
func (e *Engine) Search(ctx context.Context, req Request) *Stream {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Stream{
		ctx:    ctx,
		engine: e,
		req:    req,
		state:  StateResolveURL,
		total:  -1,
	}
}

// Summary describes a search drained by Run.
type Summary struct {
	Emitted int
	Pages   int
	SiteURL string
	State   State
}

// Run pulls every row of a search into emit and returns a summary together with the fetch
// error that ended the search early, if any.
func (e *Engine) Run(ctx context.Context, req Request, emit Emitter) (Summary, error) {
	stream := e.Search(ctx, req)
	count := 0
	for row := range stream.Rows() {
		if err := emit.Emit(row); err != nil {
			log.Warn().Err(err).Str("torrentId", row.TorrentID).Msg("failed to emit result row")
			continue
		}
		count++
	}
	return Summary{
		Emitted: count,
		Pages:   stream.Page(),
		SiteURL: stream.SiteURL(),
		State:   stream.State(),
	}, stream.Err()
}

// resolveCategoryID soft-fails unknown categories to all.
func (e *Engine) resolveCategoryID(category string) string {
	id, err := e.categories.Resolve(category)
	if err == nil {
		return id
	}

	event := log.Warn().Err(err).Str("category", category)
	var unknown *categories.UnknownCategoryError
	if errors.As(err, &unknown) && len(unknown.Suggestions) > 0 {
		event = event.Strs("suggestions", unknown.Suggestions)
	}
	event.Msg("unknown category, searching all categories")
	e.metrics.ObserveCategoryFallback()
	return categories.All
}
