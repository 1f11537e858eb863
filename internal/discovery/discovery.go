// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package discovery locates the current base URL of the relocating site.
//
// Resolution is cache first, then a discovery page run through an ordered chain of
// extractors, then a fixed fallback. Resolve never fails.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/autobrr/yggsearch/internal/metrics"
	"github.com/autobrr/yggsearch/internal/retrieve"
	"github.com/autobrr/yggsearch/internal/urlcache"
)

const (
	DefaultEndpoint    = "https://yeeti.io/@ygg"
	DefaultFallbackURL = "https://www.yggtorrent.org"
	DefaultDomain      = "yggtorrent"

	defaultTimeout = 30 * time.Second
	cacheKeyPrefix = "site-url:"
)

// ErrDiscoveryFailed marks a discovery attempt that produced no URL.
var ErrDiscoveryFailed = errors.New("site url discovery failed")

// Options configures a Fetcher. Zero values fall back to the package defaults.
type Options struct {
	Endpoint    string
	FallbackURL string
	Domain      string
	Timeout     time.Duration
	Extractors  []Extractor
	Metrics     *metrics.Collector
}

// Fetcher resolves the site URL.
type Fetcher struct {
	cache      *urlcache.Cache
	retriever  retrieve.Retriever
	endpoint   string
	fallback   string
	domain     *Domain
	timeout    time.Duration
	extractors []Extractor
	key        string
	metrics    *metrics.Collector
	inflight   singleflight.Group
}

// NewFetcher wires a Fetcher. cache may be nil, in which case every call performs discovery.
func NewFetcher(cache *urlcache.Cache, retriever retrieve.Retriever, opts Options) *Fetcher {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FallbackURL == "" {
		opts.FallbackURL = DefaultFallbackURL
	}
	if opts.Domain == "" {
		opts.Domain = DefaultDomain
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if len(opts.Extractors) == 0 {
		opts.Extractors = DefaultExtractors()
	}

	return &Fetcher{
		cache:      cache,
		retriever:  retriever,
		endpoint:   opts.Endpoint,
		fallback:   strings.TrimRight(opts.FallbackURL, "/"),
		domain:     NewDomain(opts.Domain),
		timeout:    opts.Timeout,
		extractors: opts.Extractors,
		key:        CacheKey(opts.Endpoint, opts.Domain),
		metrics:    opts.Metrics,
	}
}

// CacheKey derives the cache record key for an endpoint/domain pair so that pointing the
// fetcher at another discovery page never reuses a stale answer.
func CacheKey(endpoint, domain string) string {
	sum := xxhash.Sum64String(strings.TrimSpace(endpoint) + "\x00" + strings.ToLower(strings.TrimSpace(domain)))
	return cacheKeyPrefix + strconv.FormatUint(sum, 16)
}

// Key returns the cache key in use.
func (f *Fetcher) Key() string {
	return f.key
}

// FallbackURL returns the URL used when discovery fails.
func (f *Fetcher) FallbackURL() string {
	return f.fallback
}

// Resolve returns the cached, discovered, or fallback URL, in that order of preference.
// Concurrent callers that miss the cache share a single discovery request.
func (f *Fetcher) Resolve(ctx context.Context) string {
	if f.cache != nil {
		if cached, ok := f.cache.Get(ctx, f.key); ok {
			log.Debug().Str("url", cached).Msg("using cached site url")
			f.metrics.ObserveDiscovery(metrics.OutcomeCacheHit)
			return cached
		}
	}

	v, _, _ := f.inflight.Do(f.key, func() (any, error) {
		return f.resolveMiss(ctx), nil
	})
	return v.(string)
}

func (f *Fetcher) resolveMiss(ctx context.Context) string {
	discovered, err := f.Discover(ctx)
	if err != nil {
		log.Warn().
			Err(err).
			Str("endpoint", f.endpoint).
			Str("fallback", f.fallback).
			Msg("site url discovery failed, using fallback")
		f.metrics.ObserveDiscovery(metrics.OutcomeFallback)
		return f.fallback
	}

	if f.cache != nil {
		f.cache.Save(ctx, f.key, discovered)
	}
	f.metrics.ObserveDiscovery(metrics.OutcomeDiscovered)
	return discovered
}

// Discover queries the discovery endpoint and runs the extractor chain, bypassing the cache.
// Every failure wraps ErrDiscoveryFailed.
func (f *Fetcher) Discover(ctx context.Context) (string, error) {
	if f.retriever == nil {
		return "", fmt.Errorf("%w: no retriever configured", ErrDiscoveryFailed)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.retriever.Retrieve(reqCtx, f.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}

	page := NewPage(body)
	for _, extractor := range f.extractors {
		if u, ok := extractor.Extract(page, f.domain); ok {
			log.Debug().
				Str("extractor", extractor.Name()).
				Str("url", u).
				Msg("discovered site url")
			return u, nil
		}
	}

	return "", fmt.Errorf("%w: no %s url found at %s", ErrDiscoveryFailed, f.domain.Keyword(), f.endpoint)
}
