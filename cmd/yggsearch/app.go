// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/yggsearch/internal/buildinfo"
	"github.com/autobrr/yggsearch/internal/config"
	"github.com/autobrr/yggsearch/internal/discovery"
	"github.com/autobrr/yggsearch/internal/metrics"
	"github.com/autobrr/yggsearch/internal/retrieve"
	"github.com/autobrr/yggsearch/internal/search"
	"github.com/autobrr/yggsearch/internal/urlcache"
)

// Application holds everything one command invocation needs.
type Application struct {
	cfg        *config.AppConfig
	passkey    string
	retriever  retrieve.Retriever
	cache      *urlcache.Cache
	closeCache func() error
	fetcher    *discovery.Fetcher
	metrics    *metrics.Collector
}

func newApplication(flags *globalFlags) (*Application, error) {
	config.LoadDotEnv()

	cfg, err := config.New(flags.configDir, buildinfo.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cfg.ApplyLogConfig()
	cfg.SetLogLevel(flags.logLevel)
	if flags.dataDir != "" {
		cfg.SetDataDir(flags.dataDir)
	}

	log.Debug().
		Str("configDir", cfg.GetConfigDir()).
		Str("dataDir", cfg.GetDataDir()).
		Str("cacheBackend", cfg.Config.Cache.Backend).
		Str("cachePath", cfg.GetCachePath()).
		Msg("Loaded configuration")

	passkey, source := config.ResolvePasskey(cfg.Config)
	log.Debug().Str("source", string(source)).Msg("Resolved passkey")

	app := &Application{
		cfg:     cfg,
		passkey: passkey,
		metrics: metrics.New(),
		retriever: retrieve.NewHTTPRetriever(retrieve.Config{
			Timeout:   cfg.Config.Search.RequestTimeout,
			UserAgent: cfg.Config.API.UserAgent,
		}),
	}

	store, closeStore, err := urlcache.OpenStore(cfg.Config.Cache.Backend, cfg.GetCachePath())
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Config.Cache.Backend).Msg("Url cache unavailable, falling back to memory")
		store, closeStore = urlcache.NewMemoryStore(), func() error { return nil }
	}
	app.cache = urlcache.New(store, cfg.Config.Cache.TTL)
	app.closeCache = closeStore

	app.fetcher = discovery.NewFetcher(app.cache, app.retriever, discovery.Options{
		Endpoint:    cfg.Config.Discovery.URL,
		FallbackURL: cfg.Config.Discovery.FallbackURL,
		Domain:      cfg.Config.Discovery.Domain,
		Timeout:     cfg.Config.Discovery.Timeout,
		Metrics:     app.metrics,
	})

	return app, nil
}

func (app *Application) Close() {
	if app.closeCache == nil {
		return
	}
	if err := app.closeCache(); err != nil {
		log.Warn().Err(err).Msg("Failed to close url cache")
	}
}

// fixedURL serves a site URL resolved once per invocation.
type fixedURL string

func (u fixedURL) Resolve(context.Context) string {
	return string(u)
}

func (app *Application) newEngine(siteURL string) *search.Engine {
	sc := app.cfg.Config.Search
	return search.NewEngine(search.Config{
		APIBaseURL:     app.cfg.Config.API.BaseURL,
		Passkey:        app.passkey,
		PerPage:        sc.PerPage,
		OrderBy:        sc.OrderBy,
		MaxRetries:     sc.MaxRetries,
		RetryDelay:     sc.RetryDelay,
		RequestTimeout: sc.RequestTimeout,
		Filter:         sc.Filter,
	}, fixedURL(siteURL), app.retriever, search.WithMetrics(app.metrics))
}

func (app *Application) runSearch(ctx context.Context, w io.Writer, opts searchOptions) error {
	siteURL := app.fetcher.Resolve(ctx)
	engine := app.newEngine(siteURL)

	// magnets when no passkey is configured
	preferMagnet := !engine.HasPasskey()

	var emitter search.Emitter
	if opts.asJSON {
		emitter = search.NewJSONPrinter(w, preferMagnet)
	} else {
		emitter = search.NewNovaPrinter(w, engineURL(engine.Config().APIBaseURL, siteURL), preferMagnet)
	}

	summary, err := engine.Run(ctx, search.Request{
		Query:     opts.query,
		Category:  opts.category,
		PageLimit: opts.pageLimit(app.cfg.Config.Search.MaxPages),
	}, emitter)
	logSearchDone(summary, err)

	app.writeMetrics()
	return nil
}

// engineURL is the address search requests go to: the API base, or the site when unset.
func engineURL(apiBase, siteURL string) string {
	if apiBase != "" {
		return apiBase
	}
	return siteURL
}

func (app *Application) resolveURL(ctx context.Context, refresh bool) string {
	if !refresh {
		return app.fetcher.Resolve(ctx)
	}

	siteURL, err := app.fetcher.Discover(ctx)
	if err != nil {
		log.Warn().Err(err).Str("fallback", app.fetcher.FallbackURL()).Msg("Discovery failed, using fallback url")
		app.metrics.ObserveDiscovery(metrics.OutcomeFallback)
		return app.fetcher.FallbackURL()
	}
	if !app.cache.Save(ctx, app.fetcher.Key(), siteURL) {
		log.Warn().Str("url", siteURL).Msg("Could not store discovered url")
	}
	app.metrics.ObserveDiscovery(metrics.OutcomeDiscovered)
	return siteURL
}

func (app *Application) writeMetrics() {
	path := app.cfg.Config.MetricsTextfile
	if path == "" {
		return
	}
	if err := app.metrics.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
	}
}
