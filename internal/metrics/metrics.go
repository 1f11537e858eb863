// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes Prometheus collectors for discovery and search runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery outcomes.
const (
	OutcomeCacheHit   = "cache_hit"
	OutcomeDiscovered = "discovered"
	OutcomeFallback   = "fallback"
)

// Row statuses.
const (
	RowEmitted  = "emitted"
	RowSkipped  = "skipped"
	RowFiltered = "filtered"
)

// Collector owns a private registry so a run can be exported without touching the global one.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	discoveryTotal        *prometheus.CounterVec
	pageFetchesTotal      *prometheus.CounterVec
	fetchAttemptsTotal    prometheus.Counter
	pageFetchDuration     prometheus.Histogram
	rowsTotal             *prometheus.CounterVec
	categoryFallbackTotal prometheus.Counter
}

// New creates a Collector with all series registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		discoveryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yggsearch_discovery_total",
				Help: "Site URL resolutions, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		pageFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yggsearch_page_fetches_total",
				Help: "Search page fetches, labeled by status.",
			},
			[]string{"status"},
		),
		fetchAttemptsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yggsearch_fetch_attempts_total",
				Help: "Individual HTTP attempts made for search pages, retries included.",
			},
		),
		pageFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "yggsearch_page_fetch_duration_seconds",
				Help:    "Time spent fetching one search page including retries.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		rowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yggsearch_rows_total",
				Help: "Result rows, labeled by status.",
			},
			[]string{"status"},
		),
		categoryFallbackTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yggsearch_category_fallback_total",
				Help: "Unknown categories that fell back to all.",
			},
		),
	}
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) ObserveDiscovery(outcome string) {
	if c == nil {
		return
	}
	c.discoveryTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveFetchAttempt() {
	if c == nil {
		return
	}
	c.fetchAttemptsTotal.Inc()
}

// ObservePageFetch records one page fetch after all attempts finished.
func (c *Collector) ObservePageFetch(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.pageFetchesTotal.WithLabelValues(status).Inc()
	c.pageFetchDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveRow(status string) {
	if c == nil {
		return
	}
	c.rowsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) ObserveCategoryFallback() {
	if c == nil {
		return
	}
	c.categoryFallbackTotal.Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
