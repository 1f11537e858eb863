// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/yggsearch/internal/metrics"
	"github.com/autobrr/yggsearch/internal/retrieve"
)

// State is a step of the per-search state machine.
type State int

const (
	StateResolveURL State = iota
	StateResolveCategory
	StateFetchPage
	StateParsePage
	StateDecideContinue
	StateHaltExhausted
	StateHaltError
	StateHaltLimit
)

var stateNames = map[State]string{
	StateResolveURL:      "resolve_url",
	StateResolveCategory: "resolve_category",
	StateFetchPage:       "fetch_page",
	StateParsePage:       "parse_page",
	StateDecideContinue:  "decide_continue",
	StateHaltExhausted:   "halt_exhausted",
	StateHaltError:       "halt_error",
	StateHaltLimit:       "halt_limit",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether no further transitions happen.
func (s State) Terminal() bool {
	return s == StateHaltExhausted || s == StateHaltError || s == StateHaltLimit
}

// ShouldContinuePagination continues while the page produced rows and, when the total is
// known (totalKnown >= 0), while pageIndex*pageSize is still below it.
func ShouldContinuePagination(rowsOnPage, pageIndex, pageSize, totalKnown int) bool {
	if rowsOnPage <= 0 {
		return false
	}
	if totalKnown < 0 {
		return true
	}
	return pageIndex*pageSize < totalKnown
}

// Stream is a lazy, pull-driven search. A page is only requested once every row of the
// previous page has been handed out. Streams are not safe for concurrent use.
type Stream struct {
	ctx    context.Context
	engine *Engine
	req    Request
	state  State

	siteURL    string
	apiBase    string
	categoryID string

	page     int
	body     string
	rawCount int
	total    int

	buf []Row
	pos int
	cur Row
	err error
}

// Next advances to the next row, fetching pages as needed.
func (s *Stream) Next() bool {
	for {
		if s.pos < len(s.buf) {
			s.cur = s.buf[s.pos]
			s.pos++
			return true
		}
		if s.state.Terminal() {
			return false
		}
		s.step()
	}
}

// Row returns the row produced by the last successful Next.
func (s *Stream) Row() Row {
	return s.cur
}

// Err returns the fetch failure that halted the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// State returns the current state.
func (s *Stream) State() State {
	return s.state
}

// Page returns the index of the last requested page, 0 before the first fetch.
func (s *Stream) Page() int {
	return s.page
}

// SiteURL returns the resolved site URL once the stream has started.
func (s *Stream) SiteURL() string {
	return s.siteURL
}

// Rows adapts the stream to a range-over-func iterator. Breaking out of the loop stops
// all further fetching.
func (s *Stream) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for s.Next() {
			if !yield(s.Row()) {
				return
			}
		}
	}
}

func (s *Stream) step() {
	switch s.state {
	case StateResolveURL:
		s.resolveURL()
	case StateResolveCategory:
		s.categoryID = s.engine.resolveCategoryID(s.req.Category)
		s.page = 1
		s.state = StateFetchPage
	case StateFetchPage:
		s.fetch()
	case StateParsePage:
		s.parse()
	case StateDecideContinue:
		s.decide()
	}
}

func (s *Stream) resolveURL() {
	if s.engine.resolver != nil {
		s.siteURL = strings.TrimRight(s.engine.resolver.Resolve(s.ctx), "/")
	}
	s.apiBase = s.engine.cfg.APIBaseURL
	if s.apiBase == "" {
		s.apiBase = s.siteURL
	}
	log.Debug().
		Str("siteUrl", s.siteURL).
		Str("apiBase", s.apiBase).
		Msg("search base resolved")
	s.state = StateResolveCategory
}

func (s *Stream) fetch() {
	if err := s.ctx.Err(); err != nil {
		s.halt(StateHaltError, err)
		return
	}

	searchURL := BuildSearchURL(s.apiBase, s.req.Query, s.categoryID, s.page, URLOptions{
		PerPage: s.engine.cfg.PerPage,
		OrderBy: s.engine.cfg.OrderBy,
	})

	body, err := s.engine.fetchPage(s.ctx, searchURL, s.page)
	if err != nil {
		log.Error().
			Err(err).
			Str("query", s.req.Query).
			Int("page", s.page).
			Msg("search aborted")
		s.halt(StateHaltError, err)
		return
	}

	s.body = body
	s.state = StateParsePage
}

func (s *Stream) parse() {
	page, err := ParsePage(s.body)
	s.body = ""
	if err != nil {
		log.Warn().Err(err).Int("page", s.page).Msg("search page could not be parsed, treating as empty")
		page = Page{Total: -1}
	}

	s.rawCount = len(page.Items)
	if page.Total >= 0 {
		s.total = page.Total
	}

	s.buf = s.buf[:0]
	s.pos = 0
	for _, item := range page.Items {
		row, err := s.engine.buildRow(item, s.apiBase, s.siteURL)
		if err != nil {
			log.Warn().Err(err).Int("page", s.page).Str("torrentId", item.ID).Msg("skipping result row")
			s.engine.metrics.ObserveRow(metrics.RowSkipped)
			continue
		}
		if !s.engine.accept(row) {
			s.engine.metrics.ObserveRow(metrics.RowFiltered)
			continue
		}
		s.engine.metrics.ObserveRow(metrics.RowEmitted)
		s.buf = append(s.buf, row)
	}

	s.state = StateDecideContinue
}

func (s *Stream) decide() {
	pageSize := s.engine.cfg.PerPage

	switch {
	case !ShouldContinuePagination(s.rawCount, s.page, pageSize, s.total):
		s.halt(StateHaltExhausted, nil)
	case s.rawCount < pageSize:
		// a short page is the last one even when no total was reported
		s.halt(StateHaltExhausted, nil)
	case s.req.PageLimit > 0 && s.page >= s.req.PageLimit:
		s.halt(StateHaltLimit, nil)
	default:
		s.page++
		s.state = StateFetchPage
	}
}

func (s *Stream) halt(state State, err error) {
	s.state = state
	s.err = err
	log.Debug().
		Stringer("state", state).
		Int("page", s.page).
		Msg("search halted")
}

// fetchPage retrieves one page with a bounded number of attempts, each under its own timeout.
func (e *Engine) fetchPage(ctx context.Context, pageURL string, page int) (string, error) {
	if e.retriever == nil {
		return "", &FetchError{URL: pageURL, Page: page, Err: errors.New("no retriever configured")}
	}

	var (
		body     string
		attempts int
	)
	start := time.Now()

	err := retry.Do(
		func() error {
			attempts++
			e.metrics.ObserveFetchAttempt()

			reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
			defer cancel()

			b, err := e.retriever.Retrieve(reqCtx, pageURL)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(e.cfg.MaxRetries)),
		retry.Delay(e.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n+1).Str("url", pageURL).Msg("search page attempt failed")
		}),
	)

	e.metrics.ObservePageFetch(err, time.Since(start))
	if err != nil {
		return "", &FetchError{URL: pageURL, Page: page, Attempts: attempts, Err: err}
	}
	return body, nil
}

// isRetryable gives up early on client errors that will not change on retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var status *retrieve.StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}
