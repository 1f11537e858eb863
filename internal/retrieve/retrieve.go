// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package retrieve is the single network boundary: it turns a URL into a response body.
package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/autobrr/yggsearch/internal/buildinfo"
)

const (
	defaultTimeout        = 30 * time.Second
	maxBodyBytes    int64 = 8 << 20 // 8 MiB safety limit for listing pages
	acceptEncodings       = "gzip, br"
)

// Retriever fetches the body behind a URL.
type Retriever interface {
	Retrieve(ctx context.Context, rawURL string) (string, error)
}

// Func adapts a plain function to Retriever.
type Func func(ctx context.Context, rawURL string) (string, error)

func (f Func) Retrieve(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s returned status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	_, ok := target.(*StatusError)
	return ok
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Config controls the HTTP retriever.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
}

// HTTPRetriever implements Retriever over net/http.
type HTTPRetriever struct {
	client    *http.Client
	userAgent string
}

// NewHTTPRetriever builds an HTTPRetriever. A nil Client gets a fresh one bounded by Timeout.
func NewHTTPRetriever(cfg Config) *HTTPRetriever {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = buildinfo.UserAgent
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPRetriever{client: client, userAgent: cfg.UserAgent}
}

// Retrieve performs a GET and returns the decoded body as UTF-8 text.
func (r *HTTPRetriever) Retrieve(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("url is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Encoding", acceptEncodings)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "request %s", rawURL)
	}
	defer resp.Body.Close()

	log.Trace().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("retrieved")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", err
	}
	return body, nil
}

func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", errors.Wrap(err, "open gzip body")
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	limited := io.LimitReader(reader, maxBodyBytes+1)

	utf8Reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		// unknown charset labels are read as-is
		log.Debug().Err(err).Str("contentType", resp.Header.Get("Content-Type")).Msg("charset detection failed")
		utf8Reader = limited
	}

	data, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}
	if int64(len(data)) > maxBodyBytes {
		return "", fmt.Errorf("response exceeded %d bytes limit", maxBodyBytes)
	}
	return string(data), nil
}
