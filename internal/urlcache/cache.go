// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package urlcache persists the last discovered site URL with a timestamp and expires it by TTL.
package urlcache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by a Store when no record exists for a key.
var ErrNotFound = errors.New("cache record not found")

// Store is the storage primitive behind the cache.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Entry is a decoded cache record.
type Entry struct {
	URL       string
	FetchedAt time.Time
}

// record is the persisted shape. Unknown fields are ignored on decode.
type record struct {
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// Cache wraps a Store with TTL semantics. All failures degrade to a miss.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache over store.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached URL when present, fresh, and well formed.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	entry, ok := c.Lookup(ctx, key)
	if !ok {
		return "", false
	}
	if !c.Valid(entry) {
		log.Debug().
			Str("key", key).
			Time("fetchedAt", entry.FetchedAt).
			Dur("ttl", c.ttl).
			Msg("cached url expired")
		return "", false
	}
	return entry.URL, true
}

// Lookup returns the decoded record regardless of its age.
func (c *Cache) Lookup(ctx context.Context, key string) (Entry, bool) {
	if c == nil || c.store == nil {
		return Entry{}, false
	}

	data, err := c.store.Load(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		case IsMalformed(err):
			log.Debug().Err(err).Str("key", key).Msg("url cache document malformed, treating as miss")
		default:
			log.Warn().Err(err).Str("key", key).Msg("url cache unreadable, treating as miss")
		}
		return Entry{}, false
	}

	entry, err := decode(data)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("url cache record malformed, treating as miss")
		return Entry{}, false
	}
	return entry, true
}

// Valid reports whether entry is still within the TTL.
func (c *Cache) Valid(entry Entry) bool {
	if entry.URL == "" {
		return false
	}
	age := c.now().Sub(entry.FetchedAt)
	return age >= 0 && age < c.ttl
}

// Save stores rawURL with the current timestamp. Failures are logged and swallowed.
func (c *Cache) Save(ctx context.Context, key, rawURL string) bool {
	if c == nil || c.store == nil {
		return false
	}
	if !validURL(rawURL) {
		log.Warn().Str("key", key).Str("url", rawURL).Msg("refusing to cache invalid url")
		return false
	}

	data, err := json.Marshal(record{
		URL:       rawURL,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode url cache record")
		return false
	}

	if err := c.store.Save(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to persist url cache, continuing uncached")
		return false
	}
	return true
}

func decode(data []byte) (Entry, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Entry{}, err
	}
	if !validURL(rec.URL) {
		return Entry{}, errors.New("record url is missing or invalid")
	}
	ts, err := parseTimestamp(rec.Timestamp)
	if err != nil {
		return Entry{}, err
	}
	return Entry{URL: rec.URL, FetchedAt: ts}, nil
}

// parseTimestamp accepts RFC3339 and the zone-less ISO format older caches were written with.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999", s, time.Local)
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
