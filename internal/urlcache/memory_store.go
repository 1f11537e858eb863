// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package urlcache

import (
	"context"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
)

// memoryRetention bounds how long the process keeps raw records; freshness is still
// decided by Cache.TTL.
const memoryRetention = 7 * 24 * time.Hour

// MemoryStore keeps records for the lifetime of the process.
type MemoryStore struct {
	items *ttlcache.Cache[string, []byte]
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: ttlcache.New(ttlcache.Options[string, []byte]{}.SetDefaultTTL(memoryRetention)),
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := s.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	s.items.Set(key, stored, ttlcache.DefaultTTL)
	return nil
}
