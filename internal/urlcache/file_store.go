// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package urlcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps every record in a single JSON document at a fixed path.
// The document maps key -> record; keys it does not touch are preserved verbatim.
// A document holding a bare top-level record, as older versions wrote it, answers
// for any key until the first save replaces it.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created lazily on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[key]
	if !ok {
		return legacyRecord(doc)
	}
	return raw, nil
}

// legacy top-level record fields
var legacyKeys = []string{"url", "timestamp"}

func legacyRecord(doc map[string]json.RawMessage) ([]byte, error) {
	rec := make(map[string]json.RawMessage, len(legacyKeys))
	for _, k := range legacyKeys {
		v, ok := doc[k]
		if !ok {
			return nil, ErrNotFound
		}
		rec[k] = v
	}
	return json.Marshal(rec)
}

// Save rewrites the document through a temp file in the same directory and renames it
// into place, so readers never observe a partially written file.
func (s *FileStore) Save(_ context.Context, key string, data []byte) (err error) {
	doc, readErr := s.read()
	if readErr != nil {
		// a corrupt or missing document is replaced rather than merged
		doc = make(map[string]json.RawMessage, 1)
	}
	for _, k := range legacyKeys {
		if k != key {
			delete(doc, k)
		}
	}
	doc[key] = json.RawMessage(data)

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(encoded); err != nil {
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cache file: %w", errMalformed)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode cache file: %w", errMalformed)
	}
	return doc, nil
}

var errMalformed = errors.New("malformed cache document")

// IsMalformed reports whether err came from an undecodable cache document.
func IsMalformed(err error) bool {
	return errors.Is(err, errMalformed)
}
