// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package retrieve

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		temporary  bool
	}{
		{name: "404 not found", statusCode: http.StatusNotFound, temporary: false},
		{name: "429 rate limited", statusCode: http.StatusTooManyRequests, temporary: true},
		{name: "503 unavailable", statusCode: http.StatusServiceUnavailable, temporary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &StatusError{StatusCode: tt.statusCode, URL: "https://example.com"}
			assert.Equal(t, tt.temporary, err.Temporary())
			assert.Contains(t, err.Error(), "https://example.com")

			wrapped := errors.Join(errors.New("wrapper"), err)
			assert.True(t, errors.Is(wrapped, &StatusError{}))
		})
	}
}

func TestHTTPRetriever_Retrieve(t *testing.T) {
	var gotUA, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	r := NewHTTPRetriever(Config{UserAgent: "test-agent"})
	body, err := r.Retrieve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, body)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, acceptEncodings, gotEncoding)
}

func TestHTTPRetriever_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPRetriever(Config{}).Retrieve(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestHTTPRetriever_Decoding(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte("gzipped body"))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte("brotli body"))
	require.NoError(t, bw.Close())

	tests := []struct {
		name        string
		encoding    string
		contentType string
		payload     []byte
		want        string
	}{
		{name: "gzip", encoding: "gzip", contentType: "text/plain; charset=utf-8", payload: gz.Bytes(), want: "gzipped body"},
		{name: "brotli", encoding: "br", contentType: "text/plain; charset=utf-8", payload: br.Bytes(), want: "brotli body"},
		{name: "latin1", contentType: "text/html; charset=ISO-8859-1", payload: []byte("s\xe9rie"), want: "série"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write(tt.payload)
			}))
			defer srv.Close()

			body, err := NewHTTPRetriever(Config{}).Retrieve(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestHTTPRetriever_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHTTPRetriever(Config{Timeout: 50 * time.Millisecond}).Retrieve(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestHTTPRetriever_EmptyURL(t *testing.T) {
	_, err := NewHTTPRetriever(Config{}).Retrieve(context.Background(), "  ")
	require.Error(t, err)
}

func TestFunc(t *testing.T) {
	var r Retriever = Func(func(_ context.Context, rawURL string) (string, error) {
		return "body:" + rawURL, nil
	})
	body, err := r.Retrieve(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "body:u", body)
}
