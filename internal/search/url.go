// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/autobrr/yggsearch/internal/categories"
)

// URLOptions are the listing parameters that do not change between pages.
type URLOptions struct {
	PerPage int
	OrderBy string
}

// BuildSearchURL returns {base}/torrents?q=..&page=..&per_page=..&order_by=..[&category_id=..].
// The all category omits category_id entirely.
func BuildSearchURL(base, query, categoryID string, page int, opts URLOptions) string {
	if page < 1 {
		page = 1
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.OrderBy == "" {
		opts.OrderBy = DefaultOrderBy
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(opts.PerPage))
	params.Set("order_by", opts.OrderBy)

	categoryID = strings.TrimSpace(categoryID)
	if categoryID != "" && categoryID != categories.All {
		params.Set("category_id", categoryID)
	}

	return strings.TrimRight(base, "/") + "/torrents?" + params.Encode()
}

// BuildDownloadURL returns {base}/torrent/{id}/download?passkey={passkey}.
func BuildDownloadURL(base, torrentID, passkey string) string {
	return strings.TrimRight(base, "/") + "/torrent/" + url.PathEscape(torrentID) + "/download?passkey=" + url.QueryEscape(passkey)
}

// BuildMagnetURI returns a magnet link for a hex info hash, or "" when the hash is not valid.
func BuildMagnetURI(infoHash, name string) string {
	infoHash = strings.TrimSpace(infoHash)
	if infoHash == "" {
		return ""
	}
	var hash metainfo.Hash
	if err := hash.FromHexString(infoHash); err != nil {
		return ""
	}
	return metainfo.Magnet{InfoHash: hash, DisplayName: name}.String()
}
