// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// buildRow normalizes a listing item. Items without a title or torrent id wrap ErrParseFailure.
func (e *Engine) buildRow(item Item, apiBase, siteURL string) (Row, error) {
	title := strings.TrimSpace(item.Title)
	id := strings.TrimSpace(item.ID)
	switch {
	case title == "":
		return Row{}, fmt.Errorf("%w: missing title", ErrParseFailure)
	case id == "":
		return Row{}, fmt.Errorf("%w: missing torrent id for %q", ErrParseFailure, title)
	}

	row := Row{
		Title:       title,
		TorrentID:   id,
		CategoryID:  strings.TrimSpace(item.CategoryID),
		SizeBytes:   parseItemSize(item.Size),
		Seeders:     parseCount(item.Seeders),
		Leechers:    parseCount(item.Leechers),
		PublishedAt: ParseDate(item.UploadedAt),
		DownloadURL: BuildDownloadURL(apiBase, id, e.cfg.Passkey),
		DescURL:     descriptionURL(item.Link, siteURL),
		InfoHash:    strings.ToLower(strings.TrimSpace(item.InfoHash)),
	}
	row.MagnetURI = BuildMagnetURI(row.InfoHash, row.Title)
	return row, nil
}

// parseItemSize treats bare integers as bytes and anything else as a human size.
func parseItemSize(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return max(n, 0)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return 0
		}
		return clampBytes(f)
	}
	return ParseSize(raw)
}

func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}
	return max(n, 0)
}

// descriptionURL resolves relative links against the site and falls back to the site itself.
func descriptionURL(link, siteURL string) string {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		return siteURL
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case strings.HasPrefix(link, "/") && siteURL != "":
		return strings.TrimRight(siteURL, "/") + link
	default:
		return siteURL
	}
}
