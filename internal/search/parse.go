// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Item is one listing entry before normalization. Numeric fields keep their raw text so
// that tolerant parsing can happen in one place.
type Item struct {
	ID         string
	Title      string
	Size       string
	Seeders    string
	Leechers   string
	UploadedAt string
	Link       string
	InfoHash   string
	CategoryID string
}

// Page is a parsed listing page. Total is -1 when the page does not report one.
type Page struct {
	Items []Item
	Total int
}

var (
	envelopeListKeys  = []string{"torrents", "results", "data", "items", "data.torrents", "data.results"}
	envelopeTotalKeys = []string{"total", "total_results", "totalResults", "count", "data.total", "meta.total"}
	torrentIDRegex    = regexp.MustCompile(`/(\d+)(?:-[^/?#]*)?/?(?:[?#].*)?$`)
)

// ParsePage accepts a JSON array of torrents, a JSON envelope wrapping one, or the site's
// HTML listing table. A body that is none of these wraps ErrParseFailure.
func ParsePage(body string) (Page, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Page{Total: -1}, fmt.Errorf("%w: empty body", ErrParseFailure)
	}

	switch trimmed[0] {
	case '[', '{':
		if !gjson.Valid(trimmed) {
			return Page{Total: -1}, fmt.Errorf("%w: invalid json", ErrParseFailure)
		}
		return parseJSONPage(gjson.Parse(trimmed)), nil
	case '<':
		return parseHTMLPage(trimmed)
	default:
		return Page{Total: -1}, fmt.Errorf("%w: unrecognised body starting with %q", ErrParseFailure, firstRunes(trimmed, 16))
	}
}

func parseJSONPage(root gjson.Result) Page {
	page := Page{Total: -1}

	list := root
	if root.IsObject() {
		list = gjson.Result{}
		for _, key := range envelopeListKeys {
			if v := root.Get(key); v.IsArray() {
				list = v
				break
			}
		}
		for _, key := range envelopeTotalKeys {
			if v := root.Get(key); v.Exists() && v.Type != gjson.Null {
				if n, err := strconv.Atoi(strings.TrimSpace(v.String())); err == nil && n >= 0 {
					page.Total = n
					break
				}
			}
		}
	}

	if !list.IsArray() {
		return page
	}

	list.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			page.Items = append(page.Items, itemFromJSON(value))
		}
		return true
	})
	return page
}

func itemFromJSON(v gjson.Result) Item {
	return Item{
		ID:         firstString(v, "id", "torrent_id", "tid"),
		Title:      firstString(v, "title", "name"),
		Size:       firstString(v, "size", "size_bytes", "filesize"),
		Seeders:    firstString(v, "seeders", "seeds", "seed"),
		Leechers:   firstString(v, "leechers", "leechs", "leech", "peers"),
		UploadedAt: firstString(v, "uploaded_at", "pub_date", "published_at", "created_at", "date"),
		Link:       firstString(v, "link", "url", "desc_link"),
		InfoHash:   firstString(v, "info_hash", "infohash", "hash"),
		CategoryID: firstString(v, "category_id", "category", "sub_category"),
	}
}

func firstString(v gjson.Result, keys ...string) string {
	for _, key := range keys {
		r := v.Get(key)
		if !r.Exists() || r.Type == gjson.Null || r.IsObject() || r.IsArray() {
			continue
		}
		if s := strings.TrimSpace(r.String()); s != "" {
			return s
		}
	}
	return ""
}

// parseHTMLPage reads the site's listing table: category, name, nfo, comments, age, size,
// completed, seeders, leechers.
func parseHTMLPage(body string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Page{Total: -1}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}

	page := Page{Total: -1}
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 9 {
			return
		}

		nameLink := tr.Find("a#torrent_name").First()
		if nameLink.Length() == 0 {
			nameLink = cells.Eq(1).Find("a").First()
		}
		href, _ := nameLink.Attr("href")

		id, _ := tr.Find("a#get_nfo").Attr("target")
		if id == "" {
			if m := torrentIDRegex.FindStringSubmatch(href); m != nil {
				id = m[1]
			}
		}

		uploaded := strings.TrimSpace(cells.Eq(4).Find("div.hidden").Text())
		if uploaded == "" {
			uploaded = strings.TrimSpace(cells.Eq(4).Text())
		}

		page.Items = append(page.Items, Item{
			ID:         strings.TrimSpace(id),
			Title:      strings.TrimSpace(nameLink.Text()),
			Size:       strings.TrimSpace(cells.Eq(5).Text()),
			Seeders:    strings.TrimSpace(cells.Eq(7).Text()),
			Leechers:   strings.TrimSpace(cells.Eq(8).Text()),
			UploadedAt: uploaded,
			Link:       strings.TrimSpace(href),
			CategoryID: strings.TrimSpace(cells.Eq(0).Find("div.hidden").Text()),
		})
	})

	if total, ok := parseHTMLTotal(doc); ok {
		page.Total = total
	}
	return page, nil
}

var htmlTotalRegex = regexp.MustCompile(`(\d[\d\s.,]*)\s+(?:résultats?|results?|torrents?)`)

func parseHTMLTotal(doc *goquery.Document) (int, bool) {
	m := htmlTotalRegex.FindStringSubmatch(doc.Find("h2").First().Text())
	if m == nil {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
