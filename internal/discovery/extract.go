// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package discovery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"
)

// Page is a discovery response body. The HTML tree is parsed at most once and shared by
// every extractor that needs it.
type Page struct {
	Body string

	doc    *goquery.Document
	parsed bool
}

// NewPage wraps body for extraction.
func NewPage(body string) *Page {
	return &Page{Body: body}
}

// Document returns the parsed HTML tree, or nil when the body could not be parsed.
func (p *Page) Document() *goquery.Document {
	if !p.parsed {
		p.parsed = true
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
		if err != nil {
			log.Debug().Err(err).Msg("discovery body is not parseable html")
		} else {
			p.doc = doc
		}
	}
	return p.doc
}

// Extractor is one strategy for locating the site URL inside a discovery page.
type Extractor interface {
	Name() string
	Extract(page *Page, domain *Domain) (string, bool)
}

// Domain describes the shape of the URLs being looked for.
type Domain struct {
	keyword string
	pattern *regexp.Regexp
	host    *regexp.Regexp
}

// NewDomain builds a matcher for hosts of the form [www.]<keyword>.<tld>, where the
// suffix may span several labels (yggtorrent.co.uk).
func NewDomain(keyword string) *Domain {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	host := `(?:www\.)?` + regexp.QuoteMeta(keyword) + `(?:\.[a-z]{2,})+`
	return &Domain{
		keyword: keyword,
		pattern: regexp.MustCompile(`(?i)https?://` + host + `/?`),
		host:    regexp.MustCompile(`(?i)^` + host + `$`),
	}
}

// Keyword returns the host keyword, e.g. "yggtorrent".
func (d *Domain) Keyword() string {
	return d.keyword
}

// Normalize validates raw as an absolute http(s) URL on the domain and trims trailing slashes.
func (d *Domain) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" || !d.onDomain(u.Hostname()) {
		return "", false
	}
	return strings.TrimRight(raw, "/"), true
}

// onDomain reports whether host is <keyword>.<public suffix>, optionally behind www.
func (d *Domain) onDomain(host string) bool {
	host = strings.ToLower(host)
	if !d.host.MatchString(host) {
		return false
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(host, "www.") == site
}

// Find returns the first domain-shaped URL inside text.
func (d *Domain) Find(text string) (string, bool) {
	for _, m := range d.pattern.FindAllString(text, -1) {
		if u, ok := d.Normalize(m); ok {
			return u, true
		}
	}
	return "", false
}

// DefaultExtractors is the strategy chain in priority order.
func DefaultExtractors() []Extractor {
	return []Extractor{
		StructuredDataExtractor{},
		MetaTagExtractor{},
		AnchorExtractor{},
		TextPatternExtractor{},
	}
}

// StructuredDataExtractor reads URL-ish fields out of embedded JSON: the whole body when it
// is JSON, JSON script tags, and inline "website": "..." pairs.
type StructuredDataExtractor struct{}

var (
	structuredFields = map[string]bool{
		"website":  true,
		"url":      true,
		"link":     true,
		"homepage": true,
		"bio":      true,
		"sameas":   true,
		"links":    true,
	}
	inlineWebsiteField = regexp.MustCompile(`(?i)"website"\s*:\s*"(https?://[^"]+)"`)
)

func (StructuredDataExtractor) Name() string { return "structured-data" }

func (StructuredDataExtractor) Extract(page *Page, domain *Domain) (string, bool) {
	var blobs []string
	if gjson.Valid(page.Body) {
		blobs = append(blobs, page.Body)
	} else if doc := page.Document(); doc != nil {
		doc.Find(`script[type="application/json"], script[type="application/ld+json"], script#__NEXT_DATA__`).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); gjson.Valid(text) {
				blobs = append(blobs, text)
			}
		})
	}

	for _, blob := range blobs {
		if u, ok := walkJSON(gjson.Parse(blob), false, domain); ok {
			return u, true
		}
	}

	for _, m := range inlineWebsiteField.FindAllStringSubmatch(page.Body, -1) {
		if u, ok := domain.Normalize(m[1]); ok {
			return u, true
		}
	}
	return "", false
}

// walkJSON visits values depth-first in document order. Strings only count when they sit
// under one of structuredFields.
func walkJSON(value gjson.Result, relevant bool, domain *Domain) (string, bool) {
	switch {
	case value.Type == gjson.String:
		if !relevant {
			return "", false
		}
		if u, ok := domain.Normalize(value.Str); ok {
			return u, true
		}
		return domain.Find(value.Str)
	case value.IsObject(), value.IsArray():
		var found string
		value.ForEach(func(key, child gjson.Result) bool {
			childRelevant := relevant
			if key.Type == gjson.String {
				childRelevant = structuredFields[strings.ToLower(key.Str)]
			}
			if u, ok := walkJSON(child, childRelevant, domain); ok {
				found = u
				return false
			}
			return true
		})
		return found, found != ""
	default:
		return "", false
	}
}

// MetaTagExtractor reads dedicated meta and link tags.
type MetaTagExtractor struct{}

var metaSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:url"]`, "content"},
	{`meta[name="twitter:url"]`, "content"},
	{`meta[property="og:see_also"]`, "content"},
	{`link[rel="canonical"]`, "href"},
	{`link[rel="me"]`, "href"},
}

func (MetaTagExtractor) Name() string { return "meta-tag" }

func (MetaTagExtractor) Extract(page *Page, domain *Domain) (string, bool) {
	doc := page.Document()
	if doc == nil {
		return "", false
	}
	for _, m := range metaSelectors {
		var found string
		doc.Find(m.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(m.attr); ok {
				if u, ok := domain.Normalize(v); ok {
					found = u
					return false
				}
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// AnchorExtractor checks anchor targets, then anchor text.
type AnchorExtractor struct{}

func (AnchorExtractor) Name() string { return "anchor" }

func (AnchorExtractor) Extract(page *Page, domain *Domain) (string, bool) {
	doc := page.Document()
	if doc == nil {
		return "", false
	}
	var found string
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok {
			if u, ok := domain.Normalize(href); ok {
				found = u
				return false
			}
		}
		if u, ok := domain.Find(s.Text()); ok {
			found = u
			return false
		}
		return true
	})
	return found, found != ""
}

// TextPatternExtractor scans the raw body for anything shaped like the domain.
type TextPatternExtractor struct{}

func (TextPatternExtractor) Name() string { return "text-pattern" }

func (TextPatternExtractor) Extract(page *Page, domain *Domain) (string, bool) {
	return domain.Find(page.Body)
}
