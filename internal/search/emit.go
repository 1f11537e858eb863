// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/moistari/rls"

	"github.com/autobrr/yggsearch/internal/categories"
)

// Emitter receives rows in page order.
type Emitter interface {
	Emit(row Row) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(row Row) error

func (f EmitterFunc) Emit(row Row) error {
	return f(row)
}

// Result is the fixed-field tuple handed to the host.
type Result struct {
	Name          string
	HumanSize     string
	Seeders       int
	Leechers      int
	PublishedDate time.Time
	Link          string
	DescLink      string
}

// ToResult maps a row to the host tuple. The link is a magnet when preferMagnet is set and
// the row knows its info hash.
func ToResult(row Row, preferMagnet bool) Result {
	return Result{
		Name:          row.Title,
		HumanSize:     HumanSize(row.SizeBytes),
		Seeders:       row.Seeders,
		Leechers:      row.Leechers,
		PublishedDate: row.PublishedAt,
		Link:          row.Link(preferMagnet),
		DescLink:      row.DescURL,
	}
}

// HumanSize renders bytes with IEC units, or "-" when unknown.
func HumanSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}

// NovaPrinter writes one qBittorrent nova line per row:
// link|name|size|seeds|leech|engine_url|desc_link|pub_date
type NovaPrinter struct {
	w            io.Writer
	engineURL    string
	preferMagnet bool
}

func NewNovaPrinter(w io.Writer, engineURL string, preferMagnet bool) *NovaPrinter {
	return &NovaPrinter{w: w, engineURL: engineURL, preferMagnet: preferMagnet}
}

func (p *NovaPrinter) Emit(row Row) error {
	res := ToResult(row, p.preferMagnet)

	size := "-1"
	if row.SizeBytes > 0 {
		size = strconv.FormatInt(row.SizeBytes, 10)
	}
	pubDate := "-1"
	if !res.PublishedDate.IsZero() {
		pubDate = strconv.FormatInt(res.PublishedDate.Unix(), 10)
	}

	fields := []string{
		res.Link,
		novaField(res.Name),
		size,
		strconv.Itoa(res.Seeders),
		strconv.Itoa(res.Leechers),
		p.engineURL,
		res.DescLink,
		pubDate,
	}
	_, err := fmt.Fprintln(p.w, strings.Join(fields, "|"))
	return err
}

// novaField keeps the separator out of free text.
func novaField(s string) string {
	return strings.NewReplacer("|", "-", "\n", " ", "\r", " ").Replace(s)
}

// JSONPrinter writes one JSON object per row.
type JSONPrinter struct {
	enc          *json.Encoder
	preferMagnet bool
	categories   *categories.Map
}

func NewJSONPrinter(w io.Writer, preferMagnet bool) *JSONPrinter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONPrinter{enc: enc, preferMagnet: preferMagnet, categories: categories.Default()}
}

type jsonRow struct {
	Name        string       `json:"name"`
	TorrentID   string       `json:"torrentId"`
	Category    string       `json:"category,omitempty"`
	Size        int64        `json:"size"`
	HumanSize   string       `json:"humanSize"`
	Seeders     int          `json:"seeders"`
	Leechers    int          `json:"leechers"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty"`
	Link        string       `json:"link"`
	DescLink    string       `json:"descLink"`
	InfoHash    string       `json:"infoHash,omitempty"`
	Release     *releaseInfo `json:"release,omitempty"`
}

type releaseInfo struct {
	Type       string `json:"type"`
	Title      string `json:"title,omitempty"`
	Year       int    `json:"year,omitempty"`
	Series     int    `json:"series,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Source     string `json:"source,omitempty"`
	Group      string `json:"group,omitempty"`
}

func (p *JSONPrinter) Emit(row Row) error {
	res := ToResult(row, p.preferMagnet)

	out := jsonRow{
		Name:      res.Name,
		TorrentID: row.TorrentID,
		Size:      row.SizeBytes,
		HumanSize: res.HumanSize,
		Seeders:   res.Seeders,
		Leechers:  res.Leechers,
		Link:      res.Link,
		DescLink:  res.DescLink,
		InfoHash:  row.InfoHash,
		Release:   parseRelease(row.Title),
	}
	if name, ok := p.categories.Name(row.CategoryID); ok {
		out.Category = name
	}
	if !res.PublishedDate.IsZero() {
		published := res.PublishedDate.UTC()
		out.PublishedAt = &published
	}
	return p.enc.Encode(out)
}

func parseRelease(title string) *releaseInfo {
	r := rls.ParseString(title)
	if r.Type == rls.Unknown && r.Title == "" {
		return nil
	}
	return &releaseInfo{
		Type:       r.Type.String(),
		Title:      r.Title,
		Year:       r.Year,
		Series:     r.Series,
		Episode:    r.Episode,
		Resolution: r.Resolution,
		Source:     r.Source,
		Group:      r.Group,
	}
}
