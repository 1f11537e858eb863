// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		query      string
		categoryID string
		page       int
		want       url.Values
	}{
		{
			name:       "all omits category",
			base:       "https://yggapi.eu",
			query:      "ubuntu",
			categoryID: "all",
			page:       1,
			want:       url.Values{"q": {"ubuntu"}, "page": {"1"}, "per_page": {"100"}, "order_by": {"seeders"}},
		},
		{
			name:       "category and encoded query",
			base:       "https://yggapi.eu/",
			query:      "le seigneur des anneaux & co",
			categoryID: "2183",
			page:       3,
			want: url.Values{
				"q":           {"le seigneur des anneaux & co"},
				"page":        {"3"},
				"per_page":    {"100"},
				"order_by":    {"seeders"},
				"category_id": {"2183"},
			},
		},
		{
			name:       "empty query and category",
			base:       "https://www.yggtorrent.org",
			query:      "",
			categoryID: "",
			page:       0,
			want:       url.Values{"q": {""}, "page": {"1"}, "per_page": {"100"}, "order_by": {"seeders"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := BuildSearchURL(tt.base, tt.query, tt.categoryID, tt.page, URLOptions{})
			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, "/torrents", u.Path)
			assert.Equal(t, tt.want, u.Query())
			assert.NotContains(t, raw, " ")
		})
	}

	a := BuildSearchURL("https://yggapi.eu", "x y", "2184", 2, URLOptions{PerPage: 20, OrderBy: "uploaded_at"})
	b := BuildSearchURL("https://yggapi.eu", "x y", "2184", 2, URLOptions{PerPage: 20, OrderBy: "uploaded_at"})
	assert.Equal(t, a, b)
	assert.Equal(t, "https://yggapi.eu/torrents?category_id=2184&order_by=uploaded_at&page=2&per_page=20&q=x+y", a)
}

func TestBuildDownloadURL(t *testing.T) {
	assert.Equal(t,
		"https://yggapi.eu/torrent/1234/download?passkey=abc",
		BuildDownloadURL("https://yggapi.eu/", "1234", "abc"))
}

func TestBuildMagnetURI(t *testing.T) {
	hash := "0123456789abcdef0123456789abcdef01234567"
	m := BuildMagnetURI(hash, "Ubuntu 24.04")
	assert.Contains(t, m, "magnet:?xt=urn:btih:"+hash)
	assert.Contains(t, m, "dn=Ubuntu")

	assert.Empty(t, BuildMagnetURI("", "x"))
	assert.Empty(t, BuildMagnetURI("nothex", "x"))
}

func TestParsePage_JSON(t *testing.T) {
	body := `[
		{"id": 101, "title": "Ubuntu 24.04 Desktop", "size": 6114656256, "seeders": 150, "leechers": 4, "uploaded_at": "2024-04-25T12:00:00Z", "link": "https://www.yggtorrent.org/torrent/101"},
		{"id": "102", "title": "Ubuntu Server", "size": "2.6 Go", "seeders": "12", "leechers": null, "uploaded_at": "il y a 2 jours"},
		"not an object"
	]`

	page, err := ParsePage(body)
	require.NoError(t, err)
	assert.Equal(t, -1, page.Total)
	require.Len(t, page.Items, 2)

	assert.Equal(t, Item{
		ID:         "101",
		Title:      "Ubuntu 24.04 Desktop",
		Size:       "6114656256",
		Seeders:    "150",
		Leechers:   "4",
		UploadedAt: "2024-04-25T12:00:00Z",
		Link:       "https://www.yggtorrent.org/torrent/101",
	}, page.Items[0])
	assert.Equal(t, "102", page.Items[1].ID)
	assert.Equal(t, "2.6 Go", page.Items[1].Size)
	assert.Empty(t, page.Items[1].Leechers)
}

func TestParsePage_Envelope(t *testing.T) {
	page, err := ParsePage(`{"total": 45, "torrents": [{"id": 1, "title": "a"}, {"id": 2, "title": "b"}]}`)
	require.NoError(t, err)
	assert.Equal(t, 45, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = ParsePage(`{"data": {"results": [{"id": 3, "name": "c"}]}, "meta": {"total": "7"}}`)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].Title)

	page, err = ParsePage(`{"message": "no results"}`)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, -1, page.Total)
}

func TestParsePage_HTML(t *testing.T) {
	body := `<html><body>
	<h2>Résultats de recherche <font>1 234 résultats trouvés</font></h2>
	<table class="table">
	<thead><tr><th>Type</th><th>Nom</th></tr></thead>
	<tbody>
		<tr>
			<td><div class="hidden">2183</div><span class="tag_subcat_2183"></span></td>
			<td><a id="torrent_name" href="https://www.yggtorrent.org/torrent/filmvideo/film/998877-ubuntu-the-movie-2024">Ubuntu The Movie 2024 1080p</a></td>
			<td><a id="get_nfo" target="998877">nfo</a></td>
			<td>3</td>
			<td><div class="hidden">1700000000</div>il y a 1 an</td>
			<td>1.40Go</td>
			<td>1024</td>
			<td>87</td>
			<td>2</td>
		</tr>
		<tr>
			<td><div class="hidden">2144</div></td>
			<td><a href="/torrent/application/linux/445566-ubuntu-tools">Ubuntu Tools</a></td>
			<td></td>
			<td>0</td>
			<td>hier</td>
			<td>350Mo</td>
			<td>10</td>
			<td>5</td>
			<td>0</td>
		</tr>
		<tr><td colspan="9">advert</td></tr>
	</tbody>
	</table></body></html>`

	page, err := ParsePage(body)
	require.NoError(t, err)
	assert.Equal(t, 1234, page.Total)
	require.Len(t, page.Items, 2)

	assert.Equal(t, Item{
		ID:         "998877",
		Title:      "Ubuntu The Movie 2024 1080p",
		Size:       "1.40Go",
		Seeders:    "87",
		Leechers:   "2",
		UploadedAt: "1700000000",
		Link:       "https://www.yggtorrent.org/torrent/filmvideo/film/998877-ubuntu-the-movie-2024",
		CategoryID: "2183",
	}, page.Items[0])

	assert.Equal(t, "445566", page.Items[1].ID)
	assert.Equal(t, "hier", page.Items[1].UploadedAt)
	assert.Equal(t, "/torrent/application/linux/445566-ubuntu-tools", page.Items[1].Link)
}

func TestParsePage_Failures(t *testing.T) {
	for _, body := range []string{"", "   ", "garbage", `[{"id": 1,`, `{"torrents": [`} {
		_, err := ParsePage(body)
		assert.ErrorIs(t, err, ErrParseFailure, body)
	}
}
