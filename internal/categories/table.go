// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package categories

// standardAliases are the categories the host search runtime knows about.
var standardAliases = []Entry{
	{Alias: "all", ID: All},
	{Alias: "movies", ID: "2183"},
	{Alias: "tv", ID: "2184"},
	{Alias: "music", ID: "2148"},
	{Alias: "games", ID: "2142"},
	{Alias: "anime", ID: "2179"},
	{Alias: "software", ID: "2144"},
	{Alias: "pictures", ID: "2191"},
	{Alias: "books", ID: "2140"},
}

// extendedAliases expose site subcategories under English names.
var extendedAliases = []Entry{
	// Films & Vidéos
	{Alias: "animation", ID: "2178"},
	{Alias: "animation_series", ID: "2179"},
	{Alias: "concert", ID: "2180"},
	{Alias: "documentary", ID: "2181"},
	{Alias: "tv_show", ID: "2182"},
	{Alias: "movie", ID: "2183"},
	{Alias: "series", ID: "2184"},
	{Alias: "show", ID: "2185"},
	{Alias: "sport", ID: "2186"},
	{Alias: "videoclip", ID: "2187"},

	// Ebook
	{Alias: "audiobook", ID: "2151"},
	{Alias: "comics", ID: "2153"},
	{Alias: "manga", ID: "2155"},
	{Alias: "press", ID: "2156"},

	// Audio
	{Alias: "karaoke", ID: "2147"},
	{Alias: "samples", ID: "2149"},
	{Alias: "podcast", ID: "2150"},

	// Jeux vidéo
	{Alias: "games_linux", ID: "2159"},
	{Alias: "games_mac", ID: "2160"},
	{Alias: "games_microsoft", ID: "2162"},
	{Alias: "games_nintendo", ID: "2163"},
	{Alias: "games_sony", ID: "2164"},
	{Alias: "games_windows", ID: "2161"},

	// Applications
	{Alias: "training", ID: "2176"},
	{Alias: "software_linux", ID: "2171"},
	{Alias: "software_mac", ID: "2172"},
	{Alias: "software_windows", ID: "2173"},

	// Nulled
	{Alias: "nulled", ID: "2300"},
	{Alias: "wordpress", ID: "2301"},
	{Alias: "php_scripts", ID: "2302"},

	// Imprimante 3D
	{Alias: "3d_printing", ID: "2200"},
	{Alias: "3d_objects", ID: "2201"},
	{Alias: "3d_characters", ID: "2202"},

	// GPS
	{Alias: "gps", ID: "2143"},
	{Alias: "gps_apps", ID: "2168"},
	{Alias: "gps_maps", ID: "2169"},

	// Émulation
	{Alias: "emulation", ID: "2141"},
	{Alias: "emulator", ID: "2157"},
	{Alias: "roms", ID: "2158"},
}

// siteCategories is the full YggTorrent id -> slug table.
var siteCategories = map[string]string{
	// Films & Vidéos
	"2145": "films-videos",
	"2178": "animation",
	"2179": "animation-série",
	"2180": "concert",
	"2181": "documentaire",
	"2182": "emission-tv",
	"2183": "film",
	"2184": "série-tv",
	"2185": "spectacle",
	"2186": "sport",
	"2187": "video-clip",

	// Ebook
	"2140": "ebook",
	"2151": "ebook-audio",
	"2152": "bds",
	"2153": "comics",
	"2154": "livres",
	"2155": "manga",
	"2156": "presse",

	// Audio
	"2139": "audio",
	"2147": "karaoke",
	"2148": "musique",
	"2149": "samples",
	"2150": "podcast-radio",

	// XXX
	"2188": "xxx",
	"2401": "xxx-ebooks",
	"2189": "xxx-films",
	"2190": "hentai",
	"2191": "xxx-images",
	"2402": "xxx-jeux",

	// Jeux vidéo
	"2142": "jeu-video",
	"2167": "jeu-autre",
	"2159": "jeu-linux",
	"2160": "jeu-macos",
	"2162": "jeu-microsoft",
	"2163": "jeu-nintendo",
	"2165": "jeu-smartphone",
	"2164": "jeu-sony",
	"2166": "jeu-tablette",
	"2161": "jeu-windows",

	// Applications
	"2144": "application",
	"2177": "app-autre",
	"2176": "formation",
	"2171": "app-linux",
	"2172": "app-macos",
	"2174": "app-smartphone",
	"2175": "app-tablette",
	"2173": "app-windows",

	// Nulled
	"2300": "nulled",
	"2304": "nulled-divers",
	"2303": "nulled-mobile",
	"2302": "scripts-php-cms",
	"2301": "wordpress",

	// Imprimante 3D
	"2200": "imprimante-3d",
	"2201": "3d-objets",
	"2202": "3d-personnages",

	// GPS
	"2143": "gps",
	"2168": "gps-applications",
	"2169": "gps-cartes",
	"2170": "gps-divers",

	// Émulation
	"2141": "emulation",
	"2157": "emulateur",
	"2158": "rom-iso",
}
