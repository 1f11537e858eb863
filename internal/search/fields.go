// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// UnknownDate is returned by ParseDate for input it cannot interpret.
var UnknownDate = time.Time{}

var (
	relativeEnglishRegex = regexp.MustCompile(`(?i)(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?)\s+ago`)
	relativeFrenchRegex  = regexp.MustCompile(`(?i)il\s+y\s+a\s+(\d+)\s*(secondes?|minutes?|mins?|heures?|jours?|semaines?|mois|ans?|années?)`)
	yesterdayRegex       = regexp.MustCompile(`(?i)^(yesterday|hier)\b`)
	todayRegex           = regexp.MustCompile(`(?i)^(today|aujourd'hui|just now|now|à l'instant)$`)
	sizeRegex            = regexp.MustCompile(`^([0-9]+(?:[.,][0-9]+)?)\s*([a-zA-Z]*)$`)
)

var absoluteLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05Z0700", false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05Z07:00", false},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", true},
	{"02/01/2006 15:04:05", true},
	{"02/01/2006 15:04", true},
	{"02/01/2006", true},
	{time.RFC1123Z, false},
	{time.RFC1123, false},
	{"Jan 2, 2006", true},
}

// ParseDate interprets absolute dates, unix timestamps, and relative phrases such as
// "2 hours ago" or "il y a 3 jours". Anything else yields UnknownDate.
func ParseDate(raw string) time.Time {
	return parseDateAt(raw, time.Now())
}

func parseDateAt(raw string, now time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return UnknownDate
	}

	if isAllDigits(s) {
		return parseDigitsDate(s)
	}

	for _, l := range absoluteLayouts {
		var (
			t   time.Time
			err error
		)
		if l.local {
			t, err = time.ParseInLocation(l.layout, s, time.Local)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t
		}
	}

	if todayRegex.MatchString(s) {
		return now
	}
	if yesterdayRegex.MatchString(s) {
		return now.AddDate(0, 0, -1)
	}

	if m := relativeEnglishRegex.FindStringSubmatch(s); m != nil {
		if t, ok := subtractUnit(now, m[1], m[2]); ok {
			return t
		}
	}
	if m := relativeFrenchRegex.FindStringSubmatch(s); m != nil {
		if t, ok := subtractUnit(now, m[1], m[2]); ok {
			return t
		}
	}

	return UnknownDate
}

// parseDigitsDate reads 20240425 as a calendar date and 9+ digits as a unix timestamp,
// milliseconds from 13 digits on. Shorter numbers such as a bare year are unknown.
func parseDigitsDate(s string) time.Time {
	if len(s) == 8 {
		if t, err := time.ParseInLocation("20060102", s, time.Local); err == nil {
			return t
		}
		return UnknownDate
	}
	if len(s) < 9 {
		return UnknownDate
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return UnknownDate
	}
	if len(s) >= 13 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

func subtractUnit(now time.Time, amount, unit string) (time.Time, bool) {
	n, err := strconv.Atoi(amount)
	if err != nil || n < 0 {
		return UnknownDate, false
	}

	unit = strings.ToLower(unit)
	switch {
	case strings.HasPrefix(unit, "sec"):
		return now.Add(-time.Duration(n) * time.Second), true
	case strings.HasPrefix(unit, "min"):
		return now.Add(-time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "h"):
		return now.Add(-time.Duration(n) * time.Hour), true
	case strings.HasPrefix(unit, "day"), strings.HasPrefix(unit, "jour"):
		return now.AddDate(0, 0, -n), true
	case strings.HasPrefix(unit, "week"), strings.HasPrefix(unit, "semaine"):
		return now.AddDate(0, 0, -7*n), true
	case strings.HasPrefix(unit, "month"), unit == "mois":
		return now.AddDate(0, -n, 0), true
	case strings.HasPrefix(unit, "year"), strings.HasPrefix(unit, "an"):
		return now.AddDate(-n, 0, 0), true
	}
	return UnknownDate, false
}

var sizeUnits = map[string]float64{
	"":       1,
	"b":      1,
	"o":      1,
	"bytes":  1,
	"octets": 1,
	"k":      1 << 10,
	"kb":     1 << 10,
	"kib":    1 << 10,
	"ko":     1 << 10,
	"m":      1 << 20,
	"mb":     1 << 20,
	"mib":    1 << 20,
	"mo":     1 << 20,
	"g":      1 << 30,
	"gb":     1 << 30,
	"gib":    1 << 30,
	"go":     1 << 30,
	"t":      1 << 40,
	"tb":     1 << 40,
	"tib":    1 << 40,
	"to":     1 << 40,
	"pb":     1 << 50,
	"pib":    1 << 50,
	"po":     1 << 50,
}

// ParseSize converts "1.2 GB", "700Mo" or "1048576" into bytes using binary multiples.
// Unparseable input and unknown units yield 0.
func ParseSize(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	m := sizeRegex.FindStringSubmatch(s)
	if m == nil {
		log.Debug().Str("size", raw).Msg("unparseable size")
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		log.Debug().Err(err).Str("size", raw).Msg("unparseable size value")
		return 0
	}

	multiplier, ok := sizeUnits[strings.ToLower(m[2])]
	if !ok {
		log.Warn().Str("size", raw).Str("unit", m[2]).Msg("unknown size unit")
		return 0
	}

	return clampBytes(math.Round(value * multiplier))
}

// clampBytes converts a float byte count to int64, mapping NaN and negatives to 0 and
// saturating at math.MaxInt64.
func clampBytes(f float64) int64 {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= math.MaxInt64:
		// float64(math.MaxInt64) rounds up to 2^63, so equality already overflows
		return math.MaxInt64
	}
	return int64(f)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
