package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultPlaceholders are cell values that stand for "no observation" in the
// World Bank, UNCTAD and OWID exports.
var DefaultPlaceholders = []string{"", "..", "...", "…", "NaN", "nan", "N/A", "n/a", "-"}

// DefaultYearPattern matches plain year headers, including the "2018.0"
// form produced by spreadsheet tools that read the header as a float.
var DefaultYearPattern = regexp.MustCompile(`^(\d{4})(?:\.0+)?$`)

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// ParseNumber coerces a cell to a float. Placeholders, empty cells, non-finite
// values and anything non-numeric report ok=false.
func ParseNumber(s string, placeholders []string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, p := range placeholders {
		if s == p {
			return 0, false
		}
	}
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseYear extracts the year from a column label using the first capture
// group of pattern.
func ParseYear(label string, pattern *regexp.Regexp) (int, bool) {
	if pattern == nil {
		pattern = DefaultYearPattern
	}
	m := pattern.FindStringSubmatch(strings.TrimSpace(label))
	if len(m) < 2 {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006",
}

// ParseDateYear returns the calendar year of a date cell. It accepts ISO
// dates, US-style MM/DD/YYYY dates and bare years.
func ParseDateYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// CleanHeader trims whitespace and removes all quotes from a column label.
func CleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(h, `"`, "")
}
