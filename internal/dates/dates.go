// Package dates normalizes the heterogeneous date strings found on Argentine
// card statements into canonical ISO calendar dates, and provides month-level
// arithmetic for statement period keys (YYYY-MM).
package dates

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	// ISO is the canonical calendar date layout.
	ISO = "2006-01-02"
)

// spanishMonths maps the 3-letter Spanish month abbreviations used by most
// local statements to month numbers.
var spanishMonths = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dic": time.December,
}

var spanishMonthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// genericLayouts are tried, in order, when a date string does not look like
// the DD-Mon-YYYY shape handled explicitly.
var genericLayouts = []string{
	ISO,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Normalize converts a free-form date string into canonical YYYY-MM-DD.
// It understands DD-Mon-YY[YY] with Spanish month abbreviations and arbitrary
// separators; two-digit years are interpreted as 2000+year. If the string
// cannot be parsed, the trimmed original is returned unchanged — callers must
// treat such values as degraded, never fatal. Normalize is idempotent.
func Normalize(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}

	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, trimmed)

	parts := splitNonEmpty(clean, '-')
	if len(parts) == 3 {
		day := pad2(parts[0])
		month := parts[1]
		if m, ok := spanishMonths[month]; ok {
			month = fmt.Sprintf("%02d", int(m))
		} else {
			month = pad2(month)
		}
		year := parts[2]
		if len(year) == 2 {
			year = "20" + year
		}
		iso := year + "-" + month + "-" + day
		if _, err := civil.ParseDate(iso); err == nil {
			return iso
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(ISO)
		}
	}

	return trimmed
}

// Parse reads a canonical calendar date from the first 10 characters of s.
// It tolerates trailing time components but never guesses at other layouts.
func Parse(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

func splitNonEmpty(s string, sep rune) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == sep }) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// Month identifies one calendar month, the granularity of statement periods.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing d.
func MonthOf(d civil.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// ParseMonth reads a YYYY-MM key. Longer strings (full dates) are truncated
// to their month prefix.
func ParseMonth(key string) (Month, bool) {
	if len(key) > 7 {
		key = key[:7]
	}
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return Month{}, false
	}
	return Month{Year: t.Year(), Month: t.Month()}, true
}

// Key renders the canonical YYYY-MM period key.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Add shifts the month forward (or backward, for negative n) by n calendar
// months.
func (m Month) Add(n int) Month {
	total := m.Year*12 + int(m.Month) - 1 + n
	return Month{Year: total / 12, Month: time.Month(total%12 + 1)}
}

// FirstDay returns the ISO date of the month's first day, used as the anchor
// date for synthetic rollup entries.
func (m Month) FirstDay() string {
	return m.Key() + "-01"
}

// LabelES renders the month in Spanish with a capitalized initial,
// e.g. "Junio 2024". Used for user-facing projection explanations.
func (m Month) LabelES() string {
	name := spanishMonthNames[int(m.Month)-1]
	return strings.ToUpper(name[:1]) + name[1:] + fmt.Sprintf(" %d", m.Year)
}

// Diff returns the number of calendar months from a to b (positive when b is
// later).
func Diff(a, b Month) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}
