package dates

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"spanish abbreviation", "15-Ene-2024", "2024-01-15"},
		{"spanish two digit year", "03-dic-24", "2024-12-03"},
		{"slash separators", "05/ago/2024", "2024-08-05"},
		{"dot separators", "9.feb.24", "2024-02-09"},
		{"numeric day month year", "15-03-2024", "2024-03-15"},
		{"already canonical", "2024-03-15", "2024-03-15"},
		{"iso with time", "2024-03-15T00:00:00Z", "2024-03-15"},
		{"english month", "Mar 5, 2024", "2024-03-05"},
		{"whitespace trimmed", "  10-jun-2025  ", "2025-06-10"},
		{"unparseable kept", "sin fecha", "sin fecha"},
		{"invalid day kept", "99-ene-2024", "99-ene-2024"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"15-Ene-2024", "2024-03-15", "03-dic-24", "garbage", ""}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestParse(t *testing.T) {
	d, ok := Parse("2024-03-15")
	if !ok {
		t.Fatal("expected valid date")
	}
	if d.Year != 2024 || d.Month != time.March || d.Day != 15 {
		t.Errorf("unexpected date: %v", d)
	}

	if _, ok := Parse("2024-03-15T12:00:00"); !ok {
		t.Error("expected trailing time component to be ignored")
	}
	if _, ok := Parse("not-a-date"); ok {
		t.Error("expected invalid date to fail")
	}
	if _, ok := Parse(""); ok {
		t.Error("expected empty string to fail")
	}
}

func TestParseMonth(t *testing.T) {
	m, ok := ParseMonth("2024-04")
	if !ok || m.Key() != "2024-04" {
		t.Fatalf("ParseMonth(2024-04) = %v, %v", m, ok)
	}

	// Full dates truncate to their month.
	m, ok = ParseMonth("2026-02-01")
	if !ok || m.Key() != "2026-02" {
		t.Fatalf("ParseMonth(2026-02-01) = %v, %v", m, ok)
	}

	if _, ok := ParseMonth("Unknown"); ok {
		t.Error("expected Unknown to fail")
	}
}

func TestMonthAdd(t *testing.T) {
	tests := []struct {
		key  string
		n    int
		want string
	}{
		{"2024-04", 1, "2024-05"},
		{"2024-12", 1, "2025-01"},
		{"2024-04", 12, "2025-04"},
		{"2024-11", 14, "2026-01"},
		{"2024-03", -3, "2023-12"},
	}
	for _, tt := range tests {
		m, _ := ParseMonth(tt.key)
		if got := m.Add(tt.n).Key(); got != tt.want {
			t.Errorf("%s + %d months = %s, want %s", tt.key, tt.n, got, tt.want)
		}
	}
}

func TestDiff(t *testing.T) {
	a, _ := ParseMonth("2024-04")
	b, _ := ParseMonth("2024-06")
	if got := Diff(a, b); got != 2 {
		t.Errorf("Diff = %d, want 2", got)
	}
	if got := Diff(b, a); got != -2 {
		t.Errorf("Diff reversed = %d, want -2", got)
	}
	c, _ := ParseMonth("2025-01")
	if got := Diff(a, c); got != 9 {
		t.Errorf("Diff across year = %d, want 9", got)
	}
}

func TestLabelES(t *testing.T) {
	m, _ := ParseMonth("2024-06")
	if got := m.LabelES(); got != "Junio 2024" {
		t.Errorf("LabelES = %q, want %q", got, "Junio 2024")
	}
}
