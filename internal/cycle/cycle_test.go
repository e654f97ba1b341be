package cycle

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/domain"
)

var today = civil.Date{Year: 2024, Month: 7, Day: 20}

func TestAllocateAt(t *testing.T) {
	tests := []struct {
		name    string
		txDate  string
		closing string
		due     string
		want    string
	}{
		{"post closing rolls one cycle forward", "2024-03-15", "2024-03-10", "2024-04-10", "2024-05"},
		{"pre closing bills on due month", "2024-03-05", "2024-03-10", "2024-04-10", "2024-04"},
		{"exactly on closing date is not post closing", "2024-03-10", "2024-03-10", "2024-04-10", "2024-04"},
		{"missing due date defaults to month after closing", "2024-03-05", "2024-03-10", "", "2024-04"},
		{"missing due date post closing", "2024-03-15", "2024-03-10", "", "2024-05"},
		{"no closing date falls back to own month", "2024-03-15", "", "", "2024-03"},
		{"missing tx date uses current month", "", "2024-03-10", "2024-04-10", "2024-07"},
		{"unparseable tx date truncates", "2024-13-XX", "2024-03-10", "2024-04-10", "2024-13"},
		{"short garbage uses current month", "???", "2024-03-10", "", "2024-07"},
		{"december rollover", "2024-12-20", "2024-12-15", "2025-01-10", "2025-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AllocateAt(tt.txDate, tt.closing, tt.due, today)
			if got != tt.want {
				t.Errorf("AllocateAt(%q, %q, %q) = %q, want %q",
					tt.txDate, tt.closing, tt.due, got, tt.want)
			}
		})
	}
}

func TestAllocateDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		got := AllocateAt("2024-03-15", "2024-03-10", "2024-04-10", today)
		if got != "2024-05" {
			t.Fatalf("allocation not deterministic: got %q on run %d", got, i)
		}
	}
}

func TestPostClosing(t *testing.T) {
	tests := []struct {
		txDate  string
		closing string
		want    bool
	}{
		{"2024-03-15", "2024-03-10", true},
		{"2024-03-05", "2024-03-10", false},
		{"2024-03-10", "2024-03-10", false},
		{"2024-03-15", "", false},
		{"", "2024-03-10", false},
	}
	for _, tt := range tests {
		if got := PostClosing(tt.txDate, tt.closing); got != tt.want {
			t.Errorf("PostClosing(%q, %q) = %v, want %v", tt.txDate, tt.closing, got, tt.want)
		}
	}
}

func TestStatementPeriod(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want string
	}{
		{"truncates full date period", domain.Transaction{TargetPeriod: "2026-02-01"}, "2026-02"},
		{"keeps month key", domain.Transaction{TargetPeriod: "2024-04"}, "2024-04"},
		{"falls back to tx date", domain.Transaction{Date: "2024-03-15"}, "2024-03"},
		{"unknown marker", domain.Transaction{TargetPeriod: "Unknown"}, "Unknown"},
		{"empty", domain.Transaction{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatementPeriod(tt.tx); got != tt.want {
				t.Errorf("StatementPeriod = %q, want %q", got, tt.want)
			}
		})
	}
}
