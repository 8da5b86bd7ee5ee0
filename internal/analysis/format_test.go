package analysis

import (
	"testing"
	"time"
)

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{2.25, 2.2},
		{2.35, 2.4},
		{0.05, 0.1},
		{5 - 0.3 - 0.3 - 0.2, 4.2},
		{3.0, 3.0},
		{-1.25, -1.2},
	}
	for _, tt := range tests {
		if got := round1(tt.in); got != tt.want {
			t.Errorf("round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScoreRendersOneDecimal(t *testing.T) {
	if got := score(4); got != "4.0" {
		t.Fatalf("score(4) = %q", got)
	}
	if got := score(3.5); got != "3.5" {
		t.Fatalf("score(3.5) = %q", got)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Hour, "earlier today"},
		{2 * time.Hour, "earlier today"},
		{25 * time.Hour, "yesterday"},
		{3 * day, "3 days ago"},
		{6 * day, "6 days ago"},
		{7 * day, "1 week ago"},
		{14 * day, "2 weeks ago"},
		{30 * day, "1 month ago"},
		{60 * day, "2 months ago"},
		{365 * day, "1 year ago"},
		{800 * day, "2 years ago"},
	}
	for _, tt := range tests {
		if got := FormatTimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatTimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestCapitalize(t *testing.T) {
	if got := capitalize("earlier TODAY"); got != "Earlier today" {
		t.Fatalf("capitalize = %q", got)
	}
	if got := capitalize(""); got != "" {
		t.Fatalf("capitalize empty = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo wörld", 7); got != "héllo w" {
		t.Fatalf("truncateRunes = %q", got)
	}
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("truncateRunes = %q", got)
	}
}
