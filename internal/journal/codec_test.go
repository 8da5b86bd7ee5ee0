package journal

import (
	"sort"
	"testing"
	"time"
)

func TestFormatTimeSortsLexically(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 3, 1, 9, 0, 0, 500, time.UTC),
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 9, 0, 0, 120000000, time.FixedZone("CET", 3600)),
	}
	formatted := make([]string, len(times))
	for i, ts := range times {
		formatted[i] = formatTime(ts)
	}
	sort.Strings(formatted)
	for i := 1; i < len(formatted); i++ {
		a, _ := parseTime(formatted[i-1])
		b, _ := parseTime(formatted[i])
		if a.After(b) {
			t.Fatalf("lexical order breaks chronology: %v", formatted)
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-18T09:00:00.000000000Z", time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00.5", time.Date(2024, 1, 15, 10, 30, 0, 500000000, time.Local)},
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.in)
		if err != nil {
			t.Fatalf("parseTime(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Fatal("expected error for free text")
	}
}

func TestDecodeAnalysisTolerance(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"json", `{"insight":"ok","insight_source":"llm"}`, true},
		{"python repr", `{'insight': 'ok'}`, false},
		{"missing insight", `{"similar_entries":[]}`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeAnalysis([]byte(tt.raw)); (got != nil) != tt.ok {
				t.Fatalf("decodeAnalysis(%q) = %+v", tt.raw, got)
			}
		})
	}
}

func TestRound1(t *testing.T) {
	tests := map[float64]float64{
		3.6666666666666665: 3.7,
		3.25:               3.2,
		4:                  4,
		2.05:               2.0,
	}
	for in, want := range tests {
		if got := round1(in); got != want {
			t.Errorf("round1(%v) = %v, want %v", in, got, want)
		}
	}
}
