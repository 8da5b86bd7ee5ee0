package analysis

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func similarAt(daysAgo int, mood int, text string) SimilarEntry {
	return SimilarEntry{
		Text:       text,
		Similarity: 0.8,
		Timestamp:  baseTime.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		Mood:       mood,
	}
}

func TestAnalyzePatternsGrowthAndDecline(t *testing.T) {
	lex := DefaultLexicon()

	growth := []SimilarEntry{
		similarAt(1, 4, "a"), similarAt(20, 2, "b"), similarAt(2, 4, "c"), similarAt(30, 2, "d"),
	}
	p := AnalyzePatterns(growth, nil, lex, DefaultMoodDriftThreshold)
	if !p.HasGrowthStory || p.HasDecline {
		t.Fatalf("expected growth: %+v", p)
	}
	if got := p.MoodTrajectory; len(got) != 4 || got[0] != 2 || got[3] != 4 {
		t.Fatalf("trajectory not chronological: %v", got)
	}

	decline := []SimilarEntry{similarAt(30, 4, "a"), similarAt(20, 4, "b"), similarAt(1, 2, "c")}
	p = AnalyzePatterns(decline, nil, lex, DefaultMoodDriftThreshold)
	if !p.HasDecline || p.HasGrowthStory {
		t.Fatalf("expected decline: %+v", p)
	}

	boundary := []SimilarEntry{similarAt(30, 3, "a"), similarAt(20, 3, "b"), similarAt(10, 3, "c"), similarAt(1, 4, "d")}
	p = AnalyzePatterns(boundary, nil, lex, DefaultMoodDriftThreshold)
	if !p.HasGrowthStory {
		t.Fatalf("a drift equal to the threshold counts as growth: %+v", p)
	}

	short := []SimilarEntry{similarAt(30, 1, "a"), similarAt(1, 5, "b")}
	p = AnalyzePatterns(short, nil, lex, DefaultMoodDriftThreshold)
	if p.HasGrowthStory || p.HasDecline {
		t.Fatalf("two moods are not a trajectory: %+v", p)
	}
}

func TestAnalyzePatternsWeekday(t *testing.T) {
	entries := []SimilarEntry{similarAt(7, 3, "a"), similarAt(14, 3, "b"), similarAt(3, 3, "c")}
	p := AnalyzePatterns(entries, nil, DefaultLexicon(), DefaultMoodDriftThreshold)
	if p.TemporalPattern == nil {
		t.Fatal("expected a weekday pattern")
	}
	want := baseTime.Weekday().String()
	if p.TemporalPattern.Weekday != want || p.TemporalPattern.Count != 2 {
		t.Fatalf("pattern = %+v, want %s x2", p.TemporalPattern, want)
	}

	spread := []SimilarEntry{similarAt(1, 3, "a"), similarAt(2, 3, "b"), similarAt(3, 3, "c")}
	if p := AnalyzePatterns(spread, nil, DefaultLexicon(), DefaultMoodDriftThreshold); p.TemporalPattern != nil {
		t.Fatalf("distinct weekdays should not form a pattern: %+v", p.TemporalPattern)
	}
}

func TestDominantWeekdayTieGoesToFirstSeen(t *testing.T) {
	entries := []SimilarEntry{similarAt(1, 3, "a"), similarAt(2, 3, "b"), similarAt(8, 3, "c"), similarAt(9, 3, "d")}
	day, count := dominantWeekday(entries)
	if day != entries[0].Timestamp.Weekday().String() || count != 2 {
		t.Fatalf("dominant = %s x%d", day, count)
	}
}

func TestExtractKeyPhrases(t *testing.T) {
	lex := DefaultLexicon()
	history := []HistoryEntry{
		{Text: "My morning walk helped"},
		{Text: "Another morning walk today"},
		{Text: "The morning walk was calm"},
	}
	got := ExtractKeyPhrases(history, lex, 2)
	if len(got) != 1 || got[0] != "morning walk" {
		t.Fatalf("phrases = %v", got)
	}

	if got := ExtractKeyPhrases(history[:2], lex, 2); got != nil {
		t.Fatalf("fewer than three entries should yield nothing, got %v", got)
	}

	generic := []HistoryEntry{{Text: "I feel ok"}, {Text: "I feel fine"}, {Text: "I feel tired"}}
	if got := ExtractKeyPhrases(generic, lex, 2); len(got) != 0 {
		t.Fatalf("stoplisted phrases leaked: %v", got)
	}
}

func TestExtractActions(t *testing.T) {
	entries := []SimilarEntry{
		similarAt(1, 3, "I talked to Sam and went for a run."),
		similarAt(2, 3, "Then I talked to Sam again. I decided to rest early"),
	}
	got := ExtractActions(entries, DefaultLexicon())
	want := []string{"sam", "run", "rest early"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("actions = %q, want %q", got, want)
	}
}

func TestExtractActionsUnicode(t *testing.T) {
	got := ExtractActions([]SimilarEntry{similarAt(1, 3, "I talked to José yesterday")}, DefaultLexicon())
	if len(got) != 1 || got[0] != "josé" {
		t.Fatalf("actions = %q", got)
	}
}

func TestExtractActionsCapsAtThree(t *testing.T) {
	text := "talked to ana. called bob. reached out to cara. talked to dan."
	got := ExtractActions([]SimilarEntry{similarAt(1, 3, text)}, DefaultLexicon())
	if len(got) != 3 {
		t.Fatalf("actions = %q, want 3", got)
	}
}

func TestExtractQuote(t *testing.T) {
	lex := DefaultLexicon()

	got := ExtractQuote("I had a long day. I decided to call my sister and talk it through. The weather was nice.", lex)
	want := "I decided to call my sister and talk it through. I had a long day."
	if got != want {
		t.Fatalf("quote = %q, want %q", got, want)
	}

	plain := ExtractQuote("Rain. Wind.", lex)
	if plain != "Rain." {
		t.Fatalf("unscored quote = %q, want single sentence", plain)
	}

	if got := ExtractQuote("...", lex); got != "..." {
		t.Fatalf("quote of punctuation = %q", got)
	}

	long := ExtractQuote(strings.Repeat("lots of words here ", 20), lex)
	if utf8.RuneCountInString(long) != 200 || !strings.HasSuffix(long, "...") {
		t.Fatalf("long quote not capped: %d %q", utf8.RuneCountInString(long), long)
	}
}
