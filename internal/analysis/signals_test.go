package analysis

import (
	"strings"
	"testing"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestAnalyzeWritingIntensityLevels(t *testing.T) {
	tests := []struct {
		words     int
		intensity string
		meaning   string
	}{
		{10, IntensityLow, "brief note"},
		{75, IntensityLow, "brief note"},
		{76, IntensityModerate, "standard check-in"},
		{200, IntensityModerate, "standard check-in"},
		{201, IntensityMedium, "engaged reflection"},
		{400, IntensityMedium, "engaged reflection"},
		{401, IntensityHigh, "deep processing"},
	}
	for _, tt := range tests {
		wi := AnalyzeWritingIntensity(words(tt.words))
		if wi.WordCount != tt.words {
			t.Fatalf("word count = %d, want %d", wi.WordCount, tt.words)
		}
		if wi.Intensity != tt.intensity || wi.Interpretation != tt.meaning {
			t.Errorf("%d words: got %s/%q, want %s/%q", tt.words, wi.Intensity, wi.Interpretation, tt.intensity, tt.meaning)
		}
	}
}

func TestAnalyzeWritingIntensitySentences(t *testing.T) {
	wi := AnalyzeWritingIntensity("One two three. Four five.. Six")
	if wi.SentenceCount != 3 {
		t.Fatalf("sentences = %d, want 3", wi.SentenceCount)
	}
	if wi.AvgSentenceLength != 2.0 {
		t.Fatalf("avg sentence length = %v, want 2.0", wi.AvgSentenceLength)
	}

	empty := AnalyzeWritingIntensity("")
	if empty.WordCount != 0 || empty.SentenceCount != 0 || empty.AvgSentenceLength != 0 {
		t.Fatalf("empty text: %+v", empty)
	}
}

func TestAnalyzeReflectionModes(t *testing.T) {
	lex := DefaultLexicon()
	tests := []struct {
		name string
		text string
		mode string
	}{
		{"active", "I wonder why this keeps happening. Maybe I need rest?", ModeActiveProcessing},
		{"reflecting", "Looking back, I realize the week went fine.", ModeReflecting},
		{"venting", "I hate this. Nothing ever works. I can't stop.", ModeVenting},
		{"mixed", "Went to the store and bought bread.", ModeMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AnalyzeReflection(tt.text, lex)
			if r.Mode != tt.mode {
				t.Fatalf("mode = %s, want %s (%+v)", r.Mode, tt.mode, r)
			}
		})
	}
}

func TestAnalyzeReflectionCountsPhrasesOnce(t *testing.T) {
	r := AnalyzeReflection("Maybe. Maybe. Maybe? Why?", DefaultLexicon())
	if r.ReflectionMarkers != 1 {
		t.Fatalf("reflection markers = %d, want 1", r.ReflectionMarkers)
	}
	if r.QuestionCount != 2 {
		t.Fatalf("questions = %d, want 2", r.QuestionCount)
	}
	if r.ProcessingRatio != 1 {
		t.Fatalf("ratio = %v, want 1", r.ProcessingRatio)
	}
}

func TestDetectThemesSubsetOfTaxonomy(t *testing.T) {
	lex := DefaultLexicon()
	allowed := map[string]bool{lex.FallbackTheme: true}
	for _, th := range lex.Themes {
		allowed[th.Name] = true
	}

	texts := []string{
		"My boss scheduled a meeting and I couldn't sleep",
		"Just a quiet afternoon with tea.",
		"Therapy helped with my anxiety and my partner was kind. I went to the gym and cleaned the home, proud of my progress.",
		"",
	}
	for _, text := range texts {
		themes := DetectThemes(text, lex)
		if len(themes) == 0 {
			t.Fatalf("no themes for %q", text)
		}
		for _, th := range themes {
			if !allowed[th] {
				t.Errorf("theme %q for %q is not in the taxonomy", th, text)
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	lex := DefaultLexicon()

	s := Summarize("My boss scheduled a meeting and I couldn't sleep", 2, Sentiment{}, lex)
	if s.Title != "Work - Meeting" {
		t.Errorf("title = %q", s.Title)
	}
	if strings.Join(s.Themes, ",") != "work,physical_health,daily_life" {
		t.Errorf("themes = %v", s.Themes)
	}
	if s.Emotion != "struggling but persisting" {
		t.Errorf("emotion = %q", s.Emotion)
	}

	s = Summarize("Just a quiet afternoon with tea.", 3, Sentiment{PrimaryEmotion: "calm"}, lex)
	if s.Title != "Personal Reflection - Just" {
		t.Errorf("title = %q", s.Title)
	}
	if len(s.Themes) != 1 || s.Themes[0] != "personal_reflection" {
		t.Errorf("themes = %v", s.Themes)
	}
	if s.Emotion != "calm" {
		t.Errorf("emotion = %q", s.Emotion)
	}

	mixed := Sentiment{PrimaryEmotion: "anxious", SecondaryEmotion: "hopeful", IsMixed: true}
	s = Summarize("the day was ok", 4, mixed, lex)
	if s.Title != "Personal Reflection Reflection" {
		t.Errorf("title = %q", s.Title)
	}
	if s.Emotion != "anxious and hopeful" {
		t.Errorf("emotion = %q", s.Emotion)
	}
}

func TestSummarizeCapsThemes(t *testing.T) {
	text := "work friend anxiety sleep growth routine"
	s := Summarize(text, 3, Sentiment{}, DefaultLexicon())
	if len(s.Themes) != 3 {
		t.Fatalf("themes = %v, want 3", s.Themes)
	}
	if s.Themes[0] != "work" || s.Themes[1] != "relationships" || s.Themes[2] != "mental_health" {
		t.Fatalf("themes not in taxonomy order: %v", s.Themes)
	}
}

func TestTitleSubjectTrimsPunctuation(t *testing.T) {
	s := Summarize("Saturday, finally a quiet one!", 4, Sentiment{}, DefaultLexicon())
	if !strings.HasSuffix(s.Title, " - Saturday") {
		t.Fatalf("title = %q", s.Title)
	}
}
