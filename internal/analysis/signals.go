package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Reflection modes.
const (
	ModeActiveProcessing = "active_processing"
	ModeReflecting       = "reflecting"
	ModeVenting          = "venting"
	ModeMixed            = "mixed"
)

// Writing intensity levels.
const (
	IntensityLow      = "low"
	IntensityModerate = "moderate"
	IntensityMedium   = "medium"
	IntensityHigh     = "high"
)

// splitSentences splits on "." and drops empty fragments.
func splitSentences(text string) []string {
	var sentences []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// AnalyzeWritingIntensity measures how much was written and how it is
// structured.
func AnalyzeWritingIntensity(text string) WritingIntensity {
	wordCount := len(strings.Fields(text))
	sentenceCount := len(splitSentences(text))

	wi := WritingIntensity{
		WordCount:         wordCount,
		SentenceCount:     sentenceCount,
		AvgSentenceLength: round1(float64(wordCount) / float64(max(sentenceCount, 1))),
	}
	switch {
	case wordCount > 400:
		wi.Intensity, wi.Interpretation = IntensityHigh, "deep processing"
	case wordCount > 200:
		wi.Intensity, wi.Interpretation = IntensityMedium, "engaged reflection"
	case wordCount > 75:
		wi.Intensity, wi.Interpretation = IntensityModerate, "standard check-in"
	default:
		wi.Intensity, wi.Interpretation = IntensityLow, "brief note"
	}
	return wi
}

// AnalyzeReflection counts questions and reflective versus venting language.
// Each phrase counts once no matter how often it appears.
func AnalyzeReflection(text string, lex *Lexicon) Reflection {
	lower := strings.ToLower(text)
	r := Reflection{
		QuestionCount:     strings.Count(text, "?"),
		ReflectionMarkers: countPresent(lower, lex.ReflectivePhrases),
		VentingMarkers:    countPresent(lower, lex.VentingPhrases),
	}
	r.ProcessingRatio = float64(r.ReflectionMarkers) / float64(max(r.VentingMarkers, 1))

	switch {
	case r.ReflectionMarkers > r.VentingMarkers && r.QuestionCount > 0:
		r.Mode = ModeActiveProcessing
	case r.ReflectionMarkers > r.VentingMarkers:
		r.Mode = ModeReflecting
	case r.VentingMarkers > r.ReflectionMarkers*2:
		r.Mode = ModeVenting
	default:
		r.Mode = ModeMixed
	}
	return r
}

func countPresent(lower string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

// DetectThemes returns taxonomy themes whose keywords occur in text, in
// table order, falling back to the lexicon's fallback theme.
func DetectThemes(text string, lex *Lexicon) []string {
	themes := matchThemes(strings.ToLower(text), lex.Themes)
	if len(themes) == 0 {
		return []string{lex.FallbackTheme}
	}
	return themes
}

func matchThemes(lower string, table []ThemeKeywords) []string {
	var themes []string
	for _, theme := range table {
		if containsAnySubstring(lower, theme.Keywords) {
			themes = append(themes, theme.Name)
		}
	}
	return themes
}

// Summarize builds the timeline title, up to three themes and an emotion
// descriptor.
func Summarize(text string, mood int, sentiment Sentiment, lex *Lexicon) Summary {
	themes := DetectThemes(text, lex)
	lower := strings.ToLower(text)

	emotion := moodDescriptor(mood)
	if sentiment.PrimaryEmotion != "" {
		emotion = sentiment.PrimaryEmotion
		if sentiment.IsMixed && sentiment.SecondaryEmotion != "" {
			emotion = sentiment.PrimaryEmotion + " and " + sentiment.SecondaryEmotion
		}
	}

	primaryTheme := cases.Title(language.English).String(strings.ReplaceAll(themes[0], "_", " "))
	title := primaryTheme + " Reflection"
	if subject := titleSubject(text, lower, lex); subject != "" {
		title = primaryTheme + " - " + subject
	}

	if len(themes) > 3 {
		themes = themes[:3]
	}
	return Summary{Title: title, Themes: themes, Emotion: emotion}
}

func moodDescriptor(mood int) string {
	switch {
	case mood >= 4:
		return "positive and energized"
	case mood == 3:
		return "neutral and contemplative"
	case mood == 2:
		return "struggling but persisting"
	default:
		return "difficult and overwhelming"
	}
}

// titleSubject prefers a known keyword, then the first capitalized word that
// is not a common sentence opener.
func titleSubject(text, lower string, lex *Lexicon) string {
	for _, kw := range lex.TitleKeywords {
		if strings.Contains(lower, kw.Keyword) {
			return kw.Label
		}
	}
	for _, w := range strings.Fields(text) {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) || utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, excluded := lex.excludeSet[w]; excluded {
			continue
		}
		return strings.Trim(w, ".,!?")
	}
	return ""
}
