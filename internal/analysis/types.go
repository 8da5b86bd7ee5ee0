package analysis

import (
	"context"
	"time"
)

// AnalysisVersion is bumped whenever the persisted result shape changes.
const AnalysisVersion = 2

// HistoryEntry is one past entry that already carries an embedding.
type HistoryEntry struct {
	Text      string
	Embedding []float32
	Timestamp time.Time
	Mood      int
}

// SimilarEntry is a past entry retrieved for the current one.
type SimilarEntry struct {
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
	Timestamp  time.Time `json:"timestamp"`
	Mood       int       `json:"mood"`
}

// WritingIntensity measures engagement through length and structure.
type WritingIntensity struct {
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	Intensity         string  `json:"intensity"`
	Interpretation    string  `json:"interpretation"`
}

// Sentiment is the emotional reading of an entry.
type Sentiment struct {
	PrimaryEmotion   string             `json:"primary_emotion"`
	SecondaryEmotion string             `json:"secondary_emotion"`
	IsMixed          bool               `json:"is_mixed"`
	EmotionScores    map[string]float64 `json:"emotion_scores"`
	TopScore         float64            `json:"top_score"`
}

// Reflection separates active processing from venting.
type Reflection struct {
	Mode              string  `json:"mode"`
	QuestionCount     int     `json:"question_count"`
	ReflectionMarkers int     `json:"reflection_markers"`
	VentingMarkers    int     `json:"venting_markers"`
	ProcessingRatio   float64 `json:"processing_ratio"`
}

// Summary is the timeline label for an entry.
type Summary struct {
	Title   string   `json:"title"`
	Themes  []string `json:"themes"`
	Emotion string   `json:"emotion"`
}

// ThemeCooccurrence is a recurring pair of themes in the history.
type ThemeCooccurrence struct {
	Combination string  `json:"combination"`
	Frequency   int     `json:"frequency"`
	TypicalMood float64 `json:"typical_mood"`
}

// Themes returns the two themes of the combination.
func (t ThemeCooccurrence) Themes() (string, string) {
	a, b, _ := cutCombination(t.Combination)
	return a, b
}

// WritingFrequency describes the journaling rhythm.
type WritingFrequency struct {
	Pattern        string  `json:"pattern"`
	Description    string  `json:"description"`
	AvgGapDays     float64 `json:"avg_gap_days"`
	IsAccelerating bool    `json:"is_accelerating"`
	TotalEntries   int     `json:"total_entries"`
}

// Adjustment is one signed contribution to the composite score.
type Adjustment struct {
	Label string  `json:"label"`
	Delta float64 `json:"delta"`
}

// CompositeScore is the mood rating corrected by behavioral signals.
type CompositeScore struct {
	CompositeScore      float64      `json:"composite_score"`
	MoodRating          int          `json:"mood_rating"`
	IsDifferentFromMood bool         `json:"is_different_from_mood"`
	Adjustments         []Adjustment `json:"adjustments"`
	Confidence          float64      `json:"confidence"`
	Interpretation      string       `json:"interpretation"`
}

// MoodLabel is the coarse positive/negative reading kept for older clients.
type MoodLabel struct {
	Detected   string  `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// SignalBundle groups every extracted signal for one entry.
type SignalBundle struct {
	Intensity    WritingIntensity
	Sentiment    Sentiment
	Reflection   Reflection
	Summary      Summary
	ThemePattern *ThemeCooccurrence
	Frequency    *WritingFrequency
}

// Result is the full analysis of one entry. The embedding is persisted
// separately from the JSON document.
type Result struct {
	Embedding        []float32          `json:"-"`
	Insight          string             `json:"insight"`
	InsightSource    string             `json:"insight_source"`
	SimilarEntries   []SimilarEntry     `json:"similar_entries"`
	Mood             MoodLabel          `json:"mood"`
	MentalState      CompositeScore     `json:"mental_state"`
	Summary          Summary            `json:"summary"`
	WritingIntensity WritingIntensity   `json:"writing_intensity"`
	Sentiment        Sentiment          `json:"sentiment"`
	Reflection       Reflection         `json:"reflection"`
	ThemePattern     *ThemeCooccurrence `json:"theme_pattern,omitempty"`
	WritingPattern   *WritingFrequency  `json:"writing_pattern,omitempty"`
	AnalysisVersion  int                `json:"analysis_version"`
}

// Insight sources.
const (
	SourceTemplate = "template"
	SourceLLM      = "llm"
)

// Insight is generated reflective text and where it came from.
type Insight struct {
	Text   string
	Source string
}

// InsightInput carries everything an insight strategy may cite.
type InsightInput struct {
	Text    string
	Mood    int
	Similar []SimilarEntry
	History []HistoryEntry
	Signals SignalBundle
	Score   CompositeScore
	Now     time.Time
	// Lexicon is the table set in effect; nil means DefaultLexicon.
	Lexicon *Lexicon
}

// InsightGenerator turns analyzed signals into reflective text.
type InsightGenerator interface {
	Generate(ctx context.Context, in InsightInput) (Insight, error)
}
