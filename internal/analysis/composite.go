package analysis

import (
	"fmt"
	"math"
)

// divergenceThreshold is the gap between the composite score and the mood
// rating that flags the rating as not telling the whole story.
const divergenceThreshold = 0.5

// Score adjusts the self-reported mood by writing intensity, reflection mode,
// emotional clarity and curiosity, then clamps the result to [1, 5].
func Score(mood int, wi WritingIntensity, s Sentiment, r Reflection, lex *Lexicon) CompositeScore {
	total := float64(mood)
	var adjustments []Adjustment
	adjust := func(label string, delta float64) {
		total += delta
		adjustments = append(adjustments, Adjustment{Label: label, Delta: delta})
	}

	switch wi.Intensity {
	case IntensityHigh:
		adjust("deep engagement (+0.5)", 0.5)
	case IntensityModerate:
		adjust("moderate engagement (+0.1)", 0.1)
	case IntensityLow:
		adjust("brief entry (-0.3)", -0.3)
	}

	switch r.Mode {
	case ModeActiveProcessing:
		adjust("active processing (+0.4)", 0.4)
	case ModeReflecting:
		adjust("reflective mode (+0.2)", 0.2)
	case ModeVenting:
		adjust("venting mode (-0.3)", -0.3)
	}

	switch {
	case s.IsMixed:
		adjust("mixed emotions (-0.2)", -0.2)
	case containsString(lex.PositiveEmotions, s.PrimaryEmotion):
		adjust(fmt.Sprintf("%s (+0.2)", s.PrimaryEmotion), 0.2)
	case containsString(lex.DrainingEmotions, s.PrimaryEmotion):
		adjust(fmt.Sprintf("%s (-0.2)", s.PrimaryEmotion), -0.2)
	}

	if r.QuestionCount >= 3 {
		adjust("asking questions (+0.1)", 0.1)
	}

	clamped := math.Max(1.0, math.Min(5.0, total))
	return CompositeScore{
		CompositeScore:      round1(clamped),
		MoodRating:          mood,
		IsDifferentFromMood: math.Abs(clamped-float64(mood)) >= divergenceThreshold,
		Adjustments:         adjustments,
		Confidence:          math.Min(0.85, 0.5+float64(len(adjustments))*0.1),
		Interpretation:      interpretComposite(clamped, mood),
	}
}

func interpretComposite(composite float64, mood int) string {
	diff := composite - float64(mood)
	switch {
	case math.Abs(diff) < 0.3:
		return "Your self-assessment aligns with your overall state"
	case diff > 0.5:
		return "You're doing better than your mood rating suggests"
	case diff < -0.5:
		return "There may be underlying challenges beyond your mood rating"
	default:
		return "Your overall state is close to your mood rating"
	}
}

// LegacyMood maps the composite score to the coarse positive/negative label.
func LegacyMood(cs CompositeScore) MoodLabel {
	detected := "negative"
	if cs.CompositeScore >= 3 {
		detected = "positive"
	}
	return MoodLabel{Detected: detected, Confidence: cs.Confidence}
}
