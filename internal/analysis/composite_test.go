package analysis

import (
	"testing"
)

func TestScoreClampsToRange(t *testing.T) {
	lex := DefaultLexicon()

	low := Score(1,
		WritingIntensity{Intensity: IntensityLow},
		Sentiment{PrimaryEmotion: "anxious", SecondaryEmotion: "sad", IsMixed: true},
		Reflection{Mode: ModeVenting},
		lex)
	if low.CompositeScore != 1.0 {
		t.Fatalf("composite = %v, want 1.0", low.CompositeScore)
	}

	high := Score(5,
		WritingIntensity{Intensity: IntensityHigh},
		Sentiment{PrimaryEmotion: "hopeful"},
		Reflection{Mode: ModeActiveProcessing, QuestionCount: 4},
		lex)
	if high.CompositeScore != 5.0 {
		t.Fatalf("composite = %v, want 5.0", high.CompositeScore)
	}
	if high.Confidence != 0.85 {
		t.Fatalf("confidence = %v, want 0.85", high.Confidence)
	}
	if high.IsDifferentFromMood {
		t.Fatal("clamped score equal to mood should not diverge")
	}
}

func TestScoreHighMoodLowSignals(t *testing.T) {
	cs := Score(5,
		WritingIntensity{Intensity: IntensityLow, WordCount: 12},
		Sentiment{PrimaryEmotion: "defeated", SecondaryEmotion: "sad"},
		Reflection{Mode: ModeVenting},
		DefaultLexicon())

	if cs.CompositeScore != 4.2 {
		t.Fatalf("composite = %v, want 4.2", cs.CompositeScore)
	}
	if !cs.IsDifferentFromMood {
		t.Fatal("expected divergence from mood")
	}
	if cs.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want 0.8", cs.Confidence)
	}

	want := []Adjustment{
		{"brief entry (-0.3)", -0.3},
		{"venting mode (-0.3)", -0.3},
		{"defeated (-0.2)", -0.2},
	}
	if len(cs.Adjustments) != len(want) {
		t.Fatalf("adjustments = %+v", cs.Adjustments)
	}
	for i := range want {
		if cs.Adjustments[i] != want[i] {
			t.Errorf("adjustment %d = %+v, want %+v", i, cs.Adjustments[i], want[i])
		}
	}
	if cs.Interpretation != "There may be underlying challenges beyond your mood rating" {
		t.Errorf("interpretation = %q", cs.Interpretation)
	}
}

func TestScoreNoAdjustments(t *testing.T) {
	cs := Score(3,
		WritingIntensity{Intensity: IntensityMedium},
		Sentiment{PrimaryEmotion: "anxious"},
		Reflection{Mode: ModeMixed, QuestionCount: 2},
		DefaultLexicon())
	if cs.CompositeScore != 3.0 || len(cs.Adjustments) != 0 {
		t.Fatalf("unexpected score: %+v", cs)
	}
	if cs.Confidence != 0.5 {
		t.Fatalf("confidence = %v, want 0.5", cs.Confidence)
	}
	if cs.Interpretation != "Your self-assessment aligns with your overall state" {
		t.Fatalf("interpretation = %q", cs.Interpretation)
	}
}

func TestScoreModerateUplift(t *testing.T) {
	cs := Score(3,
		WritingIntensity{Intensity: IntensityModerate},
		Sentiment{PrimaryEmotion: "grateful"},
		Reflection{Mode: ModeReflecting},
		DefaultLexicon())
	if cs.CompositeScore != 3.5 {
		t.Fatalf("composite = %v, want 3.5", cs.CompositeScore)
	}
	if !cs.IsDifferentFromMood {
		t.Fatal("a 0.5 gap counts as divergence")
	}
	if cs.Interpretation != "You're doing better than your mood rating suggests" {
		t.Fatalf("interpretation = %q", cs.Interpretation)
	}
}

func TestLegacyMood(t *testing.T) {
	if got := LegacyMood(CompositeScore{CompositeScore: 3.0, Confidence: 0.6}); got.Detected != "positive" || got.Confidence != 0.6 {
		t.Fatalf("LegacyMood(3.0) = %+v", got)
	}
	if got := LegacyMood(CompositeScore{CompositeScore: 2.9}); got.Detected != "negative" {
		t.Fatalf("LegacyMood(2.9) = %+v", got)
	}
}
