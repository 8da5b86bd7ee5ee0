package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/haasonsaas/introspect/internal/vector"
)

// DefaultMixedEmotionThreshold is the largest gap between the two strongest
// emotions that still counts as mixed.
const DefaultMixedEmotionThreshold = 0.08

// EmotionReference holds the embedded reference phrases of one emotion.
type EmotionReference struct {
	Emotion string
	Vectors [][]float32
}

// DetectSentiment scores the entry against every emotion as the mean cosine
// similarity to that emotion's reference phrases. Emotions keep reference
// order on equal scores. Undefined similarities (zero vectors) count as 0.
func DetectSentiment(entry []float32, refs []EmotionReference, mixedThreshold float64) (Sentiment, error) {
	if len(refs) == 0 {
		return Sentiment{}, errors.New("no emotion references")
	}

	type ranked struct {
		emotion string
		score   float64
	}
	ranking := make([]ranked, 0, len(refs))
	scores := make(map[string]float64, len(refs))

	for _, ref := range refs {
		var sum float64
		for _, v := range ref.Vectors {
			sim, ok, err := vector.Cosine(entry, v)
			if err != nil {
				return Sentiment{}, fmt.Errorf("emotion %s: %w", ref.Emotion, err)
			}
			if ok {
				sum += sim
			}
		}
		var avg float64
		if len(ref.Vectors) > 0 {
			avg = sum / float64(len(ref.Vectors))
		}
		scores[ref.Emotion] = avg
		ranking = append(ranking, ranked{emotion: ref.Emotion, score: avg})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].score > ranking[j].score
	})

	s := Sentiment{
		PrimaryEmotion: ranking[0].emotion,
		EmotionScores:  scores,
		TopScore:       ranking[0].score,
	}
	if len(ranking) > 1 {
		s.SecondaryEmotion = ranking[1].emotion
		s.IsMixed = math.Abs(ranking[0].score-ranking[1].score) < mixedThreshold
	}
	return s, nil
}
