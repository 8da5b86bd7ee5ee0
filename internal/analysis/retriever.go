package analysis

import (
	"fmt"
	"sort"

	"github.com/haasonsaas/introspect/internal/vector"
)

// Retrieval defaults.
const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.3
	DefaultSimilarLimit        = 3
)

// Retrieve ranks corpus entries by cosine similarity to query and returns
// at most k entries whose similarity is strictly above threshold. Ties are
// broken by the more recent timestamp. Entries whose similarity is undefined
// (zero or empty embeddings) are skipped; a dimension mismatch is an error.
func Retrieve(query []float32, corpus []HistoryEntry, k int, threshold float64) ([]SimilarEntry, error) {
	matches := make([]SimilarEntry, 0, min(len(corpus), max(k, 0)))
	if len(corpus) == 0 || k <= 0 {
		return matches, nil
	}

	for i, entry := range corpus {
		sim, ok, err := vector.Cosine(query, entry.Embedding)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		if !ok || sim <= threshold {
			continue
		}
		matches = append(matches, SimilarEntry{
			Text:       entry.Text,
			Similarity: sim,
			Timestamp:  entry.Timestamp,
			Mood:       moodOrDefault(entry.Mood),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func moodOrDefault(mood int) int {
	if mood < 1 || mood > 5 {
		return 3
	}
	return mood
}
