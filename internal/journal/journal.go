// Package journal stores entries and orchestrates their analysis.
//
// An entry is saved with its text and mood first. Its embedding and analysis
// are attached exactly once afterwards, so an entry whose analysis failed
// stays pending and can be backfilled later.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/introspect/internal/analysis"
)

var (
	// ErrNotFound is returned when an entry does not exist.
	ErrNotFound = errors.New("journal: entry not found")

	// ErrAlreadyAnalyzed is returned when attaching analysis to an entry
	// that already has an embedding.
	ErrAlreadyAnalyzed = errors.New("journal: entry already analyzed")

	// ErrEmptyContent is returned for blank entries.
	ErrEmptyContent = errors.New("journal: entry content is empty")

	// ErrInvalidMood is returned for ratings outside 1..5.
	ErrInvalidMood = errors.New("journal: mood rating must be between 1 and 5")

	// ErrNoEmbedding is returned when attaching analysis without a vector.
	ErrNoEmbedding = errors.New("journal: embedding is empty")

	// ErrNotEmpty is returned when seeding a journal that already has entries.
	ErrNotEmpty = errors.New("journal: store already has entries")
)

// DefaultRecentLimit is the page size for recent entries.
const DefaultRecentLimit = 20

// DefaultMood is used when a request carries no rating.
const DefaultMood = 3

// Entry is one journal entry.
type Entry struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Content    string           `json:"content"`
	MoodRating int              `json:"mood"`
	Embedding  []float32        `json:"-"`
	Analysis   *analysis.Result `json:"analysis,omitempty"`
}

// Analyzed reports whether the entry has an embedding attached.
func (e *Entry) Analyzed() bool {
	return len(e.Embedding) > 0
}

// Stats are aggregate mood statistics.
type Stats struct {
	TotalEntries int     `json:"total_entries"`
	AvgMood      float64 `json:"avg_mood"`
	MinMood      int     `json:"min_mood"`
	MaxMood      int     `json:"max_mood"`
}

// Store persists entries.
type Store interface {
	// Create saves a new entry. ID and Timestamp are filled in when empty.
	Create(ctx context.Context, entry *Entry) error

	// AttachAnalysis sets the embedding and analysis of an entry once.
	AttachAnalysis(ctx context.Context, id string, embedding []float32, result *analysis.Result) error

	// Get returns one entry with its embedding and analysis.
	Get(ctx context.Context, id string) (*Entry, error)

	// History returns every analyzed entry, newest first.
	History(ctx context.Context) ([]analysis.HistoryEntry, error)

	// Recent returns the newest entries without embeddings.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Pending returns entries still lacking an embedding, oldest first.
	Pending(ctx context.Context, limit int) ([]*Entry, error)

	// Stats aggregates mood ratings. All fields are zero when empty.
	Stats(ctx context.Context) (Stats, error)

	// Clear deletes every entry.
	Clear(ctx context.Context) error

	Close() error
}

// validateMood applies the default rating and checks the range.
func validateMood(mood int) (int, error) {
	if mood == 0 {
		return DefaultMood, nil
	}
	if mood < 1 || mood > 5 {
		return 0, ErrInvalidMood
	}
	return mood, nil
}

func recentLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
