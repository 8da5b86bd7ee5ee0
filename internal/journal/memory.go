package journal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/introspect/internal/analysis"
)

// MemoryStore keeps entries in process. It backs tests and the --db ":memory:"
// mode of the CLI.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, entry *Entry) error {
	if entry == nil || strings.TrimSpace(entry.Content) == "" {
		return ErrEmptyContent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	s.entries[entry.ID] = cloneEntry(entry, true)
	return nil
}

func (s *MemoryStore) AttachAnalysis(ctx context.Context, id string, embedding []float32, result *analysis.Result) error {
	if len(embedding) == 0 {
		return ErrNoEmbedding
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	if entry.Analyzed() {
		return ErrAlreadyAnalyzed
	}
	entry.Embedding = append([]float32(nil), embedding...)
	entry.Analysis = result
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(entry, true), nil
}

func (s *MemoryStore) History(ctx context.Context) ([]analysis.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analysis.HistoryEntry, 0, len(s.entries))
	for _, entry := range s.sorted(true) {
		if !entry.Analyzed() {
			continue
		}
		out = append(out, analysis.HistoryEntry{
			Text:      entry.Content,
			Embedding: append([]float32(nil), entry.Embedding...),
			Timestamp: entry.Timestamp,
			Mood:      entry.MoodRating,
		})
	}
	return out, nil
}

func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = recentLimit(limit)
	out := make([]*Entry, 0, limit)
	for _, entry := range s.sorted(true) {
		if len(out) == limit {
			break
		}
		out = append(out, cloneEntry(entry, false))
	}
	return out, nil
}

func (s *MemoryStore) Pending(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entry
	for _, entry := range s.sorted(false) {
		if entry.Analyzed() {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneEntry(entry, false))
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats Stats
	sum := 0
	for _, entry := range s.entries {
		if stats.TotalEntries == 0 || entry.MoodRating < stats.MinMood {
			stats.MinMood = entry.MoodRating
		}
		if entry.MoodRating > stats.MaxMood {
			stats.MaxMood = entry.MoodRating
		}
		stats.TotalEntries++
		sum += entry.MoodRating
	}
	if stats.TotalEntries > 0 {
		stats.AvgMood = round1(float64(sum) / float64(stats.TotalEntries))
	}
	return stats, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sorted returns entries by timestamp; callers hold the lock.
func (s *MemoryStore) sorted(newestFirst bool) []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		if newestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func cloneEntry(entry *Entry, withEmbedding bool) *Entry {
	clone := *entry
	clone.Embedding = nil
	if withEmbedding && len(entry.Embedding) > 0 {
		clone.Embedding = append([]float32(nil), entry.Embedding...)
	}
	return &clone
}

var _ Store = (*MemoryStore)(nil)
