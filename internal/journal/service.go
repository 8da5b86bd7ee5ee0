package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/introspect/internal/analysis"
)

// Analyzer produces the analysis of one entry against a history snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, text string, mood int, history []analysis.HistoryEntry) (*analysis.Result, error)
}

// Created is the outcome of writing an entry: its id plus the analysis.
type Created struct {
	EntryID string `json:"entry_id"`
	*analysis.Result
}

// SeedEntry is one demo entry, backdated by DaysAgo days.
type SeedEntry struct {
	Content string `yaml:"content" json:"content"`
	Mood    int    `yaml:"mood" json:"mood"`
	DaysAgo int    `yaml:"days_ago" json:"days_ago"`
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Analyzed int      `json:"analyzed"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	IDs      []string `json:"ids,omitempty"`
}

// Service writes entries and keeps their analysis attached.
//
// Analysis is serialized: a write and a backfill never analyze the same
// entry, and each one sees the history left by the previous one.
type Service struct {
	store    Store
	analyzer Analyzer
	logger   *slog.Logger
	now      func() time.Time

	analyzeMu sync.Mutex
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock overrides the clock used for seeding.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a store to an analyzer.
func NewService(store Store, analyzer Analyzer, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		analyzer: analyzer,
		logger:   slog.Default().With("component", "journal"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for read paths.
func (s *Service) Store() Store {
	return s.store
}

// CreateEntry saves an entry, analyzes it against the entries written before
// it and attaches the result. When analysis fails the entry is kept without
// an embedding and the error is returned; Backfill picks it up later.
func (s *Service) CreateEntry(ctx context.Context, content string, mood int) (*Created, error) {
	mood, err := validateMood(mood)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	history, err := s.store.History(ctx)
	if err != nil {
		return nil, err
	}

	entry := &Entry{Content: content, MoodRating: mood}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("entry saved", "entry_id", shortID(entry.ID), "mood", mood)

	result, err := s.analyze(ctx, entry, history)
	if err != nil {
		return nil, fmt.Errorf("analyze entry %s: %w", entry.ID, err)
	}
	return &Created{EntryID: entry.ID, Result: result}, nil
}

// Analyze runs the analyzer without persisting anything.
func (s *Service) Analyze(ctx context.Context, content string, mood int) (*analysis.Result, error) {
	mood, err := validateMood(mood)
	if err != nil {
		return nil, err
	}
	history, err := s.store.History(ctx)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, content, mood, history)
}

func (s *Service) analyze(ctx context.Context, entry *Entry, history []analysis.HistoryEntry) (*analysis.Result, error) {
	result, err := s.analyzer.Analyze(ctx, entry.Content, entry.MoodRating, history)
	if err != nil {
		s.logger.Warn("analysis failed; entry left pending", "entry_id", shortID(entry.ID), "error", err)
		return nil, err
	}
	if err := s.store.AttachAnalysis(ctx, entry.ID, result.Embedding, result); err != nil {
		return nil, err
	}
	s.logger.Info("analysis attached",
		"entry_id", shortID(entry.ID),
		"similar", len(result.SimilarEntries),
		"insight_source", result.InsightSource,
	)
	return result, nil
}

// Backfill analyzes entries saved without an embedding, oldest first. Each
// entry only sees history written before it. A limit of zero or less
// processes every pending entry.
func (s *Service) Backfill(ctx context.Context, limit int) (BackfillReport, error) {
	var report BackfillReport
	pending, err := s.store.Pending(ctx, limit)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		return report, nil
	}

	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := s.backfillOne(ctx, entry)
		switch {
		case err == nil:
			report.Analyzed++
			report.IDs = append(report.IDs, entry.ID)
		case errors.Is(err, ErrAlreadyAnalyzed), errors.Is(err, ErrNotFound):
			report.Skipped++
		case errors.Is(err, ctx.Err()):
			return report, err
		default:
			report.Failed++
		}
	}
	s.logger.Info("backfill finished", "analyzed", report.Analyzed, "failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

// backfillOne analyzes entry unless a concurrent write got to it first.
func (s *Service) backfillOne(ctx context.Context, entry *Entry) error {
	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	current, err := s.store.Get(ctx, entry.ID)
	if err != nil {
		return err
	}
	if current.Analyzed() {
		return ErrAlreadyAnalyzed
	}
	history, err := s.store.History(ctx)
	if err != nil {
		return err
	}
	_, err = s.analyze(ctx, current, before(history, current.Timestamp))
	return err
}

// Seed loads demo entries into an empty journal, oldest first, analyzing
// each one against the entries seeded before it. replace clears any
// existing entries first.
func (s *Service) Seed(ctx context.Context, entries []SeedEntry, replace bool) ([]*Created, error) {
	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.TotalEntries > 0 {
		if !replace {
			return nil, ErrNotEmpty
		}
		if err := s.store.Clear(ctx); err != nil {
			return nil, err
		}
	}

	ordered := make([]SeedEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DaysAgo > ordered[j].DaysAgo
	})

	now := s.now()
	created := make([]*Created, 0, len(ordered))
	for _, seed := range ordered {
		mood, err := validateMood(seed.Mood)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", preview(seed.Content), err)
		}
		if strings.TrimSpace(seed.Content) == "" {
			return created, ErrEmptyContent
		}
		history, err := s.store.History(ctx)
		if err != nil {
			return created, err
		}
		entry := &Entry{
			Content:    seed.Content,
			MoodRating: mood,
			Timestamp:  now.AddDate(0, 0, -seed.DaysAgo),
		}
		if err := s.store.Create(ctx, entry); err != nil {
			return created, err
		}
		result, err := s.analyze(ctx, entry, history)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", preview(seed.Content), err)
		}
		created = append(created, &Created{EntryID: entry.ID, Result: result})
	}
	s.logger.Info("demo entries seeded", "count", len(created))
	return created, nil
}

// before keeps entries strictly older than t.
func before(history []analysis.HistoryEntry, t time.Time) []analysis.HistoryEntry {
	out := make([]analysis.HistoryEntry, 0, len(history))
	for _, h := range history {
		if h.Timestamp.Before(t) {
			out = append(out, h)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func preview(content string) string {
	r := []rune(content)
	if len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return content
}
