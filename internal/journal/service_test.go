package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/introspect/internal/analysis"
)

// stubAnalyzer records the history it was given and embeds every entry as
// a two-component vector.
type stubAnalyzer struct {
	mu       sync.Mutex
	seen     map[string]int
	failText string
}

func newStubAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{seen: make(map[string]int)}
}

func (s *stubAnalyzer) Analyze(_ context.Context, text string, mood int, history []analysis.HistoryEntry) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.failText {
		return nil, errors.New("embedding model unavailable")
	}
	s.seen[text] = len(history)
	return &analysis.Result{
		Embedding:       []float32{float32(mood), 1},
		Insight:         "insight for " + text,
		InsightSource:   analysis.SourceTemplate,
		SimilarEntries:  []analysis.SimilarEntry{},
		AnalysisVersion: analysis.AnalysisVersion,
	}, nil
}

func (s *stubAnalyzer) historyLen(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[text]
}

func TestCreateEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	an := newStubAnalyzer()
	svc := NewService(store, an)

	created, err := svc.CreateEntry(ctx, "first", 4)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if created.EntryID == "" || created.Insight != "insight for first" {
		t.Fatalf("created = %+v", created)
	}
	if n := an.historyLen("first"); n != 0 {
		t.Fatalf("first entry saw %d history entries", n)
	}

	if _, err := svc.CreateEntry(ctx, "second", 0); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if n := an.historyLen("second"); n != 1 {
		t.Fatalf("second entry saw %d history entries, want 1", n)
	}

	entry, err := store.Get(ctx, created.EntryID)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.Analyzed() || entry.Analysis.Insight != "insight for first" {
		t.Fatalf("stored entry = %+v", entry)
	}

	stats, _ := store.Stats(ctx)
	if stats.TotalEntries != 2 || stats.MinMood != 3 {
		t.Fatalf("default mood not applied: %+v", stats)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), newStubAnalyzer())
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		mood    int
		wantErr error
	}{
		{"mood too high", "text", 6, ErrInvalidMood},
		{"negative mood", "text", -1, ErrInvalidMood},
		{"blank content", " \t ", 3, ErrEmptyContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateEntry(ctx, tt.content, tt.mood); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateEntryKeepsPendingOnFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	an := newStubAnalyzer()
	an.failText = "doomed"
	svc := NewService(store, an)

	if _, err := svc.CreateEntry(ctx, "doomed", 2); err == nil {
		t.Fatal("expected analysis error")
	}
	pending, _ := store.Pending(ctx, 0)
	if len(pending) != 1 || pending[0].Content != "doomed" {
		t.Fatalf("failed entry should stay pending, got %v", contents(pending))
	}

	an.failText = ""
	report, err := svc.Backfill(ctx, 0)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if report.Analyzed != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if pending, _ = store.Pending(ctx, 0); len(pending) != 0 {
		t.Fatalf("pending after backfill = %d", len(pending))
	}
}

func TestBackfillUsesEarlierHistoryOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	an := newStubAnalyzer()
	svc := NewService(store, an)

	for i, text := range []string{"oldest", "middle", "newest"} {
		e := &Entry{Content: text, MoodRating: 3, Timestamp: t0.Add(time.Duration(i) * time.Hour)}
		if err := store.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	// An analyzed entry written after everything pending.
	late := &Entry{Content: "late", MoodRating: 3, Timestamp: t0.Add(24 * time.Hour)}
	if err := store.Create(ctx, late); err != nil {
		t.Fatal(err)
	}
	if err := store.AttachAnalysis(ctx, late.ID, []float32{1, 1}, &analysis.Result{Insight: "x"}); err != nil {
		t.Fatal(err)
	}

	report, err := svc.Backfill(ctx, 2)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if report.Analyzed != 2 || len(report.IDs) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if an.historyLen("oldest") != 0 || an.historyLen("middle") != 1 {
		t.Fatalf("history sizes: oldest=%d middle=%d", an.historyLen("oldest"), an.historyLen("middle"))
	}
	if pending, _ := store.Pending(ctx, 0); len(pending) != 1 || pending[0].Content != "newest" {
		t.Fatalf("remaining pending = %v", contents(pending))
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	an := newStubAnalyzer()
	now := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
	svc := NewService(store, an, WithServiceClock(func() time.Time { return now }))

	seeds := []SeedEntry{
		{Content: "yesterday", Mood: 4, DaysAgo: 1},
		{Content: "two weeks ago", Mood: 2, DaysAgo: 14},
		{Content: "today", Mood: 0, DaysAgo: 0},
	}
	created, err := svc.Seed(ctx, seeds, false)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d entries", len(created))
	}
	if an.historyLen("two weeks ago") != 0 || an.historyLen("yesterday") != 1 || an.historyLen("today") != 2 {
		t.Fatal("seed entries were not analyzed in chronological order")
	}

	recent, _ := store.Recent(ctx, 0)
	if recent[2].Content != "two weeks ago" || !recent[2].Timestamp.Equal(now.AddDate(0, 0, -14)) {
		t.Fatalf("oldest seeded entry = %+v", recent[2])
	}

	if _, err := svc.Seed(ctx, seeds, false); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("reseed err = %v, want ErrNotEmpty", err)
	}
	if _, err := svc.Seed(ctx, seeds[:1], true); err != nil {
		t.Fatalf("Seed replace: %v", err)
	}
	if stats, _ := store.Stats(ctx); stats.TotalEntries != 1 {
		t.Fatalf("entries after replace = %d", stats.TotalEntries)
	}
}

func TestAnalyzeDoesNotPersist(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, newStubAnalyzer())
	res, err := svc.Analyze(context.Background(), "just looking", 5)
	if err != nil || res.Insight == "" {
		t.Fatalf("Analyze = %+v, %v", res, err)
	}
	if stats, _ := store.Stats(context.Background()); stats.TotalEntries != 0 {
		t.Fatal("Analyze persisted an entry")
	}
}

// gatedAnalyzer blocks every call until release is closed.
type gatedAnalyzer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	calls int
}

func (g *gatedAnalyzer) Analyze(ctx context.Context, text string, mood int, _ []analysis.HistoryEntry) (*analysis.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &analysis.Result{
		Embedding:     []float32{float32(mood), 1},
		Insight:       "insight for " + text,
		InsightSource: analysis.SourceTemplate,
	}, nil
}

func TestCreateEntryConcurrentBackfill(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	an := &gatedAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store, an)

	type outcome struct {
		created *Created
		err     error
	}
	writeDone := make(chan outcome, 1)
	go func() {
		created, err := svc.CreateEntry(ctx, "written while backfilling", 4)
		writeDone <- outcome{created, err}
	}()
	<-an.started

	type backfillOutcome struct {
		report BackfillReport
		err    error
	}
	backfillDone := make(chan backfillOutcome, 1)
	go func() {
		report, err := svc.Backfill(ctx, 0)
		backfillDone <- backfillOutcome{report, err}
	}()

	time.Sleep(20 * time.Millisecond)
	close(an.release)

	w := <-writeDone
	if w.err != nil {
		t.Fatalf("CreateEntry: %v", w.err)
	}
	if w.created.Insight != "insight for written while backfilling" {
		t.Fatalf("created = %+v", w.created)
	}
	b := <-backfillDone
	if b.err != nil {
		t.Fatalf("Backfill: %v", b.err)
	}
	if b.report.Analyzed != 0 || b.report.Failed != 0 {
		t.Fatalf("report = %+v", b.report)
	}

	an.mu.Lock()
	calls := an.calls
	an.mu.Unlock()
	if calls != 1 {
		t.Fatalf("analyzer calls = %d, want 1", calls)
	}
	if pending, _ := store.Pending(ctx, 0); len(pending) != 0 {
		t.Fatalf("pending = %v", contents(pending))
	}
}
