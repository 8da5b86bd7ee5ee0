package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/introspect/internal/analysis"
	"github.com/haasonsaas/introspect/internal/journal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/15 * * * *", false},
		{"0 */5 * * * *", false},
		{"@hourly", false},
		{"@every 10m", false},
		{"", true},
		{"every tuesday", true},
	}
	for _, tt := range tests {
		if _, err := ParseSchedule(tt.expr); (err != nil) != tt.wantErr {
			t.Errorf("ParseSchedule(%q) err = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestRunOnceHonoursSchedule(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	var runs atomic.Int32
	task := func(context.Context) error {
		runs.Add(1)
		if runs.Load() == 2 {
			return errors.New("store locked")
		}
		return nil
	}

	s, err := New("backfill", "@every 10m", task, WithNow(clock.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if s.RunOnce(ctx) {
		t.Fatal("task ran before it was due")
	}
	clock.Advance(10 * time.Minute)
	if !s.RunOnce(ctx) || runs.Load() != 1 {
		t.Fatalf("task did not run when due (runs=%d)", runs.Load())
	}
	if s.RunOnce(ctx) {
		t.Fatal("task ran twice in one period")
	}

	clock.Advance(10 * time.Minute)
	s.RunOnce(ctx)
	status := s.Status()
	if status.Runs != 2 || status.LastError != "store locked" {
		t.Fatalf("status = %+v", status)
	}
	if want := clock.Now().Add(10 * time.Minute); !status.NextRun.Equal(want) {
		t.Fatalf("next run = %v, want %v", status.NextRun, want)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("x", "@daily", nil); err == nil {
		t.Fatal("expected error for nil task")
	}
	if _, err := New("x", "nonsense", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for bad expression")
	}
}

func TestStartStop(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	ran := make(chan struct{}, 1)
	s, err := New("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, WithNow(clock.Now), WithTickInterval(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

type okAnalyzer struct{}

func (okAnalyzer) Analyze(_ context.Context, text string, mood int, _ []analysis.HistoryEntry) (*analysis.Result, error) {
	return &analysis.Result{Embedding: []float32{1}, Insight: text}, nil
}

func TestBackfillTask(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	for _, text := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, &journal.Entry{Content: text, MoodRating: 3}); err != nil {
			t.Fatal(err)
		}
	}
	task := BackfillTask(journal.NewService(store, okAnalyzer{}), 2, nil, nil)
	if err := task(ctx); err != nil {
		t.Fatalf("task: %v", err)
	}
	pending, _ := store.Pending(ctx, 0)
	if len(pending) != 1 {
		t.Fatalf("pending after one batch = %d, want 1", len(pending))
	}
}
