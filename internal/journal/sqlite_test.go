package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := openTestSQLite(t)
	if store.Backend() != "sqlite" {
		t.Fatalf("backend = %q", store.Backend())
	}
	runStoreSuite(t, store)
}

func TestSQLiteInMemory(t *testing.T) {
	store, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	runStoreSuite(t, store)
}

func TestSQLiteReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, &Entry{Content: "persisted", MoodRating: 4}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 1 || stats.AvgMood != 4 {
		t.Fatalf("stats after reopen = %+v", stats)
	}
}

func TestSQLiteLegacyRows(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	// Rows as written by the old desktop build: naive isoformat timestamps,
	// pickled embeddings and a Python dict repr for the analysis.
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO entries (id, timestamp, content, mood_rating, embedding, analysis)
		VALUES (?, ?, ?, ?, ?, ?)
	`, "legacy-1", "2024-01-15T10:30:00.123456", "old entry", 3, []byte{0x80, 0x04, 0x95}, "{'insight': 'hi'}")
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	got, err := store.Get(ctx, "legacy-1")
	if err != nil {
		t.Fatalf("Get legacy row: %v", err)
	}
	if got.Analysis != nil || got.Embedding != nil {
		t.Fatalf("legacy payloads should decode as absent: %+v", got)
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.Local)
	if !got.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, want)
	}

	history, err := store.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("undecodable embeddings must be skipped, got %d", len(history))
	}
}
