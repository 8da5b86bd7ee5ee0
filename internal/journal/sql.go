package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/introspect/internal/analysis"
	"github.com/haasonsaas/introspect/internal/vector"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name string
	// dollar selects $1-style placeholders instead of ?.
	dollar bool
	schema []string
	// timeArg converts a timestamp into the value bound for the timestamp column.
	timeArg func(time.Time) any
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, now: time.Now}
}

// Backend names the SQL dialect in use.
func (s *SQLStore) Backend() string {
	return s.dialect.name
}

// migrate creates the schema when missing.
func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.dialect.name, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases database resources.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create stores an entry without embedding or analysis.
func (s *SQLStore) Create(ctx context.Context, entry *Entry) error {
	if entry == nil || strings.TrimSpace(entry.Content) == "" {
		return ErrEmptyContent
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO entries (id, timestamp, content, mood_rating)
		VALUES (?, ?, ?, ?)
	`), entry.ID, s.dialect.timeArg(entry.Timestamp), entry.Content, entry.MoodRating)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// AttachAnalysis sets the embedding and analysis only while the entry has
// none, so concurrent analyses of one entry cannot both win.
func (s *SQLStore) AttachAnalysis(ctx context.Context, id string, embedding []float32, result *analysis.Result) error {
	if len(embedding) == 0 {
		return ErrNoEmbedding
	}
	analysisDoc, err := encodeAnalysis(result)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE entries
		SET embedding = ?, analysis = ?
		WHERE id = ? AND embedding IS NULL
	`), vector.Encode(embedding), analysisDoc, id)
	if err != nil {
		return fmt.Errorf("attach analysis: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach analysis: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM entries WHERE id = ?`), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("attach analysis: %w", err)
	}
	return ErrAlreadyAnalyzed
}

// Get returns one entry with its embedding and analysis.
func (s *SQLStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, timestamp, content, mood_rating, embedding, analysis
		FROM entries
		WHERE id = ?
	`), id)
	entry, err := scanEntry(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// History returns analyzed entries, newest first. Rows whose embedding can
// not be decoded are skipped.
func (s *SQLStore) History(ctx context.Context) ([]analysis.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content, embedding, timestamp, mood_rating
		FROM entries
		WHERE embedding IS NOT NULL
		ORDER BY timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []analysis.HistoryEntry
	for rows.Next() {
		var (
			content string
			blob    []byte
			ts      dbTime
			mood    sql.NullInt64
		)
		if err := rows.Scan(&content, &blob, &ts, &mood); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		embedding, err := vector.Decode(blob)
		if err != nil || len(embedding) == 0 {
			continue
		}
		out = append(out, analysis.HistoryEntry{
			Text:      content,
			Embedding: embedding,
			Timestamp: ts.Time,
			Mood:      int(mood.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return out, nil
}

// Recent returns the newest entries with their analysis but no embedding.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return s.list(ctx, s.rebind(`
		SELECT id, timestamp, content, mood_rating, NULL, analysis
		FROM entries
		ORDER BY timestamp DESC
		LIMIT ?
	`), recentLimit(limit))
}

// Pending returns entries without an embedding, oldest first.
func (s *SQLStore) Pending(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, timestamp, content, mood_rating, NULL, NULL
		FROM entries
		WHERE embedding IS NULL
		ORDER BY timestamp ASC
	`
	if limit > 0 {
		return s.list(ctx, s.rebind(query+"LIMIT ?"), limit)
	}
	return s.list(ctx, query)
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

// Stats aggregates mood ratings over every entry.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var (
		total  int
		avg    sql.NullFloat64
		lo, hi sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(mood_rating), MIN(mood_rating), MAX(mood_rating)
		FROM entries
	`).Scan(&total, &avg, &lo, &hi)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	stats := Stats{
		TotalEntries: total,
		MinMood:      int(lo.Int64),
		MaxMood:      int(hi.Int64),
	}
	if avg.Valid {
		stats.AvgMood = round1(avg.Float64)
	}
	return stats, nil
}

// Clear deletes every entry.
func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads id, timestamp, content, mood, embedding, analysis.
// Undecodable embeddings and analysis documents come back as nil.
func scanEntry(row rowScanner, withEmbedding bool) (*Entry, error) {
	var (
		entry       Entry
		ts          dbTime
		mood        sql.NullInt64
		blob        []byte
		analysisDoc sql.NullString
	)
	if err := row.Scan(&entry.ID, &ts, &entry.Content, &mood, &blob, &analysisDoc); err != nil {
		return nil, err
	}
	entry.Timestamp = ts.Time
	entry.MoodRating = int(mood.Int64)
	if withEmbedding && len(blob) > 0 {
		if embedding, err := vector.Decode(blob); err == nil {
			entry.Embedding = embedding
		}
	}
	if analysisDoc.Valid {
		entry.Analysis = decodeAnalysis([]byte(analysisDoc.String))
	}
	return &entry, nil
}

var _ Store = (*SQLStore)(nil)
