// Package analysis turns a journal entry and the writer's history into a
// structured reading: similar past entries, behavioral signals, a composite
// wellbeing score and a reflective insight.
//
// The extractors are pure functions over text, vectors and a Lexicon. The
// Analyzer wires them to an embedding provider and an InsightGenerator.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/haasonsaas/introspect/internal/embeddings"
)

var (
	// ErrNoEmbedder is returned when the analyzer has no embedding provider.
	ErrNoEmbedder = errors.New("analysis: no embedding provider configured")

	// ErrInvalidMood is returned for mood ratings outside 1..5.
	ErrInvalidMood = errors.New("analysis: mood rating must be between 1 and 5")

	// ErrEmptyText is returned for blank entries.
	ErrEmptyText = errors.New("analysis: entry text is empty")
)

// Settings are the tunable thresholds of the engine.
type Settings struct {
	TopK                  int
	SimilarityThreshold   float64
	SimilarLimit          int
	MixedEmotionThreshold float64
	MoodDriftThreshold    float64
}

// DefaultSettings returns the stock thresholds.
func DefaultSettings() Settings {
	return Settings{
		TopK:                  DefaultTopK,
		SimilarityThreshold:   DefaultSimilarityThreshold,
		SimilarLimit:          DefaultSimilarLimit,
		MixedEmotionThreshold: DefaultMixedEmotionThreshold,
		MoodDriftThreshold:    DefaultMoodDriftThreshold,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.TopK <= 0 {
		s.TopK = d.TopK
	}
	if s.SimilarityThreshold <= 0 {
		s.SimilarityThreshold = d.SimilarityThreshold
	}
	if s.SimilarLimit <= 0 {
		s.SimilarLimit = d.SimilarLimit
	}
	if s.MixedEmotionThreshold <= 0 {
		s.MixedEmotionThreshold = d.MixedEmotionThreshold
	}
	if s.MoodDriftThreshold <= 0 {
		s.MoodDriftThreshold = d.MoodDriftThreshold
	}
	return s
}

// Analyzer is the analysis facade. It is safe for concurrent use.
type Analyzer struct {
	embedder  embeddings.Provider
	generator InsightGenerator
	templates *TemplateGenerator
	settings  Settings
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu      sync.RWMutex
	lexicon *Lexicon

	// refsMu serializes reference embedding so concurrent first calls do
	// not embed the phrase list twice.
	refsMu  sync.Mutex
	refs    []EmotionReference
	refsFor *Lexicon
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLexicon replaces the built-in lexicon.
func WithLexicon(lex *Lexicon) Option {
	return func(a *Analyzer) {
		if lex != nil {
			a.lexicon = lex
		}
	}
}

// WithSettings overrides thresholds; zero fields keep their defaults.
func WithSettings(s Settings) Option {
	return func(a *Analyzer) { a.settings = s.withDefaults() }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock sets the time source used for elapsed-time phrasing.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// New creates an analyzer. A nil generator renders template insights only.
func New(embedder embeddings.Provider, generator InsightGenerator, opts ...Option) *Analyzer {
	a := &Analyzer{
		embedder: embedder,
		settings: DefaultSettings(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/haasonsaas/introspect/internal/analysis"),
		now:      time.Now,
		lexicon:  DefaultLexicon(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "analysis")
	a.templates = NewTemplateGenerator(a.settings.MoodDriftThreshold)
	if generator == nil {
		generator = a.templates
	}
	a.generator = generator
	return a
}

// Settings returns the thresholds in effect.
func (a *Analyzer) Settings() Settings {
	return a.settings
}

// Lexicon returns the lexicon in effect.
func (a *Analyzer) Lexicon() *Lexicon {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lexicon
}

// SetLexicon swaps the lexicon. Emotion references are re-embedded on the
// next analysis.
func (a *Analyzer) SetLexicon(lex *Lexicon) {
	if lex == nil {
		return
	}
	a.mu.Lock()
	a.lexicon = lex
	a.mu.Unlock()
	a.logger.Info("lexicon replaced", "emotions", len(lex.Emotions), "themes", len(lex.Themes))
}

// Warm embeds the emotion reference phrases ahead of the first analysis.
func (a *Analyzer) Warm(ctx context.Context) error {
	if a.embedder == nil {
		return ErrNoEmbedder
	}
	_, err := a.references(ctx, a.Lexicon())
	return err
}

// references returns the embedded emotion phrases for lex, embedding them
// on first use or after a lexicon swap.
func (a *Analyzer) references(ctx context.Context, lex *Lexicon) ([]EmotionReference, error) {
	a.refsMu.Lock()
	defer a.refsMu.Unlock()
	if a.refs != nil && a.refsFor == lex {
		return a.refs, nil
	}

	phrases, offsets := lex.Phrases()
	start := time.Now()
	vectors, err := embeddings.EmbedAll(ctx, a.embedder, phrases)
	if err != nil {
		return nil, fmt.Errorf("embed emotion references: %w", err)
	}

	refs := make([]EmotionReference, len(lex.Emotions))
	for i, emotion := range lex.Emotions {
		end := len(vectors)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		refs[i] = EmotionReference{
			Emotion: emotion.Name,
			Vectors: vectors[offsets[i]:end],
		}
	}
	a.refs, a.refsFor = refs, lex
	a.logger.Debug("emotion references embedded",
		"phrases", len(phrases),
		"duration", time.Since(start))
	return refs, nil
}

// Analyze reads one new entry against the writer's history. History is a
// read-only snapshot that must not include the entry itself; entries
// without an embedding are not eligible for retrieval.
//
// Only embedding failures and dimension mismatches are returned as errors.
// Insight generation problems fall back to templates.
func (a *Analyzer) Analyze(ctx context.Context, text string, mood int, history []HistoryEntry) (*Result, error) {
	if a.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if mood < 1 || mood > 5 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMood, mood)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	ctx, span := a.tracer.Start(ctx, "analysis.analyze",
		trace.WithAttributes(
			attribute.Int("journal.mood", mood),
			attribute.Int("journal.history", len(history)),
		))
	defer span.End()

	lex := a.Lexicon()
	now := a.now()

	var (
		embedding []float32
		refs      []EmotionReference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := a.embedder.Embed(gctx, text)
		if err != nil {
			return fmt.Errorf("embed entry: %w", err)
		}
		if len(v) == 0 {
			return embeddings.ErrEmptyEmbedding
		}
		embedding = v
		return nil
	})
	g.Go(func() error {
		r, err := a.references(gctx, lex)
		refs = r
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var similar []SimilarEntry
	if len(history) > 0 {
		var err error
		similar, err = Retrieve(embedding, withEmbeddings(history), a.settings.TopK, a.settings.SimilarityThreshold)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	var sig SignalBundle
	sig.Intensity = AnalyzeWritingIntensity(text)
	sentiment, err := DetectSentiment(embedding, refs, a.settings.MixedEmotionThreshold)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sig.Sentiment = sentiment
	sig.Reflection = AnalyzeReflection(text, lex)
	sig.Summary = Summarize(text, mood, sig.Sentiment, lex)
	if len(history) >= MinHistoryForCooccurrence {
		sig.ThemePattern = AnalyzeThemeCooccurrence(sig.Summary.Themes, history, lex)
	}
	if len(history) >= MinHistoryForFrequency {
		sig.Frequency = AnalyzeWritingFrequency(history, now)
	}

	cs := Score(mood, sig.Intensity, sig.Sentiment, sig.Reflection, lex)

	in := InsightInput{
		Text:    text,
		Mood:    mood,
		Similar: similar,
		History: history,
		Signals: sig,
		Score:   cs,
		Now:     now,
		Lexicon: lex,
	}
	insight, err := a.generator.Generate(ctx, in)
	if err != nil || insight.Text == "" {
		a.logger.Warn("insight generator failed, using template", "error", err)
		insight, _ = a.templates.Generate(ctx, in)
	}

	limited := similar
	if len(limited) > a.settings.SimilarLimit {
		limited = limited[:a.settings.SimilarLimit]
	}
	if limited == nil {
		limited = []SimilarEntry{}
	}

	span.SetAttributes(
		attribute.Int("analysis.similar", len(similar)),
		attribute.Float64("analysis.composite", cs.CompositeScore),
		attribute.String("analysis.insight_source", insight.Source),
	)
	a.logger.Debug("entry analyzed",
		"similar", len(similar),
		"composite", cs.CompositeScore,
		"emotion", sig.Sentiment.PrimaryEmotion,
		"insight_source", insight.Source)

	return &Result{
		Embedding:        embedding,
		Insight:          insight.Text,
		InsightSource:    insight.Source,
		SimilarEntries:   limited,
		Mood:             LegacyMood(cs),
		MentalState:      cs,
		Summary:          sig.Summary,
		WritingIntensity: sig.Intensity,
		Sentiment:        sig.Sentiment,
		Reflection:       sig.Reflection,
		ThemePattern:     sig.ThemePattern,
		WritingPattern:   sig.Frequency,
		AnalysisVersion:  AnalysisVersion,
	}, nil
}

func withEmbeddings(history []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(history))
	for _, e := range history {
		if len(e.Embedding) > 0 {
			out = append(out, e)
		}
	}
	return out
}
