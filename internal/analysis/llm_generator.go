package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
)

// DefaultInsightTimeout bounds a single LLM insight generation.
const DefaultInsightTimeout = 60 * time.Second

// LLMGenerator writes insights with a language model and falls back to the
// template chain whenever the model is unavailable, fails, times out or
// returns nothing.
type LLMGenerator struct {
	provider  llm.Provider
	model     string
	timeout   time.Duration
	sampling  llm.Request
	templates *TemplateGenerator
	logger    *slog.Logger
}

// LLMGeneratorConfig configures an LLMGenerator.
type LLMGeneratorConfig struct {
	Provider  llm.Provider
	Model     string
	Timeout   time.Duration
	MoodDrift float64
	Logger    *slog.Logger

	// Sampling overrides; zero keeps the llm package defaults.
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// NewLLMGenerator returns a generator backed by cfg.Provider. A nil provider
// yields a generator that only renders templates.
func NewLLMGenerator(cfg LLMGeneratorConfig) *LLMGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultInsightTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLMGenerator{
		provider:  cfg.Provider,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		sampling:  llm.Request{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature, TopP: cfg.TopP},
		templates: NewTemplateGenerator(cfg.MoodDrift),
		logger:    cfg.Logger.With("component", "insight"),
	}
}

// Generate returns an LLM insight, or a template insight on any failure.
// The first entry always gets the template welcome since there is nothing
// to retrieve.
func (g *LLMGenerator) Generate(ctx context.Context, in InsightInput) (Insight, error) {
	if g.provider == nil || len(in.History) == 0 {
		return g.templates.Generate(ctx, in)
	}

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	req := llm.NewRequest(g.model, "", BuildPrompt(in))
	if g.sampling.MaxTokens > 0 {
		req.MaxTokens = g.sampling.MaxTokens
	}
	if g.sampling.Temperature > 0 {
		req.Temperature = g.sampling.Temperature
	}
	if g.sampling.TopP > 0 {
		req.TopP = g.sampling.TopP
	}
	text, err := llm.Collect(genCtx, g.provider, req)
	if err == nil {
		text = cleanCompletion(text)
		if text == "" {
			err = llm.ErrEmptyCompletion
		}
	}
	if err != nil {
		g.logger.Warn("llm insight failed, using template",
			"provider", g.provider.Name(),
			"error", err,
			"duration", time.Since(start))
		return g.templates.Generate(ctx, in)
	}

	g.logger.Debug("llm insight generated",
		"provider", g.provider.Name(),
		"chars", len(text),
		"duration", time.Since(start))
	return Insight{Text: text, Source: SourceLLM}, nil
}

// cleanCompletion drops a leading role label some models echo back.
func cleanCompletion(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"Assistant:", "Insight:"} {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			text = strings.TrimSpace(rest)
		}
	}
	return text
}
