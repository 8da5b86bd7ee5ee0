package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/haasonsaas/introspect/internal/analysis"
	"github.com/haasonsaas/introspect/internal/config"
	"github.com/haasonsaas/introspect/internal/embeddings"
	"github.com/haasonsaas/introspect/internal/embeddings/ollama"
	"github.com/haasonsaas/introspect/internal/embeddings/openai"
	"github.com/haasonsaas/introspect/internal/journal"
	"github.com/haasonsaas/introspect/internal/llm"
	"github.com/haasonsaas/introspect/internal/llm/providers"
	"github.com/haasonsaas/introspect/internal/observability"
)

// app holds everything a command needs, built from one config file.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	store    journal.Store
	analyzer *analysis.Analyzer
	service  *journal.Service

	closers []func(context.Context) error
}

func resolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv("INTROSPECT_CONFIG"))
}

// loadConfig loads the config file, or the defaults when none is given.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var cfg *config.Config
	if path := resolveConfigPath(opts.configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if level := strings.TrimSpace(opts.logLevel); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	if err := a.init(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	output, closeOutput, err := observability.OpenLogOutput(cfg.Logging.Output)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return closeOutput() })
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    output,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings() {
		logger.Warn("config", "warning", warning)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewMetrics(a.registry)

	tracer, shutdown, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}
	a.tracer = tracer
	a.closers = append(a.closers, shutdown)

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	embedder, err := buildEmbedder(cfg.Embeddings)
	if err != nil {
		return err
	}
	generator := buildGenerator(ctx, cfg, a.metrics, logger)

	analyzerOpts := []analysis.Option{
		analysis.WithSettings(analysis.Settings{
			TopK:                  cfg.Analysis.TopK,
			SimilarityThreshold:   cfg.Analysis.SimilarityThreshold,
			SimilarLimit:          cfg.Analysis.SimilarLimit,
			MixedEmotionThreshold: cfg.Analysis.MixedEmotionThreshold,
			MoodDriftThreshold:    cfg.Analysis.MoodDriftThreshold,
		}),
		analysis.WithLogger(logger),
		analysis.WithTracer(tracer.Trace()),
	}
	if path := strings.TrimSpace(cfg.Analysis.LexiconPath); path != "" {
		lex, err := analysis.LoadLexicon(path)
		if err != nil {
			return fmt.Errorf("failed to load lexicon: %w", err)
		}
		analyzerOpts = append(analyzerOpts, analysis.WithLexicon(lex))
	}
	a.analyzer = analysis.New(embedder, generator, analyzerOpts...)
	a.service = journal.NewService(store, a.analyzer, journal.WithServiceLogger(logger))
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (journal.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return journal.NewMemoryStore(), nil
	case "postgres":
		return journal.OpenPostgres(ctx, cfg.DSN, &journal.PostgresConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			ConnectTimeout:  cfg.ConnectTimeout,
		})
	case "", "sqlite":
		return journal.OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func buildEmbedder(cfg config.EmbeddingsConfig) (embeddings.Provider, error) {
	var (
		provider embeddings.Provider
		err      error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		provider, err = openai.New(openai.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		})
	case "", "ollama":
		provider, err = ollama.New(ollama.Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		provider = embeddings.NewCache(provider, cfg.CacheSize)
	}
	return provider, nil
}

// buildGenerator returns nil when generation is disabled or the provider can
// not be built, which leaves the analyzer on template insights.
func buildGenerator(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) analysis.InsightGenerator {
	if !cfg.LLM.Enabled {
		return nil
	}
	provider, err := providers.New(ctx, providers.Config{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Region:          cfg.LLM.Region,
		AccessKeyID:     cfg.LLM.AccessKeyID,
		SecretAccessKey: cfg.LLM.SecretAccessKey,
		SessionToken:    cfg.LLM.SessionToken,
		Timeout:         cfg.LLM.Timeout,
		MaxRetries:      cfg.LLM.MaxRetries,
		RetryDelay:      cfg.LLM.RetryDelay,
	})
	if err != nil {
		logger.Warn("llm provider unavailable; using template insights",
			"provider", cfg.LLM.Provider, "error", err)
		return nil
	}
	if provider == nil {
		return nil
	}
	return analysis.NewLLMGenerator(analysis.LLMGeneratorConfig{
		Provider:    llm.Instrument(provider, metrics.RecordLLMRequest),
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		MoodDrift:   cfg.Analysis.MoodDriftThreshold,
		Logger:      logger,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
	})
}
