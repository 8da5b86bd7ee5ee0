// Package config loads the introspect configuration file.
//
// Files are YAML, or JSON5 when the extension is .json or .json5. Environment
// variables are expanded before parsing and "$include" pulls in other files,
// which the including file overrides key by key. Unknown keys are rejected.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config is the main configuration structure for introspect.
type Config struct {
	Version    int              `yaml:"version" jsonschema:"description=Config file format version"`
	Storage    StorageConfig    `yaml:"storage"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LLM        LLMConfig        `yaml:"llm"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Backfill   BackfillConfig   `yaml:"backfill"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// StorageConfig selects the entry store.
type StorageConfig struct {
	Driver          string        `yaml:"driver" jsonschema:"enum=sqlite,enum=postgres,enum=memory"`
	Path            string        `yaml:"path"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider  string        `yaml:"provider" jsonschema:"enum=openai,enum=ollama"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Dimension int           `yaml:"dimension"`
	CacheSize int           `yaml:"cache_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LLMConfig configures insight generation. When disabled only template
// insights are produced.
type LLMConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Provider        string        `yaml:"provider" jsonschema:"enum=openai,enum=anthropic,enum=google,enum=bedrock,enum=ollama"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Region          string        `yaml:"region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	SessionToken    string        `yaml:"session_token"`
	MaxTokens       int           `yaml:"max_tokens"`
	Temperature     float64       `yaml:"temperature"`
	TopP            float64       `yaml:"top_p"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

// AnalysisConfig holds the engine thresholds.
type AnalysisConfig struct {
	SimilarityThreshold   float64 `yaml:"similarity_threshold"`
	TopK                  int     `yaml:"top_k"`
	SimilarLimit          int     `yaml:"similar_limit"`
	MixedEmotionThreshold float64 `yaml:"mixed_emotion_threshold"`
	MoodDriftThreshold    float64 `yaml:"mood_drift_threshold"`
	LexiconPath           string  `yaml:"lexicon_path"`
	WatchLexicon          bool    `yaml:"watch_lexicon"`
}

// BackfillConfig schedules analysis of entries saved without one.
type BackfillConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Schedule  string `yaml:"schedule"`
	BatchSize int    `yaml:"batch_size"`
}

type LoggingConfig struct {
	Level     string `yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format    string `yaml:"format" jsonschema:"enum=json,enum=text"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = os.Getenv("DB_PATH")
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "journal.db"
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = 10
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = 5
	}
	if cfg.Storage.ConnMaxLifetime == 0 {
		cfg.Storage.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Storage.ConnMaxIdleTime == 0 {
		cfg.Storage.ConnMaxIdleTime = 2 * time.Minute
	}
	if cfg.Storage.ConnectTimeout == 0 {
		cfg.Storage.ConnectTimeout = 10 * time.Second
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "ollama"
	}
	if cfg.Embeddings.APIKey == "" && cfg.Embeddings.Provider == "openai" {
		cfg.Embeddings.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embeddings.CacheSize == 0 {
		cfg.Embeddings.CacheSize = 1024
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 300
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 0.9
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.RetryDelay == 0 {
		cfg.LLM.RetryDelay = time.Second
	}

	if cfg.Analysis.SimilarityThreshold == 0 {
		cfg.Analysis.SimilarityThreshold = 0.3
	}
	if cfg.Analysis.TopK == 0 {
		cfg.Analysis.TopK = 5
	}
	if cfg.Analysis.SimilarLimit == 0 {
		cfg.Analysis.SimilarLimit = 3
	}
	if cfg.Analysis.MixedEmotionThreshold == 0 {
		cfg.Analysis.MixedEmotionThreshold = 0.08
	}
	if cfg.Analysis.MoodDriftThreshold == 0 {
		cfg.Analysis.MoodDriftThreshold = 0.5
	}

	if cfg.Backfill.Schedule == "" {
		cfg.Backfill.Schedule = "@every 10m"
	}
	if cfg.Backfill.BatchSize == 0 {
		cfg.Backfill.BatchSize = 25
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "127.0.0.1:9464"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "introspect"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1.0
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if err := ValidateVersion(c.Version); err != nil {
		add("%s", err.Error())
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite":
		if strings.TrimSpace(c.Storage.Path) == "" {
			add("storage.path is required for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			add("storage.dsn is required for postgres")
		}
	case "memory":
	default:
		add("storage.driver must be sqlite, postgres or memory (got %q)", c.Storage.Driver)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "ollama":
	case "openai":
		if strings.TrimSpace(c.Embeddings.APIKey) == "" {
			add("embeddings.api_key is required for openai")
		}
	default:
		add("embeddings.provider must be openai or ollama (got %q)", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension < 0 {
		add("embeddings.dimension must be >= 0")
	}
	if c.Embeddings.CacheSize < 0 {
		add("embeddings.cache_size must be >= 0")
	}

	if c.LLM.Enabled {
		switch strings.ToLower(c.LLM.Provider) {
		case "ollama", "bedrock", "openai", "anthropic", "google", "gemini":
		default:
			add("llm.provider %q is not supported", c.LLM.Provider)
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature must be between 0 and 2")
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		add("llm.top_p must be between 0 and 1")
	}
	if c.LLM.MaxRetries < 0 {
		add("llm.max_retries must be >= 0")
	}

	if c.Analysis.SimilarityThreshold < 0 || c.Analysis.SimilarityThreshold >= 1 {
		add("analysis.similarity_threshold must be in [0, 1)")
	}
	if c.Analysis.TopK < 1 {
		add("analysis.top_k must be >= 1")
	}
	if c.Analysis.SimilarLimit < 1 || c.Analysis.SimilarLimit > c.Analysis.TopK {
		add("analysis.similar_limit must be between 1 and top_k")
	}
	if c.Analysis.MixedEmotionThreshold < 0 {
		add("analysis.mixed_emotion_threshold must be >= 0")
	}
	if c.Analysis.MoodDriftThreshold < 0 {
		add("analysis.mood_drift_threshold must be >= 0")
	}
	if c.Analysis.WatchLexicon && strings.TrimSpace(c.Analysis.LexiconPath) == "" {
		add("analysis.watch_lexicon requires analysis.lexicon_path")
	}

	if c.Backfill.BatchSize < 0 {
		add("backfill.batch_size must be >= 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level %q is not recognized", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		add("logging.format must be json or text")
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Listen) == "" {
		add("metrics.listen is required when metrics are enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		add("tracing.sampling_rate must be between 0 and 1")
	}

	if len(issues) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(issues, "\n  - "))
}

// Warnings reports settings that load fine but disable a feature at runtime.
// A generation backend without credentials leaves insights on templates.
func (c *Config) Warnings() []string {
	if c == nil {
		return nil
	}
	var warnings []string
	if c.LLM.Enabled && strings.TrimSpace(c.LLM.APIKey) == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "openai", "anthropic", "google", "gemini":
			warnings = append(warnings, fmt.Sprintf("llm.api_key is empty for %s; insights will use templates", c.LLM.Provider))
		}
	}
	return warnings
}
