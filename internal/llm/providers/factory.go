package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
)

// Config selects and configures a generation backend.
type Config struct {
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// New builds the provider named by cfg.Provider. An empty name or "none"
// returns a nil provider, which disables generated insights.
func New(ctx context.Context, cfg Config) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		}), nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "google", "gemini":
		return NewGoogleProvider(GoogleConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	case "bedrock":
		return NewBedrockProvider(ctx, BedrockConfig{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			DefaultModel:    cfg.Model,
			MaxRetries:      cfg.MaxRetries,
			RetryDelay:      cfg.RetryDelay,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
