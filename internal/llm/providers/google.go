package providers

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
	"google.golang.org/genai"
)

// GoogleConfig configures the Gemini provider.
type GoogleConfig struct {
	APIKey       string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// GoogleProvider streams content from the Gemini API.
type GoogleProvider struct {
	base         BaseProvider
	client       *genai.Client
	defaultModel string
}

// NewGoogleProvider creates a Gemini provider.
func NewGoogleProvider(cfg GoogleConfig) (*GoogleProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("google: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}
	return &GoogleProvider{
		base:         NewBaseProvider("google", cfg.MaxRetries, cfg.RetryDelay),
		client:       client,
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *GoogleProvider) Name() string {
	return "google"
}

// Complete streams generated content for req. A failed attempt is retried
// only if no text reached the caller yet.
func (p *GoogleProvider) Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.Prompt}},
	}}
	config := buildGoogleConfig(req)

	chunks := make(chan *llm.Chunk)
	go func() {
		defer close(chunks)

		emitted := false
		err := p.base.Retry(ctx, func(err error) bool { return !emitted && IsRetryable(err) }, func() error {
			streamIter := p.client.Models.GenerateContentStream(ctx, model, contents, config)
			if err := p.processStream(ctx, streamIter, chunks, &emitted); err != nil {
				return p.wrapError(err, model)
			}
			return nil
		})
		if err != nil {
			send(ctx, chunks, &llm.Chunk{Error: err, Done: true})
			return
		}
		send(ctx, chunks, &llm.Chunk{Done: true})
	}()
	return chunks, nil
}

func (p *GoogleProvider) processStream(ctx context.Context, streamIter iter.Seq2[*genai.GenerateContentResponse, error], chunks chan<- *llm.Chunk, emitted *bool) error {
	for resp, err := range streamIter {
		if err != nil {
			return err
		}
		if resp == nil {
			continue
		}
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Text == "" {
					continue
				}
				if !send(ctx, chunks, &llm.Chunk{Text: part.Text}) {
					return ctx.Err()
				}
				*emitted = true
			}
		}
	}
	return nil
}

func buildGoogleConfig(req *llm.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(req.MaxTokens, 1<<20))
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		config.Temperature = &t
	}
	if req.TopP > 0 {
		topP := float32(req.TopP)
		config.TopP = &topP
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}
	return config
}

func (p *GoogleProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if _, ok := GetProviderError(err); ok {
		return err
	}
	providerErr := NewProviderError("google", model, err)

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthenticated"):
		providerErr = providerErr.WithStatus(http.StatusUnauthorized)
	case strings.Contains(msg, "403") || strings.Contains(msg, "permission denied"):
		providerErr = providerErr.WithStatus(http.StatusForbidden)
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		providerErr = providerErr.WithStatus(http.StatusNotFound)
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource exhausted"):
		providerErr = providerErr.WithStatus(http.StatusTooManyRequests)
	case strings.Contains(msg, "503"):
		providerErr = providerErr.WithStatus(http.StatusServiceUnavailable)
	case strings.Contains(msg, "500"):
		providerErr = providerErr.WithStatus(http.StatusInternalServerError)
	}
	return providerErr
}
