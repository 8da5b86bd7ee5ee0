// Package openai provides an embedding provider backed by the OpenAI embeddings API
// (or any OpenAI-compatible endpoint).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/introspect/internal/embeddings"
)

// Provider implements embeddings.Provider using OpenAI.
type Provider struct {
	client    *openai.Client
	model     string
	dimension int
}

var _ embeddings.Provider = (*Provider)(nil)

// Config contains configuration for the OpenAI provider.
type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible servers
	Model   string // text-embedding-3-small, text-embedding-3-large
	// Dimension overrides the built-in model table. When set for the
	// text-embedding-3 family it is also sent as the requested dimension.
	Dimension int
	Timeout   time.Duration
}

// New creates a new OpenAI embedding provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embeddings: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Dimension returns the embedding dimension for the configured model.
func (p *Provider) Dimension() int {
	if p.dimension > 0 {
		return p.dimension
	}
	switch p.model {
	case string(openai.LargeEmbedding3):
		return 3072
	default:
		return 1536
	}
}

// MaxBatchSize returns the maximum number of inputs per request.
func (p *Provider) MaxBatchSize() int {
	return 2048
}

// Embed generates an embedding for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 || len(out[0]) == 0 {
		return nil, embeddings.ErrEmptyEmbedding
	}
	return out[0], nil
}

// EmbedBatch generates embeddings for multiple texts, ordered by input index.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dimension > 0 && p.model != string(openai.AdaEmbeddingV2) {
		req.Dimensions = p.dimension
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	results := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(results) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", item.Index)
		}
		results[item.Index] = item.Embedding
	}
	return results, nil
}
