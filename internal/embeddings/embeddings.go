// Package embeddings defines the text embedding capability used by the analysis
// engine and the providers that implement it.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmptyEmbedding is returned when a provider answers without a vector.
var ErrEmptyEmbedding = errors.New("embeddings: provider returned no vector")

// Provider maps text to a fixed-length vector.
//
// Implementations must return vectors of Dimension() components and must be safe
// for concurrent use. The same text is expected to map to the same vector for a
// fixed model version.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int

	// MaxBatchSize returns the maximum number of texts per batch.
	MaxBatchSize() int
}

// EmbedAll embeds texts in chunks of the provider's MaxBatchSize.
func EmbedAll(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := p.MaxBatchSize()
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch, err := p.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, ErrEmptyEmbedding
		}
		out = append(out, batch...)
	}
	return out, nil
}
