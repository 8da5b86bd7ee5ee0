// Package llm defines the text generation contract used to turn retrieved
// journal context into reflective insights.
//
// Providers stream their output as a channel of chunks. Callers that only
// need the final text use Collect.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Default sampling parameters for insight generation.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// DefaultStop keeps models from continuing into a fabricated dialogue.
var DefaultStop = []string{"User:", "Assistant:", "\n\n\n"}

// ErrEmptyCompletion is returned by Collect when the stream produced no text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Provider generates text for a single prompt.
type Provider interface {
	// Complete starts generation and returns a channel that is closed once
	// the stream finishes. Errors during streaming arrive as chunks with
	// Error set.
	Complete(ctx context.Context, req *Request) (<-chan *Chunk, error)

	// Name returns the provider identifier ("openai", "ollama", ...).
	Name() string
}

// Request is a single-turn generation request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Chunk is one piece of a streamed completion.
type Chunk struct {
	Text         string
	Done         bool
	Error        error
	InputTokens  int
	OutputTokens int
}

// NewRequest returns a request populated with the default sampling parameters.
func NewRequest(model, system, prompt string) *Request {
	stop := make([]string, len(DefaultStop))
	copy(stop, DefaultStop)
	return &Request{
		Model:       model,
		System:      system,
		Prompt:      prompt,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		Stop:        stop,
	}
}

// Collect drains a completion stream and returns the trimmed text.
func Collect(ctx context.Context, p Provider, req *Request) (string, error) {
	if p == nil {
		return "", errors.New("llm: provider is nil")
	}
	chunks, err := p.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return finish(sb.String())
			}
			if chunk == nil {
				continue
			}
			if chunk.Error != nil {
				return "", chunk.Error
			}
			sb.WriteString(chunk.Text)
			if chunk.Done {
				return finish(sb.String())
			}
		}
	}
}

func finish(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
