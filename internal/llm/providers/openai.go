package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI chat provider. BaseURL may point at any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// OpenAIProvider streams chat completions from the OpenAI API.
type OpenAIProvider struct {
	base         BaseProvider
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		base:         NewBaseProvider("openai", cfg.MaxRetries, cfg.RetryDelay),
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete streams a chat completion for req.
func (p *OpenAIProvider) Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stop:        req.Stop,
		Stream:      true,
	}

	var stream *openai.ChatCompletionStream
	err := p.base.Retry(ctx, IsRetryable, func() error {
		var streamErr error
		stream, streamErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if streamErr != nil {
			return p.wrapError(streamErr, model)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.Chunk)
	go p.processStream(ctx, stream, chunks, model)
	return chunks, nil
}

func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *llm.Chunk, model string) {
	defer close(chunks)
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				send(ctx, chunks, &llm.Chunk{Done: true})
				return
			}
			send(ctx, chunks, &llm.Chunk{Error: p.wrapError(err, model), Done: true})
			return
		}
		if len(response.Choices) == 0 {
			continue
		}
		if text := response.Choices[0].Delta.Content; text != "" {
			if !send(ctx, chunks, &llm.Chunk{Text: text}) {
				return
			}
		}
	}
}

func (p *OpenAIProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if _, ok := GetProviderError(err); ok {
		return err
	}
	providerErr := NewProviderError("openai", model, err)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		providerErr = providerErr.WithStatus(apiErr.HTTPStatusCode).WithMessage(apiErr.Message)
		if code, ok := apiErr.Code.(string); ok && code != "" {
			providerErr = providerErr.WithCode(code)
		} else if apiErr.Type != "" {
			providerErr = providerErr.WithCode(apiErr.Type)
		}
		return providerErr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		providerErr = providerErr.WithStatus(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			providerErr = providerErr.WithMessage(fmt.Sprintf("request failed: %v", reqErr.Err))
		}
	}
	return providerErr
}

// send delivers a chunk unless ctx is cancelled first.
func send(ctx context.Context, chunks chan<- *llm.Chunk, chunk *llm.Chunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
