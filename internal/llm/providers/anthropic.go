package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/haasonsaas/introspect/internal/llm"
)

// AnthropicConfig configures the Claude provider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// AnthropicProvider streams messages from the Anthropic API.
type AnthropicProvider struct {
	base         BaseProvider
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-3-5-haiku-latest"
	}
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		base:         NewBaseProvider("anthropic", cfg.MaxRetries, cfg.RetryDelay),
		client:       anthropic.NewClient(options...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete streams a message for req. The first event is read inside the
// retry loop so connection failures and rate limits are retried.
func (p *AnthropicProvider) Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = anthropic.Float(req.TopP)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	err := p.base.Retry(ctx, IsRetryable, func() error {
		stream = p.client.Messages.NewStreaming(ctx, params)
		if stream.Next() {
			return nil
		}
		if streamErr := stream.Err(); streamErr != nil {
			_ = stream.Close()
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

// processStream handles the already-advanced stream; the current event has
// not been consumed yet.
func (p *AnthropicProvider) processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *llm.Chunk, model string) {
	defer close(chunks)
	defer stream.Close()

	var inputTokens, outputTokens int
	for ok := true; ok; ok = stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			if n := event.AsMessageStart().Message.Usage.InputTokens; n > 0 {
				inputTokens = int(n)
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			if delta.Type == "text_delta" && delta.Text != "" {
				if !send(ctx, chunks, &llm.Chunk{Text: delta.Text}) {
					return
				}
			}
		case "message_delta":
			if n := event.AsMessageDelta().Usage.OutputTokens; n > 0 {
				outputTokens = int(n)
			}
		case "message_stop":
			send(ctx, chunks, &llm.Chunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens})
			return
		case "error":
			send(ctx, chunks, &llm.Chunk{Error: p.wrapError(errors.New("anthropic stream error"), model), Done: true})
			return
		}
	}

	if err := stream.Err(); err != nil {
		send(ctx, chunks, &llm.Chunk{Error: p.wrapError(err, model), Done: true})
		return
	}
	send(ctx, chunks, &llm.Chunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens})
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *AnthropicProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if _, ok := GetProviderError(err); ok {
		return err
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return NewProviderError("anthropic", model, err)
	}

	providerErr := (&ProviderError{
		Provider:  "anthropic",
		Model:     model,
		Cause:     err,
		Reason:    ReasonUnknown,
		RequestID: apiErr.RequestID,
	}).WithStatus(apiErr.StatusCode)

	if raw := apiErr.RawJSON(); raw != "" {
		var payload anthropicErrorPayload
		if json.Unmarshal([]byte(raw), &payload) == nil {
			if payload.Error.Message != "" {
				providerErr = providerErr.WithMessage(payload.Error.Message)
			}
			if payload.Error.Type != "" {
				providerErr = providerErr.WithCode(payload.Error.Type)
			}
			if payload.RequestID != "" {
				providerErr = providerErr.WithRequestID(payload.RequestID)
			}
		}
	}
	if providerErr.Reason == ReasonUnknown {
		providerErr.Reason = ClassifyError(err)
	}
	return providerErr
}
