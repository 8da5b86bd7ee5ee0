package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// OllamaProvider streams completions from a local Ollama server's
// /api/generate endpoint.
type OllamaProvider struct {
	base         BaseProvider
	client       *http.Client
	baseURL      string
	defaultModel string
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "llama3.2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OllamaProvider{
		base:         NewBaseProvider("ollama", cfg.MaxRetries, cfg.RetryDelay),
		client:       &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		defaultModel: cfg.DefaultModel,
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	EvalCount       int    `json:"eval_count"`
	PromptEvalCount int    `json:"prompt_eval_count"`
}

// Complete streams a generation for req.
func (p *OllamaProvider) Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}

	payload := ollamaGenerateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  true,
		Options: ollamaOptions(req),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewProviderError("ollama", model, fmt.Errorf("marshal request: %w", err))
	}

	var resp *http.Response
	err = p.base.Retry(ctx, IsRetryable, func() error {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
		if reqErr != nil {
			return NewProviderError("ollama", model, reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		r, doErr := p.client.Do(httpReq)
		if doErr != nil {
			return NewProviderError("ollama", model, doErr)
		}
		if r.StatusCode >= http.StatusBadRequest {
			defer r.Body.Close()
			errBody, _ := io.ReadAll(io.LimitReader(r.Body, 8<<10))
			return NewProviderError("ollama", model, fmt.Errorf("ollama status %d: %s", r.StatusCode, strings.TrimSpace(string(errBody)))).WithStatus(r.StatusCode)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.Chunk)
	go p.streamResponse(ctx, resp.Body, chunks, model)
	return chunks, nil
}

func ollamaOptions(req *llm.Request) map[string]any {
	opts := map[string]any{}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		opts["top_p"] = req.TopP
	}
	if len(req.Stop) > 0 {
		opts["stop"] = req.Stop
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func (p *OllamaProvider) streamResponse(ctx context.Context, body io.ReadCloser, out chan<- *llm.Chunk, model string) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var resp ollamaGenerateResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			send(ctx, out, &llm.Chunk{Error: NewProviderError("ollama", model, fmt.Errorf("decode response: %w", err)), Done: true})
			return
		}
		if resp.Error != "" {
			send(ctx, out, &llm.Chunk{Error: NewProviderError("ollama", model, errors.New(resp.Error)), Done: true})
			return
		}
		if resp.Response != "" {
			if !send(ctx, out, &llm.Chunk{Text: resp.Response}) {
				return
			}
		}
		if resp.Done {
			send(ctx, out, &llm.Chunk{Done: true, InputTokens: resp.PromptEvalCount, OutputTokens: resp.EvalCount})
			return
		}
	}
	if err := scanner.Err(); err != nil {
		send(ctx, out, &llm.Chunk{Error: NewProviderError("ollama", model, err), Done: true})
		return
	}
	send(ctx, out, &llm.Chunk{Done: true})
}
