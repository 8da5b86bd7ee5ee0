package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/haasonsaas/introspect/internal/llm"
)

// BedrockConfig configures the AWS Bedrock provider. Without static keys the
// default AWS credential chain is used.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
	MaxRetries      int
	RetryDelay      time.Duration
}

// BedrockProvider streams completions through the Bedrock Converse API.
type BedrockProvider struct {
	base         BaseProvider
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockProvider creates a Bedrock provider.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-haiku-20240307-v1:0"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		base:         NewBaseProvider("bedrock", cfg.MaxRetries, cfg.RetryDelay),
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// Complete streams a Converse response for req.
func (p *BedrockProvider) Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId: aws.String(model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
		}},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}
	inference := &types.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		// #nosec G115 -- bounded by min
		inference.MaxTokens = aws.Int32(int32(min(req.MaxTokens, 1<<20)))
	}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(float32(req.Temperature))
	}
	if req.TopP > 0 {
		inference.TopP = aws.Float32(float32(req.TopP))
	}
	if len(req.Stop) > 0 {
		inference.StopSequences = req.Stop
	}
	input.InferenceConfig = inference

	var stream *bedrockruntime.ConverseStreamOutput
	err := p.base.Retry(ctx, IsRetryable, func() error {
		var streamErr error
		stream, streamErr = p.client.ConverseStream(ctx, input)
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

func (p *BedrockProvider) processStream(ctx context.Context, stream *bedrockruntime.ConverseStreamOutput, chunks chan<- *llm.Chunk, model string) {
	defer close(chunks)

	eventStream := stream.GetStream()
	defer eventStream.Close()

	var inputTokens, outputTokens int
	events := eventStream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				if err := eventStream.Err(); err != nil {
					send(ctx, chunks, &llm.Chunk{Error: p.wrapError(err, model), Done: true})
				} else {
					send(ctx, chunks, &llm.Chunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens})
				}
				return
			}

			switch ev := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockDelta:
				if delta, ok := ev.Value.Delta.(*types.ContentBlockDeltaMemberText); ok && delta.Value != "" {
					if !send(ctx, chunks, &llm.Chunk{Text: delta.Value}) {
						return
					}
				}
			case *types.ConverseStreamOutputMemberMetadata:
				if usage := ev.Value.Usage; usage != nil {
					inputTokens = int(aws.ToInt32(usage.InputTokens))
					outputTokens = int(aws.ToInt32(usage.OutputTokens))
				}
			}
		}
	}
}

func (p *BedrockProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if _, ok := GetProviderError(err); ok {
		return err
	}
	providerErr := NewProviderError("bedrock", model, err)

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		providerErr = providerErr.WithStatus(respErr.HTTPStatusCode()).WithRequestID(respErr.ServiceRequestID())
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		providerErr = providerErr.WithCode(apiErr.ErrorCode()).WithMessage(apiErr.ErrorMessage())
	}
	return providerErr
}
