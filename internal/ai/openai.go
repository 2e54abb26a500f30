// file: internal/ai/openai.go
// version: 2.1.0
// guid: 0e30b52b-e6e8-450e-a5e2-e9e5c64b665d

package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// OpenAIBackend generates structured responses with the hosted OpenAI API
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	retryModel string
	maxTokens  int64
}

// NewOpenAIBackend creates a new OpenAI backend
func NewOpenAIBackend(cfg Config) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini" // Fast and cost-effective
	}

	return &OpenAIBackend{
		client:     &client,
		model:      model,
		retryModel: cfg.OpenAIRetry,
		maxTokens:  1000,
	}
}

// Name identifies the backend in logs and errors
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// responseFormat constrains output to req.Schema when one is given and to
// any JSON object otherwise. Strict mode is off: the stage schemas keep
// optional fields, which strict schemas do not allow.
func responseFormat(req Request) openai.ChatCompletionNewParamsResponseFormatUnion {
	if req.Schema == nil {
		// json_object mode requires the prompt itself to describe the schema
		jsonObjectFormat := shared.NewResponseFormatJSONObjectParam()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &jsonObjectFormat}
	}
	name := req.SchemaName
	if name == "" {
		name = "response"
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   name,
				Schema: req.Schema,
			},
		},
	}
}

// Complete sends the system and user prompts and returns the raw JSON text
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       shared.ChatModel(pickModel(b.model, b.retryModel, req.Retry)),
		Temperature: param.NewOpt(0.1),
		MaxTokens:   param.NewOpt(b.maxTokens),
		ResponseFormat: responseFormat(req),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return completion.Choices[0].Message.Content, nil
}
