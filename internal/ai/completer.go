// file: internal/ai/completer.go
// version: 1.0.0
// guid: e88eb1e4-a2b8-448d-a735-c95b0e197e60

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a backend answers without any content
var ErrEmptyResponse = errors.New("empty response from text generation backend")

// Request is one structured text-generation call
type Request struct {
	System string
	User   string
	// Schema is a JSON schema describing the expected object. Backends that
	// support schema-constrained output use it directly; the others rely on
	// the system prompt.
	Schema     map[string]any
	SchemaName string
	// Retry asks the backend to use its escalation model when one is configured.
	Retry bool
}

// Completer is the text-generation capability consumed by the resolver stages
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// CompleteJSON runs req and decodes the response into out via DecodeLenient.
func CompleteJSON(ctx context.Context, c Completer, req Request, out any) error {
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyResponse
	}
	if err := DecodeLenient(raw, out); err != nil {
		return fmt.Errorf("%s response: %w", c.Name(), err)
	}
	return nil
}

// Ping checks that the backend answers a trivial structured request
func Ping(ctx context.Context, c Completer) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var out struct {
		OK FlexBool `json:"ok"`
	}
	return CompleteJSON(ctx, c, Request{
		System: `Reply with {"ok": true}`,
		User:   "ping",
	}, &out)
}

// Config selects and configures the text-generation backend
type Config struct {
	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIRetry     string
	OpenAIBaseURL   string
	LocalModel      string
	LocalRetryModel string
	OllamaURL       string
	Timeout         time.Duration
}

const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
)

// NewCompleter creates the backend named by cfg.Provider. The choice is made
// once at startup; call sites only see the Completer interface.
func NewCompleter(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key required for provider %q", cfg.Provider)
		}
		return NewOpenAIBackend(cfg), nil
	case ProviderLocal, "", "ollama":
		return NewOllamaBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q (valid: %s, %s)", cfg.Provider, ProviderLocal, ProviderOpenAI)
	}
}

func pickModel(primary, retry string, useRetry bool) string {
	if useRetry && retry != "" {
		return retry
	}
	return primary
}
