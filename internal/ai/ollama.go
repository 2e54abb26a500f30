// file: internal/ai/ollama.go
// version: 1.0.0
// guid: 0b9faea1-2649-432f-ba2b-1d2ccaaf5477

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// OllamaBackend generates structured responses with a locally hosted model
type OllamaBackend struct {
	baseURL    string
	model      string
	retryModel string
	httpClient *http.Client
}

// NewOllamaBackend creates a backend talking to the Ollama chat endpoint
func NewOllamaBackend(cfg Config) *OllamaBackend {
	baseURL := strings.TrimRight(cfg.OllamaURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.LocalModel
	if model == "" {
		model = "qwen2.5:14b"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaBackend{
		baseURL:    baseURL,
		model:      model,
		retryModel: cfg.LocalRetryModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in logs and errors
func (b *OllamaBackend) Name() string {
	return "ollama"
}

// Complete posts to /api/chat with the schema as the output format
func (b *OllamaBackend) Complete(ctx context.Context, req Request) (string, error) {
	body := ollamaChatRequest{
		Model: pickModel(b.model, b.retryModel, req.Retry),
		Messages: []ollamaMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}
	if req.Schema != nil {
		body.Format = req.Schema
	} else {
		body.Format = "json"
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ollama: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("ollama: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, truncate(string(bodyBytes), 200))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", fmt.Errorf("ollama: parsing response JSON: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("ollama: %s", chatResp.Error)
	}
	if chatResp.Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return chatResp.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
