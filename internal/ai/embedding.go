// file: internal/ai/embedding.go
// version: 1.0.0
// guid: a9f63ef3-491f-4dc8-8a07-09341976575d

package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/jdfalk/cpe-resolver/internal/cache"
)

// Embedder turns text into a fixed-length vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingConfig selects the embedding backend
type EmbeddingConfig struct {
	Provider      string
	Model         string
	OllamaURL     string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	CacheSize     int
}

// CachedEmbedder wraps a chromem embedding function with a bounded memo cache.
// Aliases and candidate texts repeat heavily across a batch.
type CachedEmbedder struct {
	fn   chromem.EmbeddingFunc
	memo *cache.Cache[[]float32]
}

// NewEmbedder creates the embedder named by cfg.Provider
func NewEmbedder(cfg EmbeddingConfig) (*CachedEmbedder, error) {
	var fn chromem.EmbeddingFunc
	switch cfg.Provider {
	case ProviderLocal, "", "ollama":
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		baseURL := cfg.OllamaURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		fn = chromem.NewEmbeddingFuncOllama(model, baseURL+"/api")
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key required for embedding provider %q", cfg.Provider)
		}
		model := cfg.Model
		if model == "" {
			model = string(chromem.EmbeddingModelOpenAI3Small)
		}
		if cfg.OpenAIBaseURL != "" {
			fn = chromem.NewEmbeddingFuncOpenAICompat(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model, nil)
		} else {
			fn = chromem.NewEmbeddingFuncOpenAI(cfg.OpenAIAPIKey, chromem.EmbeddingModelOpenAI(model))
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
	return NewCachedEmbedder(fn, cfg.CacheSize), nil
}

// NewCachedEmbedder wraps fn. A non-positive size defaults to 10000 entries.
func NewCachedEmbedder(fn chromem.EmbeddingFunc, size int) *CachedEmbedder {
	if size <= 0 {
		size = 10000
	}
	return &CachedEmbedder{
		fn:   fn,
		memo: cache.NewBounded[[]float32](time.Hour, size),
	}
}

// Embed returns the vector for text, computing it at most once per cache lifetime
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}
	return e.memo.GetOrLoad(text, func() ([]float32, error) {
		v, err := e.fn(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding %q: %w", truncate(text, 60), err)
		}
		return v, nil
	})
}

// Func exposes the embedder as a chromem embedding function
func (e *CachedEmbedder) Func() chromem.EmbeddingFunc {
	return e.Embed
}

// Cosine returns the cosine similarity of a and b, or 0 for mismatched or zero vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
