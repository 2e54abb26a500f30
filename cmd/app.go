// file: cmd/app.go
// version: 1.0.0
// guid: e8aeac61-1c18-45ba-be74-95db6baa01e3

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/cache"
	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/index"
	"github.com/jdfalk/cpe-resolver/internal/metrics"
	"github.com/jdfalk/cpe-resolver/internal/nvd"
	"github.com/jdfalk/cpe-resolver/internal/ratelimit"
	"github.com/jdfalk/cpe-resolver/internal/resolver"
)

// app holds the components built from config.AppConfig for one command
type app struct {
	cfg          config.Config
	store        *database.SQLiteStore
	llm          *ai.InstrumentedCompleter
	embedder     *ai.CachedEmbedder
	index        *index.Loader
	results      cache.ResultCache
	orchestrator *resolver.Orchestrator
}

// openStore opens the SQLite store, creating its directory when needed
func openStore(path string) (*database.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := database.NewSQLiteStoreWithPool(path, config.AppConfig.Execution.MaxConcurrentResolutions+2)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func newEmbedder(cfg config.Config) (*ai.CachedEmbedder, error) {
	return ai.NewEmbedder(ai.EmbeddingConfig{
		Provider:      cfg.LLM.EmbeddingProvider,
		Model:         cfg.LLM.EmbeddingModel,
		OllamaURL:     cfg.LLM.OllamaURL,
		OpenAIAPIKey:  cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
	})
}

func newIndexLoader(cfg config.Config, emb *ai.CachedEmbedder, source index.PairSource) *index.Loader {
	return index.NewLoader(index.Options{
		Path:           cfg.Index.Path,
		Collection:     cfg.Index.Collection,
		Embed:          emb.Func(),
		DocumentPrefix: index.DefaultDocumentPrefix,
		QueryPrefix:    index.DefaultQueryPrefix,
	}, source)
}

// newApp builds the full resolution pipeline. The caller must call close.
func newApp(cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}
	store, err := openStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.store = store

	if err := a.build(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) build() error {
	cfg := a.cfg
	completer, err := ai.NewCompleter(ai.Config{
		Provider:        cfg.LLM.Provider,
		OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
		OpenAIModel:     cfg.LLM.OpenAIModel,
		OpenAIRetry:     cfg.LLM.OpenAIRetryModel,
		OpenAIBaseURL:   cfg.LLM.OpenAIBaseURL,
		LocalModel:      cfg.LLM.LocalModel,
		LocalRetryModel: cfg.LLM.LocalRetryModel,
		OllamaURL:       cfg.LLM.OllamaURL,
		Timeout:         cfg.LLM.Timeout,
	})
	if err != nil {
		return err
	}
	a.llm = ai.Instrument(completer)

	if a.embedder, err = newEmbedder(cfg); err != nil {
		return err
	}

	retriever, err := a.retriever()
	if err != nil {
		return err
	}

	machine := resolver.NewMachine(
		resolver.NewLLMParser(a.llm, a.store),
		retriever,
		&resolver.LLMScorer{LLM: a.llm, TopN: cfg.Execution.ScorerTopN},
		&resolver.LLMAuditor{LLM: a.llm},
		resolver.MachineConfig{
			MaxRetries:      cfg.Execution.MaxRetries,
			MaxParseHistory: cfg.Execution.MaxParseHistory,
			MinorThreshold:  cfg.Execution.NarrowMinorThreshold,
		},
	)

	a.results, err = cache.Open(cache.Options{
		Type:      cfg.Cache.Type,
		Path:      cfg.Cache.Path,
		RedisAddr: cfg.Cache.RedisAddr,
		TTL:       cfg.Cache.TTL,
	})
	if err != nil {
		return fmt.Errorf("failed to open result cache: %w", err)
	}

	opts := []resolver.Option{resolver.WithResultStore(a.store)}
	if a.results != nil {
		opts = append(opts, resolver.WithResultCache(a.results))
	}
	a.orchestrator = resolver.NewOrchestrator(machine, cfg.Execution.RetrievalMode, cfg.Execution.MaxConcurrentResolutions, opts...)
	return nil
}

func (a *app) retriever() (resolver.Retriever, error) {
	cfg := a.cfg
	switch cfg.Execution.RetrievalMode {
	case resolver.ModeIndexed, "":
		a.index = newIndexLoader(cfg, a.embedder, a.store)
		return &resolver.IndexedRetriever{
			Index:   a.index,
			Catalog: a.store,
			LLM:     a.llm,
			K:       cfg.Execution.IndexK,
		}, nil
	case resolver.ModeDirect:
		return &resolver.DirectRetriever{Catalog: a.store, Embedder: a.embedder}, nil
	case resolver.ModeNVD:
		limiter := ratelimit.NewMinInterval(cfg.NVD.MinInterval)
		limiter.OnWait(metrics.ObserveRateLimitWait)
		client := nvd.NewClient(cfg.NVD.BaseURL, cfg.NVD.APIKey, limiter)
		return &resolver.NVDRetriever{Client: client, Embedder: a.embedder}, nil
	default:
		return nil, fmt.Errorf("unsupported retrieval mode: %q", cfg.Execution.RetrievalMode)
	}
}

func (a *app) close() error {
	var errs []error
	if a.results != nil {
		errs = append(errs, a.results.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
