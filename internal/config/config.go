// file: internal/config/config.go
// version: 2.0.0
// guid: 43d4c9f1-8983-455b-8d85-a8d1bdbbda00

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ExecutionConfig tunes the resolution pipeline
type ExecutionConfig struct {
	MaxConcurrentResolutions int    `mapstructure:"max_concurrent_resolutions" yaml:"max_concurrent_resolutions" validate:"min=1,max=64"`
	MaxRetries               int    `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
	RetrievalMode            string `mapstructure:"retrieval_mode" yaml:"retrieval_mode" validate:"oneof=indexed direct nvd"`
	IndexK                   int    `mapstructure:"index_k" yaml:"index_k" validate:"min=1,max=200"`
	ScorerTopN               int    `mapstructure:"scorer_top_n" yaml:"scorer_top_n" validate:"min=1,max=50"`
	NarrowMinorThreshold     int    `mapstructure:"narrow_minor_threshold" yaml:"narrow_minor_threshold" validate:"min=1"`
	MaxParseHistory          int    `mapstructure:"max_parse_history" yaml:"max_parse_history" validate:"min=1,max=20"`
}

// LLMConfig selects the text-generation and embedding backends
type LLMConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider" validate:"oneof=local openai"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key" yaml:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIModel       string        `mapstructure:"openai_model" yaml:"openai_model"`
	OpenAIRetryModel  string        `mapstructure:"openai_retry_model" yaml:"openai_retry_model"`
	OpenAIBaseURL     string        `mapstructure:"openai_base_url" yaml:"openai_base_url" validate:"omitempty,url"`
	LocalModel        string        `mapstructure:"local_model" yaml:"local_model"`
	LocalRetryModel   string        `mapstructure:"local_retry_model" yaml:"local_retry_model"`
	OllamaURL         string        `mapstructure:"ollama_url" yaml:"ollama_url" validate:"omitempty,url"`
	EmbeddingProvider string        `mapstructure:"embedding_provider" yaml:"embedding_provider" validate:"oneof=local openai"`
	EmbeddingModel    string        `mapstructure:"embedding_model" yaml:"embedding_model" validate:"required"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
}

// DatabaseConfig points at the SQLite catalog, inventory and result store
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// IndexConfig locates the persisted candidate index. An empty path keeps it in memory.
type IndexConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	Collection string `mapstructure:"collection" yaml:"collection" validate:"required"`
}

// CacheConfig selects the result cache backend
type CacheConfig struct {
	Type      string        `mapstructure:"type" yaml:"type" validate:"oneof=none pebble redis"`
	Path      string        `mapstructure:"path" yaml:"path" validate:"required_if=Type pebble"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr" validate:"required_if=Type redis"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"min=0"`
}

// NVDConfig configures the remote catalog API used by the nvd retrieval mode
type NVDConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval" validate:"min=0"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host              string `mapstructure:"host" yaml:"host"`
	Port              int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute" validate:"min=0"`
	MaxBatchSize      int    `mapstructure:"max_batch_size" yaml:"max_batch_size" validate:"min=1"`
	// APIToken, when set, is required in the X-API-Token header
	APIToken string `mapstructure:"api_token" yaml:"api_token"`
}

// Config holds application configuration
type Config struct {
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Index     IndexConfig     `mapstructure:"index" yaml:"index"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	NVD       NVDConfig       `mapstructure:"nvd" yaml:"nvd"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	Tracing   bool            `mapstructure:"tracing" yaml:"tracing"`
}

var AppConfig Config

var validate = newValidator()

// SetDefaults registers every default with viper
func SetDefaults() {
	viper.SetDefault("execution.max_concurrent_resolutions", 3)
	viper.SetDefault("execution.max_retries", 1)
	viper.SetDefault("execution.retrieval_mode", "indexed")
	viper.SetDefault("execution.index_k", 10)
	viper.SetDefault("execution.scorer_top_n", 3)
	viper.SetDefault("execution.narrow_minor_threshold", 50)
	viper.SetDefault("execution.max_parse_history", 3)

	viper.SetDefault("llm.provider", "local")
	viper.SetDefault("llm.openai_api_key", "")
	viper.SetDefault("llm.openai_model", "gpt-4o-mini")
	viper.SetDefault("llm.openai_retry_model", "")
	viper.SetDefault("llm.openai_base_url", "")
	viper.SetDefault("llm.local_model", "qwen2.5:14b")
	viper.SetDefault("llm.local_retry_model", "")
	viper.SetDefault("llm.ollama_url", "http://localhost:11434")
	viper.SetDefault("llm.embedding_provider", "local")
	viper.SetDefault("llm.embedding_model", "nomic-embed-text")
	viper.SetDefault("llm.timeout", 120*time.Second)

	viper.SetDefault("database.path", "catalog.db")
	viper.SetDefault("index.path", "")
	viper.SetDefault("index.collection", "products")

	viper.SetDefault("cache.type", "none")
	viper.SetDefault("cache.path", "")
	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)

	viper.SetDefault("nvd.api_key", "")
	viper.SetDefault("nvd.base_url", "")
	viper.SetDefault("nvd.min_interval", 6*time.Second)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8484)
	viper.SetDefault("server.requests_per_minute", 60)
	viper.SetDefault("server.max_batch_size", 500)
	viper.SetDefault("server.api_token", "")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("tracing", false)
}

// InitConfig initializes the application configuration from viper
func InitConfig() error {
	SetDefaults()
	viper.SetEnvPrefix("CPE_RESOLVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Execution.RetrievalMode = strings.ToLower(strings.TrimSpace(cfg.Execution.RetrievalMode))
	cfg.LLM.Provider = normalizeProvider(cfg.LLM.Provider)
	cfg.LLM.EmbeddingProvider = normalizeProvider(cfg.LLM.EmbeddingProvider)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "none"
	}

	AppConfig = cfg
	return nil
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "ollama" {
		return "local"
	}
	return p
}

// Validate checks AppConfig against its struct tags
func Validate() error {
	return ValidateConfig(AppConfig)
}

// ValidateConfig checks cfg against its struct tags and reports every violation
func ValidateConfig(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (%v)", configKey(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// configKey turns "Config.execution.max_retries" into "execution.max_retries"
func configKey(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return key
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}
