// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.mentora/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Embedding: provider set, models, dimensions, cache (see providers.go)
//   - Retrieval: hybrid score weights, thresholds, token budget (see retrieval.go)
//   - Session: recent-turn window, summarization limits (see retrieval.go)
//   - Storage: PostgreSQL connection (see storage.go)
//   - Otel: OTLP trace export (see observability.go)
//
// Security: sensitive data (API keys, passwords) is never logged; the
// config directory uses 0750 permissions.
//
// Error handling uses sentinel errors for errors.Is() checks, wrapped
// with context via fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrNoProviders indicates no embedding provider is enabled.
	ErrNoProviders = errors.New("no embedding providers enabled")

	// ErrUnknownProvider indicates a provider id is not recognized.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidDimensions indicates the embedding dimensions are out of range.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidCacheCapacity indicates the embedding cache capacity is invalid.
	ErrInvalidCacheCapacity = errors.New("invalid cache capacity")

	// ErrInvalidRateLimit indicates a provider rate limit is invalid.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidWeights indicates the hybrid score weights do not sum to 1.
	ErrInvalidWeights = errors.New("invalid score weights")

	// ErrInvalidThreshold indicates the similarity threshold is out of [0,1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidMaxResults indicates the per-type result limit is invalid.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidTokenBudget indicates the context token budget is invalid.
	ErrInvalidTokenBudget = errors.New("invalid token budget")

	// ErrInvalidRecentTurns indicates the recent-turn window is invalid.
	ErrInvalidRecentTurns = errors.New("invalid recent turns")

	// ErrInvalidCompletionProvider indicates the completion provider is not supported.
	ErrInvalidCompletionProvider = errors.New("invalid completion provider")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Embedding provider identifiers. These appear as the providerId of
// produced vectors and as entries of embedding.providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderVoyage = "voyage"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens),
// update the owning struct's MarshalJSON.
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
	LogFile  string `mapstructure:"log_file" json:"log_file"` // when set, JSON logs also go here

	// Subsystem configuration (see the per-file type definitions)
	Embedding  EmbeddingConfig  `mapstructure:"embedding" json:"embedding"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval" json:"retrieval"`
	Session    SessionConfig    `mapstructure:"session" json:"session"`
	Completion CompletionConfig `mapstructure:"completion" json:"completion"`
	Postgres   PostgresConfig   `mapstructure:"postgres" json:"postgres"`
	Otel       OtelConfig       `mapstructure:"otel" json:"otel"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.mentora/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mentora")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes priority over individual postgres_* settings
	if err := cfg.Postgres.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Fail fast on bad values
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
	viper.SetDefault("log_file", "")

	// Embedding defaults
	viper.SetDefault("embedding.dimensions", DefaultDimensions)
	viper.SetDefault("embedding.cache_capacity", DefaultCacheCapacity)
	viper.SetDefault("embedding.providers", []string{ProviderGemini, ProviderOpenAI, ProviderVoyage})
	viper.SetDefault("embedding.gemini.model", DefaultGeminiEmbedModel)
	viper.SetDefault("embedding.gemini.requests_per_second", 2.0)
	viper.SetDefault("embedding.openai.model", DefaultOpenAIEmbedModel)
	viper.SetDefault("embedding.openai.requests_per_second", 5.0)
	viper.SetDefault("embedding.voyage.model", DefaultVoyageEmbedModel)
	viper.SetDefault("embedding.voyage.base_url", DefaultVoyageBaseURL)
	viper.SetDefault("embedding.voyage.requests_per_second", 2.0)

	// Retrieval defaults; weights must sum to 1
	viper.SetDefault("retrieval.semantic_weight", 0.4)
	viper.SetDefault("retrieval.context_weight", 0.4)
	viper.SetDefault("retrieval.recency_weight", 0.2)
	viper.SetDefault("retrieval.similarity_threshold", 0.7)
	viper.SetDefault("retrieval.max_results", 5)
	viper.SetDefault("retrieval.token_budget", 2000)
	viper.SetDefault("retrieval.task_timeout_seconds", 5)

	// Session defaults
	viper.SetDefault("session.recent_turns", 10)
	viper.SetDefault("session.summary_max_turns", 50)

	// Completion defaults (used for session summarization only)
	viper.SetDefault("completion.provider", ProviderGemini)
	viper.SetDefault("completion.model", "gemini-2.5-flash")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "mentora")
	viper.SetDefault("postgres.password", "mentora_dev_password")
	viper.SetDefault("postgres.db_name", "mentora")
	viper.SetDefault("postgres.ssl_mode", "disable")

	// Otel defaults: empty endpoint disables trace export
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.environment", "dev")
	viper.SetDefault("otel.service_name", "mentora")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets come only from the environment, never from the YAML file:
//   - GEMINI_API_KEY, OPENAI_API_KEY, VOYAGE_API_KEY: provider credentials
//   - DATABASE_URL: full PostgreSQL URL (overrides postgres.* settings)
func bindEnvVariables() {
	// Hardcoded key/env pairs cannot fail to bind; a panic here is a bug
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("embedding.gemini.api_key", "GEMINI_API_KEY")
	mustBind("embedding.openai.api_key", "OPENAI_API_KEY")
	mustBind("embedding.voyage.api_key", "VOYAGE_API_KEY")

	mustBind("log_level", "MENTORA_LOG_LEVEL")
	mustBind("log_file", "MENTORA_LOG_FILE")
	mustBind("otel.endpoint", "MENTORA_OTEL_ENDPOINT")
	mustBind("completion.provider", "MENTORA_COMPLETION_PROVIDER")
	mustBind("completion.model", "MENTORA_COMPLETION_MODEL")

	// NOTE: DATABASE_URL is handled by PostgresConfig.parseDatabaseURL,
	// not Viper, so its parts override the individual postgres.* keys.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against the
// real secret in log-scrubbing tests.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer ones keep the
// first and last 2 characters for debugging utility.
//
// THREAT MODEL: this defends against accidental logging of real
// secrets. If logs are compromised anyway, rotate the secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. Nested sensitive fields are handled by the nested structs'
// own MarshalJSON implementations.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	data, err := json.Marshal(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
