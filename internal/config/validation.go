package config

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// validLogLevels are the accepted log_level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// weightTolerance absorbs float rounding when checking that the three
// hybrid score weights sum to 1.
const weightTolerance = 1e-6

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Logging
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: %q is not one of %v", ErrInvalidLogLevel, c.LogLevel, validLogLevels)
	}

	// 2. Embedding providers
	if err := c.validateEmbedding(); err != nil {
		return err
	}

	// 3. Retrieval weights and limits
	if err := c.validateRetrieval(); err != nil {
		return err
	}

	// 4. Session windows
	if c.Session.RecentTurns < 1 {
		return fmt.Errorf("%w: session.recent_turns must be at least 1, got %d",
			ErrInvalidRecentTurns, c.Session.RecentTurns)
	}
	if c.Session.SummaryMaxTurns < 1 {
		return fmt.Errorf("%w: session.summary_max_turns must be at least 1, got %d",
			ErrInvalidRecentTurns, c.Session.SummaryMaxTurns)
	}

	// 5. Completion collaborator
	if c.Completion.Provider != ProviderGemini && c.Completion.Provider != ProviderOpenAI {
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidCompletionProvider, c.Completion.Provider, ProviderGemini, ProviderOpenAI)
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("%w: completion.model cannot be empty", ErrInvalidCompletionProvider)
	}

	// 6. PostgreSQL
	if err := c.validatePostgres(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateEmbedding() error {
	e := c.Embedding

	// Dimensions must fit the pgvector schema; 64..4096 covers every
	// model the adapters support.
	if e.Dimensions < 64 || e.Dimensions > 4096 {
		return fmt.Errorf("%w: must be between 64 and 4096, got %d", ErrInvalidDimensions, e.Dimensions)
	}

	if e.CacheCapacity < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidCacheCapacity, e.CacheCapacity)
	}

	if len(e.Providers) == 0 {
		return fmt.Errorf("%w: embedding.providers is empty", ErrNoProviders)
	}

	known := []string{ProviderGemini, ProviderOpenAI, ProviderVoyage}
	keyed := 0
	for _, p := range e.Providers {
		if !slices.Contains(known, p) {
			return fmt.Errorf("%w: %q is not one of %v", ErrUnknownProvider, p, known)
		}
		if c.providerAPIKey(p) != "" {
			keyed++
		} else {
			slog.Warn("embedding provider enabled without API key, it will be skipped at runtime",
				"provider", p)
		}
	}

	// With zero keyed providers every embed call would land on the
	// hash fallback, which is a misconfiguration rather than graceful
	// degradation.
	if keyed == 0 {
		return fmt.Errorf("%w: none of the enabled providers %v has an API key set "+
			"(GEMINI_API_KEY / OPENAI_API_KEY / VOYAGE_API_KEY)", ErrMissingAPIKey, e.Providers)
	}

	for _, rl := range []struct {
		name string
		rps  float64
	}{
		{"embedding.gemini.requests_per_second", e.Gemini.RequestsPerSecond},
		{"embedding.openai.requests_per_second", e.OpenAI.RequestsPerSecond},
		{"embedding.voyage.requests_per_second", e.Voyage.RequestsPerSecond},
	} {
		if rl.rps <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidRateLimit, rl.name, rl.rps)
		}
	}

	return nil
}

// providerAPIKey returns the configured API key for a provider id.
func (c *Config) providerAPIKey(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.Embedding.Gemini.APIKey
	case ProviderOpenAI:
		return c.Embedding.OpenAI.APIKey
	case ProviderVoyage:
		return c.Embedding.Voyage.APIKey
	default:
		return ""
	}
}

func (c *Config) validateRetrieval() error {
	r := c.Retrieval

	for _, w := range []struct {
		name  string
		value float64
	}{
		{"semantic_weight", r.SemanticWeight},
		{"context_weight", r.ContextWeight},
		{"recency_weight", r.RecencyWeight},
	} {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("%w: retrieval.%s must be in [0,1], got %g", ErrInvalidWeights, w.name, w.value)
		}
	}

	sum := r.SemanticWeight + r.ContextWeight + r.RecencyWeight
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: semantic+context+recency must sum to 1, got %g", ErrInvalidWeights, sum)
	}

	if r.SimilarityThreshold < 0 || r.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: must be in [0,1], got %g", ErrInvalidThreshold, r.SimilarityThreshold)
	}

	if r.MaxResults < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidMaxResults, r.MaxResults)
	}

	if r.TokenBudget < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidTokenBudget, r.TokenBudget)
	}

	if r.TaskTimeoutSeconds < 1 {
		return fmt.Errorf("%w: retrieval.task_timeout_seconds must be at least 1, got %d",
			ErrInvalidTokenBudget, r.TaskTimeoutSeconds)
	}

	return nil
}

func (c *Config) validatePostgres() error {
	p := c.Postgres

	if p.Host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, p.Port)
	}

	if p.DBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if p.Password == "" {
		return fmt.Errorf("%w: postgres.password must be set", ErrInvalidPostgresPassword)
	}

	// Warn but don't block: the default password is fine for local dev.
	if p.Password == "mentora_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"warning", "change postgres.password for production deployments")
	}

	if len(p.Password) < 8 {
		return fmt.Errorf("%w: postgres.password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(p.Password))
	}

	// Modern SSL modes only; allow/prefer are MITM-vulnerable.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, p.SSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, p.SSLMode, validSSLModes)
	}

	return nil
}

// SlogLevel converts the configured log level string to a slog.Level.
// Call after Validate; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
