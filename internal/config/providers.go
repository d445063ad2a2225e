package config

import (
	"encoding/json"
	"fmt"
)

// Default embedding models per provider.
const (
	// DefaultGeminiEmbedModel outputs 3072 dimensions by default but
	// supports truncation via OutputDimensionality (Matryoshka
	// Representation Learning).
	DefaultGeminiEmbedModel = "gemini-embedding-001"

	// DefaultOpenAIEmbedModel supports native dimension reduction
	// through the dimensions request parameter.
	DefaultOpenAIEmbedModel = "text-embedding-3-small"

	// DefaultVoyageEmbedModel supports output_dimension values of
	// 256, 512, 1024 and 2048.
	DefaultVoyageEmbedModel = "voyage-3.5-lite"

	// DefaultVoyageBaseURL is the Voyage AI REST endpoint.
	DefaultVoyageBaseURL = "https://api.voyageai.com/v1"
)

// Embedding defaults.
const (
	// DefaultDimensions is the vector width shared by every provider
	// and the pgvector schema. All adapters are configured to emit
	// vectors of this width so cross-provider fallback stays
	// comparable. 1024 is the largest width all three providers can
	// produce (Voyage only emits 256/512/1024/2048).
	DefaultDimensions = 1024

	// DefaultCacheCapacity bounds the embedding cache entry count.
	DefaultCacheCapacity = 2048
)

// EmbeddingConfig holds the provider set and shared embedding settings.
type EmbeddingConfig struct {
	// Dimensions is the vector width every adapter must produce.
	Dimensions int `mapstructure:"dimensions" json:"dimensions"`

	// CacheCapacity bounds the embedding cache (entries, not bytes).
	CacheCapacity int `mapstructure:"cache_capacity" json:"cache_capacity"`

	// Providers lists enabled provider ids in preference order.
	// Valid entries: "gemini", "openai", "voyage".
	Providers []string `mapstructure:"providers" json:"providers"`

	Gemini GeminiConfig `mapstructure:"gemini" json:"gemini"`
	OpenAI OpenAIConfig `mapstructure:"openai" json:"openai"`
	Voyage VoyageConfig `mapstructure:"voyage" json:"voyage"`
}

// GeminiConfig configures the Gemini embedding adapter.
type GeminiConfig struct {
	Model  string `mapstructure:"model" json:"model"`
	APIKey string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON

	// RequestsPerSecond caps adapter calls; the shared per-provider
	// call budget from the orchestrator, distinct from any user-level
	// rate limiting upstream.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second"`
}

// MarshalJSON masks the API key.
func (c GeminiConfig) MarshalJSON() ([]byte, error) {
	type alias GeminiConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini config: %w", err)
	}
	return data, nil
}

// OpenAIConfig configures the OpenAI embedding adapter.
type OpenAIConfig struct {
	Model             string  `mapstructure:"model" json:"model"`
	APIKey            string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second"`
}

// MarshalJSON masks the API key.
func (c OpenAIConfig) MarshalJSON() ([]byte, error) {
	type alias OpenAIConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal openai config: %w", err)
	}
	return data, nil
}

// VoyageConfig configures the Voyage AI embedding adapter.
// Voyage has no official Go SDK; the adapter speaks REST against BaseURL.
type VoyageConfig struct {
	Model             string  `mapstructure:"model" json:"model"`
	APIKey            string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	BaseURL           string  `mapstructure:"base_url" json:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second"`
}

// MarshalJSON masks the API key.
func (c VoyageConfig) MarshalJSON() ([]byte, error) {
	type alias VoyageConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal voyage config: %w", err)
	}
	return data, nil
}

// CompletionConfig selects the generation collaborator used for
// session summarization. Chat-response generation itself lives outside
// this engine.
type CompletionConfig struct {
	// Provider is "gemini" or "openai". API keys are shared with the
	// matching embedding provider config.
	Provider string `mapstructure:"provider" json:"provider"`
	Model    string `mapstructure:"model" json:"model"`
}
