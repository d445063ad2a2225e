package embedding

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const geminiProviderID = "gemini"

// Gemini static capability figures. Input is capped at 2048 tokens,
// roughly 4 bytes each; pricing is the published per-token rate.
const (
	geminiMaxInputBytes  = 8192
	geminiCostPerKTokens = 0.00015
	geminiTypicalLatency = 150 * time.Millisecond
)

// GeminiAdapter embeds text through the Gemini API.
type GeminiAdapter struct {
	client     *genai.Client
	model      string
	dimensions int
}

var _ Adapter = (*GeminiAdapter)(nil)

// NewGeminiAdapter creates a Gemini embedding adapter. The model must
// support OutputDimensionality so vectors match the shared width.
func NewGeminiAdapter(ctx context.Context, apiKey, model string, dimensions int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini adapter: API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini adapter: model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiAdapter{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// ProviderID returns "gemini".
func (a *GeminiAdapter) ProviderID() string {
	return geminiProviderID
}

// Capabilities reports the adapter's static properties.
func (a *GeminiAdapter) Capabilities() Capabilities {
	return Capabilities{
		MaxInputLength: geminiMaxInputBytes,
		Dimensions:     a.dimensions,
		CostPerKTokens: geminiCostPerKTokens,
		TypicalLatency: geminiTypicalLatency,
	}
}

// Generate embeds one normalized text, head-truncating over-long input.
func (a *GeminiAdapter) Generate(ctx context.Context, text string) (Vector, error) {
	// Hash before truncation: the vector answers for the full text it
	// was requested for, matching the cache key.
	hash := TextHash(text)
	text = headTruncate(text, geminiMaxInputBytes)

	dim := int32(a.dimensions)
	resp, err := a.client.Models.EmbedContent(ctx, a.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return Vector{}, unavailable(geminiProviderID, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return Vector{}, unavailable(geminiProviderID, fmt.Errorf("empty embedding response"))
	}

	values := resp.Embeddings[0].Values
	if len(values) != a.dimensions {
		return Vector{}, unavailable(geminiProviderID,
			fmt.Errorf("dimension mismatch: got %d, want %d", len(values), a.dimensions))
	}

	// Truncated Matryoshka embeddings are not unit length; renormalize
	// so cosine math stays comparable across providers.
	return Vector{
		Values:      l2Normalize(values),
		Dimensions:  a.dimensions,
		ProviderID:  geminiProviderID,
		ModelID:     a.model,
		ContentHash: hash,
	}, nil
}
