package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiProviderID = "openai"

// OpenAI static capability figures. text-embedding-3 models accept
// 8191 tokens; pricing is the small-model per-token rate.
const (
	openaiMaxInputBytes  = 32000
	openaiCostPerKTokens = 0.00002
	openaiTypicalLatency = 300 * time.Millisecond
)

// OpenAIAdapter embeds text through the OpenAI embeddings API.
type OpenAIAdapter struct {
	client     openai.Client
	model      string
	dimensions int
}

var _ Adapter = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates an OpenAI embedding adapter. The model must
// support the dimensions request parameter (text-embedding-3 family).
func NewOpenAIAdapter(apiKey, model string, dimensions int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai adapter: API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("openai adapter: model is required")
	}

	return &OpenAIAdapter{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// ProviderID returns "openai".
func (a *OpenAIAdapter) ProviderID() string {
	return openaiProviderID
}

// Capabilities reports the adapter's static properties.
func (a *OpenAIAdapter) Capabilities() Capabilities {
	return Capabilities{
		MaxInputLength: openaiMaxInputBytes,
		Dimensions:     a.dimensions,
		CostPerKTokens: openaiCostPerKTokens,
		TypicalLatency: openaiTypicalLatency,
	}
}

// Generate embeds one normalized text, head-truncating over-long input.
func (a *OpenAIAdapter) Generate(ctx context.Context, text string) (Vector, error) {
	hash := TextHash(text)
	text = headTruncate(text, openaiMaxInputBytes)

	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:          openai.EmbeddingModel(a.model),
		Dimensions:     openai.Int(int64(a.dimensions)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return Vector{}, unavailable(openaiProviderID, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return Vector{}, unavailable(openaiProviderID, fmt.Errorf("empty embedding response"))
	}

	raw := resp.Data[0].Embedding
	if len(raw) != a.dimensions {
		return Vector{}, unavailable(openaiProviderID,
			fmt.Errorf("dimension mismatch: got %d, want %d", len(raw), a.dimensions))
	}

	values := make([]float32, len(raw))
	for i, v := range raw {
		values[i] = float32(v)
	}

	return Vector{
		Values:      values,
		Dimensions:  a.dimensions,
		ProviderID:  openaiProviderID,
		ModelID:     a.model,
		ContentHash: hash,
	}, nil
}
