package embedding

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

const voyageProviderID = "voyage"

// Voyage static capability figures for the 3.5-lite tier.
const (
	voyageMaxInputBytes  = 16000
	voyageCostPerKTokens = 0.00002
	voyageTypicalLatency = 200 * time.Millisecond
)

// VoyageAdapter embeds text through the Voyage AI REST API. Voyage has
// no official Go SDK, so the adapter speaks the documented JSON shape
// directly.
type VoyageAdapter struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

var _ Adapter = (*VoyageAdapter)(nil)

// NewVoyageAdapter creates a Voyage embedding adapter. baseURL may be
// overridden for tests; empty selects the public endpoint.
func NewVoyageAdapter(apiKey, model, baseURL string, dimensions int) (*VoyageAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("voyage adapter: API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("voyage adapter: model is required")
	}
	if baseURL == "" {
		baseURL = "https://api.voyageai.com/v1"
	}

	return &VoyageAdapter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ProviderID returns "voyage".
func (a *VoyageAdapter) ProviderID() string {
	return voyageProviderID
}

// Capabilities reports the adapter's static properties.
func (a *VoyageAdapter) Capabilities() Capabilities {
	return Capabilities{
		MaxInputLength: voyageMaxInputBytes,
		Dimensions:     a.dimensions,
		CostPerKTokens: voyageCostPerKTokens,
		TypicalLatency: voyageTypicalLatency,
	}
}

// voyageRequest is the request body for POST /embeddings.
type voyageRequest struct {
	Input           []string `json:"input"`
	Model           string   `json:"model"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

// voyageResponse is the response body from POST /embeddings.
type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate embeds one normalized text, head-truncating over-long input.
func (a *VoyageAdapter) Generate(ctx context.Context, text string) (Vector, error) {
	hash := TextHash(text)
	text = headTruncate(text, voyageMaxInputBytes)

	body, err := json.Marshal(voyageRequest{
		Input:           []string{text},
		Model:           a.model,
		OutputDimension: a.dimensions,
	})
	if err != nil {
		return Vector{}, unavailable(voyageProviderID, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return Vector{}, unavailable(voyageProviderID, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return Vector{}, unavailable(voyageProviderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Vector{}, unavailable(voyageProviderID,
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(msg)))
	}

	var parsed voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Vector{}, unavailable(voyageProviderID, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return Vector{}, unavailable(voyageProviderID, fmt.Errorf("empty embedding response"))
	}

	values := parsed.Data[0].Embedding
	if len(values) != a.dimensions {
		return Vector{}, unavailable(voyageProviderID,
			fmt.Errorf("dimension mismatch: got %d, want %d", len(values), a.dimensions))
	}

	return Vector{
		Values:      values,
		Dimensions:  a.dimensions,
		ProviderID:  voyageProviderID,
		ModelID:     a.model,
		ContentHash: hash,
	}, nil
}
