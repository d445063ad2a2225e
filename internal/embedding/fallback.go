package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// FallbackProviderID tags vectors produced without any external
// provider, so downstream ranking can discount them.
const FallbackProviderID = "fallback-hash"

// fallbackModelID names the hashing scheme; bump it if the token
// bucketing ever changes, since stored vectors would stop being
// comparable.
const fallbackModelID = "token-bucket-tf-v1"

// HashAdapter produces deterministic embeddings from token-bucket term
// frequencies. Quality is far below a real provider, but it needs no
// network, never fails and always returns the same vector for the same
// text, which keeps Embed available when every provider is down.
type HashAdapter struct {
	dimensions int
}

var _ Adapter = (*HashAdapter)(nil)

// NewHashAdapter creates a fallback adapter emitting vectors of the
// shared width.
func NewHashAdapter(dimensions int) *HashAdapter {
	if dimensions <= 0 {
		dimensions = 1
	}
	return &HashAdapter{dimensions: dimensions}
}

// ProviderID returns "fallback-hash".
func (a *HashAdapter) ProviderID() string {
	return FallbackProviderID
}

// Capabilities reports the adapter's static properties. Cost and
// latency are zero; the orchestrator never places it in a try-order.
func (a *HashAdapter) Capabilities() Capabilities {
	return Capabilities{
		MaxInputLength: 1 << 20,
		Dimensions:     a.dimensions,
	}
}

// Generate hashes each token into one of dimensions buckets,
// accumulates normalized term frequency per bucket and L2-normalizes
// the result. It never returns an error; empty text yields the zero
// vector.
func (a *HashAdapter) Generate(_ context.Context, text string) (Vector, error) {
	values := make([]float32, a.dimensions)

	tokens := tokenize(text)
	if len(tokens) > 0 {
		tf := 1.0 / float32(len(tokens))
		for _, tok := range tokens {
			values[bucket(tok, a.dimensions)] += tf
		}
		l2Normalize(values)
	}

	return Vector{
		Values:      values,
		Dimensions:  a.dimensions,
		ProviderID:  FallbackProviderID,
		ModelID:     fallbackModelID,
		ContentHash: TextHash(text),
	}, nil
}

// tokenize splits text into letter/digit runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// bucket maps a token to a vector index via FNV-1a.
func bucket(token string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(n))
}
