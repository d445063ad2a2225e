package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/mentora-ai/mentora/internal/embedding"
)

// MockEmbedder produces deterministic embedding vectors without any
// provider. By default the vector is derived from a SHA-256 of the
// text, so identical text embeds identically and unrelated texts land
// near-orthogonal. Explicit vectors can be pinned per substring for
// precise cosine similarity control.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu    sync.Mutex
	dim   int
	rules []vectorRule
	calls []string
	err   error
}

type vectorRule struct {
	substring string
	vec       []float32
}

// NewMockEmbedder creates a mock embedder emitting dim-wide vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{dim: dim}
}

// SetVector pins the vector returned for any text containing the
// substring. Rules are checked in registration order; first match
// wins. Matching on a substring lets tests target enriched text
// without reproducing the framing.
func (e *MockEmbedder) SetVector(substring string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, vectorRule{substring: substring, vec: vec})
}

// SetError makes every subsequent Embed call fail with err. Pass nil
// to clear.
func (e *MockEmbedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns a copy of every text embedded so far.
func (e *MockEmbedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]string, len(e.calls))
	copy(cp, e.calls)
	return cp
}

// CallCount returns how many times Embed ran.
func (e *MockEmbedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Embed satisfies the embedder interfaces of the content store and the
// retrieval engine.
func (e *MockEmbedder) Embed(ctx context.Context, text string, _ embedding.Options) (embedding.Vector, error) {
	if err := ctx.Err(); err != nil {
		return embedding.Vector{}, err
	}

	e.mu.Lock()
	e.calls = append(e.calls, text)
	err := e.err
	var pinned []float32
	for _, r := range e.rules {
		if strings.Contains(text, r.substring) {
			pinned = r.vec
			break
		}
	}
	e.mu.Unlock()

	if err != nil {
		return embedding.Vector{}, err
	}

	values := pinned
	if values == nil {
		values = DeterministicVector(text, e.dim)
	}
	normalized := embedding.NormalizeText(text)
	return embedding.Vector{
		Values:      values,
		Dimensions:  len(values),
		ProviderID:  "mock",
		ModelID:     "mock-embedder",
		ContentHash: embedding.TextHash(normalized),
	}, nil
}

// DeterministicVector generates a unit vector by hashing the text in
// counter mode, so every component is independent and unrelated texts
// land near-orthogonal at any width. The same text always yields the
// same vector.
func DeterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var block [sha256.Size]byte

	for i := range vec {
		// One hash covers eight components.
		if i%8 == 0 {
			counter := uint32(i / 8)
			seed := make([]byte, 0, len(text)+4)
			seed = append(seed, text...)
			seed = binary.LittleEndian.AppendUint32(seed, counter)
			block = sha256.Sum256(seed)
		}
		off := (i % 8) * 4
		bits := binary.LittleEndian.Uint32(block[off : off+4])
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if n := float32(math.Sqrt(float64(norm))); n > 0 {
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec
}
