// Package embedding turns text into fixed-width vectors through a set
// of interchangeable provider adapters, a bounded vector cache, and a
// fallback orchestrator that degrades to a deterministic hash embedding
// when every provider is down.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Vector is one computed embedding. Produced once per (text, provider)
// pair and treated as read-only afterwards; the cache hands the same
// backing slice to every caller.
type Vector struct {
	Values      []float32
	Dimensions  int
	ProviderID  string
	ModelID     string
	ContentHash string
}

// Capabilities describes the static properties of one provider used by
// the orchestrator to build a try-order.
type Capabilities struct {
	// MaxInputLength is the input limit in bytes. Adapters head-truncate
	// longer input instead of rejecting it.
	MaxInputLength int

	// Dimensions is the vector width the adapter emits.
	Dimensions int

	// CostPerKTokens is the provider's advertised price in USD per
	// 1000 input tokens. Low-urgency requests try cheap providers first.
	CostPerKTokens float64

	// TypicalLatency is the advertised p50 round-trip for one request.
	// High-urgency requests try fast providers first.
	TypicalLatency time.Duration
}

// Adapter wraps one external embedding backend.
//
// Generate expects text already normalized with NormalizeText and
// truncates it against its own MaxInputLength. Transport and quota
// failures surface as *ProviderUnavailableError; adapters never retry,
// the orchestrator owns retry and fallback.
type Adapter interface {
	ProviderID() string
	Generate(ctx context.Context, text string) (Vector, error)
	Capabilities() Capabilities
}

// ErrAllProvidersFailed marks exhaustion of the whole adapter chain.
// The orchestrator absorbs it with the hash fallback; callers of Embed
// never see it.
var ErrAllProvidersFailed = errors.New("all embedding providers failed")

// ProviderUnavailableError reports one adapter failing for transport,
// quota or auth reasons. Recoverable: the orchestrator moves on to the
// next provider in the try-order.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("embedding provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// unavailable wraps an adapter failure in a ProviderUnavailableError.
func unavailable(provider string, err error) error {
	return &ProviderUnavailableError{Provider: provider, Err: err}
}

// NormalizeText lowercases, collapses whitespace runs into single
// spaces, trims the ends and strips control characters. Cache keys and
// provider input both use the normalized form; if they ever diverged,
// cache hits would return vectors for text that was never embedded.
func NormalizeText(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsControl(r):
			// dropped
		default:
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TextHash returns the hex SHA-256 of normalized text, the second half
// of the (providerID, textHash) cache key.
func TextHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// headTruncate cuts text to at most maxLen bytes, backing up to the
// nearest rune boundary so providers never receive broken UTF-8.
func headTruncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// l2Normalize scales the vector to unit length in place and returns it.
// The zero vector is returned unchanged.
func l2Normalize(values []float32) []float32 {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return values
	}
	norm := math.Sqrt(sum)
	for i, v := range values {
		values[i] = float32(float64(v) / norm)
	}
	return values
}
