// Package retrieval ranks stored content against a free-text query.
// One retrieval fans out a similarity search per content type plus a
// profile fetch under a shared deadline, combines semantic similarity
// with contextual fit and recency decay, deduplicates, and trims the
// bundle to a token budget.
package retrieval

import (
	"errors"
	"fmt"

	"github.com/mentora-ai/mentora/internal/content"
)

// ErrInvalidQuery indicates a malformed query, rejected before any
// external call.
var ErrInvalidQuery = errors.New("invalid retrieval query")

// Query describes one retrieval request.
type Query struct {
	UserID    string
	SessionID string
	QueryText string

	// QueryEmbedding skips embedding resolution when supplied. Width
	// must match the configured dimensions.
	QueryEmbedding []float32

	// MaxResults caps results per content type.
	MaxResults int

	// SimilarityThreshold is the minimum cosine similarity, in [0,1].
	SimilarityThreshold float64

	// IncludeHistory adds the caller's indexed conversation turns to
	// the searched types.
	IncludeHistory bool

	// TimeWindowHours restricts history matches to the last N hours;
	// 0 means unbounded.
	TimeWindowHours int
}

// Validate rejects malformed queries. Defaults are the caller's job;
// zero values here are errors, not requests for a default.
func (q Query) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidQuery)
	}
	if q.QueryText == "" && len(q.QueryEmbedding) == 0 {
		return fmt.Errorf("%w: query text or embedding is required", ErrInvalidQuery)
	}
	if q.MaxResults <= 0 {
		return fmt.Errorf("%w: max results %d, must be positive", ErrInvalidQuery, q.MaxResults)
	}
	if q.SimilarityThreshold < 0 || q.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %.3f outside [0,1]", ErrInvalidQuery, q.SimilarityThreshold)
	}
	if q.TimeWindowHours < 0 {
		return fmt.Errorf("%w: time window %d hours, must not be negative", ErrInvalidQuery, q.TimeWindowHours)
	}
	return nil
}

// ScoredItem is one ranked retrieval hit with its score breakdown.
type ScoredItem struct {
	Item content.Item

	// Similarity is the cosine similarity reported by the search.
	Similarity float64

	// ContextScore is the fraction of the user's skills and interests
	// appearing in the item's tags.
	ContextScore float64

	// RecencyScore decays exponentially with age on a 24-hour scale.
	RecencyScore float64

	// RelevanceScore is the weighted combination the ranking orders by.
	RelevanceScore float64
}

// Result is one ranked, budgeted retrieval bundle. Every searched type
// has a key in ByType; a type whose search failed or matched nothing
// maps to an empty list.
type Result struct {
	ByType              map[content.Type][]ScoredItem
	TotalTokensEstimate int
}

// Items flattens the bundle in stable type order, each type ranked
// best-first.
func (r Result) Items() []ScoredItem {
	var out []ScoredItem
	for _, ct := range content.AllTypes() {
		out = append(out, r.ByType[ct]...)
	}
	return out
}
