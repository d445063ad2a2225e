package retrieval

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/content"
	"github.com/mentora-ai/mentora/internal/embedding"
	"github.com/mentora-ai/mentora/internal/profile"
)

// fallbackSimilarityDiscount halves the semantic contribution when the
// query vector came from the deterministic hash fallback instead of a
// real provider. Hash-space similarities are much noisier than model
// similarities, so contextual fit and recency carry more of the
// ranking.
const fallbackSimilarityDiscount = 0.5

// defaultTaskTimeout bounds the search fan-out when the configured
// timeout is missing.
const defaultTaskTimeout = 5 * time.Second

// Embedder resolves the query embedding. Satisfied by
// *embedding.Orchestrator.
type Embedder interface {
	Embed(ctx context.Context, text string, opts embedding.Options) (embedding.Vector, error)
}

// Searcher serves per-type similarity search. Satisfied by
// *content.Store.
type Searcher interface {
	SearchSimilar(ctx context.Context, p content.SearchParams) ([]content.Match, error)
}

// ProfileReader loads the user context that drives contextual scoring.
// Satisfied by *profile.Store.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (profile.UserContext, error)
}

// Engine runs hybrid retrieval: parallel per-type similarity searches
// combined with profile overlap and recency decay into one ranked,
// token-budgeted bundle.
type Engine struct {
	cfg      config.RetrievalConfig
	embedder Embedder
	searcher Searcher
	profiles ProfileReader
	logger   *slog.Logger
}

func NewEngine(cfg config.RetrievalConfig, embedder Embedder, searcher Searcher, profiles ProfileReader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		embedder: embedder,
		searcher: searcher,
		profiles: profiles,
		logger:   logger,
	}
}

// DefaultQuery builds a query prefilled with the engine's configured
// limits. Callers adjust fields before Retrieve.
func (e *Engine) DefaultQuery(userID, queryText string) Query {
	return Query{
		UserID:              userID,
		QueryText:           queryText,
		MaxResults:          e.cfg.MaxResults,
		SimilarityThreshold: e.cfg.SimilarityThreshold,
	}
}

// Retrieve executes one retrieval request. A single failing search
// task degrades to an empty list for that type; only a malformed query
// or a cancelled context fail the whole call.
func (e *Engine) Retrieve(ctx context.Context, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	queryVec := q.QueryEmbedding
	discount := 1.0
	if len(queryVec) == 0 {
		vec, err := e.embedder.Embed(ctx, q.QueryText, embedding.Options{Urgency: embedding.UrgencyHigh})
		if err != nil {
			return Result{}, fmt.Errorf("resolve query embedding: %w", err)
		}
		queryVec = vec.Values
		if vec.ProviderID == embedding.FallbackProviderID {
			discount = fallbackSimilarityDiscount
			e.logger.Info("query embedded by deterministic fallback, similarity discounted",
				"user_id", q.UserID)
		}
	}

	types := e.searchTypes(q)
	now := time.Now()

	// One deadline for the whole fan-out; a slow task degrades to an
	// empty list instead of hanging the request.
	searchCtx, cancel := context.WithTimeout(ctx, e.taskTimeout())
	defer cancel()

	matches := make([][]content.Match, len(types))
	var userCtx profile.UserContext

	eg, egCtx := errgroup.WithContext(searchCtx)
	for i, ct := range types {
		eg.Go(func() error {
			params := content.SearchParams{
				Type:      ct,
				Vector:    queryVec,
				Threshold: q.SimilarityThreshold,
				Limit:     q.MaxResults,
				UserID:    q.UserID,
			}
			if ct == content.TypeChatHistory && q.TimeWindowHours > 0 {
				params.Since = now.Add(-time.Duration(q.TimeWindowHours) * time.Hour)
			}
			res, err := e.searcher.SearchSimilar(egCtx, params)
			if err != nil {
				e.logger.Warn("content search degraded to empty results",
					"content_type", ct,
					"user_id", q.UserID,
					"error", err)
				return nil
			}
			matches[i] = res
			return nil
		})
	}
	eg.Go(func() error {
		uc, err := e.profiles.Get(egCtx, q.UserID)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				e.logger.Debug("no profile for user, context scores are zero", "user_id", q.UserID)
			} else {
				e.logger.Warn("profile fetch degraded, context scores are zero",
					"user_id", q.UserID, "error", err)
			}
			return nil
		}
		userCtx = uc
		return nil
	})
	// Tasks absorb their own failures; Wait only synchronizes.
	_ = eg.Wait()

	terms := userCtx.OverlapTerms()

	// Deduplicate across tasks by item id, keeping the highest score.
	best := make(map[uuid.UUID]ScoredItem)
	for _, typeMatches := range matches {
		for _, m := range typeMatches {
			s := e.score(m, terms, now, discount)
			if prev, ok := best[m.Item.ID]; !ok || s.RelevanceScore > prev.RelevanceScore {
				best[m.Item.ID] = s
			}
		}
	}

	byType := make(map[content.Type][]ScoredItem, len(types))
	for _, ct := range types {
		byType[ct] = []ScoredItem{}
	}
	for _, s := range best {
		byType[s.Item.Type] = append(byType[s.Item.Type], s)
	}

	for ct, items := range byType {
		slices.SortStableFunc(items, func(a, b ScoredItem) int {
			if c := cmp.Compare(b.RelevanceScore, a.RelevanceScore); c != 0 {
				return c
			}
			if c := b.Item.CreatedAt.Compare(a.Item.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.Item.ID.String(), b.Item.ID.String())
		})
		if len(items) > q.MaxResults {
			items = items[:q.MaxResults]
		}
		byType[ct] = items
	}

	total := applyBudget(byType, e.cfg.TokenBudget)

	e.logger.Debug("retrieval complete",
		"user_id", q.UserID,
		"searched_types", len(types),
		"estimated_tokens", total)

	return Result{ByType: byType, TotalTokensEstimate: total}, nil
}

func (e *Engine) score(m content.Match, terms []string, now time.Time, discount float64) ScoredItem {
	sim := m.Similarity * discount
	contextScore := overlapScore(content.ItemTags(m.Item), terms)
	recency := recencyScore(now.Sub(m.Item.CreatedAt))
	return ScoredItem{
		Item:           m.Item,
		Similarity:     sim,
		ContextScore:   contextScore,
		RecencyScore:   recency,
		RelevanceScore: combineScores(sim, contextScore, recency, e.cfg),
	}
}

// searchTypes lists the catalog types plus, on request, the caller's
// own conversation history.
func (e *Engine) searchTypes(q Query) []content.Type {
	types := []content.Type{content.TypeDomainRecord, content.TypePlan, content.TypeKnowledgeEntity}
	if q.IncludeHistory {
		types = append(types, content.TypeChatHistory)
	}
	return types
}

func (e *Engine) taskTimeout() time.Duration {
	if e.cfg.TaskTimeoutSeconds <= 0 {
		return defaultTaskTimeout
	}
	return time.Duration(e.cfg.TaskTimeoutSeconds) * time.Second
}
