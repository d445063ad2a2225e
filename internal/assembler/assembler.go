// Package assembler composes the full context bundle for one query:
// ranked retrieval results, the user's recent conversation turns, and
// the user profile, fetched concurrently under one shared deadline.
// The assembler adds no retries or fallbacks of its own; collaborators
// that degrade gracefully keep doing so, and only fatal retrieval
// errors propagate.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/profile"
	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

const defaultTaskTimeout = 5 * time.Second

// Retriever runs the hybrid content search. Satisfied by
// *retrieval.Engine.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) (retrieval.Result, error)
}

// TurnReader fetches a session's recent turns. Satisfied by
// *session.Manager.
type TurnReader interface {
	RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]session.Turn, error)
}

// ProfileReader fetches the user context included in the bundle.
// Satisfied by *profile.Store.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (profile.UserContext, error)
}

// Bundle is everything the generation layer needs for one reply.
type Bundle struct {
	// UserContext is nil when the user has no stored profile.
	UserContext *profile.UserContext

	Retrieval retrieval.Result

	// RecentTurns is empty when the query named no session.
	RecentTurns []session.Turn

	// EstimatedTokens covers the retrieval items plus the recent turns.
	EstimatedTokens int
}

// Assembler merges retrieval, conversation, and profile data into one
// bundle per query.
type Assembler struct {
	retriever Retriever
	turns     TurnReader
	profiles  ProfileReader
	cfg       config.RetrievalConfig
	logger    *slog.Logger
}

// New wires the assembler.
func New(retriever Retriever, turns TurnReader, profiles ProfileReader, cfg config.RetrievalConfig, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		retriever: retriever,
		turns:     turns,
		profiles:  profiles,
		cfg:       cfg,
		logger:    logger,
	}
}

// Assemble gathers the bundle for q. The retrieval, recent-turn, and
// profile fetches run concurrently; turn and profile failures degrade
// to an empty slot with a logged warning, so the caller always gets a
// usable bundle unless the query itself is invalid or retrieval fails
// fatally.
func (a *Assembler) Assemble(ctx context.Context, q retrieval.Query) (*Bundle, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var sessionID uuid.UUID
	if q.SessionID != "" {
		id, err := uuid.Parse(q.SessionID)
		if err != nil {
			return nil, fmt.Errorf("%w: session id %q", retrieval.ErrInvalidQuery, q.SessionID)
		}
		sessionID = id
	}

	ctx, cancel := context.WithTimeout(ctx, a.taskTimeout())
	defer cancel()

	var bundle Bundle
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		res, err := a.retriever.Retrieve(egCtx, q)
		if err != nil {
			return fmt.Errorf("retrieve context: %w", err)
		}
		bundle.Retrieval = res
		return nil
	})

	if sessionID != uuid.Nil {
		eg.Go(func() error {
			turns, err := a.turns.RecentTurns(egCtx, sessionID, 0)
			if err != nil {
				a.logger.Warn("recent turns degraded to empty",
					"session_id", sessionID, "error", err)
				return nil
			}
			bundle.RecentTurns = turns
			return nil
		})
	}

	eg.Go(func() error {
		uc, err := a.profiles.Get(egCtx, q.UserID)
		if err != nil {
			if !errors.Is(err, profile.ErrNotFound) {
				a.logger.Warn("user context degraded to empty",
					"user_id", q.UserID, "error", err)
			}
			return nil
		}
		bundle.UserContext = &uc
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	bundle.EstimatedTokens = bundle.Retrieval.TotalTokensEstimate
	for _, t := range bundle.RecentTurns {
		bundle.EstimatedTokens += retrieval.EstimateTokens(t.Content)
	}

	a.logger.Debug("context bundle assembled",
		"user_id", q.UserID,
		"items", len(bundle.Retrieval.Items()),
		"recent_turns", len(bundle.RecentTurns),
		"estimated_tokens", bundle.EstimatedTokens,
		"has_profile", bundle.UserContext != nil)
	return &bundle, nil
}

func (a *Assembler) taskTimeout() time.Duration {
	if a.cfg.TaskTimeoutSeconds > 0 {
		return time.Duration(a.cfg.TaskTimeoutSeconds) * time.Second
	}
	return defaultTaskTimeout
}
