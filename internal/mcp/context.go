package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mentora-ai/mentora/internal/assembler"
	"github.com/mentora-ai/mentora/internal/content"
	"github.com/mentora-ai/mentora/internal/profile"
	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

// RetrieveContextInput is the retrieve_context tool input. Zero-valued
// optional fields fall back to the configured retrieval defaults.
type RetrieveContextInput struct {
	UserID    string `json:"user_id" jsonschema:"The user whose context to assemble"`
	Query     string `json:"query" jsonschema:"The query text to search against"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Active session whose recent turns join the bundle (optional)"`

	MaxResults          int      `json:"max_results,omitempty" jsonschema:"Per-content-type result cap; 0 uses the configured default"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" jsonschema:"Minimum cosine similarity in [0,1]; omit for the configured default"`
	IncludeHistory      bool     `json:"include_history,omitempty" jsonschema:"Search the user's indexed conversation turns too"`
	TimeWindowHours     int      `json:"time_window_hours,omitempty" jsonschema:"Restrict history matches to the last N hours; 0 means unbounded"`
}

type userContextOut struct {
	UserID        string            `json:"user_id"`
	DisplayName   string            `json:"display_name,omitempty"`
	ActiveGoals   []string          `json:"active_goals,omitempty"`
	Skills        []string          `json:"skills,omitempty"`
	Interests     []string          `json:"interests,omitempty"`
	SkillLevel    string            `json:"skill_level,omitempty"`
	CareerStage   string            `json:"career_stage,omitempty"`
	LearningStyle string            `json:"learning_style,omitempty"`
	Preferences   map[string]string `json:"preferences,omitempty"`
}

type itemOut struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	Text           string           `json:"text"`
	Metadata       content.Metadata `json:"metadata,omitempty"`
	Similarity     float64          `json:"similarity"`
	ContextScore   float64          `json:"context_score"`
	RecencyScore   float64          `json:"recency_score"`
	RelevanceScore float64          `json:"relevance_score"`
	CreatedAt      time.Time        `json:"created_at"`
}

type turnOut struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	Entities  []string  `json:"entities,omitempty"`
	Sentiment *float64  `json:"sentiment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type retrieveContextOutput struct {
	UserContext     *userContextOut      `json:"user_context,omitempty"`
	Items           map[string][]itemOut `json:"items"`
	RecentTurns     []turnOut            `json:"recent_turns,omitempty"`
	EstimatedTokens int                  `json:"estimated_tokens"`
}

// RetrieveContext handles the retrieve_context tool.
func (s *Server) RetrieveContext(ctx context.Context, _ *mcp.CallToolRequest, in RetrieveContextInput) (*mcp.CallToolResult, any, error) {
	q := retrieval.Query{
		UserID:              in.UserID,
		SessionID:           in.SessionID,
		QueryText:           in.Query,
		MaxResults:          in.MaxResults,
		SimilarityThreshold: s.retrieval.SimilarityThreshold,
		IncludeHistory:      in.IncludeHistory,
		TimeWindowHours:     in.TimeWindowHours,
	}
	if q.MaxResults == 0 {
		q.MaxResults = s.retrieval.MaxResults
	}
	if in.SimilarityThreshold != nil {
		q.SimilarityThreshold = *in.SimilarityThreshold
	}

	bundle, err := s.assembler.Assemble(ctx, q)
	if err != nil {
		if isCallerError(err) {
			return errorResult("%v", err), nil, nil
		}
		s.logger.Error("assembling context", "user_id", in.UserID, "error", err)
		return nil, nil, err
	}

	return jsonContent(bundleOutput(bundle)), nil, nil
}

func bundleOutput(b *assembler.Bundle) retrieveContextOutput {
	out := retrieveContextOutput{
		Items:           make(map[string][]itemOut, len(b.Retrieval.ByType)),
		EstimatedTokens: b.EstimatedTokens,
	}
	out.UserContext = profileOutput(b.UserContext)
	for ct, items := range b.Retrieval.ByType {
		ranked := make([]itemOut, 0, len(items))
		for _, it := range items {
			ranked = append(ranked, itemOutput(it))
		}
		out.Items[string(ct)] = ranked
	}
	for _, t := range b.RecentTurns {
		out.RecentTurns = append(out.RecentTurns, turnOutput(t))
	}
	return out
}

func profileOutput(uc *profile.UserContext) *userContextOut {
	if uc == nil {
		return nil
	}
	return &userContextOut{
		UserID:        uc.UserID,
		DisplayName:   uc.DisplayName,
		ActiveGoals:   uc.ActiveGoals,
		Skills:        uc.Skills,
		Interests:     uc.Interests,
		SkillLevel:    uc.SkillLevel,
		CareerStage:   uc.CareerStage,
		LearningStyle: uc.LearningStyle,
		Preferences:   uc.Preferences,
	}
}

func itemOutput(it retrieval.ScoredItem) itemOut {
	return itemOut{
		ID:             it.Item.ID.String(),
		Type:           string(it.Item.Type),
		Text:           it.Item.Text,
		Metadata:       it.Item.Metadata,
		Similarity:     it.Similarity,
		ContextScore:   it.ContextScore,
		RecencyScore:   it.RecencyScore,
		RelevanceScore: it.RelevanceScore,
		CreatedAt:      it.Item.CreatedAt,
	}
}

func turnOutput(t session.Turn) turnOut {
	return turnOut{
		ID:        t.ID.String(),
		Index:     t.Index,
		Role:      t.Role,
		Content:   t.Content,
		Intent:    t.Intent,
		Entities:  t.Entities,
		Sentiment: t.Sentiment,
		CreatedAt: t.CreatedAt,
	}
}
