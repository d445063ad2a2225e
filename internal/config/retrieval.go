package config

// RetrievalConfig holds hybrid retrieval settings.
//
// The three weights combine per-item scores into the final relevance:
//
//	relevance = similarity*semantic + contextOverlap*context + recencyDecay*recency
//
// They must sum to 1. The 0.4/0.4/0.2 default favors semantic and
// contextual fit equally, with recency as a tiebreaker.
type RetrievalConfig struct {
	SemanticWeight float64 `mapstructure:"semantic_weight" json:"semantic_weight"`
	ContextWeight  float64 `mapstructure:"context_weight" json:"context_weight"`
	RecencyWeight  float64 `mapstructure:"recency_weight" json:"recency_weight"`

	// SimilarityThreshold is the default minimum cosine similarity for
	// search hits, in [0,1]. Per-query values override it.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`

	// MaxResults is the default per-content-type result cap.
	MaxResults int `mapstructure:"max_results" json:"max_results"`

	// TokenBudget caps the estimated token size of an assembled bundle.
	// Estimation is ~4 characters per token; truncation drops whole
	// lowest-scored items, never partial text.
	TokenBudget int `mapstructure:"token_budget" json:"token_budget"`

	// TaskTimeoutSeconds bounds each per-type search task. A task that
	// exceeds it degrades to an empty result for that type.
	TaskTimeoutSeconds int `mapstructure:"task_timeout_seconds" json:"task_timeout_seconds"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	// RecentTurns is the default window returned by RecentTurns and
	// fed to the assembler.
	RecentTurns int `mapstructure:"recent_turns" json:"recent_turns"`

	// SummaryMaxTurns caps how many turns feed the end-of-session
	// summarization prompt. Oldest turns beyond the cap are dropped
	// from the prompt, not from storage.
	SummaryMaxTurns int `mapstructure:"summary_max_turns" json:"summary_max_turns"`
}
