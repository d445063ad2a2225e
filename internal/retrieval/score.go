package retrieval

import (
	"math"
	"strings"
	"time"

	"github.com/mentora-ai/mentora/internal/config"
)

// recencyHalfScale is the decay scale of the recency score: an item
// ages to 1/e of its weight every 24 hours.
const recencyHalfScale = 24 * time.Hour

// overlapScore returns the fraction of the user's terms present in the
// item's tags. Terms are expected lowercased (profile.OverlapTerms);
// tags are lowercased here. No terms or no tags scores zero.
func overlapScore(tags, terms []string) float64 {
	if len(terms) == 0 || len(tags) == 0 {
		return 0
	}
	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	matched := 0
	for _, term := range terms {
		if _, ok := tagSet[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// recencyScore maps item age to (0,1]: 1 for brand-new content,
// exp(-ageHours/24) as it ages. Clock skew producing a negative age
// clamps to 1.
func recencyScore(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Exp(-age.Hours() / recencyHalfScale.Hours())
}

// combineScores folds the three per-item scores into the relevance the
// ranking orders by. Weights are validated at config load to sum to 1.
func combineScores(similarity, contextScore, recency float64, cfg config.RetrievalConfig) float64 {
	return similarity*cfg.SemanticWeight +
		contextScore*cfg.ContextWeight +
		recency*cfg.RecencyWeight
}
