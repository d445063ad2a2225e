package retrieval

import (
	"math"

	"github.com/mentora-ai/mentora/internal/content"
)

// charsPerToken is the rough character-per-token ratio used for budget
// estimation. Close enough for capping context size; exact tokenizer
// counts belong to the generation layer.
const charsPerToken = 4

// EstimateTokens approximates the token cost of text at the
// charsPerToken ratio, rounding up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// applyBudget drops whole items, lowest relevance first, until the
// bundle's estimated tokens fit the budget. Buckets must already be
// sorted best-first, so each bucket's tail is its weakest item. The
// returned total is the estimate of what remains.
func applyBudget(byType map[content.Type][]ScoredItem, budget int) int {
	total := 0
	for _, items := range byType {
		for _, it := range items {
			total += EstimateTokens(it.Item.Text)
		}
	}

	for total > budget {
		victim := content.Type("")
		lowest := math.Inf(1)
		for _, ct := range content.AllTypes() {
			items := byType[ct]
			if len(items) == 0 {
				continue
			}
			if tail := items[len(items)-1]; tail.RelevanceScore < lowest {
				lowest = tail.RelevanceScore
				victim = ct
			}
		}
		if victim == "" {
			break
		}
		items := byType[victim]
		total -= EstimateTokens(items[len(items)-1].Item.Text)
		byType[victim] = items[:len(items)-1]
	}
	return total
}
