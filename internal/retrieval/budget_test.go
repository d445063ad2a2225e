package retrieval

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mentora-ai/mentora/internal/content"
)

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
		{strings.Repeat("x", 401), 101},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

// budgetItem builds a scored item whose text estimates to exactly
// tokens.
func budgetItem(ct content.Type, score float64, tokens int) ScoredItem {
	return ScoredItem{
		Item: content.Item{
			ID:   uuid.New(),
			Type: ct,
			Text: strings.Repeat("x", tokens*charsPerToken),
		},
		RelevanceScore: score,
	}
}

func TestApplyBudget_DropsLowestFirst(t *testing.T) {
	t.Parallel()

	byType := map[content.Type][]ScoredItem{
		content.TypeDomainRecord: {
			budgetItem(content.TypeDomainRecord, 0.9, 50),
			budgetItem(content.TypeDomainRecord, 0.5, 50),
		},
		content.TypePlan: {
			budgetItem(content.TypePlan, 0.8, 50),
			budgetItem(content.TypePlan, 0.3, 50),
		},
	}

	// 200 tokens seeded; 120 forces the two weakest items out.
	total := applyBudget(byType, 120)
	if total != 100 {
		t.Fatalf("applyBudget() total = %d, want 100", total)
	}
	if len(byType[content.TypeDomainRecord]) != 1 || byType[content.TypeDomainRecord][0].RelevanceScore != 0.9 {
		t.Errorf("domain records after budget = %+v", byType[content.TypeDomainRecord])
	}
	if len(byType[content.TypePlan]) != 1 || byType[content.TypePlan][0].RelevanceScore != 0.8 {
		t.Errorf("plans after budget = %+v", byType[content.TypePlan])
	}
}

func TestApplyBudget_UnderBudgetUntouched(t *testing.T) {
	t.Parallel()

	byType := map[content.Type][]ScoredItem{
		content.TypePlan: {
			budgetItem(content.TypePlan, 0.9, 30),
			budgetItem(content.TypePlan, 0.1, 30),
		},
	}

	total := applyBudget(byType, 1000)
	if total != 60 {
		t.Fatalf("applyBudget() total = %d, want 60", total)
	}
	if len(byType[content.TypePlan]) != 2 {
		t.Errorf("items dropped despite fitting the budget")
	}
}

func TestApplyBudget_NeverSplitsAnItem(t *testing.T) {
	t.Parallel()

	byType := map[content.Type][]ScoredItem{
		content.TypeDomainRecord: {
			budgetItem(content.TypeDomainRecord, 0.9, 80),
			budgetItem(content.TypeDomainRecord, 0.8, 80),
		},
	}

	// 100 fits one whole item, not one and a half.
	total := applyBudget(byType, 100)
	if total != 80 {
		t.Fatalf("applyBudget() total = %d, want 80", total)
	}
	items := byType[content.TypeDomainRecord]
	if len(items) != 1 || items[0].RelevanceScore != 0.9 {
		t.Fatalf("kept items = %+v, want only the strongest", items)
	}
	if got := EstimateTokens(items[0].Item.Text); got != 80 {
		t.Errorf("surviving item truncated: %d tokens", got)
	}
}

func TestApplyBudget_DropsEverythingWhenNothingFits(t *testing.T) {
	t.Parallel()

	byType := map[content.Type][]ScoredItem{
		content.TypePlan: {budgetItem(content.TypePlan, 0.9, 500)},
	}

	total := applyBudget(byType, 100)
	if total != 0 {
		t.Fatalf("applyBudget() total = %d, want 0", total)
	}
	if len(byType[content.TypePlan]) != 0 {
		t.Errorf("oversized item survived the budget")
	}
}
