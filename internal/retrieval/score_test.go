package retrieval

import (
	"math"
	"testing"
	"time"

	"github.com/mentora-ai/mentora/internal/config"
)

func TestOverlapScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tags  []string
		terms []string
		want  float64
	}{
		{
			name:  "all terms present",
			tags:  []string{"python", "robotics", "control"},
			terms: []string{"python", "robotics"},
			want:  1.0,
		},
		{
			name:  "half the terms present",
			tags:  []string{"python"},
			terms: []string{"python", "welding"},
			want:  0.5,
		},
		{
			name:  "no overlap",
			tags:  []string{"ceramics"},
			terms: []string{"python", "sql"},
			want:  0,
		},
		{
			name:  "no user terms",
			tags:  []string{"python"},
			terms: nil,
			want:  0,
		},
		{
			name:  "no item tags",
			tags:  nil,
			terms: []string{"python"},
			want:  0,
		},
		{
			name:  "tag case and spacing ignored",
			tags:  []string{"  Python ", "SQL"},
			terms: []string{"python", "sql"},
			want:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := overlapScore(tt.tags, tt.terms); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("overlapScore(%v, %v) = %v, want %v", tt.tags, tt.terms, got, tt.want)
			}
		})
	}
}

func TestRecencyScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"brand new", 0, 1},
		{"future timestamp clamps", -time.Hour, 1},
		{"one day old", 24 * time.Hour, math.Exp(-1)},
		{"two days old", 48 * time.Hour, math.Exp(-2)},
		{"one hour old", time.Hour, math.Exp(-1.0 / 24)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := recencyScore(tt.age); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("recencyScore(%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestCombineScores(t *testing.T) {
	t.Parallel()

	cfg := config.RetrievalConfig{
		SemanticWeight: 0.4,
		ContextWeight:  0.4,
		RecencyWeight:  0.2,
	}

	got := combineScores(0.9, 0.5, 1.0, cfg)
	want := 0.9*0.4 + 0.5*0.4 + 1.0*0.2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("combineScores() = %v, want %v", got, want)
	}

	// Semantic-only weighting ignores the other scores.
	pure := config.RetrievalConfig{SemanticWeight: 1}
	if got := combineScores(0.8, 1, 1, pure); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("combineScores() with semantic-only weights = %v, want 0.8", got)
	}
}
