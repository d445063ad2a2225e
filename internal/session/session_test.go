package session

import (
	"slices"
	"strings"
	"testing"

	"github.com/mentora-ai/mentora/internal/profile"
)

func turnWithIntent(intent string) Turn {
	return Turn{Role: RoleUser, Content: "msg", Intent: intent}
}

func TestKeyTopics(t *testing.T) {
	tests := []struct {
		name  string
		turns []Turn
		limit int
		want  []string
	}{
		{
			name: "frequency order",
			turns: []Turn{
				turnWithIntent("scholarship_search"),
				turnWithIntent("scholarship_search"),
				turnWithIntent("career_advice"),
			},
			limit: 5,
			want:  []string{"scholarship_search", "career_advice"},
		},
		{
			name: "ties break lexicographically",
			turns: []Turn{
				turnWithIntent("beta"),
				turnWithIntent("alpha"),
			},
			limit: 5,
			want:  []string{"alpha", "beta"},
		},
		{
			name: "empty intents are skipped",
			turns: []Turn{
				turnWithIntent(""),
				turnWithIntent("planning"),
				turnWithIntent(""),
			},
			limit: 5,
			want:  []string{"planning"},
		},
		{
			name: "limit caps the list",
			turns: []Turn{
				turnWithIntent("a"), turnWithIntent("a"), turnWithIntent("a"),
				turnWithIntent("b"), turnWithIntent("b"),
				turnWithIntent("c"),
			},
			limit: 2,
			want:  []string{"a", "b"},
		},
		{
			name:  "no intents at all",
			turns: []Turn{turnWithIntent(""), turnWithIntent("")},
			limit: 5,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyTopics(tt.turns, tt.limit)
			if !slices.Equal(got, tt.want) {
				t.Errorf("keyTopics() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeanSentiment(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	tests := []struct {
		name  string
		turns []Turn
		want  float64
	}{
		{
			name:  "no scored turns yields zero",
			turns: []Turn{{Role: RoleUser}, {Role: RoleAssistant}},
			want:  0,
		},
		{
			name: "unscored turns stay out of the mean",
			turns: []Turn{
				{Role: RoleUser, Sentiment: score(0.8)},
				{Role: RoleAssistant},
				{Role: RoleUser, Sentiment: score(0.2)},
			},
			want: 0.5,
		},
		{
			name: "all scored",
			turns: []Turn{
				{Sentiment: score(-0.5)},
				{Sentiment: score(0.5)},
				{Sentiment: score(0.3)},
			},
			want: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := meanSentiment(tt.turns)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("meanSentiment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWelcomeText(t *testing.T) {
	uc := &profile.UserContext{
		UserID:      "user-1",
		DisplayName: "Ada",
		ActiveGoals: []string{"land a backend internship"},
	}

	t.Run("personalized", func(t *testing.T) {
		got := welcomeText(uc, "")
		if !strings.Contains(got, "Ada") {
			t.Errorf("welcome %q does not address the user by name", got)
		}
		if !strings.Contains(got, "land a backend internship") {
			t.Errorf("welcome %q does not mention the active goal", got)
		}
	})

	t.Run("unknown user gets generic greeting", func(t *testing.T) {
		got := welcomeText(nil, "")
		if !strings.Contains(got, "Welcome to Mentora") {
			t.Errorf("welcome %q is not the generic greeting", got)
		}
	})

	t.Run("first message changes the closing line", func(t *testing.T) {
		with := welcomeText(uc, "how do I apply for scholarships?")
		without := welcomeText(uc, "")
		if with == without {
			t.Error("welcome ignores the opening message")
		}
	})
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleUser, RoleAssistant} {
		if !validRole(role) {
			t.Errorf("validRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"", "system", "tool", "USER"} {
		if validRole(role) {
			t.Errorf("validRole(%q) = true, want false", role)
		}
	}
}
