// Package profile holds the per-user mentoring context: goals, skills,
// interests, and preferences. The retrieval engine reads it to score
// contextual fit; the session manager reads it to personalize the
// opening of a conversation.
package profile

import (
	"strings"
	"time"
)

// UserContext is a read-mostly snapshot of one user's profile. It is
// fetched per request and never cached across users.
type UserContext struct {
	UserID        string
	DisplayName   string
	ActiveGoals   []string
	Skills        []string
	Interests     []string
	SkillLevel    string
	CareerStage   string
	LearningStyle string
	Preferences   map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OverlapTerms returns the user's skills and interests lowercased and
// deduplicated. Content tags are matched against these terms when
// scoring contextual fit.
func (u UserContext) OverlapTerms() []string {
	seen := make(map[string]struct{}, len(u.Skills)+len(u.Interests))
	terms := make([]string, 0, len(u.Skills)+len(u.Interests))
	for _, src := range [][]string{u.Skills, u.Interests} {
		for _, t := range src {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	return terms
}
