// Package session manages the conversation lifecycle: starting a
// session with a personalized welcome, appending turns in order, and
// ending with a generated summary, key topics, and a sentiment trend.
package session

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Turn roles accepted by RecordTurn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors for session operations, checked with errors.Is.
var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrClosed indicates a mutation was attempted on an ended session.
	ErrClosed = errors.New("session closed")

	// ErrInvalidRole indicates a turn carried a role other than
	// RoleUser or RoleAssistant.
	ErrInvalidRole = errors.New("invalid turn role")
)

// Session is one bounded conversation between a user and the
// assistant. Summary, KeyTopics, and SentimentTrend are written
// exactly once, when the session ends.
type Session struct {
	ID             uuid.UUID
	UserID         string
	Active         bool
	StartedAt      time.Time
	EndedAt        *time.Time
	MessageCount   int
	Summary        string
	KeyTopics      []string
	SentimentTrend float64
}

// Turn is one message within a session. Immutable once stored; Index
// is assigned by the store under the session row lock, so
// (SessionID, Index) totally orders turns even when wall clocks tie.
type Turn struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Index     int
	UserID    string
	Role      string
	Content   string

	// Intent is the classified purpose of the turn; empty when the
	// caller supplied none.
	Intent   string
	Entities []string

	// Sentiment is nil when the turn was not scored.
	Sentiment *float64

	// ContentItemID links the indexed copy of this turn in the content
	// store; uuid.Nil when the turn was not indexed.
	ContentItemID uuid.UUID

	CreatedAt time.Time
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// keyTopics returns the most frequent non-empty intents across turns,
// strongest first, capped at limit. Ties break lexicographically so
// the result is deterministic.
func keyTopics(turns []Turn, limit int) []string {
	counts := make(map[string]int)
	for _, t := range turns {
		if t.Intent != "" {
			counts[t.Intent]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	topics := make([]string, 0, len(counts))
	for intent := range counts {
		topics = append(topics, intent)
	}
	slices.SortFunc(topics, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// meanSentiment averages the scored turns. Unscored turns are left
// out of the mean; no scored turns at all yields 0.
func meanSentiment(turns []Turn) float64 {
	var sum float64
	var n int
	for _, t := range turns {
		if t.Sentiment != nil {
			sum += *t.Sentiment
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
