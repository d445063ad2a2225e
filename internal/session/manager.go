package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/content"
	"github.com/mentora-ai/mentora/internal/profile"
)

// maxKeyTopics caps how many intents the closing summary keeps.
const maxKeyTopics = 5

// Storage is the persistence surface the manager drives. Satisfied by
// *Store.
type Storage interface {
	Create(ctx context.Context, userID string) (*Session, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	AppendTurn(ctx context.Context, turn Turn) (*Turn, error)
	Turns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error)
	RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]Turn, error)
	End(ctx context.Context, id uuid.UUID, summary string, topics []string, trend float64) (*Session, error)
	LinkTurnContent(ctx context.Context, turnID, itemID uuid.UUID) error
}

// Completer generates the end-of-session summary. Satisfied by the
// llm package clients.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProfileReader fetches the user context that personalizes the session
// welcome. Satisfied by *profile.Store.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (profile.UserContext, error)
}

// Indexer stores a searchable copy of a turn so later retrievals can
// surface past conversations. Satisfied by *content.Store.
type Indexer interface {
	Upsert(ctx context.Context, item content.Item) error
}

// Manager owns the session lifecycle. Mutations on one session are
// serialized through a per-session mutex, so concurrent RecordTurn
// calls for the same session apply in lock-acquisition order.
type Manager struct {
	store     Storage
	profiles  ProfileReader
	completer Completer
	indexer   Indexer
	cfg       config.SessionConfig
	logger    *slog.Logger

	mu sync.Mutex
	// locks holds one mutex per session touched by this process. Never
	// evicted: entries are a handful of bytes and mutations after End
	// fail with ErrClosed regardless of which mutex they grabbed.
	locks map[uuid.UUID]*sync.Mutex
}

// NewManager wires the session manager. profiles, completer, and
// indexer may each be nil; the manager then falls back to a generic
// welcome, a deterministic summary, and no turn indexing.
func NewManager(store Storage, profiles ProfileReader, completer Completer, indexer Indexer, cfg config.SessionConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		profiles:  profiles,
		completer: completer,
		indexer:   indexer,
		cfg:       cfg,
		logger:    logger,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (m *Manager) lockFor(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Start opens a session for userID and returns it with a welcome text
// personalized from the user's profile. firstMessage, when present,
// only flavors the welcome; it is not recorded as a turn, so a fresh
// session always starts at message count zero.
func (m *Manager) Start(ctx context.Context, userID, firstMessage string) (*Session, string, error) {
	if userID == "" {
		return nil, "", errors.New("user id is required")
	}
	sess, err := m.store.Create(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("start session: %w", err)
	}
	m.logger.Info("session started", "session_id", sess.ID, "user_id", userID)
	return sess, m.welcome(ctx, userID, firstMessage), nil
}

func (m *Manager) welcome(ctx context.Context, userID, firstMessage string) string {
	if m.profiles == nil {
		return welcomeText(nil, firstMessage)
	}
	uc, err := m.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			m.logger.Warn("welcome degraded to generic greeting",
				"user_id", userID, "error", err)
		}
		return welcomeText(nil, firstMessage)
	}
	return welcomeText(&uc, firstMessage)
}

func welcomeText(uc *profile.UserContext, firstMessage string) string {
	var b strings.Builder
	if uc != nil && uc.DisplayName != "" {
		fmt.Fprintf(&b, "Welcome back, %s.", uc.DisplayName)
	} else {
		b.WriteString("Welcome to Mentora.")
	}
	if uc != nil && len(uc.ActiveGoals) > 0 {
		fmt.Fprintf(&b, " Last time you were working toward: %s.", uc.ActiveGoals[0])
	}
	if firstMessage != "" {
		b.WriteString(" Let's pick up from your question.")
	} else {
		b.WriteString(" What would you like to work on today?")
	}
	return b.String()
}

// RecordTurn appends a turn to an active session. The stored turn
// comes back with its assigned index and, when indexing succeeded, the
// ID of its searchable copy. Recording on an ended session returns
// ErrClosed.
func (m *Manager) RecordTurn(ctx context.Context, sessionID uuid.UUID, turn Turn) (*Turn, error) {
	if !validRole(turn.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, turn.Role)
	}

	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	turn.SessionID = sessionID
	stored, err := m.store.AppendTurn(ctx, turn)
	if err != nil {
		return nil, err
	}
	m.indexTurn(ctx, stored)
	return stored, nil
}

// indexTurn writes a chat_history content item for the turn. Indexing
// is best effort: a failure costs future retrieval quality, not the
// recorded turn.
func (m *Manager) indexTurn(ctx context.Context, turn *Turn) {
	if m.indexer == nil {
		return
	}
	item := content.Item{
		ID:   uuid.New(),
		Type: content.TypeChatHistory,
		Text: turn.Content,
		Metadata: content.HistoryMetadata{
			SessionID: turn.SessionID,
			Role:      turn.Role,
			Intent:    turn.Intent,
		},
		UserID: turn.UserID,
	}
	if err := m.indexer.Upsert(ctx, item); err != nil {
		m.logger.Warn("turn left unindexed",
			"session_id", turn.SessionID, "turn_id", turn.ID, "error", err)
		return
	}
	if err := m.store.LinkTurnContent(ctx, turn.ID, item.ID); err != nil {
		m.logger.Warn("turn index link not recorded",
			"turn_id", turn.ID, "error", err)
		return
	}
	turn.ContentItemID = item.ID
}

// End closes the session: generates a summary over its turns, derives
// key topics from recorded intents, averages sentiment, and stamps the
// end time. Ending an already-ended session returns the stored result
// without recomputation.
func (m *Manager) End(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return sess, nil
	}

	turns, err := m.store.Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns for summary: %w", err)
	}

	topics := keyTopics(turns, maxKeyTopics)
	trend := meanSentiment(turns)
	summary := m.summarize(ctx, turns, topics)

	ended, err := m.store.End(ctx, sessionID, summary, topics, trend)
	if err != nil {
		return nil, err
	}
	m.logger.Info("session ended",
		"session_id", sessionID,
		"message_count", ended.MessageCount,
		"key_topics", topics)
	return ended, nil
}

// summarize asks the completer for a summary of the closing window and
// falls back to a deterministic line when generation is unavailable.
func (m *Manager) summarize(ctx context.Context, turns []Turn, topics []string) string {
	if len(turns) == 0 {
		return "No messages were exchanged."
	}
	window := turns
	if keep := m.cfg.SummaryMaxTurns; keep > 0 && len(window) > keep {
		window = window[len(window)-keep:]
	}
	if m.completer != nil {
		text, err := m.completer.Complete(ctx, summaryPrompt(window))
		if err != nil {
			m.logger.Warn("summary degraded to fallback", "error", err)
		} else if text != "" {
			return text
		}
	}
	return fallbackSummary(turns, topics)
}

func summaryPrompt(turns []Turn) string {
	var b strings.Builder
	b.WriteString("Summarize this mentoring conversation in two or three sentences.")
	b.WriteString(" Mention what the user wanted and what was covered.\n\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}

func fallbackSummary(turns []Turn, topics []string) string {
	if len(topics) > 0 {
		return fmt.Sprintf("Conversation of %d messages about %s.",
			len(turns), strings.Join(topics, ", "))
	}
	return fmt.Sprintf("Conversation of %d messages.", len(turns))
}

// RecentTurns returns the session's last limit turns in chronological
// order. A non-positive limit uses the configured default window.
// Ended sessions stay readable; only mutations are refused.
func (m *Manager) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = m.cfg.RecentTurns
	}
	return m.store.RecentTurns(ctx, sessionID, limit)
}
