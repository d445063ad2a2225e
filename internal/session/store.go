package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists sessions and their turns.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a session store backed by pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

const sessionCols = `id, user_id, status, started_at, ended_at, message_count, summary, key_topics, sentiment_trend`

const turnCols = `id, session_id, turn_index, user_id, role, content, intent, entities, sentiment, content_item_id, created_at`

// Create opens a new active session for userID.
func (s *Store) Create(ctx context.Context, userID string) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id)
		VALUES ($1, $2)
		RETURNING `+sessionCols,
		uuid.New(), userID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debug("session created", "session_id", sess.ID, "user_id", userID)
	return sess, nil
}

// Get loads a session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListByUser returns the user's sessions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// AppendTurn stores a turn and increments the session's message count
// in one transaction. The session row is locked first, so Index comes
// from message_count without gaps or duplicates, and UserID is taken
// from the session rather than trusted from the caller. Appending to
// an ended session returns ErrClosed.
func (s *Store) AppendTurn(ctx context.Context, turn Turn) (*Turn, error) {
	if !validRole(turn.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, turn.Role)
	}
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	userID, count, err := lockSession(ctx, tx, turn.SessionID)
	if err != nil {
		return nil, err
	}
	turn.UserID = userID
	turn.Index = count

	var intent *string
	if turn.Intent != "" {
		intent = &turn.Intent
	}
	var itemID *uuid.UUID
	if turn.ContentItemID != uuid.Nil {
		itemID = &turn.ContentItemID
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO chat_turns (id, session_id, turn_index, user_id, role, content, intent, entities, sentiment, content_item_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+turnCols,
		turn.ID, turn.SessionID, turn.Index, turn.UserID, turn.Role,
		turn.Content, intent, turn.Entities, turn.Sentiment, itemID)
	stored, err := scanTurn(row)
	if err != nil {
		return nil, fmt.Errorf("insert turn: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET message_count = message_count + 1 WHERE id = $1`,
		turn.SessionID); err != nil {
		return nil, fmt.Errorf("bump message count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return stored, nil
}

// lockSession takes the row lock and reports the session's owner and
// current message count.
func lockSession(ctx context.Context, q querier, id uuid.UUID) (string, int, error) {
	var (
		userID string
		status string
		count  int
	)
	err := q.QueryRow(ctx,
		`SELECT user_id, status, message_count FROM sessions WHERE id = $1 FOR UPDATE`,
		id).Scan(&userID, &status, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("lock session: %w", err)
	}
	if status != "active" {
		return "", 0, ErrClosed
	}
	return userID, count, nil
}

// Turns returns every turn of the session in chronological order.
func (s *Store) Turns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+turnCols+` FROM chat_turns WHERE session_id = $1 ORDER BY turn_index`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return collectTurns(rows)
}

// RecentTurns returns the last limit turns in chronological order:
// the newest window is fetched, then reversed.
func (s *Store) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+turnCols+` FROM chat_turns WHERE session_id = $1 ORDER BY turn_index DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	turns, err := collectTurns(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(turns)
	return turns, nil
}

// End flips the session to ended and writes its closing fields. If the
// session already ended, the stored row is returned untouched, so
// ending twice hands back the original summary.
func (s *Store) End(ctx context.Context, id uuid.UUID, summary string, topics []string, trend float64) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE sessions
		SET status = 'ended',
		    ended_at = NOW(),
		    summary = $2,
		    key_topics = $3,
		    sentiment_trend = $4
		WHERE id = $1 AND status = 'active'
		RETURNING `+sessionCols,
		id, summary, topics, trend)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.Get(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	s.logger.Debug("session ended",
		"session_id", sess.ID,
		"message_count", sess.MessageCount,
		"key_topics", sess.KeyTopics)
	return sess, nil
}

// LinkTurnContent records which content item holds the indexed copy of
// a turn.
func (s *Store) LinkTurnContent(ctx context.Context, turnID, itemID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE chat_turns SET content_item_id = $2 WHERE id = $1`,
		turnID, itemID); err != nil {
		return fmt.Errorf("link turn content: %w", err)
	}
	return nil
}

func collectTurns(rows pgx.Rows) ([]Turn, error) {
	defer rows.Close()
	var turns []Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		sess    Session
		status  string
		summary *string
		topics  []string
		trend   *float64
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &status, &sess.StartedAt,
		&sess.EndedAt, &sess.MessageCount, &summary, &topics, &trend); err != nil {
		return nil, err
	}
	sess.Active = status == "active"
	if summary != nil {
		sess.Summary = *summary
	}
	sess.KeyTopics = topics
	if trend != nil {
		sess.SentimentTrend = *trend
	}
	return &sess, nil
}

func scanTurn(row pgx.Row) (*Turn, error) {
	var (
		turn   Turn
		intent *string
		itemID *uuid.UUID
	)
	if err := row.Scan(&turn.ID, &turn.SessionID, &turn.Index, &turn.UserID,
		&turn.Role, &turn.Content, &intent, &turn.Entities, &turn.Sentiment,
		&itemID, &turn.CreatedAt); err != nil {
		return nil, err
	}
	if intent != nil {
		turn.Intent = *intent
	}
	if itemID != nil {
		turn.ContentItemID = *itemID
	}
	return &turn, nil
}
