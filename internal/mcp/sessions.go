package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mentora-ai/mentora/internal/session"
)

// StartSessionInput is the start_session tool input.
type StartSessionInput struct {
	UserID       string `json:"user_id" jsonschema:"The user opening the session"`
	FirstMessage string `json:"first_message,omitempty" jsonschema:"Opening message used to flavor the welcome; it is not recorded as a turn"`
}

// RecordTurnInput is the record_turn tool input.
type RecordTurnInput struct {
	SessionID string   `json:"session_id" jsonschema:"The active session to append to"`
	Role      string   `json:"role" jsonschema:"Speaker role: user or assistant"`
	Content   string   `json:"content" jsonschema:"The message text"`
	Intent    string   `json:"intent,omitempty" jsonschema:"Classified intent of the message (optional)"`
	Entities  []string `json:"entities,omitempty" jsonschema:"Named entities mentioned in the message (optional)"`
	Sentiment *float64 `json:"sentiment,omitempty" jsonschema:"Sentiment score of the message (optional)"`
}

// EndSessionInput is the end_session tool input.
type EndSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"The session to close"`
}

type sessionOut struct {
	SessionID      string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	MessageCount   int        `json:"message_count"`
	Summary        string     `json:"summary,omitempty"`
	KeyTopics      []string   `json:"key_topics,omitempty"`
	SentimentTrend float64    `json:"sentiment_trend"`
}

type startSessionOutput struct {
	sessionOut
	WelcomeMessage string `json:"welcome_message"`
}

type recordTurnOutput struct {
	SessionID string `json:"session_id"`
	turnOut
}

// StartSession handles the start_session tool.
func (s *Server) StartSession(ctx context.Context, _ *mcp.CallToolRequest, in StartSessionInput) (*mcp.CallToolResult, any, error) {
	if in.UserID == "" {
		return errorResult("user_id is required"), nil, nil
	}

	sess, welcome, err := s.sessions.Start(ctx, in.UserID, in.FirstMessage)
	if err != nil {
		s.logger.Error("starting session", "user_id", in.UserID, "error", err)
		return nil, nil, err
	}

	return jsonContent(startSessionOutput{
		sessionOut:     sessionOutput(sess),
		WelcomeMessage: welcome,
	}), nil, nil
}

// RecordTurn handles the record_turn tool.
func (s *Server) RecordTurn(ctx context.Context, _ *mcp.CallToolRequest, in RecordTurnInput) (*mcp.CallToolResult, any, error) {
	sessionID, err := uuid.Parse(in.SessionID)
	if err != nil {
		return errorResult("session_id %q is not a valid UUID", in.SessionID), nil, nil
	}
	if in.Content == "" {
		return errorResult("content is required"), nil, nil
	}

	turn, err := s.sessions.RecordTurn(ctx, sessionID, session.Turn{
		Role:      in.Role,
		Content:   in.Content,
		Intent:    in.Intent,
		Entities:  in.Entities,
		Sentiment: in.Sentiment,
	})
	if err != nil {
		if isCallerError(err) {
			return errorResult("%v", err), nil, nil
		}
		s.logger.Error("recording turn", "session_id", sessionID, "error", err)
		return nil, nil, err
	}

	return jsonContent(recordTurnOutput{
		SessionID: sessionID.String(),
		turnOut:   turnOutput(*turn),
	}), nil, nil
}

// EndSession handles the end_session tool.
func (s *Server) EndSession(ctx context.Context, _ *mcp.CallToolRequest, in EndSessionInput) (*mcp.CallToolResult, any, error) {
	sessionID, err := uuid.Parse(in.SessionID)
	if err != nil {
		return errorResult("session_id %q is not a valid UUID", in.SessionID), nil, nil
	}

	sess, err := s.sessions.End(ctx, sessionID)
	if err != nil {
		if isCallerError(err) {
			return errorResult("%v", err), nil, nil
		}
		s.logger.Error("ending session", "session_id", sessionID, "error", err)
		return nil, nil, err
	}

	return jsonContent(sessionOutput(sess)), nil, nil
}

func sessionOutput(sess *session.Session) sessionOut {
	status := "ended"
	if sess.Active {
		status = "active"
	}
	return sessionOut{
		SessionID:      sess.ID.String(),
		UserID:         sess.UserID,
		Status:         status,
		StartedAt:      sess.StartedAt,
		EndedAt:        sess.EndedAt,
		MessageCount:   sess.MessageCount,
		Summary:        sess.Summary,
		KeyTopics:      sess.KeyTopics,
		SentimentTrend: sess.SentimentTrend,
	}
}
