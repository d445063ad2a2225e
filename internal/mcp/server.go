// Package mcp exposes the context engine over the Model Context
// Protocol. Agent frontends call four tools: retrieve_context for the
// assembled bundle, and start_session / record_turn / end_session for
// the conversation lifecycle.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mentora-ai/mentora/internal/assembler"
	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

// ContextAssembler builds the bundle behind retrieve_context.
// Satisfied by *assembler.Assembler.
type ContextAssembler interface {
	Assemble(ctx context.Context, q retrieval.Query) (*assembler.Bundle, error)
}

// SessionManager drives the session tools. Satisfied by
// *session.Manager.
type SessionManager interface {
	Start(ctx context.Context, userID, firstMessage string) (*session.Session, string, error)
	RecordTurn(ctx context.Context, sessionID uuid.UUID, turn session.Turn) (*session.Turn, error)
	End(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
}

// Server wraps the MCP SDK server around the engine's surfaces.
type Server struct {
	mcpServer *mcp.Server
	assembler ContextAssembler
	sessions  SessionManager
	retrieval config.RetrievalConfig
	logger    *slog.Logger
}

// Config holds MCP server construction inputs.
type Config struct {
	Name      string
	Version   string
	Assembler ContextAssembler
	Sessions  SessionManager
	Retrieval config.RetrievalConfig
	Logger    *slog.Logger
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		assembler: cfg.Assembler,
		sessions:  cfg.Sessions,
		retrieval: cfg.Retrieval,
		logger:    cfg.Logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return s, nil
}

// Run serves MCP over the transport until ctx is cancelled. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	contextSchema, err := jsonschema.For[RetrieveContextInput](nil)
	if err != nil {
		return fmt.Errorf("schema for retrieve_context: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "retrieve_context",
		Description: "Assemble the mentoring context for a user query: ranked similar " +
			"content per type, the user's profile, and recent session turns, " +
			"trimmed to the token budget.",
		InputSchema: contextSchema,
	}, s.RetrieveContext)

	startSchema, err := jsonschema.For[StartSessionInput](nil)
	if err != nil {
		return fmt.Errorf("schema for start_session: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "start_session",
		Description: "Open a conversation session for a user and get a personalized " +
			"welcome message.",
		InputSchema: startSchema,
	}, s.StartSession)

	turnSchema, err := jsonschema.For[RecordTurnInput](nil)
	if err != nil {
		return fmt.Errorf("schema for record_turn: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "record_turn",
		Description: "Append one user or assistant message to an active session. " +
			"Turns are ordered and indexed for later retrieval.",
		InputSchema: turnSchema,
	}, s.RecordTurn)

	endSchema, err := jsonschema.For[EndSessionInput](nil)
	if err != nil {
		return fmt.Errorf("schema for end_session: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "end_session",
		Description: "Close a session: generates a summary, derives key topics from " +
			"recorded intents, and averages sentiment. Ending twice returns the " +
			"stored result.",
		InputSchema: endSchema,
	}, s.EndSession)

	return nil
}
