// Package app wires the context engine together from configuration:
// logging, tracing, the database pool with migrations, the embedding
// orchestrator, the stores, the retrieval engine, the session manager,
// and the context assembler.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentora-ai/mentora/internal/assembler"
	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/content"
	"github.com/mentora-ai/mentora/internal/embedding"
	"github.com/mentora-ai/mentora/internal/profile"
	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

// closeTimeout bounds the trace flush during shutdown.
const closeTimeout = 5 * time.Second

// App is the application container. Setup fills it; Close releases it.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pool         *pgxpool.Pool
	Embedder     *embedding.Orchestrator
	Content      *content.Store
	Profiles     *profile.Store
	Engine       *retrieval.Engine
	SessionStore *session.Store
	Sessions     *session.Manager
	Assembler    *assembler.Assembler

	otelShutdown func(context.Context) error
	logClose     func() error
}

// Close releases all resources: flushes pending trace spans, closes
// the database pool, then the log file. Safe on a partially built App.
func (a *App) Close() error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down")

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.otelShutdown(ctx); err != nil {
			logger.Warn("flushing trace spans", "error", err)
		}
		cancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		logger.Debug("database pool closed")
	}

	// Last, so shutdown itself still reaches the log file.
	if a.logClose != nil {
		if err := a.logClose(); err != nil {
			return err
		}
	}
	return nil
}
