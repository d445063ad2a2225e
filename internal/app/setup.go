package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentora-ai/mentora/db"
	"github.com/mentora-ai/mentora/internal/assembler"
	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/content"
	"github.com/mentora-ai/mentora/internal/embedding"
	"github.com/mentora-ai/mentora/internal/llm"
	"github.com/mentora-ai/mentora/internal/log"
	"github.com/mentora-ai/mentora/internal/observability"
	"github.com/mentora-ai/mentora/internal/profile"
	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

// Setup builds the application from a validated configuration. On any
// failure everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	logger, logClose := provideLogger(cfg)
	a.Logger = logger
	a.logClose = logClose

	otelShutdown, err := observability.Setup(ctx, cfg.Otel, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	emb, err := provideEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Embedder = emb

	a.Content = content.NewStore(pool, emb, logger.With("component", "content"))
	a.Profiles = profile.NewStore(pool, logger.With("component", "profile"))

	a.Engine = retrieval.NewEngine(cfg.Retrieval, emb, a.Content, a.Profiles,
		logger.With("component", "retrieval"))

	completer, err := provideCompleter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.SessionStore = session.NewStore(pool, logger.With("component", "session"))
	a.Sessions = session.NewManager(a.SessionStore, a.Profiles, completer, a.Content,
		cfg.Session, logger.With("component", "session"))

	a.Assembler = assembler.New(a.Engine, a.Sessions, a.Profiles, cfg.Retrieval,
		logger.With("component", "assembler"))

	logger.Info("application ready",
		"embedding_providers", cfg.Embedding.Providers,
		"dimensions", cfg.Embedding.Dimensions)
	return a, nil
}

// provideLogger builds the process logger. With log_file set, output
// fans out to stderr (text) and the file (JSON); otherwise a single
// stderr handler. The returned close func is nil when there is no file.
func provideLogger(cfg *config.Config) (*slog.Logger, func() error) {
	logCfg := log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON}

	if cfg.LogFile != "" {
		logger, closeFn, err := log.NewDual(cfg.LogFile, logCfg)
		if err != nil {
			logger.Warn("log file unavailable, stderr only", "path", cfg.LogFile, "error", err)
		}
		return logger, closeFn
	}
	return log.New(logCfg), nil
}

// providePool runs migrations, then opens and pings the pgx pool.
func providePool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres.URL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideEmbedder assembles the orchestrator from the enabled
// providers, in configured preference order. Providers without an API
// key are skipped; config validation guarantees at least one is keyed.
func provideEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*embedding.Orchestrator, error) {
	e := cfg.Embedding

	var adapters []embedding.Adapter
	opts := []embedding.Option{
		embedding.WithLogger(logger.With("component", "embedding")),
	}

	for _, id := range e.Providers {
		switch id {
		case config.ProviderGemini:
			if e.Gemini.APIKey == "" {
				continue
			}
			a, err := embedding.NewGeminiAdapter(ctx, e.Gemini.APIKey, e.Gemini.Model, e.Dimensions)
			if err != nil {
				return nil, fmt.Errorf("creating gemini adapter: %w", err)
			}
			adapters = append(adapters, a)
			opts = append(opts, embedding.WithRateLimit(id, e.Gemini.RequestsPerSecond))

		case config.ProviderOpenAI:
			if e.OpenAI.APIKey == "" {
				continue
			}
			a, err := embedding.NewOpenAIAdapter(e.OpenAI.APIKey, e.OpenAI.Model, e.Dimensions)
			if err != nil {
				return nil, fmt.Errorf("creating openai adapter: %w", err)
			}
			adapters = append(adapters, a)
			opts = append(opts, embedding.WithRateLimit(id, e.OpenAI.RequestsPerSecond))

		case config.ProviderVoyage:
			if e.Voyage.APIKey == "" {
				continue
			}
			a, err := embedding.NewVoyageAdapter(e.Voyage.APIKey, e.Voyage.Model, e.Voyage.BaseURL, e.Dimensions)
			if err != nil {
				return nil, fmt.Errorf("creating voyage adapter: %w", err)
			}
			adapters = append(adapters, a)
			opts = append(opts, embedding.WithRateLimit(id, e.Voyage.RequestsPerSecond))

		default:
			return nil, fmt.Errorf("unknown embedding provider %q", id)
		}
	}

	cache := embedding.NewCache(e.CacheCapacity)
	return embedding.NewOrchestrator(adapters, cache, e.Dimensions, opts...), nil
}

// provideCompleter builds the summarization client. A completion
// provider without an API key degrades to nil: sessions still close,
// with deterministic summaries instead of generated ones.
func provideCompleter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Completer, error) {
	switch cfg.Completion.Provider {
	case config.ProviderGemini:
		if cfg.Embedding.Gemini.APIKey == "" {
			logger.Warn("no gemini API key, session summaries degrade to deterministic text")
			return nil, nil
		}
		c, err := llm.NewGemini(ctx, cfg.Embedding.Gemini.APIKey, cfg.Completion.Model)
		if err != nil {
			return nil, fmt.Errorf("creating gemini completer: %w", err)
		}
		return c, nil

	case config.ProviderOpenAI:
		if cfg.Embedding.OpenAI.APIKey == "" {
			logger.Warn("no openai API key, session summaries degrade to deterministic text")
			return nil, nil
		}
		c, err := llm.NewOpenAI(cfg.Embedding.OpenAI.APIKey, cfg.Completion.Model)
		if err != nil {
			return nil, fmt.Errorf("creating openai completer: %w", err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
}
