// Package cmd provides the mentora CLI commands.
//
// Commands:
//   - ask: one-shot context retrieval for a question
//   - sessions: start, record, end, and inspect conversation sessions
//   - index: add content items to the retrieval corpus
//   - mcp: Model Context Protocol server on stdio for agent frontends
//   - migrate: apply database migrations and exit
//
// All long-running commands handle SIGINT/SIGTERM via context
// cancellation and release resources through app.Close.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mentora-ai/mentora/internal/app"
	"github.com/mentora-ai/mentora/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "mentora",
	Short: "Mentora - context engine for AI career mentoring",
	Long: `Mentora assembles the context an AI career mentor needs to answer well:
semantically similar content ranked against the user's profile, the
user's goals and skills, and the recent conversation, all trimmed to a
token budget.

Run "mentora mcp" to serve the engine to an agent frontend over the
Model Context Protocol.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupApp loads configuration and builds the application under a
// signal-aware context. Callers must invoke the returned cleanup.
func setupApp() (context.Context, *app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		stop()
		return nil, nil, nil, fmt.Errorf("initializing application: %w", err)
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			a.Logger.Warn("shutdown error", "error", err)
		}
		stop()
	}
	return ctx, a, cleanup, nil
}
