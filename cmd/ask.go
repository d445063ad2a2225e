package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mentora-ai/mentora/internal/assembler"
	"github.com/mentora-ai/mentora/internal/content"
)

var (
	askUser       string
	askSession    string
	askHistory    bool
	askWindow     int
	askMaxResults int
	askJSON       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Assemble the mentoring context for a question",
	Long: `Ask runs one retrieval round-trip: embeds the question, searches every
content type, ranks hits against the user's profile, and prints the
assembled bundle.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "user id to assemble context for (required)")
	askCmd.Flags().StringVar(&askSession, "session", "", "session whose recent turns join the bundle")
	askCmd.Flags().BoolVar(&askHistory, "history", false, "search indexed conversation turns too")
	askCmd.Flags().IntVar(&askWindow, "window", 0, "restrict history matches to the last N hours")
	askCmd.Flags().IntVar(&askMaxResults, "max-results", 0, "per-type result cap (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the raw bundle as JSON")
	_ = askCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	q := a.Engine.DefaultQuery(askUser, strings.Join(args, " "))
	q.SessionID = askSession
	q.IncludeHistory = askHistory
	q.TimeWindowHours = askWindow
	if askMaxResults > 0 {
		q.MaxResults = askMaxResults
	}

	bundle, err := a.Assembler.Assemble(ctx, q)
	if err != nil {
		return fmt.Errorf("assembling context: %w", err)
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}
	printBundle(os.Stdout, bundle)
	return nil
}

// printBundle renders a bundle for the terminal: profile line, ranked
// items per type, recent turns, and the token estimate.
func printBundle(w io.Writer, b *assembler.Bundle) {
	if uc := b.UserContext; uc != nil {
		name := uc.DisplayName
		if name == "" {
			name = uc.UserID
		}
		fmt.Fprintf(w, "User: %s", name)
		if len(uc.ActiveGoals) > 0 {
			fmt.Fprintf(w, " (goal: %s)", uc.ActiveGoals[0])
		}
		fmt.Fprintln(w)
	}

	for _, ct := range content.AllTypes() {
		items := b.Retrieval.ByType[ct]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", ct)
		for i, it := range items {
			fmt.Fprintf(w, "  %d. [%.2f] %s\n", i+1, it.RelevanceScore, firstLine(it.Item.Text))
		}
	}

	if len(b.RecentTurns) > 0 {
		fmt.Fprintln(w, "\nRecent turns:")
		for _, turn := range b.RecentTurns {
			fmt.Fprintf(w, "  %s> %s\n", turn.Role, firstLine(turn.Content))
		}
	}

	fmt.Fprintf(w, "\n~%d tokens\n", b.EstimatedTokens)
}

// firstLine trims text to a single display line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const maxLen = 100
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
