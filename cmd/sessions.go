package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mentora-ai/mentora/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var (
	sessionsStartUser string

	sessionsListUser  string
	sessionsListLimit int

	recordRole      string
	recordIntent    string
	recordEntities  []string
	recordSentiment float64
)

var sessionsStartCmd = &cobra.Command{
	Use:   "start [first-message]",
	Short: "Open a session and print the welcome message",
	RunE:  runSessionsStart,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsRecordCmd = &cobra.Command{
	Use:   "record <session-id> <message>",
	Short: "Append one message to an active session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSessionsRecord,
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Close a session and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsEnd,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its recorded turns",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	sessionsStartCmd.Flags().StringVar(&sessionsStartUser, "user", "", "user id opening the session (required)")
	_ = sessionsStartCmd.MarkFlagRequired("user")

	sessionsListCmd.Flags().StringVar(&sessionsListUser, "user", "", "user id to list sessions for (required)")
	sessionsListCmd.Flags().IntVar(&sessionsListLimit, "limit", 20, "maximum sessions to list")
	_ = sessionsListCmd.MarkFlagRequired("user")

	sessionsRecordCmd.Flags().StringVar(&recordRole, "role", session.RoleUser, "speaker role: user or assistant")
	sessionsRecordCmd.Flags().StringVar(&recordIntent, "intent", "", "classified intent of the message")
	sessionsRecordCmd.Flags().StringSliceVar(&recordEntities, "entities", nil, "named entities in the message")
	sessionsRecordCmd.Flags().Float64Var(&recordSentiment, "sentiment", 0, "sentiment score of the message")

	sessionsCmd.AddCommand(sessionsStartCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRecordCmd)
	sessionsCmd.AddCommand(sessionsEndCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsStart(cmd *cobra.Command, args []string) error {
	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, welcome, err := a.Sessions.Start(ctx, sessionsStartUser, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	fmt.Printf("Session: %s\n", sess.ID)
	fmt.Println(welcome)
	return nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, err := a.SessionStore.ListByUser(ctx, sessionsListUser, sessionsListLimit)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions")
		return nil
	}

	for _, sess := range sessions {
		status := "ended"
		if sess.Active {
			status = "active"
		}
		fmt.Printf("%s  %-6s  %3d msgs  %s\n",
			sess.ID, status, sess.MessageCount, formatAge(sess.StartedAt))
	}
	return nil
}

func runSessionsRecord(cmd *cobra.Command, args []string) error {
	sessionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	turn := session.Turn{
		Role:     recordRole,
		Content:  strings.Join(args[1:], " "),
		Intent:   recordIntent,
		Entities: recordEntities,
	}
	// Zero is a valid score, so only an explicit flag sets it.
	if cmd.Flags().Changed("sentiment") {
		turn.Sentiment = &recordSentiment
	}

	stored, err := a.Sessions.RecordTurn(ctx, sessionID, turn)
	if err != nil {
		return fmt.Errorf("recording turn: %w", err)
	}

	fmt.Printf("Recorded turn %d\n", stored.Index)
	return nil
}

func runSessionsEnd(cmd *cobra.Command, args []string) error {
	sessionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := a.Sessions.End(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}

	fmt.Printf("Session %s ended after %d messages\n", sess.ID, sess.MessageCount)
	fmt.Printf("Summary: %s\n", sess.Summary)
	if len(sess.KeyTopics) > 0 {
		fmt.Printf("Topics: %s\n", strings.Join(sess.KeyTopics, ", "))
	}
	fmt.Printf("Sentiment: %+.2f\n", sess.SentimentTrend)
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	sessionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := a.SessionStore.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	turns, err := a.SessionStore.Turns(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading turns: %w", err)
	}

	status := "ended"
	if sess.Active {
		status = "active"
	}
	fmt.Printf("Session: %s\n", sess.ID)
	fmt.Printf("User: %s\n", sess.UserID)
	fmt.Printf("Status: %s\n", status)
	fmt.Printf("Started: %s\n", formatAge(sess.StartedAt))
	fmt.Printf("Messages: %d\n", sess.MessageCount)
	if !sess.Active {
		fmt.Printf("Summary: %s\n", sess.Summary)
	}
	fmt.Println()

	for _, turn := range turns {
		fmt.Printf("%s> %s\n", turn.Role, turn.Content)
	}
	return nil
}

// formatAge renders a timestamp relative to now for recent times, and
// as a date beyond a week.
func formatAge(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
