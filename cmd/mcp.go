package cmd

import (
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mentora-ai/mentora/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the context engine over MCP stdio",
	Long: `Serve the context engine over MCP stdio.

Exposes retrieve_context, start_session, record_turn, and end_session
as tools for an MCP client such as an agent runtime or an editor.
Logs go to stderr and the log file; stdout carries the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := mcp.NewServer(mcp.Config{
		Name:      "mentora",
		Version:   AppVersion,
		Assembler: a.Assembler,
		Sessions:  a.Sessions,
		Retrieval: a.Config.Retrieval,
		Logger:    a.Logger,
	})
	if err != nil {
		return fmt.Errorf("building MCP server: %w", err)
	}

	a.Logger.Info("MCP server listening on stdio")
	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
