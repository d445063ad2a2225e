package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

// Error exposure policy: tool results carry only the sentinel error
// text plus caller-supplied identifiers. Provider errors, SQL, file
// paths, and stack traces stay in server logs.

// jsonContent marshals a response value into MCP text content. All
// tool data goes out as JSON; clients parse it.
func jsonContent(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "marshal error"}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

// errorResult reports a caller mistake as a tool-level error, keeping
// the protocol connection healthy.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// isCallerError distinguishes mistakes the client can fix (bad input,
// unknown or closed session) from system failures. Caller errors map
// to IsError results; everything else becomes a protocol error.
func isCallerError(err error) bool {
	return errors.Is(err, retrieval.ErrInvalidQuery) ||
		errors.Is(err, session.ErrNotFound) ||
		errors.Is(err, session.ErrClosed) ||
		errors.Is(err, session.ErrInvalidRole)
}
