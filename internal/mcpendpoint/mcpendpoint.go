// Package mcpendpoint exposes an in-process MCP server with exactly one
// tool, submit_pr, that a child coding agent calls to signal ticket
// completion. The tick loop consumes the signaled summary via a
// mutex-guarded single-slot mailbox (spec.md §4.4, §9).
package mcpendpoint

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/re-cinq/scriptorium/internal/config"
	"github.com/re-cinq/scriptorium/internal/fileutil"
)

// Endpoint owns the MCP server, its HTTP listener, and the submit_pr
// mailbox shared with the tick loop.
type Endpoint struct {
	addr       string
	mcpServer  *server.MCPServer
	httpServer *http.Server

	mu      sync.Mutex
	summary string
}

// New builds an Endpoint bound to the host:port parsed out of
// cfg.Endpoints.Local, registering the submit_pr tool.
func New(cfg *config.Config) (*Endpoint, error) {
	parsed, err := config.ParseEndpointStruct(cfg.Endpoints.Local)
	if err != nil {
		return nil, err
	}
	fileutil.LogInfo("mcp endpoint binding to %s", parsed)

	ep := &Endpoint{addr: fmt.Sprintf("%s:%d", parsed.Host, parsed.Port)}

	mcpServer := server.NewMCPServer(
		"scriptorium",
		"1.0.0",
		server.WithInstructions("Call submit_pr with a one-line summary when the ticket is complete."),
	)

	submitPR := mcp.NewTool("submit_pr",
		mcp.WithDescription("Signal that the current ticket's changes are complete and ready to merge."),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("A one-line summary of the change, used as the merge-queue entry's record."),
		),
	)
	mcpServer.AddTool(submitPR, ep.handleSubmitPR)

	ep.mcpServer = mcpServer

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
	ep.httpServer = &http.Server{Addr: ep.addr, Handler: mux}

	return ep, nil
}

// handleSubmitPR stores the summary argument in the single-slot mailbox.
func (ep *Endpoint) handleSubmitPR(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := req.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ep.mu.Lock()
	ep.summary = summary
	ep.mu.Unlock()

	return mcp.NewToolResultText("received"), nil
}

// ConsumeSubmitPRSummary atomically reads and clears the mailbox. An empty
// return means the agent did not call submit_pr since the last consume.
func (ep *Endpoint) ConsumeSubmitPRSummary() string {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	s := ep.summary
	ep.summary = ""
	return s
}

// Start runs the HTTP server on a background goroutine, per spec.md §4.4
// ("started on a background thread early in the tick-loop startup").
// Bind errors are reported synchronously before the goroutine is launched;
// errors occurring after Serve begins are logged, not returned, since the
// caller has already proceeded past startup.
func (ep *Endpoint) Start() error {
	ln, err := newListener(ep.addr)
	if err != nil {
		return fmt.Errorf("binding MCP endpoint %s: %w", ep.addr, err)
	}
	go func() {
		if err := ep.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			fileutil.LogError("mcp endpoint: serve: %v", err)
		}
	}()
	fileutil.LogInfo("listening on %s/mcp", ep.addr)
	return nil
}

// Shutdown gracefully stops the HTTP server, coordinated via ctx rather
// than a cross-thread Close() call per spec.md §9.
func (ep *Endpoint) Shutdown(ctx context.Context) error {
	return ep.httpServer.Shutdown(ctx)
}

// Addr returns the bound "host:port" address.
func (ep *Endpoint) Addr() string {
	return ep.addr
}
