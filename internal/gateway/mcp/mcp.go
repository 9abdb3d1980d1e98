// Package mcp exposes the sandboxed terminal as an MCP (Model Context
// Protocol) server over stdio, so AI agents can drive interpreter sessions
// through the standard tool-calling interface.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jkaninda/ganda/internal/sessions"
	"github.com/jkaninda/ganda/internal/shell"
)

// Gateway is the MCP stdio gateway.
type Gateway struct {
	manager *sessions.Manager
	logger  *slog.Logger
	version string

	cancel context.CancelFunc
}

// NewGateway creates an MCP gateway over the given session manager.
func NewGateway(manager *sessions.Manager, logger *slog.Logger, version string) *Gateway {
	return &Gateway{
		manager: manager,
		logger:  logger,
		version: version,
	}
}

// Start serves MCP over stdin/stdout and blocks until ctx is canceled or
// stdin closes.
func (g *Gateway) Start(ctx context.Context) error {
	s := server.NewMCPServer("ganda", g.version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("exec",
		mcp.WithDescription("Execute a command line in a sandboxed terminal session. "+
			"Supports a fixed command set (ls, cd, cat, mkdir, history, ...); type 'help' for the list."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The command line to execute"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to execute in; sessions keep their own working directory and history"),
			mcp.DefaultString("default"),
		),
	), g.handleExec)

	s.AddTool(mcp.NewTool("history",
		mcp.WithDescription("List the command history of a terminal session, oldest first."),
		mcp.WithString("session_id",
			mcp.Description("Session to inspect"),
			mcp.DefaultString("default"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Return only the most recent N entries; 0 = all"),
		),
	), g.handleHistory)

	ctx, g.cancel = context.WithCancel(ctx)

	g.logger.Info("mcp gateway starting", slog.String("transport", "stdio"))
	return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
}

// Stop cancels the stdio listener.
func (g *Gateway) Stop(_ context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	return nil
}

func (g *Gateway) handleExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sessionID := req.GetString("session_id", "default")

	outcome, err := g.manager.Execute(ctx, sessionID, command)
	if err != nil {
		g.logger.Error("mcp exec failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !outcome.Result.Success {
		return mcp.NewToolResultError(outcome.Result.Output), nil
	}

	output := outcome.Result.Output
	if output == "" {
		output = fmt.Sprintf("ok (working dir: %s)", outcome.WorkingDir)
	}
	return mcp.NewToolResultText(output), nil
}

func (g *Gateway) handleHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "default")
	limit := req.GetInt("limit", 0)

	entries := g.manager.History(sessionID)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("(no history)"), nil
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = shell.FormatHistoryEntry(e)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
