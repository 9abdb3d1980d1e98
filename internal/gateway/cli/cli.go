// Package cli implements the interactive terminal gateway for Ganda.
package cli

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"

	"github.com/jkaninda/ganda/internal/shell"
)

const sessionID = "cli"

// ANSI clear screen + cursor home, matching what terminal emulators expect
// from a clear command.
const clearSequence = "\033[2J\033[H"

// Gateway is the interactive command-line interface. It drives a single
// local session whose working directory starts at the process working dir.
type Gateway struct {
	dispatcher *shell.Dispatcher
	session    *shell.Session
	logger     *slog.Logger
	done       chan struct{} // closed by Stop to signal shutdown
}

// NewGateway creates a CLI gateway backed by the given dispatcher.
// The session is homed at the current working directory.
func NewGateway(d *shell.Dispatcher, logger *slog.Logger) (*Gateway, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	return &Gateway{
		dispatcher: d,
		session:    shell.NewSession(sessionID, wd),
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

// Start runs the interactive REPL. Blocks until ctx is cancelled,
// Stop is called, or the user runs the exit command.
func (g *Gateway) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Ganda — sandboxed terminal. Type 'help' for available commands.")
	fmt.Println()

	for {
		fmt.Printf("ganda:%s$ ", g.session.WorkingDir)

		// Check for context cancellation or Stop signal between prompts.
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down.")
			return nil
		case <-g.done:
			fmt.Println("\nShutting down.")
			return nil
		default:
		}

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		correlationID := newCorrelationID()

		g.logger.DebugContext(ctx, "cli command",
			slog.String("session_id", sessionID),
			slog.String("correlation_id", correlationID),
		)

		result := g.dispatcher.Execute(ctx, g.session, line)

		switch result.Action {
		case shell.ActionClear:
			fmt.Print(clearSequence)
			continue
		case shell.ActionEnd:
			if result.Output != "" {
				fmt.Println(result.Output)
			}
			fmt.Println("Goodbye.")
			return nil
		}

		if result.Output != "" {
			fmt.Println(result.Output)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	return nil
}

// Stop signals the REPL to shut down.
func (g *Gateway) Stop(_ context.Context) error {
	select {
	case <-g.done:
		// Already closed.
	default:
		close(g.done)
	}
	return nil
}

// newCorrelationID generates a short random hex ID for request tracing.
func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
