package shell

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// metaCommands returns the meta command set. help is generated from the
// registry so the listing can never drift from the registered names.
// Extra arguments to any of these are ignored.
func metaCommands(r *Registry) []Command {
	return []Command{
		{
			Name: "history", Usage: "history", Description: "Show command history",
			Run: func(_ context.Context, sess *Session, _ []string) (Result, error) {
				entries := sess.History()
				if len(entries) == 0 {
					return ok("No commands in history"), nil
				}
				lines := make([]string, len(entries))
				for i, e := range entries {
					lines[i] = FormatHistoryEntry(e)
				}
				return ok(strings.Join(lines, "\n")), nil
			},
		},
		{
			Name: "help", Usage: "help", Description: "Show this help",
			Run: func(_ context.Context, _ *Session, _ []string) (Result, error) {
				return ok(RenderHelp(r)), nil
			},
		},
		{
			Name: "clear", Usage: "clear", Description: "Clear screen",
			Run: func(_ context.Context, _ *Session, _ []string) (Result, error) {
				return Result{Success: true, Action: ActionClear}, nil
			},
		},
		{
			Name: "exit", Usage: "exit", Description: "End the session",
			Run: func(_ context.Context, _ *Session, _ []string) (Result, error) {
				// History is retained; only the front end's loop ends.
				return Result{Success: true, Action: ActionEnd}, nil
			},
		},
	}
}

// FormatHistoryEntry renders one entry as "<seq> <timestamp> <command> <args...>".
func FormatHistoryEntry(e HistoryEntry) string {
	line := fmt.Sprintf("%4d  %s  %s", e.Seq, e.Timestamp.Format(time.RFC3339), e.Command)
	if len(e.Args) > 0 {
		line += " " + strings.Join(e.Args, " ")
	}
	return line
}

// RenderHelp lists every registered command with its usage and description.
func RenderHelp(r *Registry) string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, c := range r.Commands() {
		fmt.Fprintf(&b, "\n  %-18s %s", c.Usage, c.Description)
	}
	return b.String()
}
