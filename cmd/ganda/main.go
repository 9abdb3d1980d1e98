// Ganda — a sandboxed command interpreter with CLI, HTTP, WebSocket, and MCP front ends.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ganda",
	Short: "Ganda — a sandboxed terminal with per-session working directories and history.",
	Long: `Ganda emulates a small, safe command set (ls, cd, cat, mkdir, history, ...)
over real files without ever spawning a process. Sessions keep their own
working directory and command history, and can be driven interactively,
over HTTP, over WebSocket, or by AI agents via MCP.`,
	RunE:          runRepl, // Default to the interactive REPL.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, execCmd, mcpCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
