package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jkaninda/ganda/internal/config"
	"github.com/jkaninda/ganda/internal/gateway/cli"
	"github.com/jkaninda/ganda/internal/shell"
	"github.com/jkaninda/ganda/internal/sysmon"
	goutils "github.com/jkaninda/go-utils"
)

var replConfigPath string

func init() {
	rootCmd.Flags().StringVar(&replConfigPath, "config", config.DefaultConfigPath(), "path to config file")
}

// runRepl starts the interactive terminal. This is the default mode
// when ganda runs without a subcommand. It needs no storage or
// observability stack; the session lives in the current process.
func runRepl(_ *cobra.Command, _ []string) error {
	// Warn level keeps the prompt clean. GANDA_DEBUG turns on debug logs.
	level := slog.LevelWarn
	if os.Getenv("GANDA_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.Load(goutils.Env("GANDA_CONFIG", replConfigPath))
	if err != nil {
		return err
	}

	monitor := sysmon.New(cfg.Sysinfo.CPUSample())
	registry := shell.DefaultRegistry(monitor, shell.Options{
		ProcessLimit: cfg.Sysinfo.Processes(),
	})
	dispatcher := shell.NewDispatcher(registry, logger)

	gw, err := cli.NewGateway(dispatcher, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return gw.Start(ctx)
}
