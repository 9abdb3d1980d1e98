package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkaninda/ganda/internal/config"
	"github.com/jkaninda/ganda/internal/gateway"
	"github.com/jkaninda/ganda/internal/gateway/cli"
	"github.com/jkaninda/ganda/internal/gateway/httpapi"
	"github.com/jkaninda/ganda/internal/gateway/ws"
	"github.com/jkaninda/ganda/internal/observability"
	goutils "github.com/jkaninda/go-utils"
)

var (
	serveConfigPath string
	servePort       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start in server mode (HTTP API, WebSocket terminal)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
	serveCmd.Flags().StringVar(&servePort, "port", "", "override HTTP listen address (e.g. :8080)")
}

// runServe starts Ganda in server mode.
func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(goutils.Env("GANDA_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	// Apply CLI overrides.
	if servePort != "" {
		if cfg.Gateways.HTTP == nil {
			cfg.Gateways.HTTP = &config.HTTPGatewayConfig{Enabled: true}
		}
		cfg.Gateways.HTTP.ListenAddr = servePort
	}

	logger.Info("starting in server mode", slog.String("config", serveConfigPath))

	sc, err := initShared(cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	gateways, err := buildGateways(cfg, sc)
	if err != nil {
		return err
	}
	if len(gateways) == 0 {
		return fmt.Errorf("no gateways enabled in config")
	}
	logger.Info("gateways configured", slog.Int("count", len(gateways)))

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start all gateways in goroutines.
	errs := make(chan error, len(gateways))
	for _, gw := range gateways {
		go func(g gateway.Gateway) {
			errs <- g.Start(ctx)
		}(gw)
	}

	// Wait for signal or first gateway error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			logger.Error("gateway exited with error", slog.String("error", err.Error()))
		}
	}

	// Graceful shutdown with deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(gateways) - 1; i >= 0; i-- {
		if err := gateways[i].Stop(shutdownCtx); err != nil {
			logger.Error("stopping gateway", slog.String("error", err.Error()))
		}
	}

	return nil
}

// buildGateways creates all enabled gateways from config.
func buildGateways(cfg *config.Config, sc *SharedComponents) ([]gateway.Gateway, error) {
	var gws []gateway.Gateway
	gwCfg := cfg.Gateways

	// CLI gateway (interactive REPL alongside the servers).
	if gwCfg.CLI != nil && gwCfg.CLI.Enabled {
		cliGW, err := cli.NewGateway(sc.Dispatcher, sc.Logger)
		if err != nil {
			return nil, fmt.Errorf("initializing cli gateway: %w", err)
		}
		gws = append(gws, cliGW)
		sc.Logger.Debug("gateway enabled", slog.String("type", "cli"))
	}

	// HTTP API gateway.
	var httpGW *httpapi.Gateway
	if gwCfg.HTTP != nil && gwCfg.HTTP.Enabled {
		httpCfg := httpapi.Config{
			ListenAddr:     gwCfg.HTTP.Addr(),
			EnableDocs:     gwCfg.HTTP.EnableDocs,
			APIKeys:        resolveAPIKeys(gwCfg.HTTP.APIKeys),
			MaxRequestSize: gwCfg.HTTP.MaxRequestSizeBytes,
		}
		if sc.Obs != nil {
			httpCfg.Metrics = sc.Obs.Metrics
			httpCfg.HealthChecker = sc.Obs.Health
			if sc.Obs.Metrics != nil {
				httpCfg.MetricsRegistry = sc.Obs.Metrics.Registry
			}
			if sc.Obs.Tracer != nil {
				httpCfg.Tracer = sc.Obs.Tracer.Tracer()
			}
			if m := cfg.MetricsSettings(); m != nil {
				httpCfg.MetricsPath = m.MetricsPath()
			}
		}
		httpGW = httpapi.NewGateway(httpCfg, sc.Manager, sc.Limiter, sc.Logger)
	}

	// WebSocket terminal: mounted on the HTTP gateway when both are
	// enabled, otherwise served from its own listener.
	if gwCfg.WebSocket != nil && gwCfg.WebSocket.Enabled {
		var wsMetrics *observability.MetricsCollector
		if sc.Obs != nil {
			wsMetrics = sc.Obs.Metrics
		}
		wsServer := ws.NewServer(sc.Manager, gwCfg.WebSocket, wsMetrics, sc.Logger)

		if httpGW != nil {
			httpGW.WithHandler(gwCfg.WebSocket.WSPath(), wsServer.Handler())
			sc.Logger.Debug("websocket terminal mounted on http gateway",
				slog.String("path", gwCfg.WebSocket.WSPath()),
			)
		} else {
			gws = append(gws, wsServer)
			sc.Logger.Debug("gateway enabled",
				slog.String("type", "websocket"),
				slog.String("addr", gwCfg.WebSocket.WSAddr()),
				slog.String("path", gwCfg.WebSocket.WSPath()),
			)
		}
	}

	if httpGW != nil {
		gws = append(gws, httpGW)
		sc.Logger.Debug("gateway enabled",
			slog.String("type", "http"),
			slog.String("addr", gwCfg.HTTP.Addr()),
			slog.Bool("docs", gwCfg.HTTP.EnableDocs),
		)
	}

	return gws, nil
}

// resolveAPIKeys merges config-file keys with the GANDA_API_KEYS env
// override ("key:label,key:label").
func resolveAPIKeys(configured map[string]string) map[string]string {
	apiKeys := make(map[string]string, len(configured))
	for k, v := range configured {
		apiKeys[k] = v
	}
	if envKeys := os.Getenv("GANDA_API_KEYS"); envKeys != "" {
		for _, entry := range strings.Split(envKeys, ",") {
			parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
			if len(parts) == 2 {
				apiKeys[parts[0]] = parts[1]
			}
		}
	}
	return apiKeys
}
