package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaninda/ganda/internal/config"
	"github.com/jkaninda/ganda/internal/observability"
	"github.com/jkaninda/ganda/internal/ratelimit"
	"github.com/jkaninda/ganda/internal/sessions"
	"github.com/jkaninda/ganda/internal/shell"
	"github.com/jkaninda/ganda/internal/storage"
	pgstore "github.com/jkaninda/ganda/internal/storage/postgres"
	sqlitestore "github.com/jkaninda/ganda/internal/storage/sqlite"
	"github.com/jkaninda/ganda/internal/sysmon"
	"github.com/jkaninda/ganda/internal/workspace"
)

// SharedComponents holds all initialized subsystems that the serve and mcp
// modes require. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config    *config.Config
	Logger    *slog.Logger
	Workspace *workspace.Workspace
	Store     storage.Store // Unified store (SQLite or PostgreSQL).

	Obs        *observability.Observability
	Dispatcher *shell.Dispatcher
	Manager    *sessions.Manager
	Limiter    *ratelimit.Limiter // Non-nil only when the HTTP gateway is enabled.

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// initShared performs all common initialization shared between serve and mcp
// modes. Callers must call sc.Cleanup() when done.
func initShared(cfg *config.Config, logger *slog.Logger) (*SharedComponents, error) {
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	// Workspace.
	ws, err := workspace.New(cfg.ResolvedWorkspace())
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}
	if err := ws.EnsureAll(); err != nil {
		return nil, fmt.Errorf("preparing workspace: %w", err)
	}
	sc.Workspace = ws
	logger.Debug("workspace initialized", slog.String("root", ws.Root))

	// Observability.
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		if obs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			obs.Shutdown(shutdownCtx)
		}
	})
	if obs != nil {
		logger.Debug("observability initialized",
			slog.Bool("metrics", obs.Metrics != nil),
			slog.Bool("tracing", obs.Tracer != nil),
		)
	}

	// Storage (SQLite or PostgreSQL). A nil storage section means history
	// lives only in session memory, so no store is opened.
	if cfg.Storage != nil {
		store, err := initStore(cfg, ws, logger)
		if err != nil {
			sc.Cleanup()
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		sc.Store = store
		sc.addCleanup(func() {
			if err := store.Close(); err != nil {
				logger.Error("closing store", slog.String("error", err.Error()))
			}
		})

		if err := store.Migrate(context.Background()); err != nil {
			sc.Cleanup()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	// Command registry and dispatcher.
	monitor := sysmon.New(cfg.Sysinfo.CPUSample())
	registry := shell.DefaultRegistry(monitor, shell.Options{
		ProcessLimit: cfg.Sysinfo.Processes(),
	})
	sc.Dispatcher = shell.NewDispatcher(registry, logger)
	logger.Debug("command registry initialized", slog.Int("commands", len(registry.Names())))

	// Rate limiter, shared between the HTTP gateway and the session
	// manager's eviction hook so evicted sessions release their buckets.
	if cfg.Gateways.HTTP != nil && cfg.Gateways.HTTP.Enabled {
		sc.Limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.Gateways.HTTP.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.Gateways.HTTP.RateLimit.BurstSize,
		})
	}

	// Session manager.
	var opts []sessions.Option
	if sc.Store != nil {
		opts = append(opts, sessions.WithHistoryStore(sc.Store.History()))
	}
	if m := sessions.NewMetrics(obs.RegistryOrNil()); m != nil {
		opts = append(opts, sessions.WithMetrics(m))
	}
	if sc.Limiter != nil {
		opts = append(opts, sessions.WithEvictHook(sc.Limiter.Forget))
	}
	sc.Manager = sessions.NewManager(sc.Dispatcher, ws.SessionRoot, sessions.Config{
		IdleTTL:     cfg.Sessions.IdleTTL(),
		MaxSessions: cfg.Sessions.MaxCount(),
		SweepSpec:   cfg.Sessions.Sweep(),
	}, logger, opts...)

	stopSweeper, err := sc.Manager.StartSweeper()
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("starting session sweeper: %w", err)
	}
	sc.addCleanup(stopSweeper)
	logger.Debug("session manager initialized",
		slog.String("idle_ttl", cfg.Sessions.IdleTTL().String()),
		slog.Int("max_sessions", cfg.Sessions.MaxCount()),
	)

	// Health checks.
	if obs != nil && obs.Health != nil {
		if sc.Store != nil {
			obs.Health.AddCheck("database", sc.Store.Ping)
		}
		obs.Health.AddCheck("workspace", func(_ context.Context) error {
			return ws.EnsureAll()
		})
	}

	return sc, nil
}

// initStore creates the appropriate storage backend from config.
func initStore(cfg *config.Config, ws *workspace.Workspace, logger *slog.Logger) (storage.Store, error) {
	driver := cfg.Storage.StorageDriver()

	switch driver {
	case storage.DriverPostgres:
		return pgstore.Open(pgstore.Config{DSN: cfg.Storage.DSN}, logger)
	case storage.DriverSQLite:
		dbPath := ws.DatabasePath()
		if cfg.Storage != nil && cfg.Storage.Path != "" {
			dbPath = cfg.Storage.Path
		}
		return sqlitestore.Open(sqlitestore.Config{Path: dbPath}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}
