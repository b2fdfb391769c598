package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatherline/fulfil/internal/adapter/inbound/httpapi"
	"github.com/gatherline/fulfil/internal/adapter/outbound/memory"
	"github.com/gatherline/fulfil/internal/adapter/outbound/redisstore"
	"github.com/gatherline/fulfil/internal/adapter/outbound/sqlite"
	"github.com/gatherline/fulfil/internal/config"
	"github.com/gatherline/fulfil/internal/domain/fulfilment"
	"github.com/gatherline/fulfil/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the engine server",
	Long: `Start the fulfilment engine HTTP server.

The session store backend is selected via storage.backend:

  memory    In-process map. Sessions are lost on restart. Default.
  sqlite    Single-file database, survives restarts.
  redis     Shared store for running multiple fulfild instances.

Examples:
  # Start with config file settings
  fulfild start

  # Start with a specific config file
  fulfild --config /path/to/config.yaml start

  # Start with the sqlite backend
  FULFILD_STORAGE_BACKEND=sqlite fulfild start`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Signal context for graceful shutdown. stop() restores default signal
	// handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("fulfild stopped")
	return nil
}

// run wires the store, engine, and HTTP server together and blocks until
// the context is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, pinger, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := service.NewStatsService()
	engine := fulfilment.NewService(store, fulfilment.Config{
		TTL:   cfg.SessionTTL(),
		Stats: stats,
	}, logger)

	registry := httpapi.Registry()
	metrics := httpapi.NewMetrics(registry)
	handler := httpapi.NewHandler(engine, stats, metrics, logger)

	health := httpapi.NewHealthChecker(cfg.Storage.Backend, pinger, Version)

	server := httpapi.NewServer(handler,
		httpapi.WithAddr(cfg.Server.HTTPAddr),
		httpapi.WithLogger(logger),
		httpapi.WithHealthChecker(health),
	)
	server.SetRegistry(registry)

	logger.Info("engine configured",
		"backend", cfg.Storage.Backend,
		"session_ttl", cfg.Session.TTL,
		"cleanup_interval", cfg.Session.CleanupInterval,
	)

	return server.Start(ctx)
}

// buildStore creates the session store for the configured backend.
// It returns the store, an optional liveness pinger for /health, and a
// cleanup function to run at shutdown.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (fulfilment.SessionStore, httpapi.Pinger, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		store := memory.NewSessionStoreWithConfig(cfg.SessionCleanupInterval(), logger)
		store.StartCleanup(ctx)
		return store, nil, store.Stop, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("sqlite store opened", "path", cfg.Storage.SQLitePath)
		stopSweep := startSQLiteSweep(ctx, store, cfg.SessionCleanupInterval(), logger)
		cleanup := func() {
			stopSweep()
			if err := store.Close(); err != nil {
				logger.Warn("failed to close sqlite store", "error", err)
			}
		}
		return store, store, cleanup, nil

	case "redis":
		store, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("redis store connected", "addr", cfg.Storage.Redis.Addr)
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close redis store", "error", err)
			}
		}
		return store, store, cleanup, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

// startSQLiteSweep periodically purges expired rows. Redis needs no sweep
// (keys carry their own TTL) and the memory store runs its own.
func startSQLiteSweep(ctx context.Context, store *sqlite.SessionStore, interval time.Duration, logger *slog.Logger) func() {
	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				purged, err := store.PurgeExpired(sweepCtx)
				if err != nil {
					logger.Warn("failed to purge expired sessions", "error", err)
					continue
				}
				if purged > 0 {
					logger.Debug("purged expired sessions", "count", purged)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
