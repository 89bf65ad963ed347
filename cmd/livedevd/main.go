// Command livedevd is the live development backend: an HTTP API with a
// websocket event stream, a scripted build simulator and an optional
// file watcher.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/emergent-labs/livedev/internal/config"
	"github.com/emergent-labs/livedev/internal/health"
	"github.com/emergent-labs/livedev/internal/manager"
	"github.com/emergent-labs/livedev/internal/metrics"
	"github.com/emergent-labs/livedev/internal/server"
	"github.com/emergent-labs/livedev/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Bool("watcher_enabled", cfg.WatcherEnabled()).
		Msg("starting livedevd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	collector := metrics.New()

	checker := health.NewChecker(logger)
	checker.Register("db", func(ctx context.Context) health.Status {
		if err := st.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	mgr := manager.New(st, collector, logger)
	if err := mgr.LoadFromStore(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load projects from store")
	}

	sim := manager.NewSimulator(mgr, cfg.SimStepInterval, logger)
	if cfg.SimPlaybookPath != "" {
		if err := sim.LoadPlaybooks(cfg.SimPlaybookPath); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SimPlaybookPath).Msg("failed to load playbooks")
		}
	}

	if cfg.WatcherEnabled() {
		watcher, err := manager.NewWatcher(mgr, cfg.WatchDir, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.WatchDir).Msg("failed to start file watcher")
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	srv := server.New(ctx, server.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, mgr, sim, st, checker, collector, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}

	logger.Info().Msg("livedevd stopped")
}
