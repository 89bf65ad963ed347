// Command livedev is a terminal client for the live development
// backend. It keeps a local mirror of the project list fed by the live
// event stream and prints every change.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/emergent-labs/livedev/internal/client"
	"github.com/emergent-labs/livedev/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	backend := flag.String("backend", cfg.BackendURL, "backend base URL")
	create := flag.String("create", "", "create a project with this name, then follow it")
	projectType := flag.String("type", "react_app", "project type for -create")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := client.NewSession(client.Options{
		BackendURL:        *backend,
		ReconnectInterval: cfg.ReconnectInterval,
		EventLogCap:       cfg.EventLogCap,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid backend url")
	}
	defer session.Close()

	if err := session.Seed(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch initial state")
	}
	if err := session.Connect(ctx); err != nil {
		logger.Warn().Err(err).Msg("stream connect failed, retrying in background")
	}

	if *create != "" {
		resp, err := session.CreateProject(ctx, *create, *projectType)
		if err != nil {
			logger.Fatal().Err(err).Msg("project creation failed")
		}
		logger.Info().Str("project_id", resp.ProjectID).Msg("project created")
	}

	follow(ctx, session)
	logger.Info().Msg("livedev stopped")
}

// follow prints the project table whenever the local mirror changes,
// until ctx is cancelled.
func follow(ctx context.Context, session *client.Session) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var lastVersion uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		version := session.Store().Version()
		if version == lastVersion {
			continue
		}
		lastVersion = version

		fmt.Printf("\n== projects (stream %s) ==\n", session.Status())
		for _, p := range session.Store().Snapshot() {
			fmt.Printf("%-36s  %-12s %3d%%  %s\n", p.ID, p.Status, p.Progress, p.CurrentStep)
		}
	}
}
