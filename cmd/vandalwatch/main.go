// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

// Package main is the entry point for the vandalwatch bot.
//
// Vandalwatch watches a MediaWiki wiki's recent changes feed, counts
// edit summaries that look like reverts of vandalism over a trailing
// window, and publishes the resulting alert level (5 calm .. 1 severe)
// to an on-wiki status page. The page is only edited when the level
// actually changed, and every edit carries the base revision id so a
// concurrent human edit turns into an edit conflict instead of being
// clobbered.
//
// # Modes
//
// One-shot (default): perform a single reconciliation pass and exit.
// Suitable for cron or a systemd timer.
//
//	vandalwatch
//
// Daemon: run the pass on a fixed interval under a supervision tree,
// optionally serving health, Prometheus metrics and a status snapshot
// over HTTP.
//
//	export MONITOR_MODE=daemon
//	export HTTP_ENABLED=true
//	vandalwatch
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. The required settings are:
//
//	export WIKI_API_URL=https://en.wikipedia.org/w/api.php
//	export WIKI_OAUTH_TOKEN=your-oauth2-access-token
//	export WIKI_REPORT_PAGE="Wikipedia:Vandalism information"
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the run context: one-shot aborts the pass,
// daemon mode drains the HTTP server and stops the supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/vandalwatch/vandalwatch/internal/api"
	"github.com/vandalwatch/vandalwatch/internal/config"
	"github.com/vandalwatch/vandalwatch/internal/defcon"
	"github.com/vandalwatch/vandalwatch/internal/logging"
	"github.com/vandalwatch/vandalwatch/internal/mediawiki"
	"github.com/vandalwatch/vandalwatch/internal/supervisor"
	"github.com/vandalwatch/vandalwatch/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, the default logger has to do.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("mode", cfg.Monitor.Mode).
		Str("api_url", cfg.Wiki.APIURL).
		Str("report_page", cfg.Wiki.ReportPage).
		Dur("window", cfg.Monitor.Window()).
		Bool("dry_run", cfg.Monitor.DryRun).
		Msg("Configuration loaded")

	client := mediawiki.NewCircuitBreakerClient(&cfg.Wiki)
	estimator := defcon.NewRateEstimator(client, cfg.Monitor.Window())
	reconciler := defcon.NewReconciler(client, estimator, defcon.Options{
		ReportPage:    cfg.Wiki.ReportPage,
		BotUser:       cfg.Wiki.BotUser,
		SummaryPrefix: cfg.Wiki.SummaryPrefix,
		DryRun:        cfg.Monitor.DryRun,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Monitor.Mode {
	case config.ModeOneShot:
		if err := runOneShot(ctx, reconciler); err != nil {
			logging.Fatal().Err(err).Msg("Monitoring run failed")
		}
	case config.ModeDaemon:
		runDaemon(ctx, cfg, reconciler)
	default:
		// Validate already rejects unknown modes, this is unreachable.
		logging.Fatal().Str("mode", cfg.Monitor.Mode).Msg("Unknown monitor mode")
	}
}

// runOneShot performs a single reconciliation pass. Every run error is a
// failure, edit conflicts included: the run did not publish, and cron or
// the systemd timer should see a non-zero exit.
func runOneShot(ctx context.Context, reconciler *defcon.Reconciler) error {
	result, err := reconciler.Run(ctx)
	if err != nil {
		return err
	}

	logging.Info().
		Str("run_id", result.RunID).
		Float64("rate_rpm", result.Rate).
		Stringer("level", result.ComputedLevel).
		Bool("changed", result.Changed).
		Msg("Run complete")
	return nil
}

// runDaemon runs the monitor loop (and optionally the HTTP server)
// under the supervision tree until the context is canceled.
func runDaemon(ctx context.Context, cfg *config.Config, reconciler *defcon.Reconciler) {
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	store := api.NewStatusStore()
	tree.AddMonitorService(services.NewMonitorService(reconciler, store, cfg.Monitor.PollInterval))

	if cfg.Server.Enabled {
		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           api.NewRouter(store).Setup(),
			ReadHeaderTimeout: cfg.Server.Timeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server enabled")
	}

	logging.Info().Dur("poll_interval", cfg.Monitor.PollInterval).Msg("Starting supervisor tree")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Shutdown complete")
}
