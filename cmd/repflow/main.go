package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailscale.com/tsnet"

	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/media"
	"github.com/claude/repflow/internal/server"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/snapshot"
	"github.com/claude/repflow/internal/storage"
	"github.com/claude/repflow/internal/suggest"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("Repflow starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Open the local snapshot store for crash recovery
	snapshotDir := cfg.Engine.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = "data"
	}
	snaps, err := snapshot.Open(snapshotDir)
	if err != nil {
		log.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer snaps.Close()

	if entries, err := snaps.List(); err == nil && len(entries) > 0 {
		log.Warn("interrupted sessions found; run repflow-import to finalize them",
			"count", len(entries))
	}

	// Wire the session engine's collaborators
	deps := session.Deps{
		History:   db,
		Persist:   db,
		Snapshots: snaps,
	}
	if cfg.Services.MediaURL != "" {
		deps.Media = media.NewClient(cfg.Services.MediaURL)
	}
	if cfg.Services.SuggestURL != "" {
		deps.Suggest = suggest.NewClient(cfg.Services.SuggestURL)
	}

	engineCfg := session.RunnerConfig{TransitionSeconds: cfg.Engine.TransitionSeconds}

	// Create server
	srv := server.New(db, deps, engineCfg, cfg.Auth.APIKey, log)
	srv.SetPlanDefaults(cfg.Engine.WarmupSeconds, cfg.Engine.StretchSeconds)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
