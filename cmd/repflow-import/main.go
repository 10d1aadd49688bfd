package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/importer"
	"github.com/claude/repflow/internal/snapshot"
	"github.com/claude/repflow/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	snapshotDir := flag.String("snapshots", "", "snapshot directory (defaults to engine.snapshot_dir)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dir := *snapshotDir
	if dir == "" {
		dir = cfg.Engine.SnapshotDir
	}
	if dir == "" {
		dir = "data"
	}

	snaps, err := snapshot.Open(dir)
	if err != nil {
		log.Error("failed to open snapshot store", "dir", dir, "error", err)
		os.Exit(1)
	}
	defer snaps.Close()

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode — no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Finalize interrupted sessions
	fin := importer.New(snaps, db, log, *dryRun)
	stats, err := fin.Finalize(ctx)
	if err != nil {
		log.Error("finalize failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("finalize complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("finalize stats",
		"snapshots_found", stats.SnapshotsFound,
		"logs_inserted", stats.LogsInserted,
		"skipped", stats.Skipped,
		"errored", stats.Errored,
	)
}
