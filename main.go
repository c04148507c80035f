package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/cytosol/config"
	"github.com/pthm-cable/cytosol/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	catalogDir := flag.String("catalog", "", "Directory with interaction CSV files (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for medium snapshots saved on bookmarks")
	restore := flag.String("restore", "", "Snapshot file to start from instead of configured seeds")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (0 = unlimited, -1 = use config)")
	workers := flag.Int("workers", 0, "Worker goroutines for per-cell work (0 = use config)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	ticks := cfg.Simulation.MaxTicks
	if *maxTicks >= 0 {
		ticks = *maxTicks
	}

	s, err := sim.New(cfg, sim.Options{
		CatalogDir:  *catalogDir,
		OutputDir:   *outputDir,
		SnapshotDir: *snapshotDir,
		Restore:     *restore,
		Workers:     *workers,
		LogStats:    *logStats,
	})
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting simulation",
		"dt", cfg.Simulation.DT,
		"max_ticks", ticks,
		"output_dir", *outputDir,
	)
	if err := s.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "error", err)
	}
	s.Stats().LogStats()
}
