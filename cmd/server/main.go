package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/apexcompute/apex-compute/config"
	"github.com/apexcompute/apex-compute/internal/fastf1"
	"github.com/apexcompute/apex-compute/internal/server"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to config file")
	port := flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// The provider cache is process-wide; enable it once before serving.
	if err := fastf1.EnableCache(cfg.FastF1.CacheDir, cfg.FastF1.CacheTTL()); err != nil {
		slog.Error("Failed to enable FastF1 cache", "dir", cfg.FastF1.CacheDir, "error", err)
		os.Exit(1)
	}
	fastf1.StartCacheCleanup()

	provider := fastf1.NewClient(cfg.FastF1.BaseURL, cfg.FastF1.Timeout())
	srv := server.New(cfg, provider)

	if *port == "" {
		*port = cfg.Server.Port
	}

	slog.Info("Starting Apex Compute API server", "port", *port, "bridge", cfg.FastF1.BaseURL)
	if err := srv.Start(*port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
