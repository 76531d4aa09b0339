package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"photobooth"
	"photobooth/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config file, built-in defaults when empty")
	debug := flag.Bool("debug", false, "Log debug messages")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			log.Println("Configuration error:", err)
		}
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger, closeLog, err := photobooth.NewLogger(cfg.LogDir, level)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	booth, err := photobooth.New(cfg, logger)
	if err != nil {
		logger.Error("booth setup failed", "err", err)
		return
	}
	logger.Info("booth starting", "mode", cfg.Mode, "cameras", len(cfg.Cameras))
	if err := booth.Run(ctx); err != nil {
		logger.Error("booth stopped", "err", err)
		return
	}
	logger.Info("booth stopped")
}
