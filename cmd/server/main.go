package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/mwhitford/jobops/internal/app"
	"github.com/mwhitford/jobops/internal/config"
	"github.com/mwhitford/jobops/pkg/logging"
	"github.com/mwhitford/jobops/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "err", err)
		os.Exit(1)
	}

	go shutdown.Graceful(
		[]os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP},
		a,
		10*time.Second,
		logger,
	)

	logger.Info("pipeline core starting",
		"db", cfg.DBPath, "run_at", cfg.RunAt.String(), "feeds", len(cfg.FeedURLs))

	if err := a.Run(); err != nil {
		logger.Error("scheduler exited with error", "err", err)
	} else {
		logger.Info("pipeline core stopped")
	}
}
