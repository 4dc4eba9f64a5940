package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/saksi/internal/scheduler"
	"github.com/ternarybob/saksi/internal/verifier"
)

// runWatch re-runs the verification on the configured cron schedule
// until interrupted. Individual run failures are logged, not fatal:
// watch mode exists to observe the target over time.
func runWatch() int {
	storage, err := openRunStorage()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open run history storage")
		return 1
	}
	if storage != nil {
		defer storage.Close()
	}

	service := verifier.NewService(config, logger, storage)

	sched := scheduler.New(service, logger)
	if err := sched.Start(config.Watch.Schedule); err != nil {
		logger.Error().Err(err).Str("schedule", config.Watch.Schedule).Msg("Invalid watch schedule")
		return 1
	}

	// First pass immediately, then on schedule
	sched.RunNow()

	logger.Info().Str("schedule", config.Watch.Schedule).Msg("Watching - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")
	sched.Stop()

	return 0
}
