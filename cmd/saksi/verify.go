package main

import (
	"context"

	"github.com/ternarybob/saksi/internal/interfaces"
	"github.com/ternarybob/saksi/internal/models"
	badgerstorage "github.com/ternarybob/saksi/internal/storage/badger"
	"github.com/ternarybob/saksi/internal/verifier"
)

// openRunStorage opens the run history store when enabled. A nil
// storage means history is off and runs are not persisted.
func openRunStorage() (interfaces.RunStorage, error) {
	if !config.Storage.History {
		return nil, nil
	}

	db, err := badgerstorage.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	return badgerstorage.NewRunStorage(db, logger), nil
}

// runVerify executes a single verification pass. The exit code reflects
// the outer flow only: a recovered interaction failure still exits zero
// because the evidence was captured for human inspection.
func runVerify() int {
	storage, err := openRunStorage()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open run history storage")
		return 1
	}
	if storage != nil {
		defer storage.Close()
	}

	service := verifier.NewService(config, logger, storage)

	run, err := service.Run(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Verification aborted")
		return 1
	}

	if run.Status == models.RunStatusDegraded {
		logger.Warn().
			Str("reason", run.Interaction.Reason).
			Str("screenshot", run.ScreenshotPath).
			Msg("Interaction failed; inspect the captured evidence")
	}

	return 0
}
