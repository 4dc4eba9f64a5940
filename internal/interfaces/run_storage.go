package interfaces

import (
	"context"

	"github.com/ternarybob/saksi/internal/models"
)

// RunStorage persists verification run records for later inspection
type RunStorage interface {
	// SaveRun stores a completed run record
	SaveRun(ctx context.Context, run *models.VerificationRun) error

	// GetRun retrieves a run record by ID
	GetRun(ctx context.Context, id string) (*models.VerificationRun, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*models.VerificationRun, error)

	// Close cleanly shuts down the storage
	Close() error
}
