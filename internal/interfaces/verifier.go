package interfaces

import (
	"context"

	"github.com/ternarybob/saksi/internal/models"
)

// Verifier runs one end-to-end verification pass against the target page.
// Run returns the run record for every outcome that reached the browser;
// the error is non-nil only for infrastructure failures (browser launch,
// navigation, readiness timeout), which abort the pass.
type Verifier interface {
	Run(ctx context.Context) (*models.VerificationRun, error)
}
