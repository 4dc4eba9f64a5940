// -----------------------------------------------------------------------
// Page verification service
// Linear sequence: launch -> navigate -> ready -> interact -> settle ->
// capture -> close. Interaction failures are absorbed; everything after
// the readiness gate runs unconditionally.
// -----------------------------------------------------------------------

package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/saksi/internal/browser"
	"github.com/ternarybob/saksi/internal/common"
	"github.com/ternarybob/saksi/internal/interfaces"
	"github.com/ternarybob/saksi/internal/models"
)

// captureTimeout bounds screenshot and DOM snapshot calls. These run
// after the page is ready, so they only guard against a wedged tab.
const captureTimeout = 15 * time.Second

// Service drives one browser session through the verification sequence
type Service struct {
	config  *common.Config
	logger  arbor.ILogger
	storage interfaces.RunStorage // nil when history is disabled
}

// NewService creates a verifier service. storage may be nil.
func NewService(config *common.Config, logger arbor.ILogger, storage interfaces.RunStorage) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		config:  config,
		logger:  logger,
		storage: storage,
	}
}

// Run executes one verification pass. The returned error is non-nil
// only for infrastructure failures: browser launch, navigation, or the
// readiness wait. An absorbed interaction failure degrades the run but
// does not produce an error.
func (s *Service) Run(ctx context.Context) (*models.VerificationRun, error) {
	run := models.NewVerificationRun(s.config.Target.URL)

	s.logger.Info().
		Str("run_id", run.ID).
		Str("url", run.TargetURL).
		Msg("Starting verification run")

	// Launch. A missing or broken browser invalidates the entire run.
	start := time.Now()
	session, err := browser.NewSession(ctx, &s.config.Browser, s.logger)
	run.RecordStep(models.StepLaunch, start, err)
	if err != nil {
		return s.finish(ctx, run, fmt.Errorf("browser launch failed: %w", err))
	}
	defer session.Close()

	// Navigate to the target page
	start = time.Now()
	err = session.Navigate(run.TargetURL, s.config.Browser.NavTimeout)
	run.RecordStep(models.StepNavigate, start, err)
	if err != nil {
		return s.finish(ctx, run, err)
	}

	// Readiness gate: the marker text appearing is the page-loaded
	// signal. Nothing below runs until it is visible.
	start = time.Now()
	err = session.WaitTextVisible(s.config.Verify.ReadyMarker, s.config.Verify.ReadyTimeout)
	run.RecordStep(models.StepReady, start, err)
	if err != nil {
		return s.finish(ctx, run, fmt.Errorf("readiness marker %q: %w", s.config.Verify.ReadyMarker, err))
	}

	s.logger.Info().Str("marker", s.config.Verify.ReadyMarker).Msg("Page ready")

	// Click and inspect. Failures here are legitimate findings about
	// the page under test, so they are reduced to an outcome value and
	// the run continues to evidence capture.
	start = time.Now()
	run.Interaction = s.interact(session)
	run.RecordStep(models.StepInteract, start, nil)

	// Settle pause, independent of the interaction outcome
	start = time.Now()
	err = session.Settle(s.config.Verify.SettlePause)
	run.RecordStep(models.StepSettle, start, err)
	if err != nil {
		return s.finish(ctx, run, err)
	}

	// Evidence capture, unconditional once the page reached ready
	start = time.Now()
	err = s.capture(session, run)
	run.RecordStep(models.StepCapture, start, err)
	if err != nil {
		return s.finish(ctx, run, err)
	}

	run.PageErrors = session.PageErrors()

	return s.finish(ctx, run, nil)
}

// interact performs the click-and-inspect sequence and absorbs any
// failure into the outcome.
func (s *Service) interact(session *browser.Session) models.InteractionOutcome {
	outcome := models.InteractionOutcome{Attempted: true}
	verify := &s.config.Verify

	if err := session.ClickLastExactText(verify.EventLabel, verify.LabelTimeout); err != nil {
		outcome.Reason = err.Error()
		s.logger.Error().Err(err).Str("label", verify.EventLabel).Msg("Interaction failed")
		return outcome
	}

	s.logger.Debug().Str("label", verify.EventLabel).Msg("Clicked event label")

	src, err := session.VisibleAttribute(verify.PopoverSelector, verify.ImageAttribute, verify.PopoverTimeout)
	if err != nil {
		outcome.Reason = err.Error()
		s.logger.Error().Err(err).Str("selector", verify.PopoverSelector).Msg("Interaction failed")
		return outcome
	}

	outcome.OK = true
	outcome.ImageSrc = src

	s.logger.Info().Str("image_src", src).Msg("Popover image revealed")

	return outcome
}

// finish completes the run record, persists it when history is enabled,
// and logs the result.
func (s *Service) finish(ctx context.Context, run *models.VerificationRun, cause error) (*models.VerificationRun, error) {
	run.Complete()

	if s.storage != nil {
		if err := s.storage.SaveRun(ctx, run); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to persist run record")
		}
	}

	if run.Status == models.RunStatusFailed {
		s.logger.Error().
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Dur("duration", run.Duration()).
			Msg("Verification run finished")
	} else {
		s.logger.Info().
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Str("image_src", run.Interaction.ImageSrc).
			Dur("duration", run.Duration()).
			Msg("Verification run finished")
	}

	return run, cause
}
