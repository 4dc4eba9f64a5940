package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/saksi/internal/interfaces"
)

// runTimeout bounds one scheduled verification pass
const runTimeout = 5 * time.Minute

// Scheduler re-runs the verifier on a cron schedule (watch mode)
type Scheduler struct {
	verifier interfaces.Verifier
	cron     *cron.Cron
	logger   arbor.ILogger
	running  atomic.Bool
	inflight sync.WaitGroup
}

// New creates a verification scheduler
func New(verifier interfaces.Verifier, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		verifier: verifier,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start begins scheduled verification
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every 5 minutes
		schedule = "0 */5 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runVerification()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Verification scheduler started")

	return nil
}

// Stop stops the scheduler and waits for any running pass to finish.
// The cron context only covers cron-dispatched jobs, so passes started
// through RunNow are tracked separately and waited on as well.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.inflight.Wait()
	s.logger.Info().Msg("Verification scheduler stopped")
}

// RunNow triggers an immediate verification pass
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate verification run")
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.runVerification()
	}()
}

func (s *Scheduler) runVerification() {
	// A tick that fires while the previous pass is still driving the
	// browser is skipped rather than queued.
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Previous verification still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	run, err := s.verifier.Run(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled verification failed")
		return
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Dur("duration", run.Duration()).
		Msg("Scheduled verification finished")
}
