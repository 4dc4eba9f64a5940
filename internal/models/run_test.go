package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewVerificationRun(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")

	assert.True(t, strings.HasPrefix(run.ID, "run_"))
	assert.Equal(t, "http://localhost:3000/vast-timeline", run.TargetURL)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.Empty(t, run.Steps)
}

func TestRunIDsAreUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
}

func TestRecordStep(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")

	run.RecordStep(StepNavigate, time.Now(), nil)
	run.RecordStep(StepReady, time.Now(), errors.New("ready marker timeout"))

	assert.Len(t, run.Steps, 2)
	assert.True(t, run.Steps[0].OK)
	assert.Empty(t, run.Steps[0].Error)
	assert.False(t, run.Steps[1].OK)
	assert.Equal(t, "ready marker timeout", run.Steps[1].Error)
}

func TestCompleteAllStepsPassed(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")
	run.RecordStep(StepLaunch, time.Now(), nil)
	run.RecordStep(StepNavigate, time.Now(), nil)
	run.RecordStep(StepReady, time.Now(), nil)
	run.Interaction = InteractionOutcome{Attempted: true, OK: true, ImageSrc: "/images/sangiran.jpg"}

	run.Complete()

	assert.Equal(t, RunStatusPassed, run.Status)
	assert.True(t, run.Passed())
	assert.False(t, run.CompletedAt.IsZero())
}

func TestCompleteAbsorbedInteractionFailureDegrades(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")
	run.RecordStep(StepLaunch, time.Now(), nil)
	run.RecordStep(StepNavigate, time.Now(), nil)
	run.RecordStep(StepReady, time.Now(), nil)
	run.Interaction = InteractionOutcome{Attempted: true, OK: false, Reason: "popover image never became visible"}

	run.Complete()

	// Degraded, not failed: the outer flow completed and evidence exists
	assert.Equal(t, RunStatusDegraded, run.Status)
	assert.True(t, run.Passed())
}

func TestCompleteInfrastructureFailure(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")
	run.RecordStep(StepLaunch, time.Now(), nil)
	run.RecordStep(StepNavigate, time.Now(), errors.New("connection refused"))

	run.Complete()

	assert.Equal(t, RunStatusFailed, run.Status)
	assert.False(t, run.Passed())
}

func TestCompleteFailedStepOutweighsInteraction(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")
	run.RecordStep(StepReady, time.Now(), errors.New("timeout"))
	run.Interaction = InteractionOutcome{Attempted: true, OK: true}

	run.Complete()

	assert.Equal(t, RunStatusFailed, run.Status)
}

func TestDuration(t *testing.T) {
	run := NewVerificationRun("http://localhost:3000/vast-timeline")
	run.StartedAt = time.Now().Add(-2 * time.Second)
	run.Complete()

	assert.GreaterOrEqual(t, run.Duration(), 2*time.Second)
}
