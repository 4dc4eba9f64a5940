package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the overall outcome of a verification run
type RunStatus string

const (
	// RunStatusPassed means the page was ready and the interaction succeeded.
	RunStatusPassed RunStatus = "passed"
	// RunStatusDegraded means the page was ready and evidence was captured,
	// but the click-and-inspect interaction failed. The run still exits zero.
	RunStatusDegraded RunStatus = "degraded"
	// RunStatusFailed means an infrastructure failure (browser launch,
	// navigation, readiness timeout) aborted the run before evidence capture.
	RunStatusFailed RunStatus = "failed"
)

// Step names in execution order
const (
	StepLaunch   = "launch"
	StepNavigate = "navigate"
	StepReady    = "ready"
	StepInteract = "interact"
	StepSettle   = "settle"
	StepCapture  = "capture"
)

// StepResult records one step of the verification sequence
type StepResult struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// InteractionOutcome is the explicit result of the click-and-inspect
// attempt. Failures here are absorbed, not propagated: the unconditional
// settle and capture steps consume this value instead of an error.
type InteractionOutcome struct {
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	ImageSrc  string `json:"image_src,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// VerificationRun is the persisted record of one verification pass
type VerificationRun struct {
	ID             string             `json:"id" badgerhold:"key"`
	TargetURL      string             `json:"target_url"`
	Status         RunStatus          `json:"status"`
	Steps          []StepResult       `json:"steps"`
	Interaction    InteractionOutcome `json:"interaction"`
	ScreenshotPath string             `json:"screenshot_path,omitempty"`
	SnapshotPath   string             `json:"snapshot_path,omitempty"`
	PageErrors     []string           `json:"page_errors,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    time.Time          `json:"completed_at"`
}

// NewRunID generates a unique run ID with the "run_" prefix
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewVerificationRun creates a run record in its initial state
func NewVerificationRun(targetURL string) *VerificationRun {
	return &VerificationRun{
		ID:        NewRunID(),
		TargetURL: targetURL,
		Status:    RunStatusFailed,
		StartedAt: time.Now(),
	}
}

// RecordStep appends a step result. The step error (if any) is reduced
// to text so the record is self-contained when persisted.
func (r *VerificationRun) RecordStep(name string, start time.Time, err error) {
	step := StepResult{
		Name:     name,
		OK:       err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		step.Error = err.Error()
	}
	r.Steps = append(r.Steps, step)
}

// Complete finalizes the run and derives its status: any failed step is
// an infrastructure failure; an absorbed interaction failure degrades
// the run without failing it.
func (r *VerificationRun) Complete() {
	r.CompletedAt = time.Now()

	for _, step := range r.Steps {
		if !step.OK {
			r.Status = RunStatusFailed
			return
		}
	}

	if r.Interaction.Attempted && !r.Interaction.OK {
		r.Status = RunStatusDegraded
		return
	}

	r.Status = RunStatusPassed
}

// Duration returns the elapsed time of the run
func (r *VerificationRun) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Passed reports whether the outer flow completed, regardless of the
// absorbed interaction outcome. This drives the process exit code.
func (r *VerificationRun) Passed() bool {
	return r.Status == RunStatusPassed || r.Status == RunStatusDegraded
}
