package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/saksi/internal/models"
)

// stubVerifier counts runs and can block to simulate a slow pass
type stubVerifier struct {
	runs    atomic.Int32
	blockCh chan struct{}
}

func (v *stubVerifier) Run(ctx context.Context) (*models.VerificationRun, error) {
	v.runs.Add(1)
	if v.blockCh != nil {
		select {
		case <-v.blockCh:
		case <-ctx.Done():
		}
	}
	run := models.NewVerificationRun("http://localhost:3000/vast-timeline")
	run.Complete()
	return run, nil
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&stubVerifier{}, arbor.NewLogger())
	assert.Error(t, s.Start("not a schedule"))
}

func TestScheduledRunsFire(t *testing.T) {
	verifier := &stubVerifier{}
	s := New(verifier, arbor.NewLogger())

	// Every second, seconds-field schedule
	require.NoError(t, s.Start("* * * * * *"))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return verifier.runs.Load() >= 2
	}, 5*time.Second, 100*time.Millisecond)
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	verifier := &stubVerifier{blockCh: make(chan struct{})}
	s := New(verifier, arbor.NewLogger())

	s.RunNow()

	// First pass is still blocked; further triggers must not stack up
	assert.Eventually(t, func() bool {
		return verifier.runs.Load() == 1
	}, 2*time.Second, 50*time.Millisecond)

	s.RunNow()
	s.RunNow()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), verifier.runs.Load())

	close(verifier.blockCh)

	assert.Eventually(t, func() bool {
		return !s.running.Load()
	}, 2*time.Second, 50*time.Millisecond)
}

func TestStopWaitsForImmediateRun(t *testing.T) {
	verifier := &stubVerifier{blockCh: make(chan struct{})}
	s := New(verifier, arbor.NewLogger())

	s.RunNow()
	require.Eventually(t, func() bool {
		return verifier.runs.Load() == 1
	}, 2*time.Second, 50*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// The pass is still blocked; Stop must not return yet
	select {
	case <-stopped:
		t.Fatal("Stop returned while a pass was in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(verifier.blockCh)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the pass finished")
	}
	assert.False(t, s.running.Load())
}

func TestRunNowExecutes(t *testing.T) {
	verifier := &stubVerifier{}
	s := New(verifier, arbor.NewLogger())

	s.RunNow()

	assert.Eventually(t, func() bool {
		return verifier.runs.Load() == 1
	}, 2*time.Second, 50*time.Millisecond)
}
