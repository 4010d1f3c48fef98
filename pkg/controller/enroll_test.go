package controller_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/registry"
	"github.com/NicolasHaas/homevoice/pkg/speech"

	"github.com/google/go-cmp/cmp"
)

type enrollFixture struct {
	backend  *fakeBackend
	capture  *fakeCapturer
	synth    *fakeSynth
	prompter *fakePrompter
	session  *controller.Session
	registry registry.Registry
	clock    *fakeClock
	enroller *controller.Enroller
}

func newEnrollFixture(t *testing.T, backend *fakeBackend, capture *fakeCapturer, prompter *fakePrompter) *enrollFixture {
	t.Helper()
	clock := &fakeClock{}
	cfg := newTestConfig()
	session := controller.NewSession(clock, cfg.StatusRevertDelay)
	reg := registry.NewMemory()
	synth := &fakeSynth{}
	return &enrollFixture{
		backend:  backend,
		capture:  capture,
		synth:    synth,
		prompter: prompter,
		session:  session,
		registry: reg,
		clock:    clock,
		enroller: controller.NewEnroller(backend, capture, synth, prompter, session, reg, clock, cfg),
	}
}

func goodCaptures(n int) []captureStep {
	steps := make([]captureStep, n)
	for i := range steps {
		steps[i] = captureStep{res: &model.CaptureResult{Sample: usableSample(1500)}}
	}
	return steps
}

func TestEnrollThreeCapturesSucceed(t *testing.T) {
	t.Parallel()

	capture := &fakeCapturer{queue: goodCaptures(3)}
	fx := newEnrollFixture(t, &fakeBackend{}, capture, &fakePrompter{pin: "1234"})

	if err := fx.registry.AddProfile("guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.enroller.Run(context.Background(), "guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exactly 3 fixed-duration captures, one per phrase.
	if len(capture.calls) != 3 {
		t.Fatalf("capture calls = %d, want 3", len(capture.calls))
	}
	for i, req := range capture.calls {
		if req.Mode != model.ModeFixed {
			t.Errorf("capture %d mode = %v, want fixed", i, req.Mode)
		}
	}

	// One prompt per phrase was spoken.
	if len(fx.synth.spoken) != 3 {
		t.Errorf("prompts spoken = %d, want 3", len(fx.synth.spoken))
	}

	enrolled, err := fx.registry.ListEnrolled()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"guest"}, enrolled); diff != "" {
		t.Errorf("enrolled mismatch (-want +got):\n%s", diff)
	}

	if got := fx.session.State().Status; got != model.StatusDone {
		t.Errorf("status = %v, want done", got)
	}

	// First-time setup stored the PIN.
	if !fx.prompter.wasNew {
		t.Errorf("expected first-time PIN setup")
	}
	has, err := fx.registry.HasPIN()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Errorf("PIN was not stored by the gate")
	}
}

func TestEnrollCaptureFailureAborts(t *testing.T) {
	t.Parallel()

	type tcase struct {
		failAt int
	}

	tcases := map[string]tcase{
		"first_capture":  {failAt: 0},
		"second_capture": {failAt: 1},
		"third_capture":  {failAt: 2},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			queue := goodCaptures(tc.failAt)
			queue = append(queue, captureStep{err: errors.New("mic unavailable")})
			capture := &fakeCapturer{queue: queue}
			backend := &fakeBackend{}
			fx := newEnrollFixture(t, backend, capture, &fakePrompter{pin: "1234"})

			if err := fx.registry.AddProfile("guest"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := fx.enroller.Run(context.Background(), "guest"); err == nil {
				t.Fatalf("expected capture failure to abort the run")
			}

			// No backend submission, profile remains unenrolled.
			if len(backend.enrollProfiles) != 0 {
				t.Errorf("enroll must not be submitted after a capture failure")
			}
			enrolled, err := fx.registry.ListEnrolled()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(enrolled) != 0 {
				t.Errorf("profile must remain unenrolled, got %v", enrolled)
			}
			if got := fx.session.State().Status; got != model.StatusError {
				t.Errorf("status = %v, want error", got)
			}

			// The guard was released: a fresh run proceeds.
			capture.mu.Lock()
			capture.queue = goodCaptures(3)
			capture.mu.Unlock()
			if err := fx.enroller.Run(context.Background(), "guest"); err != nil {
				t.Fatalf("guard not released after failure: %v", err)
			}
		})
	}
}

func TestEnrollBackendRejectionFails(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{enrollErr: errors.New("samples too noisy")}
	fx := newEnrollFixture(t, backend, &fakeCapturer{queue: goodCaptures(3)}, &fakePrompter{pin: "1234"})

	if err := fx.registry.AddProfile("guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.enroller.Run(context.Background(), "guest"); err == nil {
		t.Fatalf("expected backend rejection to fail the run")
	}

	enrolled, err := fx.registry.ListEnrolled()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enrolled) != 0 {
		t.Errorf("profile must remain unenrolled after rejection, got %v", enrolled)
	}
}

func TestEnrollWrongPINRefused(t *testing.T) {
	t.Parallel()

	capture := &fakeCapturer{queue: goodCaptures(3)}
	fx := newEnrollFixture(t, &fakeBackend{}, capture, &fakePrompter{pin: "9999"})

	if err := fx.registry.SetPIN("1234"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := fx.enroller.Run(context.Background(), "guest")
	if !errors.Is(err, controller.ErrPINRejected) {
		t.Fatalf("expected ErrPINRejected, got %v", err)
	}
	if len(capture.calls) != 0 {
		t.Errorf("no capture may run before the gate passes")
	}
}

func TestEnrollMutualExclusion(t *testing.T) {
	t.Parallel()

	// The first run blocks inside its first capture until released;
	// the second attempt must be a silent no-op with no state change.
	release := make(chan struct{})
	blocking := newBlockingCapturer(release)
	fx := newEnrollFixture(t, &fakeBackend{}, nil, &fakePrompter{pin: "1234"})
	enroller := controller.NewEnroller(&fakeBackend{}, blocking, fx.synth, fx.prompter, fx.session, fx.registry, fx.clock, newTestConfig())

	if err := fx.registry.AddProfile("guest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = enroller.Run(context.Background(), "guest")
	}()

	<-blocking.started

	// Re-entrant attempt: silently ignored, no error, no capture.
	if err := enroller.Run(context.Background(), "other"); err != nil {
		t.Errorf("re-entrant enrollment must be a silent no-op, got %v", err)
	}
	if got := blocking.calls(); got != 1 {
		t.Errorf("capture calls = %d, want 1 (second run refused)", got)
	}

	close(release)
	wg.Wait()
}

// blockingCapturer blocks its first call until released, so the test
// controls how long the enrollment guard stays held.
type blockingCapturer struct {
	mu      sync.Mutex
	n       int
	release chan struct{}
	started chan struct{}
}

func newBlockingCapturer(release chan struct{}) *blockingCapturer {
	return &blockingCapturer{release: release, started: make(chan struct{})}
}

func (c *blockingCapturer) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *blockingCapturer) Capture(_ context.Context, _ speech.Request) (*model.CaptureResult, error) {
	c.mu.Lock()
	c.n++
	first := c.n == 1
	c.mu.Unlock()
	if first {
		close(c.started)
		<-c.release
	}
	return &model.CaptureResult{Sample: usableSample(1500)}, nil
}
