package controller_test

import (
	"context"
	"sync"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/speech"
	"github.com/NicolasHaas/homevoice/pkg/voiceid"
)

// fakeClock records sleeps and fires scheduled callbacks on demand, so
// the timing choreography is tested without real waiting.
type fakeClock struct {
	mu      sync.Mutex
	sleeps  []time.Duration
	pending []func()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) func() bool {
	c.mu.Lock()
	idx := len(c.pending)
	c.pending = append(c.pending, f)
	c.mu.Unlock()
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.pending) && c.pending[idx] != nil {
			c.pending[idx] = nil
			return true
		}
		return false
	}
}

// fire runs every pending callback (simulating the revert delay elapsing).
func (c *fakeClock) fire() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range pending {
		if f != nil {
			f()
		}
	}
}

// authScript is one scripted per-profile authenticate outcome.
type authScript struct {
	res *voiceid.AuthenticateResult
	err error
}

// fakeBackend scripts every voice-backend operation and records calls.
type fakeBackend struct {
	mu sync.Mutex

	auth      map[string]authScript
	authCalls []string

	enrollErr      error
	enrollProfiles []string

	challenge    *voiceid.Challenge
	challengeErr error

	verify      *voiceid.VerifyResult
	verifyErr   error
	verifyCalls []verifyCall
}

type verifyCall struct {
	sessionID string
	sample    model.AudioSample
	spoken    string
}

func (b *fakeBackend) Enroll(_ context.Context, profileID string, _ [3]model.AudioSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enrollProfiles = append(b.enrollProfiles, profileID)
	return b.enrollErr
}

func (b *fakeBackend) Authenticate(_ context.Context, profileID string, _ model.AudioSample) (*voiceid.AuthenticateResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authCalls = append(b.authCalls, profileID)
	s := b.auth[profileID]
	return s.res, s.err
}

func (b *fakeBackend) StartChallenge(_ context.Context, _ string) (*voiceid.Challenge, error) {
	return b.challenge, b.challengeErr
}

func (b *fakeBackend) VerifyChallenge(_ context.Context, sessionID string, sample model.AudioSample, spokenText string) (*voiceid.VerifyResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifyCalls = append(b.verifyCalls, verifyCall{sessionID: sessionID, sample: sample, spoken: spokenText})
	return b.verify, b.verifyErr
}

// captureStep is one scripted capture outcome.
type captureStep struct {
	res *model.CaptureResult
	err error
}

// fakeCapturer plays back a queue of capture outcomes.
type fakeCapturer struct {
	mu    sync.Mutex
	queue []captureStep
	calls []speech.Request
}

func (c *fakeCapturer) Capture(_ context.Context, req speech.Request) (*model.CaptureResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	if len(c.queue) == 0 {
		return &model.CaptureResult{}, nil
	}
	step := c.queue[0]
	c.queue = c.queue[1:]
	return step.res, step.err
}

// fakeSynth records spoken prompts.
type fakeSynth struct {
	mu     sync.Mutex
	spoken []string
}

func (s *fakeSynth) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

// fakePrompter returns a scripted PIN.
type fakePrompter struct {
	pin    string
	err    error
	asked  int
	wasNew bool
}

func (p *fakePrompter) RequestPIN(_ context.Context, isNew bool) (string, error) {
	p.asked++
	p.wasNew = isNew
	return p.pin, p.err
}

func usableSample(n int) model.AudioSample {
	return model.AudioSample{Data: make([]byte, n)}
}

func newTestConfig() *controller.Config {
	cfg := controller.DefaultConfig()
	cfg.SettleDelay = 0
	cfg.StatusRevertDelay = 0
	return cfg
}
