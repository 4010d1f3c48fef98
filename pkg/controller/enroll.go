package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/registry"
	"github.com/NicolasHaas/homevoice/pkg/speech"
)

// EnrollPhrases is the fixed 3-phrase capture sequence used to build a
// voiceprint.
var EnrollPhrases = [3]string{
	"my voice unlocks my home",
	"the quick brown fox jumps over the lazy dog",
	"home is where my voice is known",
}

// Enroller drives the enrollment protocol: the PIN gate, the 3-phrase
// prompt/record sequence, and the backend voiceprint build. At most one
// enrollment runs at a time process-wide; this guard is the only
// cross-component mutual exclusion in the system.
type Enroller struct {
	backend  VoiceBackend
	capture  Capturer
	synth    speech.Synthesizer
	prompter PINPrompter
	session  *Session
	registry registry.Registry
	clock    Clock
	cfg      *Config

	active atomic.Bool
}

// NewEnroller creates the enrollment protocol driver.
func NewEnroller(backend VoiceBackend, capture Capturer, synth speech.Synthesizer, prompter PINPrompter, session *Session, reg registry.Registry, clock Clock, cfg *Config) *Enroller {
	return &Enroller{
		backend:  backend,
		capture:  capture,
		synth:    synth,
		prompter: prompter,
		session:  session,
		registry: reg,
		clock:    clock,
		cfg:      cfg,
	}
}

// Run enrolls the named profile. A run already in progress makes Run a
// silent no-op: no state change, no error, no redundant prompts.
func (e *Enroller) Run(ctx context.Context, profile string) error {
	if !e.active.CompareAndSwap(false, true) {
		slog.Debug("enrollment already active, ignoring", "profile", profile)
		return nil
	}
	defer e.active.Store(false)

	if err := e.gate(ctx); err != nil {
		e.session.SetTransient(model.StatusError, err.Error())
		return err
	}

	e.session.Set(model.StatusEnrolling, "enrolling "+profile)

	var samples [3]model.AudioSample
	for i, phrase := range EnrollPhrases {
		if err := e.synth.Speak(ctx, fmt.Sprintf("Please say: %s", phrase)); err != nil {
			slog.Warn("prompt synthesis failed, continuing", "err", err)
		}
		// Settle so the prompt itself is not captured.
		if err := e.clock.Sleep(ctx, e.cfg.SettleDelay); err != nil {
			e.session.SetTransient(model.StatusError, "enrollment cancelled")
			return err
		}

		res, err := e.capture.Capture(ctx, speech.Request{
			MaxDuration: e.cfg.EnrollCaptureTime,
			Mode:        model.ModeFixed,
		})
		if err != nil {
			// No retry: a capture failure aborts the whole run.
			e.session.SetTransient(model.StatusError, fmt.Sprintf("enrollment failed: %v", err))
			return fmt.Errorf("enroll %s phrase %d: %w", profile, i+1, err)
		}
		samples[i] = res.Sample
	}

	if err := e.backend.Enroll(ctx, profile, samples); err != nil {
		e.session.SetTransient(model.StatusError, fmt.Sprintf("enrollment failed: %v", err))
		return fmt.Errorf("enroll %s: %w", profile, err)
	}

	if err := e.registry.MarkEnrolled(profile); err != nil {
		e.session.SetTransient(model.StatusError, fmt.Sprintf("enrollment failed: %v", err))
		return fmt.Errorf("enroll %s: %w", profile, err)
	}

	slog.Info("profile enrolled", "profile", profile)
	e.session.SetTransient(model.StatusDone, profile+" enrolled")
	return nil
}

// gate runs the credential check: first-time setup stores a new PIN,
// otherwise the entered PIN must verify.
func (e *Enroller) gate(ctx context.Context) error {
	hasPIN, err := e.registry.HasPIN()
	if err != nil {
		return fmt.Errorf("credential gate: %w", err)
	}

	pin, err := e.prompter.RequestPIN(ctx, !hasPIN)
	if err != nil {
		return fmt.Errorf("credential gate: %w", err)
	}

	if !hasPIN {
		if err := e.registry.SetPIN(pin); err != nil {
			return fmt.Errorf("credential gate: %w", err)
		}
		return nil
	}

	ok, err := e.registry.VerifyPIN(pin)
	if err != nil {
		return fmt.Errorf("credential gate: %w", err)
	}
	if !ok {
		return ErrPINRejected
	}
	return nil
}
