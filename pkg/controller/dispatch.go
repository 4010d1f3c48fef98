package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/registry"
	"github.com/NicolasHaas/homevoice/pkg/router"
	"github.com/NicolasHaas/homevoice/pkg/speech"
)

// Intent classifies a transcript.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentEnroll
	IntentAuthenticate
	IntentHelp
	IntentReset
	IntentNavigate
)

func (i Intent) String() string {
	switch i {
	case IntentEnroll:
		return "enroll"
	case IntentAuthenticate:
		return "authenticate"
	case IntentHelp:
		return "help"
	case IntentReset:
		return "reset"
	case IntentNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// Classification is the outcome of matching a transcript against the
// ordered intent rules.
type Classification struct {
	Intent Intent

	// Target is the profile name extracted from an enroll command,
	// defaulting to the built-in profile.
	Target string

	// Destination is set for navigate intents.
	Destination *Destination
}

// enrollStopWords are tokens that never name an enrollment target.
var enrollStopWords = map[string]bool{
	"enroll": true, "voice": true, "profile": true, "my": true,
	"me": true, "please": true, "user": true, "for": true,
	"a": true, "new": true, "the": true, "as": true,
}

const helpText = "say enroll to add a voice, verify to unlock, " +
	"or name a destination like home, sensors, notifications, profile, settings; " +
	"say reset all to start over"

// Classify matches a transcript against the fixed-precedence intent
// rules; the first match wins.
func Classify(transcript string, destinations []Destination) Classification {
	text := strings.ToLower(strings.TrimSpace(transcript))

	if strings.Contains(text, "enroll") {
		return Classification{Intent: IntentEnroll, Target: enrollTarget(text)}
	}

	for _, kw := range []string{"verify", "authenticate", "login", "unlock"} {
		if strings.Contains(text, kw) {
			return Classification{Intent: IntentAuthenticate}
		}
	}

	if strings.Contains(text, "help") || strings.Contains(text, "what can") {
		return Classification{Intent: IntentHelp}
	}

	if strings.Contains(text, "reset") && strings.Contains(text, "all") {
		return Classification{Intent: IntentReset}
	}

	for i := range destinations {
		for _, kw := range destinations[i].Keywords {
			if strings.Contains(text, kw) {
				return Classification{Intent: IntentNavigate, Destination: &destinations[i]}
			}
		}
	}

	return Classification{Intent: IntentUnknown}
}

// enrollTarget extracts the optional profile name from an enroll
// command: the first token that is not a stop word.
func enrollTarget(text string) string {
	for _, token := range strings.Fields(text) {
		if !enrollStopWords[strings.Trim(token, ".,!?")] {
			return strings.Trim(token, ".,!?")
		}
	}
	return model.DefaultProfile
}

// Dispatcher classifies transcripts into intents and executes them,
// gating security-sensitive intents on the session's verification state.
type Dispatcher struct {
	session    *Session
	registry   registry.Registry
	enroller   *Enroller
	verifier   *Verifier
	identifier *Identifier
	router     router.Router
	synth      speech.Synthesizer
	capture    Capturer
	cfg        *Config
}

// NewDispatcher wires the command dispatcher.
func NewDispatcher(session *Session, reg registry.Registry, enroller *Enroller, verifier *Verifier, identifier *Identifier, rt router.Router, synth speech.Synthesizer, capture Capturer, cfg *Config) *Dispatcher {
	return &Dispatcher{
		session:    session,
		registry:   reg,
		enroller:   enroller,
		verifier:   verifier,
		identifier: identifier,
		router:     rt,
		synth:      synth,
		capture:    capture,
		cfg:        cfg,
	}
}

// ListenOnce captures one free-form command (open-ended) and handles it.
func (d *Dispatcher) ListenOnce(ctx context.Context) error {
	d.session.Set(model.StatusListening, "listening")
	res, err := d.capture.Capture(ctx, speech.Request{
		MaxDuration: d.cfg.ListenCaptureMax,
		Mode:        model.ModeOpenEnded,
	})
	if err != nil {
		d.session.SetTransient(model.StatusError, fmt.Sprintf("capture failed: %v", err))
		return err
	}
	return d.Handle(ctx, res.Transcript, res.Sample)
}

// Handle executes the intent classified from a transcript. The sample,
// when usable, is the audio captured alongside the command and is used
// to re-identify the speaker before navigation.
func (d *Dispatcher) Handle(ctx context.Context, transcript string, sample model.AudioSample) error {
	cls := Classify(transcript, d.cfg.Destinations)
	slog.Debug("command classified", "intent", cls.Intent.String(), "transcript", transcript)

	switch cls.Intent {
	case IntentEnroll:
		// New names are added to the registry before the protocol runs.
		if err := d.registry.AddProfile(cls.Target); err != nil {
			d.session.SetTransient(model.StatusError, fmt.Sprintf("cannot enroll: %v", err))
			return err
		}
		return d.enroller.Run(ctx, cls.Target)

	case IntentAuthenticate:
		return d.verifier.Run(ctx)

	case IntentHelp:
		d.session.SetTransient(model.StatusHelp, helpText)
		return nil

	case IntentReset:
		if err := d.registry.ResetAll(); err != nil {
			d.session.SetTransient(model.StatusError, fmt.Sprintf("reset failed: %v", err))
			return err
		}
		d.session.SignOut()
		d.session.SetTransient(model.StatusDone, "everything reset")
		slog.Info("full reset performed")
		return nil

	case IntentNavigate:
		return d.navigate(ctx, cls.Destination, sample)

	default:
		d.session.SetTransient(model.StatusIdle, "not understood, say help for commands")
		return nil
	}
}

// navigate gates a destination behind verification and, when possible,
// a fresh speaker identification of the command audio.
func (d *Dispatcher) navigate(ctx context.Context, dest *Destination, sample model.AudioSample) error {
	state := d.session.State()
	if !state.Verified {
		d.session.SetTransient(model.StatusLocked, "locked: say verify to unlock")
		return nil
	}

	enrolled, err := d.registry.ListEnrolled()
	if err != nil {
		d.session.SetTransient(model.StatusError, fmt.Sprintf("navigation failed: %v", err))
		return err
	}

	if len(enrolled) > 0 && sample.Usable() {
		res := d.identifier.Identify(ctx, sample, enrolled)
		switch {
		case res.Err != "":
			// Fail-open: a transient backend failure must not lock the
			// user out of navigation.
			slog.Warn("identification error during navigation, proceeding", "err", res.Err)
		case !res.Identified:
			d.session.SetTransient(model.StatusDenied,
				fmt.Sprintf("voice not recognized (confidence %.2f)", res.Confidence))
			return nil
		}
	}

	if err := d.router.Navigate(dest.Path); err != nil {
		d.session.SetTransient(model.StatusError, fmt.Sprintf("navigation failed: %v", err))
		return err
	}
	if err := d.synth.Speak(ctx, dest.Name); err != nil {
		slog.Debug("destination announcement failed", "err", err)
	}
	d.session.SetTransient(model.StatusNavigating, "navigating to "+dest.Name)
	return nil
}
