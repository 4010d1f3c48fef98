package controller

import (
	"context"
	"errors"

	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/speech"
	"github.com/NicolasHaas/homevoice/pkg/voiceid"
)

var (
	// ErrNoAudio means a capture produced no usable audio.
	ErrNoAudio = errors.New("controller: no audio captured")

	// ErrPINRejected means the credential gate refused the entered PIN.
	ErrPINRejected = errors.New("controller: PIN rejected")

	// ErrNoEnrolled means an operation requires at least one enrolled profile.
	ErrNoEnrolled = errors.New("controller: no enrolled profiles")
)

// VoiceBackend is the slice of the voice-recognition service the
// controller drives. *voiceid.Client is the production implementation.
type VoiceBackend interface {
	Enroll(ctx context.Context, profileID string, samples [3]model.AudioSample) error
	Authenticate(ctx context.Context, profileID string, sample model.AudioSample) (*voiceid.AuthenticateResult, error)
	StartChallenge(ctx context.Context, profileID string) (*voiceid.Challenge, error)
	VerifyChallenge(ctx context.Context, sessionID string, sample model.AudioSample, spokenText string) (*voiceid.VerifyResult, error)
}

// Capturer runs one joined audio+transcript capture.
// *speech.Coordinator is the production implementation.
type Capturer interface {
	Capture(ctx context.Context, req speech.Request) (*model.CaptureResult, error)
}

// PINPrompter collects a PIN from the user for the enrollment gate.
type PINPrompter interface {
	// RequestPIN asks for a PIN; isNew indicates first-time setup.
	RequestPIN(ctx context.Context, isNew bool) (string, error)
}
