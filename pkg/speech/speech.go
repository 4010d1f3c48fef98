// Package speech joins audio recording with live transcription into one
// capture operation, and defines the speech I/O interfaces the controller
// consumes.
package speech

import (
	"context"
	"errors"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/audio"
	"github.com/NicolasHaas/homevoice/pkg/model"
)

// ErrCapture marks a recorder failure. A failed transcription never
// produces this error; the capture falls back to audio-only instead.
var ErrCapture = errors.New("speech: capture failed")

// Recorder records one utterance from the microphone.
// *audio.Recorder is the production implementation.
type Recorder interface {
	Record(ctx context.Context, opts audio.RecordOptions) (model.AudioSample, error)
}

// TranscriptEvent is one update from a transcription stream.
type TranscriptEvent struct {
	Text  string
	Final bool // Final carries the authoritative transcript
	Err   error
}

// Transcriber exposes an optional speech-to-text capability. Stream
// starts a recognition pass; the returned channel delivers partial and
// final events and is closed when the engine signals end-of-speech or
// fails. Implementations must respect ctx for shutdown.
type Transcriber interface {
	Stream(ctx context.Context) (<-chan TranscriptEvent, error)
}

// Synthesizer exposes an optional text-to-speech capability.
// Speak blocks until the utterance has been rendered.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Request describes one capture.
type Request struct {
	// MaxDuration is the recording cap. In fixed mode it is the exact
	// capture length; in open-ended mode it is the upper bound.
	MaxDuration time.Duration

	// Mode selects the completion discipline.
	Mode model.CaptureMode
}
