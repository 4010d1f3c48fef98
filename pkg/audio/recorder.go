package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/model"
)

const (
	defaultVADThreshold = 200
	defaultHoldFrames   = 15 // 300ms at 20ms/frame
	defaultPreBufFrames = 3  // 60ms
	defaultQuietFrames  = 50 // 1s of trailing silence ends an open capture
)

// Recorder records one utterance from the microphone and returns it as
// an Opus-framed AudioSample. Each Record call opens a fresh capture
// stream; a recording in progress always runs to its natural completion.
type Recorder struct {
	deviceName   string
	vadThreshold float64
	quietFrames  int

	// OnLevel, when set, receives the RMS of every captured frame.
	OnLevel func(rms float64)
}

// NewRecorder creates a microphone recorder. deviceName may be empty to
// use the system default input; vadThreshold <= 0 uses the default.
func NewRecorder(deviceName string, vadThreshold float64) *Recorder {
	if vadThreshold <= 0 {
		vadThreshold = defaultVADThreshold
	}
	return &Recorder{
		deviceName:   deviceName,
		vadThreshold: vadThreshold,
		quietFrames:  defaultQuietFrames,
	}
}

// RecordOptions controls a single recording.
type RecordOptions struct {
	// MaxDuration caps the recording length.
	MaxDuration time.Duration

	// StopOnSilence ends the recording early once speech has been heard
	// and is followed by sustained silence (open-ended captures).
	StopOnSilence bool
}

// Record captures audio until the duration cap elapses or, with
// StopOnSilence, until end-of-speech. Returns the encoded sample.
func (r *Recorder) Record(ctx context.Context, opts RecordOptions) (model.AudioSample, error) {
	dev, err := NewCaptureDevice(opusSampleRate, opusFrameSize, r.deviceName)
	if err != nil {
		return model.AudioSample{}, fmt.Errorf("audio: record: %w", err)
	}
	if err := dev.Start(); err != nil {
		return model.AudioSample{}, fmt.Errorf("audio: record: %w", err)
	}
	defer func() {
		if err := dev.Stop(); err != nil {
			slog.Debug("stop capture device", "err", err)
		}
	}()

	enc, err := NewEncoder()
	if err != nil {
		return model.AudioSample{}, fmt.Errorf("audio: record: %w", err)
	}

	vad := NewVAD(r.vadThreshold, defaultHoldFrames, defaultPreBufFrames)
	deadline := time.Now().Add(opts.MaxDuration)

	var frames [][]int16
	started := false

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return model.AudioSample{}, ctx.Err()
		default:
		}

		pcm, err := dev.ReadFrame()
		if err != nil {
			return model.AudioSample{}, fmt.Errorf("audio: record: %w", err)
		}

		if r.OnLevel != nil {
			r.OnLevel(GetRMS(pcm))
		}

		active := vad.Process(pcm)
		if active && !started {
			// Prepend the pre-buffer so the first syllable is not clipped.
			frames = append(frames, vad.PreBufferedFrames()...)
			started = true
			continue
		}
		if started {
			frames = append(frames, pcm)
		}

		if opts.StopOnSilence && vad.EndOfSpeech(r.quietFrames) {
			slog.Debug("end of speech detected", "frames", len(frames))
			break
		}
	}

	payload, err := enc.EncodeStream(frames)
	if err != nil {
		return model.AudioSample{}, fmt.Errorf("audio: record: %w", err)
	}
	return model.AudioSample{Data: payload}, nil
}
