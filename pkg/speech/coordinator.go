package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasHaas/homevoice/pkg/audio"
	"github.com/NicolasHaas/homevoice/pkg/model"
)

// transcriptGrace bounds how long a fixed-duration capture waits for the
// transcriber to settle after the recording itself has completed.
const transcriptGrace = 250 * time.Millisecond

// Coordinator runs a timed audio recording and an independent
// transcription stream as one capture operation. The two tasks start
// nearly simultaneously and have both settled when Capture returns;
// their relative ordering is otherwise unspecified.
type Coordinator struct {
	rec Recorder
	stt Transcriber // nil when the capability is unavailable

	// OnPartial, when set, receives the live transcript while a capture
	// is in progress. Display only; the final transcript is authoritative.
	OnPartial func(text string)
}

// NewCoordinator creates a capture coordinator. stt may be nil.
func NewCoordinator(rec Recorder, stt Transcriber) *Coordinator {
	return &Coordinator{rec: rec, stt: stt}
}

type recordOutcome struct {
	sample model.AudioSample
	err    error
}

type transcriptOutcome struct {
	mu   sync.Mutex
	text string
	done chan struct{}
}

func (t *transcriptOutcome) setText(text string) {
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
}

func (t *transcriptOutcome) lastText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// Capture records audio and transcribes it per the request's mode.
//
// Fixed mode: completion is governed by the timer; the transcript is
// best-effort and may be empty. Open-ended mode: completion is governed
// by the transcription engine's end-of-speech (or the recorder's own
// endpoint when no transcriber is available), capped by MaxDuration.
//
// A transcription failure degrades to audio-only. A recorder failure
// fails the whole capture with ErrCapture.
func (c *Coordinator) Capture(ctx context.Context, req Request) (*model.CaptureResult, error) {
	captureID := uuid.NewString()
	slog.Debug("capture started",
		"id", captureID,
		"mode", req.Mode.String(),
		"max_duration", req.MaxDuration,
	)

	recCh := make(chan recordOutcome, 1)
	go func() {
		sample, err := c.rec.Record(ctx, audio.RecordOptions{
			MaxDuration:   req.MaxDuration,
			StopOnSilence: req.Mode == model.ModeOpenEnded,
		})
		recCh <- recordOutcome{sample: sample, err: err}
	}()

	tr := c.startTranscription(ctx, captureID)

	// Join under the mode's completion discipline. The recorder settles
	// on its own (timer or endpoint), so waiting for it first is safe in
	// both modes.
	rec := <-recCh
	if rec.err != nil {
		// Let the transcription stream settle before reporting; both
		// sub-operations must be done when Capture returns.
		c.awaitTranscript(tr, transcriptGrace)
		return nil, fmt.Errorf("%w: %v", ErrCapture, rec.err)
	}

	var transcript string
	switch req.Mode {
	case model.ModeOpenEnded:
		// Completion is governed by the engine's end-of-speech; the
		// recorder cap has already bounded the overall wait, so allow the
		// stream the same budget again at most.
		transcript = c.awaitTranscript(tr, req.MaxDuration)
	default:
		transcript = c.awaitTranscript(tr, transcriptGrace)
	}

	slog.Debug("capture complete",
		"id", captureID,
		"bytes", rec.sample.Len(),
		"transcript_len", len(transcript),
	)
	return &model.CaptureResult{Sample: rec.sample, Transcript: transcript}, nil
}

// startTranscription launches the transcription task. Returns nil when
// the capability is unavailable or fails to start (audio-only fallback).
func (c *Coordinator) startTranscription(ctx context.Context, captureID string) *transcriptOutcome {
	if c.stt == nil {
		return nil
	}
	events, err := c.stt.Stream(ctx)
	if err != nil {
		slog.Warn("transcription unavailable, falling back to audio-only", "id", captureID, "err", err)
		return nil
	}

	tr := &transcriptOutcome{done: make(chan struct{})}
	go func() {
		defer close(tr.done)
		for ev := range events {
			if ev.Err != nil {
				slog.Warn("transcription error, keeping audio-only capture", "id", captureID, "err", ev.Err)
				continue
			}
			tr.setText(ev.Text)
			if !ev.Final && c.OnPartial != nil {
				c.OnPartial(ev.Text)
			}
		}
	}()
	return tr
}

// awaitTranscript waits for the transcription stream to settle, up to
// the given budget, and returns whatever text it produced.
func (c *Coordinator) awaitTranscript(tr *transcriptOutcome, budget time.Duration) string {
	if tr == nil {
		return ""
	}
	select {
	case <-tr.done:
	case <-time.After(budget):
		slog.Debug("transcription did not settle in time, using last text")
	}
	return tr.lastText()
}
