package model

// AudioFloorBytes is the minimum payload size for a sample to count as
// audio at all. Anything shorter is treated as an absent recording
// (mic opened but nothing usable came back).
const AudioFloorBytes = 1000

// AudioSample is an opaque encoded audio payload captured from the mic.
type AudioSample struct {
	Data []byte
}

// Len returns the payload size in bytes.
func (s AudioSample) Len() int {
	return len(s.Data)
}

// Usable reports whether the sample is long enough to submit to the
// voice backend.
func (s AudioSample) Usable() bool {
	return len(s.Data) >= AudioFloorBytes
}

// CaptureMode selects the completion discipline of a capture.
type CaptureMode int

const (
	// ModeFixed completes when the requested duration elapses.
	// Transcription is best-effort and may come back empty.
	ModeFixed CaptureMode = iota

	// ModeOpenEnded completes when the transcription engine signals
	// end-of-speech; the recorder is still capped by the requested
	// duration so the capture cannot hang.
	ModeOpenEnded
)

func (m CaptureMode) String() string {
	if m == ModeOpenEnded {
		return "open-ended"
	}
	return "fixed"
}

// CaptureResult is the joined outcome of one capture: the recorded audio
// plus whatever the transcriber produced alongside it.
type CaptureResult struct {
	Sample     AudioSample
	Transcript string
}
