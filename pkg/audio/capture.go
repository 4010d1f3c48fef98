// Package audio provides microphone capture, Opus encoding, and RMS-based
// voice activity detection for HomeVoice.
package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// CaptureDevice reads mono PCM frames from one input device. Each
// Recorder.Record call opens its own device, so a CaptureDevice lives
// for exactly one utterance.
type CaptureDevice struct {
	stream    *portaudio.Stream
	rate      float64
	frameSize int
	buffer    []int16
	device    string // empty = system default

	mu      sync.Mutex
	running bool
}

// NewCaptureDevice creates a capture device. frameSize is the number of
// samples per frame (960 for 20ms at 48kHz); device may be empty for
// the system default input.
func NewCaptureDevice(rate float64, frameSize int, device string) (*CaptureDevice, error) {
	// Block until the background PreInitAudio has finished.
	WaitPreInit()

	return &CaptureDevice{
		rate:      rate,
		frameSize: frameSize,
		buffer:    make([]int16, frameSize),
		device:    device,
	}, nil
}

// Start opens the input stream. Call ReadFrame to drain it.
func (c *CaptureDevice) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var input *portaudio.DeviceInfo
	if c.device != "" {
		input = FindDevice(c.device)
	}
	if input == nil {
		var err error
		input, err = portaudio.DefaultInputDevice()
		if err != nil {
			return fmt.Errorf("audio: no input device: %w", err)
		}
	}

	params := portaudio.LowLatencyParameters(input, nil)
	params.Input.Channels = 1
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = c.rate
	params.FramesPerBuffer = c.frameSize

	stream, err := portaudio.OpenStream(params, c.buffer)
	if err != nil {
		return fmt.Errorf("audio: open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("audio: start capture: %w", err)
	}

	c.stream = stream
	c.running = true
	slog.Debug("audio capture started", "device", input.Name, "rate", c.rate)
	return nil
}

// ReadFrame blocks until one PCM frame is available and returns a copy.
func (c *CaptureDevice) ReadFrame() ([]int16, error) {
	if err := c.stream.Read(); err != nil {
		return nil, fmt.Errorf("audio: read frame: %w", err)
	}
	frame := make([]int16, len(c.buffer))
	copy(frame, c.buffer)
	return frame, nil
}

// Stop ends the capture and closes the stream. Idempotent.
func (c *CaptureDevice) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false

	if c.stream != nil {
		_ = c.stream.Stop()
		_ = c.stream.Close()
	}
	return nil
}
