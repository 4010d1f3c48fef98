package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/hraban/opus"
)

const (
	opusSampleRate = 48000
	opusChannels   = 1
	opusBitrate    = 64000 // 64 kbps - good quality for voice
	opusFrameSize  = 960   // 20ms at 48kHz
)

// Encoder wraps an Opus encoder tuned for voice samples submitted to the
// voice-recognition backend.
type Encoder struct {
	enc *opus.Encoder
	buf []byte // reusable output buffer
}

// NewEncoder creates a new Opus encoder optimized for voice.
func NewEncoder() (*Encoder, error) {
	enc, err := opus.NewEncoder(opusSampleRate, opusChannels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("audio: new encoder: %w", err)
	}

	_ = enc.SetBitrate(opusBitrate)
	_ = enc.SetDTX(true) // discontinuous transmission saves bytes on silence

	return &Encoder{
		enc: enc,
		buf: make([]byte, 1024), // max Opus frame size
	}, nil
}

// Encode encodes a single PCM frame to Opus. Returns the encoded bytes.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, fmt.Errorf("audio: encode: %w", err)
	}
	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}

// EncodeStream encodes a recording (a sequence of PCM frames) into one
// payload of length-prefixed Opus frames: [uint16 BE length][frame]...
// This is the opaque sample format shipped to the backend.
func (e *Encoder) EncodeStream(frames [][]int16) ([]byte, error) {
	var out []byte
	for _, pcm := range frames {
		data, err := e.Encode(pcm)
		if err != nil {
			return nil, err
		}
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(len(data))) //nolint:gosec // Opus frames are < 64 KiB
		out = append(out, hdr[:]...)
		out = append(out, data...)
	}
	return out, nil
}
