package audio_test

import (
	"testing"

	"github.com/NicolasHaas/homevoice/pkg/audio"

	"github.com/google/go-cmp/cmp"
)

func loudFrame(amplitude int16) []int16 {
	frame := make([]int16, 960)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = amplitude
		} else {
			frame[i] = -amplitude
		}
	}
	return frame
}

func silentFrame() []int16 {
	return make([]int16, 960)
}

func TestVADActivation(t *testing.T) {
	t.Parallel()

	type tcase struct {
		threshold float64
		frame     []int16
		want      bool
	}

	tcases := map[string]tcase{
		"silence_below_threshold": {threshold: 200, frame: silentFrame(), want: false},
		"speech_above_threshold":  {threshold: 200, frame: loudFrame(1000), want: true},
		"quiet_hum":               {threshold: 200, frame: loudFrame(100), want: false},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			vad := audio.NewVAD(tc.threshold, 0, 0)
			if got := vad.Process(tc.frame); got != tc.want {
				t.Errorf("Process = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVADHold(t *testing.T) {
	t.Parallel()

	vad := audio.NewVAD(200, 2, 0)
	if !vad.Process(loudFrame(1000)) {
		t.Fatalf("expected active on loud frame")
	}
	// Hold keeps the detector active for two more silent frames.
	if !vad.Process(silentFrame()) {
		t.Fatalf("expected hold to keep first silent frame active")
	}
	if !vad.Process(silentFrame()) {
		t.Fatalf("expected hold to keep second silent frame active")
	}
	if vad.Process(silentFrame()) {
		t.Fatalf("expected inactive once hold expired")
	}
}

func TestVADEndOfSpeech(t *testing.T) {
	t.Parallel()

	vad := audio.NewVAD(200, 0, 0)

	// No speech yet: silence alone is not an endpoint.
	for i := 0; i < 10; i++ {
		vad.Process(silentFrame())
	}
	if vad.EndOfSpeech(3) {
		t.Fatalf("endpoint before any speech")
	}

	vad.Process(loudFrame(1000))
	vad.Process(silentFrame())
	vad.Process(silentFrame())
	if vad.EndOfSpeech(3) {
		t.Fatalf("endpoint after only 2 quiet frames")
	}
	vad.Process(silentFrame())
	if !vad.EndOfSpeech(3) {
		t.Fatalf("expected endpoint after 3 quiet frames")
	}

	vad.Reset()
	if vad.EndOfSpeech(3) {
		t.Fatalf("endpoint survived reset")
	}
}

func TestVADPreBuffer(t *testing.T) {
	t.Parallel()

	vad := audio.NewVAD(200, 0, 2)
	a := loudFrame(100) // below threshold, still pre-buffered
	b := loudFrame(150)
	c := loudFrame(1000)
	vad.Process(a)
	vad.Process(b)
	vad.Process(c)

	got := vad.PreBufferedFrames()
	want := [][]int16{b, c} // ring holds the most recent two
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PreBufferedFrames mismatch (-want +got):\n%s", diff)
	}
}
