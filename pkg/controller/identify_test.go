package controller_test

import (
	"context"
	"errors"
	"testing"

	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/voiceid"

	"github.com/google/go-cmp/cmp"
)

func TestIdentifyOpenGate(t *testing.T) {
	t.Parallel()

	// No one enrolled: any sample passes trivially, even an empty one.
	id := controller.NewIdentifier(&fakeBackend{})

	for name, sample := range map[string]model.AudioSample{
		"usable_sample": usableSample(1500),
		"empty_sample":  {},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := id.Identify(context.Background(), sample, nil)
			want := model.IdentificationResult{Identified: true, Confidence: 1.0}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Identify mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIdentifyNoAudio(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	id := controller.NewIdentifier(backend)

	got := id.Identify(context.Background(), usableSample(10), []string{"home"})
	want := model.IdentificationResult{Err: "no audio"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Identify mismatch (-want +got):\n%s", diff)
	}
	if len(backend.authCalls) != 0 {
		t.Errorf("no backend calls expected for an absent sample, got %v", backend.authCalls)
	}
}

func TestIdentifyBestMatchPrecedence(t *testing.T) {
	t.Parallel()

	type tcase struct {
		auth     map[string]authScript
		enrolled []string
		want     model.IdentificationResult
	}

	tcases := map[string]tcase{
		// An authenticated candidate beats a higher-confidence
		// unauthenticated one.
		"authenticated_wins_over_confidence": {
			auth: map[string]authScript{
				"alice": {res: &voiceid.AuthenticateResult{Authenticated: false, Confidence: 0.9, Decision: model.DecisionMismatch}},
				"bob":   {res: &voiceid.AuthenticateResult{Authenticated: true, Confidence: 0.3, Decision: model.DecisionMatch}},
			},
			enrolled: []string{"alice", "bob"},
			want:     model.IdentificationResult{Profile: "bob", Confidence: 0.3, Identified: true},
		},
		"higher_confidence_wins_among_authenticated": {
			auth: map[string]authScript{
				"alice": {res: &voiceid.AuthenticateResult{Authenticated: true, Confidence: 0.6, Decision: model.DecisionMatch}},
				"bob":   {res: &voiceid.AuthenticateResult{Authenticated: true, Confidence: 0.8, Decision: model.DecisionMatch}},
			},
			enrolled: []string{"alice", "bob"},
			want:     model.IdentificationResult{Profile: "bob", Confidence: 0.8, Identified: true},
		},
		"no_voiceprint_excluded": {
			auth: map[string]authScript{
				"alice": {res: &voiceid.AuthenticateResult{Authenticated: true, Confidence: 0.99, Decision: model.DecisionNoVoiceprint}},
				"bob":   {res: &voiceid.AuthenticateResult{Authenticated: false, Confidence: 0.4, Decision: model.DecisionMismatch}},
			},
			enrolled: []string{"alice", "bob"},
			want:     model.IdentificationResult{Profile: "bob", Confidence: 0.4, Identified: false},
		},
		"call_failure_excluded_scan_continues": {
			auth: map[string]authScript{
				"alice": {err: errors.New("timeout")},
				"bob":   {res: &voiceid.AuthenticateResult{Authenticated: true, Confidence: 0.7, Decision: model.DecisionMatch}},
			},
			enrolled: []string{"alice", "bob"},
			want:     model.IdentificationResult{Profile: "bob", Confidence: 0.7, Identified: true},
		},
		"all_calls_failed": {
			auth: map[string]authScript{
				"alice": {err: errors.New("timeout")},
				"bob":   {err: errors.New("refused")},
			},
			enrolled: []string{"alice", "bob"},
			want:     model.IdentificationResult{Err: "identification unavailable"},
		},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			id := controller.NewIdentifier(&fakeBackend{auth: tc.auth})
			got := id.Identify(context.Background(), usableSample(1500), tc.enrolled)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Identify mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
