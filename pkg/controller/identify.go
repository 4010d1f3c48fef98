package controller

import (
	"context"
	"log/slog"

	"github.com/NicolasHaas/homevoice/pkg/model"
)

// Identifier scores one audio sample against every enrolled profile and
// picks a best match.
type Identifier struct {
	backend VoiceBackend
}

// NewIdentifier creates a speaker identifier.
func NewIdentifier(backend VoiceBackend) *Identifier {
	return &Identifier{backend: backend}
}

// Identify runs per-profile authentication and tracks a running best
// match. Precedence: an authenticated candidate beats a non-authenticated
// one regardless of confidence; within the same authenticated-ness,
// higher confidence wins. Profiles without a voiceprint and per-profile
// call failures are excluded from comparison; the scan continues.
func (id *Identifier) Identify(ctx context.Context, sample model.AudioSample, enrolled []string) model.IdentificationResult {
	if len(enrolled) == 0 {
		// Open gate: no one is enrolled, so there is nothing to check.
		return model.IdentificationResult{Identified: true, Confidence: 1.0}
	}
	if !sample.Usable() {
		return model.IdentificationResult{Err: "no audio"}
	}

	var (
		best      model.IdentificationResult
		haveMatch bool
		failures  int
	)
	for _, profile := range enrolled {
		res, err := id.backend.Authenticate(ctx, profile, sample)
		if err != nil {
			slog.Warn("authenticate call failed, excluding profile from scan",
				"profile", profile, "err", err)
			failures++
			continue
		}
		if res.Decision == model.DecisionNoVoiceprint {
			continue
		}

		better := !haveMatch ||
			(res.Authenticated && !best.Identified) ||
			(res.Authenticated == best.Identified && res.Confidence > best.Confidence)
		if better {
			best = model.IdentificationResult{
				Profile:    profile,
				Confidence: res.Confidence,
				Identified: res.Authenticated,
			}
			haveMatch = true
		}
	}

	if !haveMatch && failures > 0 {
		// Every comparable call failed: a scan-level backend error, not
		// a benign mismatch.
		return model.IdentificationResult{Err: "identification unavailable"}
	}
	return best
}
