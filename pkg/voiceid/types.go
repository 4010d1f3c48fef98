package voiceid

import "github.com/NicolasHaas/homevoice/pkg/model"

// Wire types for the voice-recognition backend. Audio payloads travel
// base64-encoded inside JSON.

type healthResponse struct {
	Ready bool `json:"ready"`
}

type enrollRequest struct {
	ProfileID string   `json:"profile_id"`
	Samples   [][]byte `json:"samples"`
}

type enrollResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type authenticateRequest struct {
	ProfileID string `json:"profile_id"`
	Audio     []byte `json:"audio"`
}

type authenticateResponse struct {
	Authenticated bool    `json:"authenticated"`
	Confidence    float64 `json:"confidence"`
	Decision      string  `json:"decision"`
}

type startChallengeRequest struct {
	ProfileID string `json:"profile_id"`
}

type startChallengeResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Phrase    string `json:"phrase"`
	SessionID string `json:"session_id"`
}

type verifyChallengeRequest struct {
	SessionID  string `json:"session_id"`
	Audio      []byte `json:"audio"`
	SpokenText string `json:"spoken_text"`
}

type verifyChallengeResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	SpeakerMatch bool   `json:"speaker_match"`
	PhraseMatch  bool   `json:"phrase_match"`
}

// AuthenticateResult is one per-profile authenticate outcome.
type AuthenticateResult struct {
	Authenticated bool
	Confidence    float64
	Decision      model.Decision
}

// Challenge is a freshly issued challenge phrase and its backend session.
type Challenge struct {
	Phrase    string
	SessionID string
}

// VerifyResult reports the two independent checks of a challenge response.
type VerifyResult struct {
	SpeakerMatch bool
	PhraseMatch  bool
}
