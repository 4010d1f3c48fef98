// Package voiceid is the REST client for the external voice-recognition
// backend: voiceprint enrollment, per-profile authentication, and
// challenge-response verification.
package voiceid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/NicolasHaas/homevoice/pkg/model"
)

// ErrUnavailable marks a transport-level backend failure (connection
// refused, timeout, non-2xx without a structured body).
var ErrUnavailable = errors.New("voiceid: backend unavailable")

// Client talks to the voice backend over HTTP+JSON.
//
// The client imposes no request timeout of its own: captures are the
// only time-bounded operations in the controller, so a hung backend is
// surfaced as a stuck non-idle session rather than a spurious retry.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("voiceid: marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("voiceid: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d: %s", ErrUnavailable, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("voiceid: decode %s: %w", path, err)
	}
	return nil
}

// Health checks that the backend is ready to serve requests. A backend
// that is reachable but reports not-ready is an ErrUnavailable, same as
// one that cannot be reached at all.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("voiceid: build /health: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: /health: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: /health: status %d", ErrUnavailable, resp.StatusCode)
	}
	var out healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("voiceid: decode /health: %w", err)
	}
	if !out.Ready {
		return fmt.Errorf("%w: /health: backend not ready", ErrUnavailable)
	}
	return nil
}

// Enroll submits three phrase samples to build a voiceprint for a profile.
// A backend-side rejection is returned as an error carrying its message.
func (c *Client) Enroll(ctx context.Context, profileID string, samples [3]model.AudioSample) error {
	in := enrollRequest{ProfileID: profileID}
	for _, s := range samples {
		in.Samples = append(in.Samples, s.Data)
	}
	var out enrollResponse
	if err := c.post(ctx, "/enroll", in, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("voiceid: enroll rejected: %s", out.Message)
	}
	return nil
}

// Authenticate scores one audio sample against one profile's voiceprint.
func (c *Client) Authenticate(ctx context.Context, profileID string, sample model.AudioSample) (*AuthenticateResult, error) {
	var out authenticateResponse
	err := c.post(ctx, "/authenticate", authenticateRequest{ProfileID: profileID, Audio: sample.Data}, &out)
	if err != nil {
		return nil, err
	}
	return &AuthenticateResult{
		Authenticated: out.Authenticated,
		Confidence:    out.Confidence,
		Decision:      model.ParseDecision(out.Decision),
	}, nil
}

// StartChallenge asks the backend to issue a one-time phrase and session
// for the target profile.
func (c *Client) StartChallenge(ctx context.Context, profileID string) (*Challenge, error) {
	var out startChallengeResponse
	err := c.post(ctx, "/challenge/start", startChallengeRequest{ProfileID: profileID}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("voiceid: start challenge rejected: %s", out.Message)
	}
	return &Challenge{Phrase: out.Phrase, SessionID: out.SessionID}, nil
}

// VerifyChallenge submits the response audio and spoken text for an
// issued challenge. The two match flags are independent.
func (c *Client) VerifyChallenge(ctx context.Context, sessionID string, sample model.AudioSample, spokenText string) (*VerifyResult, error) {
	var out verifyChallengeResponse
	err := c.post(ctx, "/challenge/verify", verifyChallengeRequest{
		SessionID:  sessionID,
		Audio:      sample.Data,
		SpokenText: spokenText,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("voiceid: verify challenge rejected: %s", out.Message)
	}
	return &VerifyResult{SpeakerMatch: out.SpeakerMatch, PhraseMatch: out.PhraseMatch}, nil
}
