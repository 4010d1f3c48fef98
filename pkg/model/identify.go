package model

// Decision categorizes a single per-profile authenticate result from
// the voice backend.
type Decision int

const (
	DecisionUnknown Decision = iota
	DecisionMatch
	DecisionMismatch
	// DecisionNoVoiceprint means the backend holds no voiceprint for the
	// profile. Such results are excluded from best-match comparison.
	DecisionNoVoiceprint
)

// ParseDecision maps the backend's decision string to a Decision.
func ParseDecision(s string) Decision {
	switch s {
	case "match":
		return DecisionMatch
	case "mismatch":
		return DecisionMismatch
	case "no_voiceprint":
		return DecisionNoVoiceprint
	default:
		return DecisionUnknown
	}
}

// IdentificationResult is the outcome of scoring one audio sample
// against every enrolled profile.
type IdentificationResult struct {
	// Profile is the best-match profile name, empty if no candidate
	// survived the scan.
	Profile string

	// Confidence of the best match, in [0,1].
	Confidence float64

	// Identified is the authenticated flag of the best match.
	Identified bool

	// Err carries a scan-level failure ("no audio", all calls failed).
	// A partial failure of individual per-profile calls does not set it.
	Err string
}
