// Package model defines the core domain types for HomeVoice.
package model

import (
	"errors"
	"time"
)

// DefaultProfile is the built-in profile present in every registry.
// It can never be removed.
const DefaultProfile = "home"

var (
	ErrInvalidPIN     = errors.New("model: PIN must be exactly 4 decimal digits")
	ErrInvalidProfile = errors.New("model: invalid profile name")
)

// Profile represents a named household identity that may be enrolled
// with a voiceprint and later identified by the backend.
type Profile struct {
	Name      string    `json:"name"`
	Enrolled  bool      `json:"enrolled"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidatePIN checks that a PIN is exactly 4 decimal digits.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// ValidateProfileName checks that a profile name is non-empty and within
// the same length bound the registry schema enforces.
func ValidateProfileName(name string) error {
	if name == "" || len(name) > 32 {
		return ErrInvalidProfile
	}
	return nil
}

// Status enumerates the transient session states surfaced to the user.
type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusEnrolling
	StatusVerifying
	StatusVerified
	StatusDenied
	StatusLocked
	StatusNavigating
	StatusHelp
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusListening:
		return "listening"
	case StatusEnrolling:
		return "enrolling"
	case StatusVerifying:
		return "verifying"
	case StatusVerified:
		return "verified"
	case StatusDenied:
		return "denied"
	case StatusLocked:
		return "locked"
	case StatusNavigating:
		return "navigating"
	case StatusHelp:
		return "help"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
