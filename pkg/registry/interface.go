// Package registry provides the durable credential and profile registry:
// the admin PIN, the profile list, and the enrolled subset.
package registry

import (
	"errors"

	"github.com/NicolasHaas/homevoice/pkg/model"
)

var (
	// ErrDefaultProfile is returned when removing the built-in profile.
	ErrDefaultProfile = errors.New("registry: default profile cannot be removed")

	// ErrUnknownProfile is returned when marking a profile that does not exist.
	ErrUnknownProfile = errors.New("registry: unknown profile")

	// ErrNoPIN is returned when verifying against an unset PIN.
	ErrNoPIN = errors.New("registry: no PIN set")
)

// Registry defines the persistence interface for credentials and profiles.
// Implementations include the default SQLite registry and an in-memory
// registry for tests. The default profile always exists and is never
// removable; profile names are unique.
type Registry interface {
	// Close closes the underlying storage.
	Close() error

	// HasPIN reports whether an admin PIN has been set.
	HasPIN() (bool, error)

	// SetPIN stores a new admin PIN. The PIN must be exactly 4 decimal digits.
	SetPIN(pin string) error

	// VerifyPIN checks a candidate PIN against the stored one.
	// Returns ErrNoPIN if no PIN has been set.
	VerifyPIN(pin string) (bool, error)

	// ListProfiles returns all profiles, default first, then by creation order.
	ListProfiles() ([]model.Profile, error)

	// AddProfile creates a profile. Adding an existing name is a no-op.
	AddProfile(name string) error

	// RemoveProfile deletes a profile and its enrolled membership.
	// Returns ErrDefaultProfile for the default profile.
	RemoveProfile(name string) error

	// ListEnrolled returns the names of profiles with a voiceprint.
	ListEnrolled() ([]string, error)

	// MarkEnrolled records that a profile has a voiceprint.
	MarkEnrolled(name string) error

	// ResetAll clears the PIN and the enrolled set and restores the
	// profile list to just the default profile.
	ResetAll() error
}
