package registry

import (
	"time"

	"github.com/NicolasHaas/homevoice/pkg/crypto"
	"github.com/NicolasHaas/homevoice/pkg/model"
)

// Memory provides an in-memory Registry implementation for tests.
// It mirrors SQLite behavior for validation and error handling.
type Memory struct {
	now func() time.Time

	pinHash string
	pinSalt string

	order    []string
	profiles map[string]*model.Profile
}

var _ Registry = (*Memory)(nil)

// NewMemory creates a Memory registry seeded with the default profile.
func NewMemory() *Memory {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a Memory registry with a custom clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	m := &Memory{
		now:      now,
		profiles: make(map[string]*model.Profile),
	}
	m.addLocked(model.DefaultProfile)
	return m
}

func (m *Memory) addLocked(name string) {
	if _, ok := m.profiles[name]; ok {
		return
	}
	m.profiles[name] = &model.Profile{Name: name, CreatedAt: m.now()}
	m.order = append(m.order, name)
}

// Close is a no-op for Memory.
func (m *Memory) Close() error {
	return nil
}

// HasPIN reports whether an admin PIN has been set.
func (m *Memory) HasPIN() (bool, error) {
	return m.pinHash != "", nil
}

// SetPIN validates and stores a new admin PIN.
func (m *Memory) SetPIN(pin string) error {
	if err := model.ValidatePIN(pin); err != nil {
		return err
	}
	hash, salt, err := crypto.HashPIN(pin)
	if err != nil {
		return err
	}
	m.pinHash, m.pinSalt = hash, salt
	return nil
}

// VerifyPIN checks a candidate PIN against the stored one.
func (m *Memory) VerifyPIN(pin string) (bool, error) {
	if m.pinHash == "" {
		return false, ErrNoPIN
	}
	if err := crypto.VerifyPIN(pin, m.pinHash, m.pinSalt); err != nil {
		if err == crypto.ErrPINMismatch {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListProfiles returns all profiles in creation order, default first.
func (m *Memory) ListProfiles() ([]model.Profile, error) {
	var profiles []model.Profile
	for _, name := range m.order {
		if p, ok := m.profiles[name]; ok {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

// AddProfile creates a profile. Adding an existing name is a no-op.
func (m *Memory) AddProfile(name string) error {
	if err := model.ValidateProfileName(name); err != nil {
		return err
	}
	m.addLocked(name)
	return nil
}

// RemoveProfile deletes a profile and its enrolled membership.
func (m *Memory) RemoveProfile(name string) error {
	if name == model.DefaultProfile {
		return ErrDefaultProfile
	}
	if _, ok := m.profiles[name]; !ok {
		return nil
	}
	delete(m.profiles, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListEnrolled returns the names of profiles with a voiceprint.
func (m *Memory) ListEnrolled() ([]string, error) {
	var names []string
	for _, name := range m.order {
		if p, ok := m.profiles[name]; ok && p.Enrolled {
			names = append(names, name)
		}
	}
	return names, nil
}

// MarkEnrolled records that a profile has a voiceprint.
func (m *Memory) MarkEnrolled(name string) error {
	p, ok := m.profiles[name]
	if !ok {
		return ErrUnknownProfile
	}
	p.Enrolled = true
	return nil
}

// ResetAll clears the PIN and enrolled set and restores [default].
func (m *Memory) ResetAll() error {
	m.pinHash, m.pinSalt = "", ""
	m.profiles = make(map[string]*model.Profile)
	m.order = nil
	m.addLocked(model.DefaultProfile)
	return nil
}
