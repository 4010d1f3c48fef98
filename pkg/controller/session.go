// Package controller implements the voice-gated command controller: the
// session, the enrollment and challenge-response state machines, speaker
// identification, and the command dispatcher.
package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/model"
)

// State is a point-in-time view of the session.
type State struct {
	Status      model.Status
	Message     string
	CurrentUser string
	Verified    bool
}

// Session holds the controller's transient status and its persistent
// verification binding. Transient statuses self-clear after the revert
// delay; Verified and CurrentUser persist until sign-out, reset, or
// process end.
type Session struct {
	mu          sync.Mutex
	clock       Clock
	revertDelay time.Duration

	status      model.Status
	message     string
	currentUser string
	verified    bool

	stopRevert func() bool

	// OnChange, when set, receives every state transition.
	OnChange func(state State)
}

// NewSession creates an idle session.
func NewSession(clock Clock, revertDelay time.Duration) *Session {
	return &Session{
		clock:       clock,
		revertDelay: revertDelay,
		status:      model.StatusIdle,
	}
}

// Set updates the status without scheduling a revert. Used for
// in-progress states (listening, enrolling, verifying).
func (s *Session) Set(status model.Status, message string) {
	s.mu.Lock()
	s.cancelRevertLocked()
	s.status = status
	s.message = message
	state := s.stateLocked()
	s.mu.Unlock()
	s.notify(state)
}

// SetTransient updates the status and schedules the revert to idle.
func (s *Session) SetTransient(status model.Status, message string) {
	s.mu.Lock()
	s.cancelRevertLocked()
	s.status = status
	s.message = message
	s.stopRevert = s.clock.AfterFunc(s.revertDelay, s.revert)
	state := s.stateLocked()
	s.mu.Unlock()
	s.notify(state)
}

func (s *Session) revert() {
	s.mu.Lock()
	s.status = model.StatusIdle
	s.message = ""
	s.stopRevert = nil
	state := s.stateLocked()
	s.mu.Unlock()
	s.notify(state)
}

// SetVerified binds the current user and marks the session verified.
// This state persists; it does not auto-revert.
func (s *Session) SetVerified(user string) {
	s.mu.Lock()
	s.cancelRevertLocked()
	s.status = model.StatusVerified
	s.message = "verified as " + user
	s.currentUser = user
	s.verified = true
	state := s.stateLocked()
	s.mu.Unlock()
	slog.Info("session verified", "user", user)
	s.notify(state)
}

// SignOut clears the verification binding and returns to idle.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.cancelRevertLocked()
	s.status = model.StatusIdle
	s.message = ""
	s.currentUser = ""
	s.verified = false
	state := s.stateLocked()
	s.mu.Unlock()
	s.notify(state)
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		Status:      s.status,
		Message:     s.message,
		CurrentUser: s.currentUser,
		Verified:    s.verified,
	}
}

func (s *Session) cancelRevertLocked() {
	if s.stopRevert != nil {
		s.stopRevert()
		s.stopRevert = nil
	}
}

func (s *Session) notify(state State) {
	if s.OnChange != nil {
		s.OnChange(state)
	}
}
