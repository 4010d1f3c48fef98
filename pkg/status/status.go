// Package status exposes the daemon's runtime state over HTTP: the
// current session, activity counters, and a liveness probe.
package status

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/model"
)

// Metrics tracks controller activity counters.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	CommandsHeard  atomic.Int64 // listening windows opened
	EnrollmentRuns atomic.Int64 // enrollment protocol runs started
	Verifications  atomic.Int64 // successful challenge verifications
	Denials        atomic.Int64 // denied verifications and navigations
	LockedRefusals atomic.Int64 // navigations refused while locked
	Navigations    atomic.Int64 // successful navigations
	Errors         atomic.Int64 // error statuses surfaced to the user
}

// NewMetrics creates a Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Observe counts one session transition. Wire it to Session.OnChange.
func (m *Metrics) Observe(state controller.State) {
	switch state.Status {
	case model.StatusListening:
		m.CommandsHeard.Add(1)
	case model.StatusEnrolling:
		m.EnrollmentRuns.Add(1)
	case model.StatusVerified:
		m.Verifications.Add(1)
	case model.StatusDenied:
		m.Denials.Add(1)
	case model.StatusLocked:
		m.LockedRefusals.Add(1)
	case model.StatusNavigating:
		m.Navigations.Add(1)
	case model.StatusError:
		m.Errors.Add(1)
	}
}

// Snapshot is a point-in-time view of all counters as a serializable struct.
type Snapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	CommandsHeard  int64 `json:"commands_heard"`
	EnrollmentRuns int64 `json:"enrollment_runs"`
	Verifications  int64 `json:"verifications"`
	Denials        int64 `json:"denials"`
	LockedRefusals int64 `json:"locked_refusals"`
	Navigations    int64 `json:"navigations"`
	Errors         int64 `json:"errors"`
}

// Snapshot returns a read-consistent snapshot of all counters.
func (m *Metrics) Snapshot() Snapshot {
	uptime := time.Since(m.startTime)
	return Snapshot{
		Uptime:         uptime.Truncate(time.Second).String(),
		UptimeSeconds:  int64(uptime.Seconds()),
		CommandsHeard:  m.CommandsHeard.Load(),
		EnrollmentRuns: m.EnrollmentRuns.Load(),
		Verifications:  m.Verifications.Load(),
		Denials:        m.Denials.Load(),
		LockedRefusals: m.LockedRefusals.Load(),
		Navigations:    m.Navigations.Load(),
		Errors:         m.Errors.Load(),
	}
}

// LogSummary writes a counters summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("activity",
		"uptime", s.Uptime,
		"commands", s.CommandsHeard,
		"enrollments", s.EnrollmentRuns,
		"verifications", s.Verifications,
		"denials", s.Denials,
		"navigations", s.Navigations,
		"errors", s.Errors,
	)
}

// StartPeriodicLog starts a goroutine that logs the summary every
// interval until ctx is cancelled.
func (m *Metrics) StartPeriodicLog(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
