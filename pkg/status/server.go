package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/voiceid"
)

// HealthChecker reports whether the voice backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

var _ HealthChecker = (*voiceid.Client)(nil)

// Server is a lightweight HTTP server exposing /status (JSON), /metrics
// (Prometheus text exposition format), and /healthz. It runs in the
// background and shuts down when the daemon context is cancelled.
type Server struct {
	addr    string
	session *controller.Session
	backend HealthChecker
	metrics *Metrics
}

// NewServer creates the status server. backend may be nil to skip the
// backend reachability field.
func NewServer(addr string, session *controller.Session, backend HealthChecker, metrics *Metrics) *Server {
	return &Server{addr: addr, session: session, backend: backend, metrics: metrics}
}

// Start binds the server and serves until ctx is cancelled. A no-op when
// the bind address is empty.
func (s *Server) Start(ctx context.Context) {
	if s.addr == "" {
		return // status endpoint disabled
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("status HTTP listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status HTTP error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

type statusView struct {
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	CurrentUser string   `json:"current_user,omitempty"`
	Verified    bool     `json:"verified"`
	Backend     string   `json:"backend,omitempty"`
	Counters    Snapshot `json:"counters"`
}

// handleStatus writes the session state and counters as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.session.State()
	view := statusView{
		Status:      state.Status.String(),
		Message:     state.Message,
		CurrentUser: state.CurrentUser,
		Verified:    state.Verified,
		Counters:    s.metrics.Snapshot(),
	}

	if s.backend != nil {
		hctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.backend.Health(hctx); err != nil {
			view.Backend = "unreachable"
		} else {
			view.Backend = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		slog.Debug("encode status response", "err", err)
	}
}

// handleMetrics writes all counters in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.metrics.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	write("homevoice_uptime_seconds", "Daemon uptime in seconds.", "gauge", snap.UptimeSeconds)
	write("homevoice_commands_heard_total", "Listening windows opened.", "counter", snap.CommandsHeard)
	write("homevoice_enrollment_runs_total", "Enrollment protocol runs started.", "counter", snap.EnrollmentRuns)
	write("homevoice_verifications_total", "Successful challenge verifications.", "counter", snap.Verifications)
	write("homevoice_denials_total", "Denied verifications and navigations.", "counter", snap.Denials)
	write("homevoice_locked_refusals_total", "Navigations refused while locked.", "counter", snap.LockedRefusals)
	write("homevoice_navigations_total", "Successful navigations.", "counter", snap.Navigations)
	write("homevoice_errors_total", "Error statuses surfaced to the user.", "counter", snap.Errors)
}
