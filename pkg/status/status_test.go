package status_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/logging"
	"github.com/NicolasHaas/homevoice/pkg/model"
	"github.com/NicolasHaas/homevoice/pkg/status"
)

type stubClock struct{}

func (stubClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func (stubClock) AfterFunc(_ time.Duration, _ func()) func() bool {
	return func() bool { return true }
}

type stubHealth struct{ err error }

func (h stubHealth) Health(_ context.Context) error { return h.err }

func TestMetricsObserve(t *testing.T) {
	t.Parallel()

	m := status.NewMetrics()
	for _, st := range []model.Status{
		model.StatusListening,
		model.StatusListening,
		model.StatusVerified,
		model.StatusDenied,
		model.StatusNavigating,
		model.StatusIdle, // not counted
	} {
		m.Observe(controller.State{Status: st})
	}

	snap := m.Snapshot()
	if snap.CommandsHeard != 2 {
		t.Errorf("commands heard = %d, want 2", snap.CommandsHeard)
	}
	if snap.Verifications != 1 || snap.Denials != 1 || snap.Navigations != 1 {
		t.Errorf("unexpected counters: %+v", snap)
	}
	if snap.Errors != 0 || snap.EnrollmentRuns != 0 {
		t.Errorf("idle transitions must not count, got %+v", snap)
	}
}

func TestLogSummary(t *testing.T) {
	var buf strings.Builder
	if err := logging.Setup(logging.Options{Level: "info", Output: &buf}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		_ = logging.Setup(logging.Options{})
	}()

	m := status.NewMetrics()
	m.Observe(controller.State{Status: model.StatusVerified})
	m.Observe(controller.State{Status: model.StatusDenied})
	m.LogSummary()

	out := buf.String()
	for _, want := range []string{"activity", "verifications=1", "denials=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	type tcase struct {
		health      error
		wantBackend string
	}

	tcases := map[string]tcase{
		"backend_ok":          {health: nil, wantBackend: "ok"},
		"backend_unreachable": {health: errors.New("refused"), wantBackend: "unreachable"},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			session := controller.NewSession(stubClock{}, time.Second)
			session.SetVerified("home")
			metrics := status.NewMetrics()
			srv := httptest.NewServer(status.NewServer("", session, stubHealth{err: tc.health}, metrics).Handler())
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/status")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()

			var view struct {
				Status      string `json:"status"`
				CurrentUser string `json:"current_user"`
				Verified    bool   `json:"verified"`
				Backend     string `json:"backend"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
				t.Fatalf("decode status: %v", err)
			}
			if view.Status != "verified" || !view.Verified || view.CurrentUser != "home" {
				t.Errorf("unexpected view: %+v", view)
			}
			if view.Backend != tc.wantBackend {
				t.Errorf("backend = %q, want %q", view.Backend, tc.wantBackend)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	session := controller.NewSession(stubClock{}, time.Second)
	metrics := status.NewMetrics()
	metrics.Observe(controller.State{Status: model.StatusVerified})
	srv := httptest.NewServer(status.NewServer("", session, nil, metrics).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	text := string(body)

	if !strings.Contains(text, "homevoice_verifications_total 1") {
		t.Errorf("metrics missing verification counter:\n%s", text)
	}
	if !strings.Contains(text, "# TYPE homevoice_uptime_seconds gauge") {
		t.Errorf("metrics missing uptime gauge:\n%s", text)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	session := controller.NewSession(stubClock{}, time.Second)
	srv := httptest.NewServer(status.NewServer("", session, nil, status.NewMetrics()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}
