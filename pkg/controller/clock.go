package controller

import (
	"context"
	"time"
)

// Clock abstracts the timing choreography between speech output and
// listening windows so the state machines are testable with a simulated
// clock.
type Clock interface {
	// Sleep waits for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error

	// AfterFunc schedules f after d and returns a stop function.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemClock is the production Clock backed by the time package.
type SystemClock struct{}

// Sleep waits for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc schedules f after d.
func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
