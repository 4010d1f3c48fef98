// Package router defines the navigation capability the dispatcher drives.
package router

import "log/slog"

// Router navigates the host application to a destination path.
type Router interface {
	Navigate(path string) error
}

// Func adapts a function to the Router interface.
type Func func(path string) error

// Navigate calls f.
func (f Func) Navigate(path string) error {
	return f(path)
}

// Log is a Router that only records navigations. Used when HomeVoice
// runs without a host UI attached.
type Log struct{}

// Navigate logs the destination.
func (Log) Navigate(path string) error {
	slog.Info("navigate", "path", path)
	return nil
}
