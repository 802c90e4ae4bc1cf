package app

import (
	"time"

	"github.com/Carmen-Shannon/ab3de/engine"
)

// AppBuilderOption is a functional option for configuring an App.
type AppBuilderOption func(*app)

// WithOffthread renders on an offthread worker and composites its frames on the window thread.
//
// Parameters:
//   - enabled: true for the offthread shape
//
// Returns:
//   - AppBuilderOption: option function to apply
func WithOffthread(enabled bool) AppBuilderOption {
	return func(a *app) {
		a.offthread = enabled
	}
}

// WithEngineOptions passes options through to engine.New.
//
// Parameters:
//   - options: the engine options
//
// Returns:
//   - AppBuilderOption: option function to apply
func WithEngineOptions(options ...engine.EngineBuilderOption) AppBuilderOption {
	return func(a *app) {
		a.engineOptions = append(a.engineOptions, options...)
	}
}

// WithProfilerInterval sets how often frame statistics are logged. Zero disables the profiler.
//
// Parameters:
//   - interval: the report interval
//
// Returns:
//   - AppBuilderOption: option function to apply
func WithProfilerInterval(interval time.Duration) AppBuilderOption {
	return func(a *app) {
		a.profileInterval = interval
	}
}

func withClock(now func() time.Duration) AppBuilderOption {
	return func(a *app) {
		a.now = now
	}
}
