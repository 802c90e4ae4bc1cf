package profiler

import "time"

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often a report is logged. Non-positive values keep the one second default.
//
// Parameters:
//   - interval: the report interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithDroppedCounter reports a dropped request counter, such as an offthread worker's, with
// every interval.
//
// Parameters:
//   - dropped: returns the running total of dropped requests
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithDroppedCounter(dropped func() uint64) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.dropped = dropped
	}
}

// withClock replaces the high resolution clock.
func withClock(now func() time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// withoutLogging suppresses the log line.
func withoutLogging() ProfilerBuilderOption {
	return func(p *Profiler) {
		p.quiet = true
	}
}
