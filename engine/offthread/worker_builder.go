package offthread

import "time"

// WorkerBuilderOption is a functional option for configuring a Worker.
type WorkerBuilderOption func(*worker)

// WithFrameCallback registers a function called on the worker goroutine after every completed
// frame, with the request and the time the frame took.
//
// Parameters:
//   - callback: the per-frame callback
//
// Returns:
//   - WorkerBuilderOption: option function to apply
func WithFrameCallback(callback func(req Request, elapsed time.Duration)) WorkerBuilderOption {
	return func(w *worker) {
		w.onFrame = callback
	}
}
