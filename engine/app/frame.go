package app

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/loov/hrtime"
)

// frameClock measures the time between frames on the high resolution clock.
type frameClock struct {
	now  func() time.Duration
	last time.Duration
}

func newFrameClock(now func() time.Duration) *frameClock {
	if now == nil {
		now = hrtime.Now
	}
	return &frameClock{now: now, last: now()}
}

// peek returns the time since the last mark without moving it.
func (c *frameClock) peek() time.Duration {
	return c.now() - c.last
}

// mark returns the time since the last mark and restarts the measurement.
func (c *frameClock) mark() time.Duration {
	now := c.now()
	elapsed := now - c.last
	c.last = now
	return elapsed
}

// resizeLatch keeps only the latest window size until a frame consumes it.
type resizeLatch struct {
	mu      *sync.Mutex
	size    common.Size2D
	pending bool
}

func newResizeLatch() *resizeLatch {
	return &resizeLatch{mu: &sync.Mutex{}}
}

// set records a resize. Zero sizes (minimized windows) are ignored.
func (l *resizeLatch) set(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.size = common.Size2D{Width: width, Height: height}
	l.pending = true
}

// peek returns the pending size without consuming it.
func (l *resizeLatch) peek() (common.Size2D, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size, l.pending
}

// clear consumes size if it is still the latest one.
func (l *resizeLatch) clear(size common.Size2D) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.size == size {
		l.pending = false
	}
}

// nowMs converts a clock reading to the milliseconds the engine animates with.
func nowMs(d time.Duration) uint64 {
	return uint64(d / time.Millisecond)
}
