// Package profiler reports frame rate, frame time, memory and dropped offthread requests to
// the log at a fixed interval.
package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/loov/hrtime"
)

// Report is one interval's statistics.
type Report struct {
	FPS        float64
	AvgFrame   time.Duration
	MaxFrame   time.Duration
	HeapMB     float64
	AllocRate  float64 // MB/s
	SysMB      float64
	GCCount    uint32
	LastPause  time.Duration
	MaxPause   time.Duration
	Dropped    uint64
	NewDropped uint64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	interval time.Duration
	now      func() time.Duration
	dropped  func() uint64
	quiet    bool

	lastReport     time.Duration
	frames         int
	frameTotal     time.Duration
	frameMax       time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastDropped    uint64
}

// NewProfiler creates a new Profiler with a one second interval on the high resolution clock.
//
// Parameters:
//   - options: functional options for the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:       &sync.Mutex{},
		interval: time.Second,
		now:      hrtime.Now,
	}
	for _, option := range options {
		option(p)
	}
	p.lastReport = p.now()
	return p
}

// Frame records one completed frame and, once the interval has elapsed, logs and returns a report.
//
// Parameters:
//   - elapsed: how long the frame took
//
// Returns:
//   - Report: the interval report, zero when none is due
//   - bool: true if a report was produced this call
func (p *Profiler) Frame(elapsed time.Duration) (Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames++
	p.frameTotal += elapsed
	p.frameMax = max(p.frameMax, elapsed)

	now := p.now()
	window := now - p.lastReport
	if window < p.interval {
		return Report{}, false
	}

	r := Report{
		FPS:      float64(p.frames) / window.Seconds(),
		AvgFrame: p.frameTotal / time.Duration(p.frames),
		MaxFrame: p.frameMax,
	}
	p.readMemory(&r, window)

	if p.dropped != nil {
		r.Dropped = p.dropped()
		r.NewDropped = r.Dropped - p.lastDropped
		p.lastDropped = r.Dropped
	}

	if !p.quiet {
		log.Printf("[profiler] FPS: %.2f | frame avg %v max %v | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %v, max: %v) | Sys: %.2f MB | dropped: %d (+%d)",
			r.FPS, r.AvgFrame, r.MaxFrame, r.HeapMB, r.AllocRate, r.GCCount, r.LastPause, r.MaxPause, r.SysMB, r.Dropped, r.NewDropped)
	}

	p.frames = 0
	p.frameTotal = 0
	p.frameMax = 0
	p.lastReport = now
	return r, true
}

// readMemory fills the memory fields. PauseNs is a ring of the last 256 pauses.
func (p *Profiler) readMemory(r *Report, window time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRate = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / window.Seconds()

	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		r.LastPause = time.Duration(p.memStats.PauseNs[(r.GCCount-1)%256])
		start := p.lastGCCount
		if r.GCCount-start > 256 {
			start = r.GCCount - 256
		}
		for i := start; i < r.GCCount; i++ {
			r.MaxPause = max(r.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
