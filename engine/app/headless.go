package app

import (
	"context"
	"log"
	"time"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine"
	"github.com/Carmen-Shannon/ab3de/engine/offthread"
	"github.com/Carmen-Shannon/ab3de/engine/profiler"
	"github.com/Carmen-Shannon/ab3de/engine/renderer"
	"github.com/cockroachdb/errors"
)

// headlessBackoff is how long the headless loop waits after the worker rejected a request.
const headlessBackoff = time.Millisecond

// headlessMaxFailures is how many accepted requests may fail to produce a frame before the
// headless loop gives up. One more is allowed for the frame still in flight.
const headlessMaxFailures = 8

// RunHeadless renders frames offscreen on an offthread worker, without a window or surface, and
// returns once the worker has finished the requested number of frames.
//
// Parameters:
//   - ctx: cancels asset loading and the frame loop
//   - gpu: a headless GPU context; its SurfaceFormat is the target format
//   - size: the offscreen target size
//   - frames: how many frames to render
//   - options: functional options for the application; WithOffthread is implied
//
// Returns:
//   - error: an error if the engine could not be built, or ctx.Err() if cancelled
func RunHeadless(ctx context.Context, gpu renderer.Context, size common.Size2D, frames uint64, options ...AppBuilderOption) error {
	if size.IsZero() {
		return errors.Wrapf(engine.ErrInvalidViewportSize, "%dx%d", size.Width, size.Height)
	}
	a := newApp(gpu, nil, options...)

	eng, err := engine.New(ctx, gpu.Device(), gpu.Queue(), append([]engine.EngineBuilderOption{engine.WithInitialSize(size)}, a.engineOptions...)...)
	if err != nil {
		return err
	}
	worker, err := offthread.NewWorker(eng, size, gpu.SurfaceFormat(), offthread.WithFrameCallback(logSlowFrame))
	if err != nil {
		eng.Release()
		return err
	}
	defer worker.Close()

	a.worker = worker
	a.profiler = a.newProfiler(profiler.WithInterval(a.profileInterval), profiler.WithDroppedCounter(worker.Dropped))
	return a.driveHeadless(ctx, frames)
}

// driveHeadless submits requests until the worker has finished frames frames.
func (a *app) driveHeadless(ctx context.Context, frames uint64) error {
	start := a.now()
	var submitted uint64
	for done := a.worker.Frames(); done < frames; done = a.worker.Frames() {
		if submitted > done+headlessMaxFailures+1 {
			return errors.Newf("headless: %d of %d accepted frames failed", submitted-done, submitted)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		accepted, err := a.worker.Submit(offthread.Request{
			NowMs: nowMs(a.now()),
			Dt:    float32(a.submitClock.peek().Seconds()),
		})
		if err != nil {
			return err
		}
		if !accepted {
			time.Sleep(headlessBackoff)
			continue
		}
		submitted++
		elapsed := a.submitClock.mark()
		if a.profiler != nil {
			a.profiler.Frame(elapsed)
		}
	}
	log.Printf("[app] headless: %d frames in %v", frames, a.now()-start)
	return nil
}
