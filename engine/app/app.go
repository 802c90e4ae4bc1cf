// Package app runs an engine inside a window. The engine either renders on the window thread or on
// an offthread worker whose frames are composited onto the surface.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/offthread"
	"github.com/Carmen-Shannon/ab3de/engine/profiler"
	"github.com/Carmen-Shannon/ab3de/engine/renderer"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
)

// State is the application lifecycle state.
type State int

const (
	// StateUninitialized is the state before Run has built the engine.
	StateUninitialized State = iota
	// StateReady is the state once the engine renders frames.
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// slowFrame is the offthread render time above which a frame is logged.
const slowFrame = 250 * time.Millisecond

// Host is the window an application runs in. window.Window satisfies it.
type Host interface {
	engine.ApplicationContext
	SetUpdateCallback(callback func())
	SetResizeCallback(callback func(width, height uint32))
	SetInputCallback(callback func(input camera.ControllerInput))
	ProcessMessages()
	Close() error
}

// surfaceContext is the part of a renderer.Context a frame loop presents through.
type surfaceContext interface {
	engine.SurfaceTarget
	Size() common.Size2D
}

// frameWorker is the part of an offthread.Worker the application drives.
type frameWorker interface {
	Submit(req offthread.Request) (bool, error)
	HandleInput(input camera.ControllerInput) bool
	Front() (texture.Texture, bool)
	Frames() uint64
	Dropped() uint64
	Close()
}

// frameCompositor presents worker frames onto the surface.
type frameCompositor interface {
	present(surface engine.SurfaceTarget, frame texture.Texture, ok bool) error
	release()
}

type app struct {
	mu    *sync.Mutex
	state State

	host    Host
	gpu     renderer.Context
	surface surfaceContext

	offthread       bool
	engineOptions   []engine.EngineBuilderOption
	profileInterval time.Duration
	now             func() time.Duration

	eng        engine.Engine
	viewport   engine.Viewport
	worker     frameWorker
	compositor frameCompositor
	profiler   *profiler.Profiler

	frameClock  *frameClock
	submitClock *frameClock
	resize      *resizeLatch
}

// App is a windowed engine application. It starts Uninitialized and becomes Ready once Run has
// built the engine against the window's surface.
type App interface {
	// State returns the lifecycle state.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Run builds the engine, then runs the window message loop until the window closes or ctx is
	// cancelled. It must be called on the thread that created the window.
	//
	// Parameters:
	//   - ctx: cancels asset loading and stops the loop
	//
	// Returns:
	//   - error: an error if the engine could not be built or the app already ran
	Run(ctx context.Context) error

	// Release frees the worker or viewport, the engine and the compositor.
	Release()
}

var _ App = &app{}

// NewApp creates an Uninitialized application.
//
// Parameters:
//   - gpu: the GPU context created for host's surface
//   - host: the window
//   - options: functional options for the application
//
// Returns:
//   - App: the application
func NewApp(gpu renderer.Context, host Host, options ...AppBuilderOption) App {
	a := newApp(gpu, host, options...)
	return a
}

func newApp(gpu renderer.Context, host Host, options ...AppBuilderOption) *app {
	a := &app{
		mu:              &sync.Mutex{},
		host:            host,
		gpu:             gpu,
		surface:         gpu,
		profileInterval: time.Second,
		now:             hrtime.Now,
		resize:          newResizeLatch(),
	}
	for _, option := range options {
		option(a)
	}
	a.frameClock = newFrameClock(a.now)
	a.submitClock = newFrameClock(a.now)
	return a
}

func (a *app) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *app) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateUninitialized {
		a.mu.Unlock()
		return errors.New("app: already running")
	}
	a.mu.Unlock()

	width, height := a.host.WindowSize()
	a.gpu.ConfigureSurface(width, height)
	size := common.Size2D{Width: max(width, 1), Height: max(height, 1)}

	if err := a.build(ctx, size); err != nil {
		a.Release()
		return err
	}

	a.host.SetResizeCallback(a.resize.set)
	a.host.SetInputCallback(a.handleInput)
	a.host.SetUpdateCallback(func() {
		if ctx.Err() != nil {
			_ = a.host.Close()
			return
		}
		a.frame()
	})

	a.mu.Lock()
	a.state = StateReady
	a.mu.Unlock()
	log.Printf("[app] ready: %dx%d offthread=%t", size.Width, size.Height, a.offthread)

	a.host.ProcessMessages()
	return nil
}

func (a *app) build(ctx context.Context, size common.Size2D) error {
	options := append([]engine.EngineBuilderOption{
		engine.WithApplicationContext(a.host),
		engine.WithInitialSize(size),
	}, a.engineOptions...)

	eng, err := engine.New(ctx, a.gpu.Device(), a.gpu.Queue(), options...)
	if err != nil {
		return err
	}
	a.eng = eng

	profilerOptions := []profiler.ProfilerBuilderOption{profiler.WithInterval(a.profileInterval)}

	if !a.offthread {
		a.viewport, err = eng.NewViewport(size, a.gpu.SurfaceFormat())
		if err != nil {
			return err
		}
		a.profiler = a.newProfiler(profilerOptions...)
		return nil
	}

	a.compositor, err = newCompositor(a.gpu.Device(), a.gpu.Queue(), a.gpu.SurfaceFormat())
	if err != nil {
		return err
	}
	// the worker owns the engine from here on
	worker, err := offthread.NewWorker(eng, size, a.gpu.SurfaceFormat(), offthread.WithFrameCallback(logSlowFrame))
	if err != nil {
		return err
	}
	a.eng = nil
	a.worker = worker
	a.profiler = a.newProfiler(append(profilerOptions, profiler.WithDroppedCounter(worker.Dropped))...)
	return nil
}

func (a *app) newProfiler(options ...profiler.ProfilerBuilderOption) *profiler.Profiler {
	if a.profileInterval <= 0 {
		return nil
	}
	return profiler.NewProfiler(options...)
}

func logSlowFrame(req offthread.Request, elapsed time.Duration) {
	if elapsed > slowFrame {
		log.Printf("[app] slow offthread frame at %dms: %v", req.NowMs, elapsed)
	}
}

func (a *app) handleInput(input camera.ControllerInput) {
	if a.worker != nil {
		a.worker.HandleInput(input)
		return
	}
	if a.eng != nil {
		a.eng.HandleInput(input)
	}
}

// frame runs one iteration of the message loop.
func (a *app) frame() {
	if a.worker != nil {
		a.frameOffthread()
	} else {
		a.frameInThread()
	}
	if a.profiler != nil {
		a.profiler.Frame(a.frameClock.mark())
	}
}

// frameInThread applies a pending resize, then updates and renders the viewport to the surface.
func (a *app) frameInThread() {
	if size, ok := a.resize.peek(); ok {
		if a.surface.ConfigureSurface(size.Width, size.Height) {
			if err := a.eng.Resize(a.viewport, size.Width, size.Height); err != nil {
				log.Printf("[app] resize to %dx%d: %v", size.Width, size.Height, err)
			}
		}
		a.resize.clear(size)
	}

	dt := a.submitClock.mark()
	if err := a.eng.Update(a.viewport, nowMs(a.now()), float32(dt.Seconds())); err != nil {
		log.Printf("[app] update: %v", err)
	}
	a.eng.RenderToSurface(a.surface, a.viewport)
}

// frameOffthread offers the worker a frame request and composites its latest finished frame. A
// pending resize rides along until the worker accepts a request; dt keeps growing across rejected
// requests so the accepted one covers the whole gap.
func (a *app) frameOffthread() {
	size, resized := a.resize.peek()
	if resized && a.surface.Size() != size {
		a.surface.ConfigureSurface(size.Width, size.Height)
	}

	req := offthread.Request{
		NowMs: nowMs(a.now()),
		Dt:    float32(a.submitClock.peek().Seconds()),
	}
	if resized {
		req.Size = size
	}

	accepted, err := a.worker.Submit(req)
	if err != nil {
		log.Printf("[app] worker stopped: %v", err)
		_ = a.host.Close()
		return
	}
	if accepted {
		a.submitClock.mark()
		if resized {
			a.resize.clear(size)
		}
	}

	a.composite()
	a.host.RequestRedraw()
}

func (a *app) composite() {
	if !a.surface.IsConfigured() {
		return
	}

	frame, ok := a.worker.Front()
	err := a.compositor.present(a.surface, frame, ok)
	switch {
	case err == nil:
	case renderer.IsRecoverableSurfaceError(err):
		width, height := a.host.WindowSize()
		if a.surface.ConfigureSurface(width, height) {
			a.resize.set(width, height)
		}
	default:
		log.Printf("[app] unable to composite: %v", err)
	}
}

func (a *app) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.worker != nil {
		a.worker.Close()
		a.worker = nil
	}
	if a.compositor != nil {
		a.compositor.release()
		a.compositor = nil
	}
	if a.viewport != nil {
		a.viewport.Release()
		a.viewport = nil
	}
	if a.eng != nil {
		a.eng.Release()
		a.eng = nil
	}
}
