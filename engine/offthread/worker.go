// Package offthread runs the engine on a dedicated goroutine. The window thread sends frame
// requests it never waits on, and composites whichever target texture the worker finished last.
package offthread

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// ErrClosed is returned by Submit once the worker has stopped.
var ErrClosed = errors.New("offthread worker closed")

// Request asks the worker to update and render one frame.
type Request struct {
	// NowMs is the frame timestamp in milliseconds.
	NowMs uint64
	// Dt is the time since the previous request in seconds.
	Dt float32
	// Size, when non-zero and different from the current size, resizes before rendering.
	Size common.Size2D
}

// frameRenderer is the work a request triggers: the engine and its viewport in production.
type frameRenderer interface {
	Resize(width, height uint32) error
	RenderFrame(req Request, target *wgpu.TextureView) error
	HandleInput(input camera.ControllerInput) bool
	Release()
}

type targetAllocator func(size common.Size2D) (texture.Texture, error)

type worker struct {
	mu *sync.Mutex

	id       uuid.UUID
	renderer frameRenderer
	allocate targetAllocator
	onFrame  func(Request, time.Duration)

	requests chan Request
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	closed   atomic.Bool
	dropped  atomic.Uint64
	frames   atomic.Uint64

	// owned by the worker goroutine
	size common.Size2D

	// guarded by mu
	targets [2]texture.Texture
	front   int
	ready   bool
	retired []texture.Texture
}

// Worker owns an engine and its viewport on a dedicated goroutine.
type Worker interface {
	// ID returns the identifier used in the worker's labels and log lines.
	//
	// Returns:
	//   - uuid.UUID: the worker identifier
	ID() uuid.UUID

	// Submit offers a request without blocking. If the worker is still busy with the previous one
	// the request is dropped and counted; that is the coalescing policy, not an error.
	//
	// Parameters:
	//   - req: the frame request
	//
	// Returns:
	//   - bool: true if the worker took the request
	//   - error: ErrClosed once the worker has stopped
	Submit(req Request) (bool, error)

	// HandleInput forwards an input event to the engine's camera controller.
	//
	// Parameters:
	//   - input: the translated window event
	//
	// Returns:
	//   - bool: true if the controller consumed it
	HandleInput(input camera.ControllerInput) bool

	// Front returns the target of the most recently completed frame.
	//
	// Returns:
	//   - texture.Texture: the completed target
	//   - bool: false until the first frame completes
	Front() (texture.Texture, bool)

	// Dropped returns how many requests were dropped because the worker was busy.
	//
	// Returns:
	//   - uint64: the dropped request count
	Dropped() uint64

	// Frames returns how many frames completed.
	//
	// Returns:
	//   - uint64: the completed frame count
	Frames() uint64

	// Close stops the worker after the frame in progress, then frees the targets, the viewport
	// and the engine. Safe to call more than once.
	Close()
}

var _ Worker = &worker{}

func newWorker(renderer frameRenderer, allocate targetAllocator, size common.Size2D, options ...WorkerBuilderOption) (*worker, error) {
	w := &worker{
		mu:       &sync.Mutex{},
		id:       uuid.New(),
		renderer: renderer,
		allocate: allocate,
		requests: make(chan Request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}

	if err := w.allocateTargets(size); err != nil {
		return nil, err
	}
	w.size = size

	go w.run()
	return w, nil
}

// allocateTargets replaces both targets. The previous pair is retired rather than released,
// since the window thread may still be compositing the old front.
func (w *worker) allocateTargets(size common.Size2D) error {
	var fresh [2]texture.Texture
	for i := range fresh {
		tex, err := w.allocate(size)
		if err != nil {
			if fresh[0] != nil {
				fresh[0].Release()
			}
			return errors.Wrapf(err, "worker %s: allocate target", w.id)
		}
		fresh[i] = tex
	}

	w.mu.Lock()
	stale := w.retired
	w.retired = nil
	for _, tex := range w.targets {
		if tex != nil {
			w.retired = append(w.retired, tex)
		}
	}
	w.targets = fresh
	w.front = 0
	w.ready = false
	w.mu.Unlock()

	for _, tex := range stale {
		tex.Release()
	}
	return nil
}

func (w *worker) run() {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[offthread] worker %s recovered from panic: %v", w.id, r)
			w.closed.Store(true)
		}
	}()

	for {
		select {
		case <-w.quit:
			return
		case req := <-w.requests:
			w.handle(req)
		}
	}
}

func (w *worker) handle(req Request) {
	start := time.Now()

	if !req.Size.IsZero() && req.Size != w.size {
		if err := w.resize(req.Size); err != nil {
			log.Printf("[offthread] worker %s: resize to %dx%d: %v", w.id, req.Size.Width, req.Size.Height, err)
			return
		}
	}

	w.mu.Lock()
	back := w.targets[1-w.front]
	w.mu.Unlock()

	if err := w.renderer.RenderFrame(req, back.View()); err != nil {
		log.Printf("[offthread] worker %s: frame dropped: %v", w.id, err)
		return
	}

	w.mu.Lock()
	w.front = 1 - w.front
	w.ready = true
	w.mu.Unlock()
	w.frames.Add(1)

	if w.onFrame != nil {
		w.onFrame(req, time.Since(start))
	}
}

func (w *worker) resize(size common.Size2D) error {
	if err := w.renderer.Resize(size.Width, size.Height); err != nil {
		return err
	}
	if err := w.allocateTargets(size); err != nil {
		return err
	}
	w.size = size
	return nil
}

func (w *worker) ID() uuid.UUID {
	return w.id
}

func (w *worker) Submit(req Request) (bool, error) {
	if w.closed.Load() {
		return false, ErrClosed
	}
	select {
	case w.requests <- req:
		return true, nil
	case <-w.done:
		return false, ErrClosed
	default:
		w.dropped.Add(1)
		return false, nil
	}
}

func (w *worker) HandleInput(input camera.ControllerInput) bool {
	return w.renderer.HandleInput(input)
}

func (w *worker) Front() (texture.Texture, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return nil, false
	}
	return w.targets[w.front], true
}

func (w *worker) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *worker) Frames() uint64 {
	return w.frames.Load()
}

func (w *worker) Close() {
	w.quitOnce.Do(func() {
		w.closed.Store(true)
		close(w.quit)
		<-w.done

		w.mu.Lock()
		release := append(w.retired, w.targets[:]...)
		w.retired = nil
		w.targets = [2]texture.Texture{}
		w.ready = false
		w.mu.Unlock()

		for _, tex := range release {
			if tex != nil {
				tex.Release()
			}
		}
		w.renderer.Release()
		log.Printf("[offthread] worker %s stopped: %d frames, %d dropped", w.id, w.Frames(), w.Dropped())
	})
}
