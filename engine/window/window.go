// Package window opens the GLFW window frames are presented to, translates its events into the
// engine's input vocabulary and hands the platform surface descriptor to the renderer.
package window

import (
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// It also satisfies engine.ApplicationContext.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetInputCallback sets the function receiving translated input events.
	//
	// Parameters:
	//   - callback: function receiving each input event
	SetInputCallback(callback func(input camera.ControllerInput))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// RequestRedraw wakes the message loop so another frame runs even without pending events.
	RequestRedraw()

	// WindowSize returns the current framebuffer size.
	//
	// Returns:
	//   - uint32: width in pixels
	//   - uint32: height in pixels
	WindowSize() (uint32, uint32)

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed or Escape is pressed. Calls the update callback each iteration.
	ProcessMessages()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu *sync.Mutex

	title     string
	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int
	width     int
	height    int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any
	cursor         cursorTracker

	onUpdate func()
	onResize func(width, height uint32)
	onInput  func(input camera.ControllerInput)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order. The calling goroutine is locked to
// its OS thread, which must be the main thread on most platforms.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: an error if GLFW could not be initialized or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		mu:        &sync.Mutex{},
		title:     "ab3de",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  200,
		minHeight: 150,
		width:     800,
		height:    600,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height uint32)) {
	w.onResize = callback
}

func (w *engineWindow) SetInputCallback(callback func(input camera.ControllerInput)) {
	w.onInput = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) RequestRedraw() {
	platformRequestRedraw(w)
}

func (w *engineWindow) WindowSize() (uint32, uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return uint32(max(w.width, 0)), uint32(max(w.height, 0))
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

// emit forwards an input event to the input callback.
func (w *engineWindow) emit(input camera.ControllerInput) {
	if w.onInput != nil {
		w.onInput(input)
	}
}

// setSize records the framebuffer size and notifies the resize callback.
func (w *engineWindow) setSize(width, height int) {
	w.mu.Lock()
	w.width = width
	w.height = height
	w.mu.Unlock()

	if w.onResize != nil {
		w.onResize(uint32(max(width, 0)), uint32(max(height, 0)))
	}
}
