package offthread

import (
	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// engineRenderer drives an engine and the viewport it renders.
type engineRenderer struct {
	engine   engine.Engine
	viewport engine.Viewport
}

func (r *engineRenderer) Resize(width, height uint32) error {
	return r.engine.Resize(r.viewport, width, height)
}

func (r *engineRenderer) RenderFrame(req Request, target *wgpu.TextureView) error {
	// an update failure only leaves stale instance data behind; the frame still renders
	updateErr := r.engine.Update(r.viewport, req.NowMs, req.Dt)
	if err := r.engine.Render(r.viewport, target); err != nil {
		return errors.CombineErrors(err, updateErr)
	}
	return updateErr
}

func (r *engineRenderer) HandleInput(input camera.ControllerInput) bool {
	return r.engine.HandleInput(input)
}

func (r *engineRenderer) Release() {
	r.viewport.Release()
	r.engine.Release()
}

// NewWorker takes ownership of eng, builds a viewport and two target textures of the given size,
// and starts the worker goroutine.
//
// Parameters:
//   - eng: the engine, released when the worker closes
//   - size: the initial target size, both dimensions non-zero
//   - format: the target format, which the compositor samples
//   - options: functional options for the worker
//
// Returns:
//   - Worker: the running worker
//   - error: an error if the viewport or the targets could not be created
func NewWorker(eng engine.Engine, size common.Size2D, format wgpu.TextureFormat, options ...WorkerBuilderOption) (Worker, error) {
	v, err := eng.NewViewport(size, format)
	if err != nil {
		return nil, err
	}

	device := eng.Device()
	allocate := func(size common.Size2D) (texture.Texture, error) {
		return texture.NewTargetTexture(device, "Offthread Target", size, format)
	}

	w, err := newWorker(&engineRenderer{engine: eng, viewport: v}, allocate, size, options...)
	if err != nil {
		v.Release()
		return nil, err
	}
	return w, nil
}
