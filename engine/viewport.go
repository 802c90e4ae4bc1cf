package engine

import (
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/canvas"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// ClearColor is the color the canvas is cleared to at the start of every frame.
var ClearColor = wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// ErrInvalidViewportSize is returned when a viewport is created or resized with a zero dimension.
var ErrInvalidViewportSize = errors.New("invalid viewport size")

// ViewportConfiguration describes a viewport at creation.
type ViewportConfiguration struct {
	// Size is the viewport size in pixels, both dimensions non-zero.
	Size common.Size2D
	// OutputFormat is the format of the texture frames are tonemapped onto.
	OutputFormat wgpu.TextureFormat
}

type viewport struct {
	mu *sync.Mutex

	id     uuid.UUID
	size   common.Size2D
	canvas canvas.CanvasEntry
	depth  canvas.DepthEntry
	camera camera.CameraEntry
}

// Viewport groups the canvas, the depth buffer and the camera that render one view. The three
// always share one size: they are only ever resized together.
type Viewport interface {
	// ID returns the identifier used in the viewport's labels and log lines.
	//
	// Returns:
	//   - uuid.UUID: the viewport identifier
	ID() uuid.UUID

	// Size returns the current size.
	//
	// Returns:
	//   - common.Size2D: the size in pixels
	Size() common.Size2D

	// Canvas returns the HDR canvas.
	//
	// Returns:
	//   - canvas.CanvasEntry: the canvas
	Canvas() canvas.CanvasEntry

	// Depth returns the depth buffer.
	//
	// Returns:
	//   - canvas.DepthEntry: the depth entry
	Depth() canvas.DepthEntry

	// Camera returns the camera entry.
	//
	// Returns:
	//   - camera.CameraEntry: the camera
	Camera() camera.CameraEntry

	// Resize resizes the canvas, the camera and the depth buffer together. The new canvas and depth
	// resources are built first and only swapped in once the camera accepted the new size, so a
	// failure leaves all three at the previous size.
	//
	// Parameters:
	//   - queue: the queue used to rewrite the camera uniform
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrInvalidViewportSize for a zero dimension, else the first resize error
	Resize(queue *wgpu.Queue, width, height uint32) error

	// UpdateCamera applies mutate to the camera pose and rewrites its uniform.
	//
	// Parameters:
	//   - queue: the queue used to write the uniform
	//   - mutate: the in-place edit applied to the pose
	//
	// Returns:
	//   - error: an error if the uniform upload failed
	UpdateCamera(queue *wgpu.Queue, mutate func(*camera.CameraData)) error

	// Render records one scene pass into the canvas, clearing color to ClearColor and depth to 1,
	// lets draw record into it, then tonemaps onto output and submits.
	//
	// Parameters:
	//   - device: the device the frame encoder is created from
	//   - queue: the queue to submit to
	//   - output: the view the frame ends up in
	//   - draw: records the scene draws against the pass and the camera
	//
	// Returns:
	//   - error: an error if the encoder could not be created or finished
	Render(device *wgpu.Device, queue *wgpu.Queue, output *wgpu.TextureView, draw func(*wgpu.RenderPassEncoder, camera.CameraEntry)) error

	// Release frees the canvas, the depth buffer and the camera entry.
	Release()
}

var _ Viewport = &viewport{}

// NewViewport builds a canvas and a depth buffer of the configured size around a camera entry.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - cam: the camera entry, owned by the viewport from here on
//   - config: the viewport configuration
//
// Returns:
//   - Viewport: the viewport
//   - error: ErrInvalidViewportSize for a zero dimension, else an error if GPU creation failed
func NewViewport(device *wgpu.Device, cam camera.CameraEntry, config ViewportConfiguration) (Viewport, error) {
	if config.Size.IsZero() {
		return nil, errors.Wrapf(ErrInvalidViewportSize, "%dx%d", config.Size.Width, config.Size.Height)
	}

	v := &viewport{
		mu:     &sync.Mutex{},
		id:     uuid.New(),
		size:   config.Size,
		camera: cam,
	}
	label := "Viewport " + v.id.String()

	var err error
	v.canvas, err = canvas.NewCanvasEntry(device, canvas.CanvasConfiguration{
		Size:        config.Size,
		ColorFormat: config.OutputFormat,
		Label:       label,
	})
	if err != nil {
		return nil, err
	}

	v.depth, err = canvas.NewDepthEntry(device, label+" Depth", config.Size)
	if err != nil {
		v.canvas.Release()
		return nil, err
	}
	return v, nil
}

func (v *viewport) ID() uuid.UUID {
	return v.id
}

func (v *viewport) Size() common.Size2D {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

func (v *viewport) Canvas() canvas.CanvasEntry {
	return v.canvas
}

func (v *viewport) Depth() canvas.DepthEntry {
	return v.depth
}

func (v *viewport) Camera() camera.CameraEntry {
	return v.camera
}

func (v *viewport) Resize(queue *wgpu.Queue, width, height uint32) error {
	if width == 0 || height == 0 {
		return errors.Wrapf(ErrInvalidViewportSize, "%dx%d", width, height)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	nextCanvas, err := v.canvas.PrepareResize(width, height)
	if err != nil {
		return err
	}
	nextDepth, err := v.depth.PrepareResize(width, height)
	if err != nil {
		nextCanvas.Discard()
		return err
	}
	if err := v.camera.Resize(queue, width, height); err != nil {
		nextCanvas.Discard()
		nextDepth.Discard()
		return err
	}

	nextCanvas.Commit()
	nextDepth.Commit()
	v.size = common.Size2D{Width: width, Height: height}
	return nil
}

func (v *viewport) UpdateCamera(queue *wgpu.Queue, mutate func(*camera.CameraData)) error {
	return v.camera.UpdateCamera(queue, mutate)
}

func (v *viewport) Render(device *wgpu.Device, queue *wgpu.Queue, output *wgpu.TextureView, draw func(*wgpu.RenderPassEncoder, camera.CameraEntry)) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return errors.Wrap(err, "create frame encoder")
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Scene Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       v.canvas.View(),
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: ClearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            v.depth.View(),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	draw(pass, v.camera)
	pass.End()

	return v.canvas.RenderAndSubmit(queue, encoder, output, nil)
}

func (v *viewport) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.canvas != nil {
		v.canvas.Release()
		v.canvas = nil
	}
	if v.depth != nil {
		v.depth.Release()
		v.depth = nil
	}
	if v.camera != nil {
		v.camera.Release()
		v.camera = nil
	}
}
