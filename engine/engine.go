// Package engine composes the camera, light, skybox and model systems into one renderer and
// drives them per frame against a Viewport.
package engine

import (
	"context"
	"log"
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/light"
	"github.com/Carmen-Shannon/ab3de/engine/model"
	"github.com/Carmen-Shannon/ab3de/engine/renderer"
	"github.com/Carmen-Shannon/ab3de/engine/skybox"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// ApplicationContext is what the engine needs from the host window.
type ApplicationContext interface {
	// RequestRedraw asks the host to schedule another frame.
	RequestRedraw()

	// WindowSize returns the current drawable size in pixels.
	//
	// Returns:
	//   - uint32: the width
	//   - uint32: the height
	WindowSize() (uint32, uint32)
}

// SurfaceTarget is the part of a renderer.Context a frame is presented through.
type SurfaceTarget interface {
	IsConfigured() bool
	ConfigureSurface(width, height uint32) bool
	AcquireOutput() (*renderer.SurfaceOutput, error)
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
	app    ApplicationContext

	cameraSys  camera.CameraSystem
	lightSys   light.LightSystem
	skyboxSys  skybox.SkyboxSystem
	modelSys   model.ModelSystem
	controller camera.CameraController

	initialSize   common.Size2D
	cubeFaceSize  uint32
	gridPerRow    int
	modelName     string
	loader        model.Loader
	assets        AssetSources
	cameraOptions []camera.CameraSystemBuilderOption
	lightOptions  []light.LightSystemBuilderOption
	modelOptions  []model.ModelSystemBuilderOption
	gridOptions   []model.GridOption
}

// Engine owns every render system. A frame is Update followed by Render (or RenderToSurface)
// against one Viewport.
type Engine interface {
	// Device returns the device every system was built on.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the device queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Cameras returns the camera system.
	//
	// Returns:
	//   - camera.CameraSystem: the camera system
	Cameras() camera.CameraSystem

	// Lights returns the light system.
	//
	// Returns:
	//   - light.LightSystem: the light system
	Lights() light.LightSystem

	// Models returns the model system.
	//
	// Returns:
	//   - model.ModelSystem: the model system
	Models() model.ModelSystem

	// Skybox returns the skybox system.
	//
	// Returns:
	//   - skybox.SkyboxSystem: the skybox system
	Skybox() skybox.SkyboxSystem

	// Controller returns the camera controller fed by HandleInput.
	//
	// Returns:
	//   - camera.CameraController: the controller
	Controller() camera.CameraController

	// NewViewport claims a camera entry and builds a viewport around it.
	//
	// Parameters:
	//   - size: the viewport size in pixels
	//   - outputFormat: the format of the texture frames are tonemapped onto
	//
	// Returns:
	//   - Viewport: the viewport, owned by the caller
	//   - error: ErrInvalidViewportSize for a zero dimension, else a GPU creation error
	NewViewport(size common.Size2D, outputFormat wgpu.TextureFormat) (Viewport, error)

	// HandleInput forwards an input event to the camera controller.
	//
	// Parameters:
	//   - input: the translated window event
	//
	// Returns:
	//   - bool: true if the controller consumed it
	HandleInput(input camera.ControllerInput) bool

	// Update advances the camera by dt, the light animation by dt and every model entry to nowMs.
	//
	// Parameters:
	//   - v: the viewport whose camera moves
	//   - nowMs: the frame timestamp in milliseconds
	//   - dt: the time since the previous update in seconds
	//
	// Returns:
	//   - error: the combined upload errors, after every system was updated
	Update(v Viewport, nowMs uint64, dt float32) error

	// Render draws models then the skybox into v and tonemaps the result onto output.
	//
	// Parameters:
	//   - v: the viewport to render
	//   - output: the view the frame ends up in
	//
	// Returns:
	//   - error: an error if the frame could not be encoded or submitted
	Render(v Viewport, output *wgpu.TextureView) error

	// RenderToSurface renders one frame to the window surface and presents it. Lost and outdated
	// surfaces are reconfigured at the current window size and the viewport resized; any other
	// error is logged and the frame dropped. Nothing is drawn before the surface is configured.
	//
	// Parameters:
	//   - surface: the window surface
	//   - v: the viewport to render
	RenderToSurface(surface SurfaceTarget, v Viewport)

	// Resize resizes v. Zero dimensions are rejected.
	//
	// Parameters:
	//   - v: the viewport to resize
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrInvalidViewportSize for a zero dimension, else the resize error
	Resize(v Viewport, width, height uint32) error

	// Release frees every system. Viewports are released by their owners.
	Release()
}

var _ Engine = &engine{}

// New decodes the configured assets, then builds the camera, light, skybox and model systems in
// dependency order and adds the demo model entry.
//
// Parameters:
//   - ctx: cancels asset decoding
//   - device: the device every system is built on
//   - queue: the queue of device
//   - options: functional options for the engine configuration
//
// Returns:
//   - Engine: the engine
//   - error: a decode error or a GPU creation error; nothing is left allocated on failure
func New(ctx context.Context, device *wgpu.Device, queue *wgpu.Queue, options ...EngineBuilderOption) (Engine, error) {
	e := defaultEngine()
	e.device = device
	e.queue = queue
	for _, option := range options {
		option(e)
	}

	staged, err := stageAssets(ctx, e.assets)
	if err != nil {
		return nil, err
	}

	if err := e.build(staged); err != nil {
		e.Release()
		return nil, err
	}
	log.Printf("[engine] ready: %d model entries, cube face %d", len(e.modelSys.Entries()), e.cubeFaceSize)
	return e, nil
}

func (e *engine) build(staged stagedAssets) error {
	var err error
	e.cameraSys, err = camera.NewCameraSystem(e.device, e.initialSize, e.cameraOptions...)
	if err != nil {
		return err
	}

	e.lightSys, err = light.NewLightSystem(e.device, e.lightOptions...)
	if err != nil {
		return err
	}

	factory, err := texture.NewCubeTextureFactory(e.device, e.queue)
	if err != nil {
		return err
	}
	cube, err := factory.FromEquirect("Environment", staged.environment, e.cubeFaceSize)
	factory.Release()
	if err != nil {
		return err
	}

	e.skyboxSys, err = skybox.NewSkyboxSystem(e.device, cube, texture.CanvasFormat, e.cameraSys.BindGroupLayout())
	if err != nil {
		return err
	}

	e.modelSys, err = model.NewModelSystem(e.device, e.queue, texture.CanvasFormat, model.Layouts{
		Camera:      e.cameraSys.BindGroupLayout(),
		Light:       e.lightSys.BindGroupLayout(),
		Environment: e.skyboxSys.BindGroupLayout(),
	}, e.modelOptions...)
	if err != nil {
		return err
	}

	loader := e.loader
	if loader == nil {
		loader = model.NewVirtualLoader(
			model.WithDiffuseTexture(staged.diffuse),
			model.WithNormalTexture(staged.normal),
		)
	}
	data, err := loader.LoadModel(e.modelName)
	if err != nil {
		return err
	}
	m, err := e.modelSys.Upload(data)
	if err != nil {
		return err
	}
	// the entry holds its own reference
	defer m.Release()

	_, err = e.modelSys.AddEntry(m, model.NewGridInstancesProvider(e.gridPerRow, e.gridOptions...))
	return err
}

func (e *engine) Device() *wgpu.Device {
	return e.device
}

func (e *engine) Queue() *wgpu.Queue {
	return e.queue
}

func (e *engine) Cameras() camera.CameraSystem {
	return e.cameraSys
}

func (e *engine) Lights() light.LightSystem {
	return e.lightSys
}

func (e *engine) Models() model.ModelSystem {
	return e.modelSys
}

func (e *engine) Skybox() skybox.SkyboxSystem {
	return e.skyboxSys
}

func (e *engine) Controller() camera.CameraController {
	return e.controller
}

func (e *engine) NewViewport(size common.Size2D, outputFormat wgpu.TextureFormat) (Viewport, error) {
	if size.IsZero() {
		return nil, errors.Wrapf(ErrInvalidViewportSize, "%dx%d", size.Width, size.Height)
	}

	cam, err := e.cameraSys.ClaimEntry(e.device, e.queue, size)
	if err != nil {
		return nil, err
	}
	v, err := NewViewport(e.device, cam, ViewportConfiguration{Size: size, OutputFormat: outputFormat})
	if err != nil {
		cam.Release()
		return nil, err
	}
	log.Printf("[engine] viewport %s: %dx%d", v.ID(), size.Width, size.Height)
	return v, nil
}

func (e *engine) HandleInput(input camera.ControllerInput) bool {
	return e.controller.HandleInput(input)
}

func (e *engine) Update(v Viewport, nowMs uint64, dt float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	errs := v.UpdateCamera(e.queue, func(data *camera.CameraData) {
		e.controller.UpdateCamera(data, dt)
	})
	errs = errors.CombineErrors(errs, e.lightSys.Update(e.queue, dt))
	errs = errors.CombineErrors(errs, e.modelSys.Update(nowMs))
	return errs
}

func (e *engine) Render(v Viewport, output *wgpu.TextureView) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return v.Render(e.device, e.queue, output, func(pass *wgpu.RenderPassEncoder, cam camera.CameraEntry) {
		e.modelSys.Draw(pass, cam, e.lightSys, e.skyboxSys)
		e.skyboxSys.Draw(pass, cam)
	})
}

func (e *engine) RenderToSurface(surface SurfaceTarget, v Viewport) {
	if e.app != nil {
		e.app.RequestRedraw()
	}
	if !surface.IsConfigured() {
		return
	}

	frameErr := e.presentFrame(surface, v)
	switch {
	case frameErr == nil:
	case renderer.IsRecoverableSurfaceError(frameErr):
		width, height := e.windowSize(v)
		if !surface.ConfigureSurface(width, height) {
			return
		}
		if err := e.Resize(v, width, height); err != nil {
			log.Printf("[engine] resize after %v: %v", frameErr, err)
		}
	default:
		log.Printf("[engine] unable to render: %v", frameErr)
	}
}

func (e *engine) presentFrame(surface SurfaceTarget, v Viewport) error {
	output, err := surface.AcquireOutput()
	if err != nil {
		return err
	}
	if err := e.Render(v, output.View); err != nil {
		output.Release()
		return renderer.ClassifySurfaceError(err)
	}
	output.Present()
	return nil
}

// windowSize is the size a lost surface is reconfigured at.
func (e *engine) windowSize(v Viewport) (uint32, uint32) {
	if e.app != nil {
		return e.app.WindowSize()
	}
	size := v.Size()
	return size.Width, size.Height
}

func (e *engine) Resize(v Viewport, width, height uint32) error {
	if width == 0 || height == 0 {
		return errors.Wrapf(ErrInvalidViewportSize, "%dx%d", width, height)
	}
	return v.Resize(e.queue, width, height)
}

func (e *engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.modelSys != nil {
		e.modelSys.Release()
		e.modelSys = nil
	}
	if e.skyboxSys != nil {
		e.skyboxSys.Release()
		e.skyboxSys = nil
	}
	if e.lightSys != nil {
		e.lightSys.Release()
		e.lightSys = nil
	}
	if e.cameraSys != nil {
		e.cameraSys.Release()
		e.cameraSys = nil
	}
}
