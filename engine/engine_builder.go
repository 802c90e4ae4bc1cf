package engine

import (
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/light"
	"github.com/Carmen-Shannon/ab3de/engine/model"
)

// Defaults applied by New before any option.
const (
	DefaultCubeFaceSize = 1080
	DefaultGridPerRow   = 10
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

func defaultEngine() *engine {
	return &engine{
		mu:           &sync.Mutex{},
		initialSize:  common.Size2D{Width: 800, Height: 600},
		cubeFaceSize: DefaultCubeFaceSize,
		gridPerRow:   DefaultGridPerRow,
		modelName:    model.CubeModelName,
		controller:   camera.NewCameraController(),
	}
}

// WithApplicationContext sets the host window the engine asks for redraws and reads the size of
// when a lost surface must be reconfigured.
//
// Parameters:
//   - app: the host window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithApplicationContext(app ApplicationContext) EngineBuilderOption {
	return func(e *engine) {
		e.app = app
	}
}

// WithInitialSize sets the size the camera system's first entry is built at.
//
// Parameters:
//   - size: the initial viewport size, both dimensions non-zero
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInitialSize(size common.Size2D) EngineBuilderOption {
	return func(e *engine) {
		e.initialSize = size
	}
}

// WithCubeFaceSize sets the edge length of each environment cube face.
//
// Parameters:
//   - size: the face size in texels (default 1080)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCubeFaceSize(size uint32) EngineBuilderOption {
	return func(e *engine) {
		e.cubeFaceSize = size
	}
}

// WithAssets sets the files decoded at startup.
//
// Parameters:
//   - sources: the asset paths; empty paths use procedural assets
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAssets(sources AssetSources) EngineBuilderOption {
	return func(e *engine) {
		e.assets = sources
	}
}

// WithLoader replaces the virtual loader the demo model is loaded from.
//
// Parameters:
//   - loader: the model loader
//   - name: the model to load
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoader(loader model.Loader, name string) EngineBuilderOption {
	return func(e *engine) {
		e.loader = loader
		e.modelName = name
	}
}

// WithGrid configures the instance grid of the demo model entry.
//
// Parameters:
//   - perRow: the number of instances along each grid side (default 10)
//   - options: grid spacing and scale options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGrid(perRow int, options ...model.GridOption) EngineBuilderOption {
	return func(e *engine) {
		e.gridPerRow = perRow
		e.gridOptions = options
	}
}

// WithController replaces the default fly camera controller.
//
// Parameters:
//   - controller: the camera controller
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithController(controller camera.CameraController) EngineBuilderOption {
	return func(e *engine) {
		e.controller = controller
	}
}

// WithCameraOptions forwards options to the camera system.
func WithCameraOptions(options ...camera.CameraSystemBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.cameraOptions = append(e.cameraOptions, options...)
	}
}

// WithLightOptions forwards options to the light system.
func WithLightOptions(options ...light.LightSystemBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.lightOptions = append(e.lightOptions, options...)
	}
}

// WithModelOptions forwards options to the model system.
func WithModelOptions(options ...model.ModelSystemBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.modelOptions = append(e.modelOptions, options...)
	}
}
