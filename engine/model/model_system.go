package model

import (
	_ "embed"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/light"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/model.wgsl
var modelShaderSource string

//go:embed assets/light_indicator.wgsl
var lightIndicatorShaderSource string

// shaderIncludes are the struct definitions model shaders pull in with //@include.
func shaderIncludes() map[string]string {
	return map[string]string{
		"camera":        camera.GPUCameraUniformSource,
		"light":         light.GPULightUniformSource,
		"model_vertex":  ModelVertexSource,
		"instance_data": InstanceDataSource,
	}
}

// BindGroupSource is anything that exposes the bind group a draw call needs.
type BindGroupSource interface {
	BindGroup() *wgpu.BindGroup
}

// Layouts are the bind group layouts the model pipelines are built against. The model pipeline
// binds them as material 0, camera 1, light 2, environment 3; the indicator as camera 0, light 1.
type Layouts struct {
	Camera      *wgpu.BindGroupLayout
	Light       *wgpu.BindGroupLayout
	Environment *wgpu.BindGroupLayout
}

type modelSystem struct {
	mu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue

	materialLayout    *wgpu.BindGroupLayout
	pipelineSimple    pipeline.Pipeline
	pipelineIndicator pipeline.Pipeline

	entries       []*ModelEntrySimple
	indicator     *LightIndicatorEntry
	indicatorSize float32

	pool    worker.DynamicWorkerPool
	workers int
	taskID  int
}

// ModelSystem holds the simple model entries and the optional light indicator, and draws them.
type ModelSystem interface {
	// MaterialBindGroupLayout returns the layout materials must be created against.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the material layout
	MaterialBindGroupLayout() *wgpu.BindGroupLayout

	// Upload uploads loaded model data against the material layout.
	//
	// Parameters:
	//   - data: the loaded model
	//
	// Returns:
	//   - Model: the uploaded model with one holder, owned by the caller
	//   - error: an error if the data is invalid or the upload failed
	Upload(data ModelData) (Model, error)

	// AddEntry creates an entry drawing m once per instance provider record.
	//
	// Parameters:
	//   - m: the model, retained by the entry
	//   - provider: the source of instance records
	//
	// Returns:
	//   - *ModelEntrySimple: the entry
	//   - error: an error if the instance buffer could not be created
	AddEntry(m Model, provider InstancesProvider) (*ModelEntrySimple, error)

	// Entries returns the simple entries in draw order.
	//
	// Returns:
	//   - []*ModelEntrySimple: the entries
	Entries() []*ModelEntrySimple

	// HasLightIndicator reports whether the light indicator is drawn.
	//
	// Returns:
	//   - bool: true if an indicator entry exists
	HasLightIndicator() bool

	// Update recomputes every entry's instances for nowMs on the worker pool, then rewrites
	// or reallocates the instance buffers on the calling goroutine.
	//
	// Parameters:
	//   - nowMs: the frame timestamp in milliseconds
	//
	// Returns:
	//   - error: the first instance buffer error, after every entry was attempted
	Update(nowMs uint64) error

	// Draw records every entry, then the light indicator, into pass.
	//
	// Parameters:
	//   - pass: an open render pass with the canvas and depth attachments
	//   - cam: the camera entry
	//   - lights: the light system
	//   - environment: the skybox exposing the environment bind group
	Draw(pass *wgpu.RenderPassEncoder, cam, lights, environment BindGroupSource)

	// Release frees every entry, the indicator, both pipelines and the material layout.
	Release()
}

var _ ModelSystem = &modelSystem{}

// NewModelSystem builds the material layout and both render pipelines.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - queue: the queue instance buffers are written through
//   - colorFormat: the format of the canvas the pipelines render into
//   - layouts: the camera, light and environment layouts
//   - options: functional options configuring workers and the light indicator
//
// Returns:
//   - ModelSystem: the model system
//   - error: an error if any GPU object could not be created
func NewModelSystem(device *wgpu.Device, queue *wgpu.Queue, colorFormat wgpu.TextureFormat, layouts Layouts, options ...ModelSystemBuilderOption) (ModelSystem, error) {
	s := &modelSystem{
		mu:            &sync.Mutex{},
		device:        device,
		queue:         queue,
		indicatorSize: 0.25,
		workers:       max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	simpleShader, err := shader.NewShader("model", modelShaderSource, shaderIncludes())
	if err != nil {
		return nil, err
	}
	indicatorShader, err := shader.NewShader("light_indicator", lightIndicatorShaderSource, shaderIncludes())
	if err != nil {
		return nil, err
	}

	s.materialLayout, err = NewMaterialBindGroupLayout(device)
	if err != nil {
		return nil, err
	}

	s.pipelineSimple, err = pipeline.NewRenderPipeline(device, "model", simpleShader,
		[]*wgpu.BindGroupLayout{s.materialLayout, layouts.Camera, layouts.Light, layouts.Environment},
		colorFormat,
		pipeline.WithVertexBuffers(ModelVertexLayout(), InstanceDataLayout()),
		pipeline.WithDepthFormat(texture.DepthFormat),
	)
	if err != nil {
		s.Release()
		return nil, err
	}

	s.pipelineIndicator, err = pipeline.NewRenderPipeline(device, "light_indicator", indicatorShader,
		[]*wgpu.BindGroupLayout{layouts.Camera, layouts.Light},
		colorFormat,
		pipeline.WithVertexBuffers(ModelVertexLayout()),
		pipeline.WithDepthFormat(texture.DepthFormat),
	)
	if err != nil {
		s.Release()
		return nil, err
	}

	if s.indicatorSize > 0 {
		s.indicator, err = NewLightIndicatorEntry(device, s.indicatorSize)
		if err != nil {
			s.Release()
			return nil, err
		}
	}

	// Queue size of 64 covers every entry of a frame; idle workers exit after a second.
	s.pool = worker.NewDynamicWorkerPool(s.workers, 64, 1*time.Second)
	return s, nil
}

func (s *modelSystem) MaterialBindGroupLayout() *wgpu.BindGroupLayout {
	return s.materialLayout
}

func (s *modelSystem) Upload(data ModelData) (Model, error) {
	return Upload(s.device, s.queue, s.materialLayout, data)
}

func (s *modelSystem) AddEntry(m Model, provider InstancesProvider) (*ModelEntrySimple, error) {
	entry, err := NewModelEntrySimple(s.device, s.queue, m, provider)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return entry, nil
}

func (s *modelSystem) Entries() []*ModelEntrySimple {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ModelEntrySimple(nil), s.entries...)
}

func (s *modelSystem) HasLightIndicator() bool {
	return s.indicator != nil
}

func (s *modelSystem) Update(nowMs uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Instance math runs on the pool; a WaitGroup is the per-frame barrier because the
	// pool's own Wait blocks until workers idle out.
	var wg sync.WaitGroup
	for _, entry := range s.entries {
		wg.Add(1)
		provider := entry.provider
		s.taskID++
		s.pool.SubmitTask(worker.Task{
			ID: s.taskID,
			Do: func() (any, error) {
				defer wg.Done()
				provider.Update(nowMs)
				return nil, nil
			},
		})
	}
	wg.Wait()

	var errs error
	for _, entry := range s.entries {
		errs = errors.CombineErrors(errs, entry.upload())
	}
	return errs
}

func (s *modelSystem) Draw(pass *wgpu.RenderPassEncoder, cam, lights, environment BindGroupSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 {
		pass.SetPipeline(s.pipelineSimple.Render())
		shared := [3]*wgpu.BindGroup{cam.BindGroup(), lights.BindGroup(), environment.BindGroup()}
		for _, entry := range s.entries {
			entry.draw(pass, shared)
		}
	}

	if s.indicator != nil {
		pass.SetPipeline(s.pipelineIndicator.Render())
		pass.SetBindGroup(0, cam.BindGroup(), nil)
		pass.SetBindGroup(1, lights.BindGroup(), nil)
		s.indicator.draw(pass)
	}
}

func (s *modelSystem) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		entry.Release()
	}
	s.entries = nil
	if s.indicator != nil {
		s.indicator.Release()
		s.indicator = nil
	}
	if s.pipelineSimple != nil {
		s.pipelineSimple.Release()
		s.pipelineSimple = nil
	}
	if s.pipelineIndicator != nil {
		s.pipelineIndicator.Release()
		s.pipelineIndicator = nil
	}
	if s.materialLayout != nil {
		s.materialLayout.Release()
		s.materialLayout = nil
	}
}
