// Package skybox draws the environment cube map behind all opaque geometry and exposes the
// environment bind group model shaders sample reflections from.
package skybox

import (
	_ "embed"
	"sync"

	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/sky.wgsl
var skyShaderSource string

// SkyShader returns the parsed sky shader.
func SkyShader() (shader.Shader, error) {
	return shader.NewShader("sky", skyShaderSource, map[string]string{"camera": camera.GPUCameraUniformSource})
}

type bindGroupSource interface {
	BindGroup() *wgpu.BindGroup
}

type skyboxSystem struct {
	mu *sync.Mutex

	cube      texture.Texture
	layout    *wgpu.BindGroupLayout
	bindGroup *wgpu.BindGroup
	pipeline  pipeline.Pipeline
}

// SkyboxSystem owns the environment cube texture, its bind group and the sky pipeline.
type SkyboxSystem interface {
	// BindGroupLayout returns the environment layout: a non-filterable cube texture at binding 0
	// and a non-filtering sampler at binding 1, both visible to the fragment stage.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the environment layout
	BindGroupLayout() *wgpu.BindGroupLayout

	// BindGroup returns the environment bind group.
	//
	// Returns:
	//   - *wgpu.BindGroup: the environment bind group
	BindGroup() *wgpu.BindGroup

	// CubeTexture returns the environment cube texture.
	//
	// Returns:
	//   - texture.Texture: the cube texture
	CubeTexture() texture.Texture

	// Draw binds the camera at slot 0 and the environment at slot 1 and draws one
	// full-screen triangle on the far plane.
	//
	// Parameters:
	//   - pass: an open render pass with a depth attachment
	//   - cam: the camera entry
	Draw(pass *wgpu.RenderPassEncoder, cam bindGroupSource)

	// Release frees the pipeline, the bind group, the layout and the cube texture.
	Release()
}

var _ SkyboxSystem = &skyboxSystem{}

// NewSkyboxSystem takes ownership of cube and builds the environment bind group and the sky pipeline.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - cube: the environment cube texture
//   - colorFormat: the format of the canvas the sky renders into
//   - cameraLayout: the camera bind group layout
//
// Returns:
//   - SkyboxSystem: the skybox
//   - error: an error if any GPU object could not be created; cube is released in that case
func NewSkyboxSystem(device *wgpu.Device, cube texture.Texture, colorFormat wgpu.TextureFormat, cameraLayout *wgpu.BindGroupLayout) (SkyboxSystem, error) {
	s := &skyboxSystem{mu: &sync.Mutex{}, cube: cube}

	sky, err := SkyShader()
	if err != nil {
		s.Release()
		return nil, err
	}

	s.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Environment Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimensionCube,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering},
			},
		},
	})
	if err != nil {
		s.Release()
		return nil, errors.Wrap(err, "create environment bind group layout")
	}

	s.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Environment Bind Group",
		Layout: s.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: cube.View()},
			{Binding: 1, Sampler: cube.Sampler()},
		},
	})
	if err != nil {
		s.Release()
		return nil, errors.Wrap(err, "create environment bind group")
	}

	// no vertex buffers; the triangle comes from the vertex index
	s.pipeline, err = pipeline.NewRenderPipeline(device, "sky", sky,
		[]*wgpu.BindGroupLayout{cameraLayout, s.layout},
		colorFormat,
		pipeline.WithDepthFormat(texture.DepthFormat),
	)
	if err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *skyboxSystem) BindGroupLayout() *wgpu.BindGroupLayout {
	return s.layout
}

func (s *skyboxSystem) BindGroup() *wgpu.BindGroup {
	return s.bindGroup
}

func (s *skyboxSystem) CubeTexture() texture.Texture {
	return s.cube
}

func (s *skyboxSystem) Draw(pass *wgpu.RenderPassEncoder, cam bindGroupSource) {
	pass.SetPipeline(s.pipeline.Render())
	pass.SetBindGroup(0, cam.BindGroup(), nil)
	pass.SetBindGroup(1, s.bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
}

func (s *skyboxSystem) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
	if s.bindGroup != nil {
		s.bindGroup.Release()
		s.bindGroup = nil
	}
	if s.layout != nil {
		s.layout.Release()
		s.layout = nil
	}
	if s.cube != nil {
		s.cube.Release()
		s.cube = nil
	}
}
