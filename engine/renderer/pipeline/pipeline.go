package pipeline

import (
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	key          string
	shader       shader.Shader

	module          *wgpu.ShaderModule
	layout          *wgpu.PipelineLayout
	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	// render state, unused by compute pipelines
	colorFormat         wgpu.TextureFormat
	vertexBuffers       []wgpu.VertexBufferLayout
	depthEnabled        bool
	depthFormat         wgpu.TextureFormat
	depthCompare        wgpu.CompareFunction
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	blendState          *wgpu.BlendState
}

// Pipeline is a created GPU pipeline together with the shader it was built from.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// Key returns the label the pipeline was created with.
	//
	// Returns:
	//   - string: the pipeline's key
	Key() string

	// Shader returns the shader the pipeline's stages come from.
	//
	// Returns:
	//   - shader.Shader: the pipeline's shader
	Shader() shader.Shader

	// Render returns the render pipeline, nil for compute pipelines.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	Render() *wgpu.RenderPipeline

	// Compute returns the compute pipeline, nil for render pipelines.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline
	Compute() *wgpu.ComputePipeline

	// Release frees the pipeline, its layout, and its shader module.
	Release()
}

var _ Pipeline = &pipeline{}

// defaultRenderPipeline returns the render state shared by every engine pass: counter-clockwise
// front faces with back-face culling, a Depth32Float attachment tested LessEqual with writes on and a
// small bias, and a color target that replaces what is underneath.
func defaultRenderPipeline(key string, s shader.Shader, colorFormat wgpu.TextureFormat) *pipeline {
	return &pipeline{
		pipelineType:        PipelineTypeRender,
		key:                 key,
		shader:              s,
		colorFormat:         colorFormat,
		depthEnabled:        true,
		depthFormat:         wgpu.TextureFormatDepth32Float,
		depthCompare:        wgpu.CompareFunctionLessEqual,
		depthWriteEnabled:   true,
		depthBias:           2,
		depthBiasSlopeScale: 2.0,
		cullMode:            wgpu.CullModeBack,
		topology:            wgpu.PrimitiveTopologyTriangleList,
		frontFace:           wgpu.FrontFaceCCW,
		blendState:          &wgpu.BlendStateReplace,
	}
}

// NewRenderPipeline creates a render pipeline drawing into one color target of colorFormat.
// The shader must carry both a vertex and a fragment entry point.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - key: the label of the pipeline
//   - s: the shader holding the vertex and fragment entry points
//   - bindGroupLayouts: the bind group layouts in group order
//   - colorFormat: the format of the color target
//   - opts: options overriding the default render state
//
// Returns:
//   - Pipeline: the created pipeline
//   - error: an error if the shader is incomplete or GPU object creation failed
func NewRenderPipeline(device *wgpu.Device, key string, s shader.Shader, bindGroupLayouts []*wgpu.BindGroupLayout, colorFormat wgpu.TextureFormat, opts ...PipelineBuilderOption) (Pipeline, error) {
	if s.EntryPoint(shader.StageVertex) == "" || s.EntryPoint(shader.StageFragment) == "" {
		return nil, errors.Newf("pipeline %s: shader %s needs vertex and fragment entry points", key, s.Key())
	}

	p := defaultRenderPipeline(key, s, colorFormat)
	for _, opt := range opts {
		opt(p)
	}

	if err := p.createLayout(device, bindGroupLayouts); err != nil {
		return nil, err
	}

	desc := p.renderDescriptor()
	created, err := device.CreateRenderPipeline(desc)
	if err != nil {
		p.Release()
		return nil, errors.Wrapf(err, "create %s render pipeline", key)
	}
	p.renderPipeline = created
	return p, nil
}

// NewComputePipeline creates a compute pipeline from the shader's compute entry point.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - key: the label of the pipeline
//   - s: the shader holding the compute entry point
//   - bindGroupLayouts: the bind group layouts in group order
//
// Returns:
//   - Pipeline: the created pipeline
//   - error: an error if the shader has no compute entry or GPU object creation failed
func NewComputePipeline(device *wgpu.Device, key string, s shader.Shader, bindGroupLayouts []*wgpu.BindGroupLayout) (Pipeline, error) {
	entry := s.EntryPoint(shader.StageCompute)
	if entry == "" {
		return nil, errors.Newf("pipeline %s: shader %s has no compute entry point", key, s.Key())
	}

	p := &pipeline{pipelineType: PipelineTypeCompute, key: key, shader: s}
	if err := p.createLayout(device, bindGroupLayouts); err != nil {
		return nil, err
	}

	created, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  key + " Compute Pipeline",
		Layout: p.layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     p.module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		p.Release()
		return nil, errors.Wrapf(err, "create %s compute pipeline", key)
	}
	p.computePipeline = created
	return p, nil
}

// createLayout builds the shader module and pipeline layout.
func (p *pipeline) createLayout(device *wgpu.Device, bindGroupLayouts []*wgpu.BindGroupLayout) error {
	module, err := device.CreateShaderModule(p.shader.Module())
	if err != nil {
		return errors.Wrapf(err, "create %s shader module", p.shader.Key())
	}
	p.module = module

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.key + " Pipeline Layout",
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		p.Release()
		return errors.Wrapf(err, "create %s pipeline layout", p.key)
	}
	p.layout = layout
	return nil
}

// renderDescriptor assembles the render pipeline descriptor from the configured state.
func (p *pipeline) renderDescriptor() *wgpu.RenderPipelineDescriptor {
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.key + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.StageVertex),
			Buffers:    p.vertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.StageFragment),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    p.colorFormat,
					Blend:     p.blendState,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if p.depthEnabled {
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              p.depthFormat,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        p.depthCompare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) Render() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Compute() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
