package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullscreenSource = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

func TestRenderDescriptor_Defaults(t *testing.T) {
	s := shader.MustShader("test", fullscreenSource, nil)
	p := defaultRenderPipeline("test", s, wgpu.TextureFormatRGBA16Float)

	desc := p.renderDescriptor()
	assert.Equal(t, "vs_main", desc.Vertex.EntryPoint)
	assert.Equal(t, "fs_main", desc.Fragment.EntryPoint)
	assert.Empty(t, desc.Vertex.Buffers)

	require.Len(t, desc.Fragment.Targets, 1)
	target := desc.Fragment.Targets[0]
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, target.Format)
	assert.Equal(t, wgpu.BlendStateReplace, *target.Blend)
	assert.Equal(t, wgpu.ColorWriteMaskAll, target.WriteMask)

	assert.Equal(t, wgpu.FrontFaceCCW, desc.Primitive.FrontFace)
	assert.Equal(t, wgpu.CullModeBack, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)

	require.NotNil(t, desc.DepthStencil)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, desc.DepthStencil.Format)
	assert.Equal(t, wgpu.CompareFunctionLessEqual, desc.DepthStencil.DepthCompare)
	assert.True(t, desc.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, int32(2), desc.DepthStencil.DepthBias)
	assert.Equal(t, float32(2.0), desc.DepthStencil.DepthBiasSlopeScale)
}

func TestRenderDescriptor_Options(t *testing.T) {
	s := shader.MustShader("test", fullscreenSource, nil)
	p := defaultRenderPipeline("test", s, wgpu.TextureFormatBGRA8Unorm)

	vb := wgpu.VertexBufferLayout{ArrayStride: 8, StepMode: wgpu.VertexStepModeVertex}
	for _, opt := range []PipelineBuilderOption{
		WithoutDepth(),
		WithCullMode(wgpu.CullModeNone),
		WithFrontFace(wgpu.FrontFaceCW),
		WithBlendState(nil),
		WithVertexBuffers(vb),
		WithTopology(wgpu.PrimitiveTopologyLineList),
	} {
		opt(p)
	}

	desc := p.renderDescriptor()
	assert.Nil(t, desc.DepthStencil)
	assert.Nil(t, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, wgpu.CullModeNone, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.FrontFaceCW, desc.Primitive.FrontFace)
	assert.Equal(t, []wgpu.VertexBufferLayout{vb}, desc.Vertex.Buffers)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, desc.Primitive.Topology)

	WithDepthFormat(wgpu.TextureFormatDepth24Plus)(p)
	WithDepthWriteEnabled(false)(p)
	WithDepthCompare(wgpu.CompareFunctionAlways)(p)
	WithDepthBias(0, 0)(p)
	desc = p.renderDescriptor()
	require.NotNil(t, desc.DepthStencil)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, desc.DepthStencil.Format)
	assert.False(t, desc.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionAlways, desc.DepthStencil.DepthCompare)
	assert.Zero(t, desc.DepthStencil.DepthBias)
}

func TestNewRenderPipeline_RejectsComputeShader(t *testing.T) {
	s := shader.MustShader("cs", "@compute @workgroup_size(1) fn main() {}", nil)
	_, err := NewRenderPipeline(nil, "bad", s, nil, wgpu.TextureFormatRGBA16Float)
	assert.Error(t, err)

	_, err = NewComputePipeline(nil, "bad", shader.MustShader("rs", fullscreenSource, nil), nil)
	assert.Error(t, err)
}
