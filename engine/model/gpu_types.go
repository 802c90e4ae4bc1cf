package model

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// ModelVertexSource is the canonical WGSL definition of the VertexInput struct for model pipelines.
// Matches ModelVertex layout exactly (56 bytes, locations 0-4).
//
//go:embed assets/model_vertex.wgsl
var ModelVertexSource string

// ModelVertex is one mesh vertex as the model pipelines read it from vertex buffer slot 0.
// Size: 56 bytes, tightly packed.
type ModelVertex struct {
	Position  mgl32.Vec3 // offset  0, location 0
	TexCoords mgl32.Vec2 // offset 12, location 1
	Normal    mgl32.Vec3 // offset 20, location 2
	Tangent   mgl32.Vec3 // offset 32, location 3
	Bitangent mgl32.Vec3 // offset 44, location 4
}

// Size returns the size of the ModelVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *ModelVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// ModelVertexLayout describes ModelVertex to a render pipeline.
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-vertex buffer layout
func ModelVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64((&ModelVertex{}).Size()),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 32, ShaderLocation: 3},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 44, ShaderLocation: 4},
		},
	}
}

// MarshalVertices packs vertices for a vertex buffer upload.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - []byte: 56 bytes per vertex
func MarshalVertices(vertices []ModelVertex) []byte {
	buf := make([]byte, len(vertices)*56)
	off := 0
	for _, v := range vertices {
		off = common.PutFloat32s(buf, off, v.Position[:]...)
		off = common.PutFloat32s(buf, off, v.TexCoords[:]...)
		off = common.PutFloat32s(buf, off, v.Normal[:]...)
		off = common.PutFloat32s(buf, off, v.Tangent[:]...)
		off = common.PutFloat32s(buf, off, v.Bitangent[:]...)
	}
	return buf
}

// InstanceDataSource is the canonical WGSL definition of the InstanceInput struct.
// Matches InstanceData layout exactly (112 bytes, locations 5-12).
//
//go:embed assets/instance_data.wgsl
var InstanceDataSource string

// InstanceData is the per-instance record read from vertex buffer slot 1.
// The model matrix carries translation and rotation; scale is applied separately so the
// normal matrix stays a pure rotation.
// Size: 112 bytes, tightly packed.
type InstanceData struct {
	Model  mgl32.Mat4 // offset   0, locations 5-8
	Normal mgl32.Mat3 // offset  64, locations 9-11
	Scale  mgl32.Vec3 // offset 100, location 12
}

// NewInstanceData builds the record for one instance.
//
// Parameters:
//   - position: the world position
//   - rotation: the orientation, normalized before use
//   - scale: the per-axis scale
//
// Returns:
//   - InstanceData: the packed instance
func NewInstanceData(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) InstanceData {
	r := rotation.Normalize()
	return InstanceData{
		Model:  mgl32.Translate3D(position.X(), position.Y(), position.Z()).Mul4(r.Mat4()),
		Normal: r.Mat4().Mat3(),
		Scale:  scale,
	}
}

// Size returns the size of the InstanceData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (d *InstanceData) Size() int {
	return int(unsafe.Sizeof(*d))
}

// InstanceDataLayout describes InstanceData to a render pipeline.
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-instance buffer layout
func InstanceDataLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64((&InstanceData{}).Size()),
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 5},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 6},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 7},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 8},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 64, ShaderLocation: 9},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 76, ShaderLocation: 10},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 88, ShaderLocation: 11},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 100, ShaderLocation: 12},
		},
	}
}

// MarshalInstances packs instance records for an instance buffer upload.
//
// Parameters:
//   - instances: the records to pack
//
// Returns:
//   - []byte: 112 bytes per instance
func MarshalInstances(instances []InstanceData) []byte {
	buf := make([]byte, len(instances)*112)
	off := 0
	for _, d := range instances {
		off = common.PutMat4(buf, off, d.Model)
		off = common.PutFloat32s(buf, off, d.Normal[:]...)
		off = common.PutFloat32s(buf, off, d.Scale[:]...)
	}
	return buf
}

// InstanceBufferSize returns the byte length an instance buffer needs for count instances.
func InstanceBufferSize(count int) uint64 {
	return uint64(count) * uint64((&InstanceData{}).Size())
}
