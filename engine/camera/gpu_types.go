package camera

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (272 bytes).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 272 bytes.
type GPUCameraUniform struct {
	ViewPosition [4]float32 // offset   0: world-space eye position, w = 1
	View         mgl32.Mat4 // offset  16: world-to-view
	ViewProj     mgl32.Mat4 // offset  80: projection * view
	InvProj      mgl32.Mat4 // offset 144: inverse projection
	InvView      mgl32.Mat4 // offset 208: transpose of view, the inverse of its rotation part
}

// NewGPUCameraUniform returns a uniform with identity matrices and the eye at the origin.
func NewGPUCameraUniform() GPUCameraUniform {
	return GPUCameraUniform{
		View:     mgl32.Ident4(),
		ViewProj: mgl32.Ident4(),
		InvProj:  mgl32.Ident4(),
		InvView:  mgl32.Ident4(),
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (272)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// UpdateViewProj recomputes every field from the camera pose and projection.
// All derived matrices are rewritten together so the uniform never mixes
// values from different poses.
//
// Parameters:
//   - data: the camera pose
//   - projection: the projection the camera renders with
func (g *GPUCameraUniform) UpdateViewProj(data CameraData, projection Projection) {
	view := data.Matrix()
	proj := projection.Matrix()

	g.ViewPosition = [4]float32{data.Position.X(), data.Position.Y(), data.Position.Z(), 1}
	g.View = view
	g.ViewProj = proj.Mul4(view)
	g.InvProj = proj.Inv()
	g.InvView = view.Transpose()
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.ViewPosition[:]...)
	off = common.PutMat4(buf, off, g.View)
	off = common.PutMat4(buf, off, g.ViewProj)
	off = common.PutMat4(buf, off, g.InvProj)
	common.PutMat4(buf, off, g.InvView)
	return buf
}
