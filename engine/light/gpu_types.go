package light

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULightUniformSource is the canonical WGSL definition of the LightUniform struct.
// WGSL pads each vec3 to 16 bytes, which GPULightUniform mirrors with explicit padding words.
//
//go:embed assets/light_uniform.wgsl
var GPULightUniformSource string

// GPULightUniform is the GPU-aligned representation of the light uniform buffer.
// Size: 32 bytes.
type GPULightUniform struct {
	Position mgl32.Vec3 // offset  0
	_        uint32     // offset 12: vec3 alignment padding
	Color    mgl32.Vec3 // offset 16
	_        uint32     // offset 28: vec3 alignment padding
}

// Size returns the size of the GPULightUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULightUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULightUniform struct into a byte buffer suitable for GPU upload.
// Padding words are written as zero.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPULightUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, 0, g.Position[:]...)
	common.PutFloat32s(buf, 16, g.Color[:]...)
	return buf
}
