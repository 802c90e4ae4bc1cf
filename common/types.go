// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Size2D is a pixel size. Viewports, canvases and depth buffers all carry one.
type Size2D struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero, which no GPU attachment accepts.
func (s Size2D) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// Aspect returns Width / Height.
func (s Size2D) Aspect() float32 {
	return float32(s.Width) / float32(s.Height)
}

// TextureStagingData holds RGBA8 pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// FloatTextureStagingData holds RGBA32Float pixel data, 4 float32 values per pixel, row-major.
// HDR environment images are staged in this form before the cubemap conversion.
type FloatTextureStagingData struct {
	Pixels []float32
	Width  uint32
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// Descriptor converts the staging data into a wgpu.SamplerDescriptor with the given label.
func (s SamplerStagingData) Descriptor(label string) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  s.AddressModeU,
		AddressModeV:  s.AddressModeV,
		AddressModeW:  s.AddressModeW,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   Coalesce(s.LodMaxClamp, 32),
		Compare:       s.Compare,
		MaxAnisotropy: Coalesce(s.MaxAnisotropy, 1),
	}
}
