package texture

import "github.com/cogentcore/webgpu/wgpu"

const (
	// CanvasFormat is the format of the offscreen HDR color target every viewport renders into.
	CanvasFormat = wgpu.TextureFormatRGBA16Float

	// DepthFormat is the format of every depth attachment.
	DepthFormat = wgpu.TextureFormatDepth32Float

	// CubeFormat is the format of environment cube textures. 32-bit float is not filterable,
	// so cube textures are sampled with a non-filtering sampler.
	CubeFormat = wgpu.TextureFormatRGBA32Float

	// DiffuseFormat stores color textures; the sampler returns linear values.
	DiffuseFormat = wgpu.TextureFormatRGBA8UnormSrgb

	// NormalFormat stores tangent-space normal maps, which must not be gamma decoded.
	NormalFormat = wgpu.TextureFormatRGBA8Unorm
)

// BytesPerPixel returns the texel size of the formats this package creates, 0 for anything else.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - uint32: bytes per texel
func BytesPerPixel(format wgpu.TextureFormat) uint32 {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb,
		wgpu.TextureFormatDepth32Float:
		return 4
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	}
	return 0
}
