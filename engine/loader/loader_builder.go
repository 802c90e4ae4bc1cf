package loader

import "github.com/Carmen-Shannon/ab3de/common"

// LoaderBuilderOption is a functional option for configuring a loader via NewGLTFLoader.
type LoaderBuilderOption func(*gltfLoader)

// WithMaxTextureEdge caps the longer edge of decoded material textures. Larger images are scaled
// down. Zero keeps every texture at its original size.
//
// Parameters:
//   - edge: the largest allowed edge in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cap to a loader
func WithMaxTextureEdge(edge uint32) LoaderBuilderOption {
	return func(l *gltfLoader) {
		l.maxTextureEdge = edge
	}
}

// WithFallbackTextures replaces the textures used for materials whose textures are missing or
// fail to decode.
//
// Parameters:
//   - diffuse: the fallback base color texture
//   - normal: the fallback normal map
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fallbacks to a loader
func WithFallbackTextures(diffuse, normal common.TextureStagingData) LoaderBuilderOption {
	return func(l *gltfLoader) {
		l.diffuse = diffuse
		l.normal = normal
	}
}
