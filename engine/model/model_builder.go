package model

import "github.com/Carmen-Shannon/ab3de/common"

// VirtualLoaderOption is a functional option for configuring the virtual loader.
type VirtualLoaderOption func(*virtualLoader)

// WithCubeSize sets the edge length of the generated cube.
//
// Parameters:
//   - size: edge length in world units
//
// Returns:
//   - VirtualLoaderOption: functional option to set the cube size
func WithCubeSize(size float32) VirtualLoaderOption {
	return func(l *virtualLoader) {
		l.cubeSize = size
	}
}

// WithDiffuseTexture replaces the generated checker texture.
//
// Parameters:
//   - diffuse: RGBA8 pixels of the diffuse texture
//
// Returns:
//   - VirtualLoaderOption: functional option to set the diffuse texture
func WithDiffuseTexture(diffuse common.TextureStagingData) VirtualLoaderOption {
	return func(l *virtualLoader) {
		l.diffuse = diffuse
	}
}

// WithNormalTexture replaces the generated flat normal map.
//
// Parameters:
//   - normal: RGBA8 pixels of the tangent-space normal map
//
// Returns:
//   - VirtualLoaderOption: functional option to set the normal texture
func WithNormalTexture(normal common.TextureStagingData) VirtualLoaderOption {
	return func(l *virtualLoader) {
		l.normal = normal
	}
}

// GridOption is a functional option for configuring a GridInstancesProvider.
type GridOption func(*gridInstancesProvider)

// WithSpacing sets the distance between neighbouring instances.
func WithSpacing(spacing float32) GridOption {
	return func(g *gridInstancesProvider) {
		g.spacing = spacing
	}
}

// WithGlobalScale sets the factor every pulsing scale is multiplied by.
func WithGlobalScale(scale float32) GridOption {
	return func(g *gridInstancesProvider) {
		g.globalScale = scale
	}
}

// ModelSystemBuilderOption is a functional option for configuring a ModelSystem.
type ModelSystemBuilderOption func(*modelSystem)

// WithUpdateWorkers sets how many pool workers recompute instance data in parallel.
//
// Parameters:
//   - n: the worker count, values below 1 are raised to 1
//
// Returns:
//   - ModelSystemBuilderOption: functional option to set the worker count
func WithUpdateWorkers(n int) ModelSystemBuilderOption {
	return func(s *modelSystem) {
		s.workers = max(n, 1)
	}
}

// WithLightIndicatorSize sets the edge length of the cube drawn at the light position.
// Zero disables the indicator.
//
// Parameters:
//   - size: edge length in world units
//
// Returns:
//   - ModelSystemBuilderOption: functional option to set the indicator size
func WithLightIndicatorSize(size float32) ModelSystemBuilderOption {
	return func(s *modelSystem) {
		s.indicatorSize = size
	}
}
