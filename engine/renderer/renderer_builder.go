package renderer

import "github.com/cogentcore/webgpu/wgpu"

// ContextBuilderOption is a functional option applied to a Context during construction via NewContext.
type ContextBuilderOption func(*gpuContext)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - ContextBuilderOption: a function that applies the present mode option to a context
func WithPresentMode(mode PresentMode) ContextBuilderOption {
	return func(c *gpuContext) {
		c.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - ContextBuilderOption: a function that applies the option to a context
func WithForceSoftwareRenderer(force bool) ContextBuilderOption {
	return func(c *gpuContext) {
		c.forceFallbackAdapter = force
	}
}

// WithSurfaceFormatPreference sets the formats tried, in order, when configuring the surface.
// The first format the surface supports wins; when none match the surface's preferred format is used.
//
// Parameters:
//   - formats: the preferred formats, best first
//
// Returns:
//   - ContextBuilderOption: a function that applies the option to a context
func WithSurfaceFormatPreference(formats ...wgpu.TextureFormat) ContextBuilderOption {
	return func(c *gpuContext) {
		c.formatPreference = formats
	}
}
