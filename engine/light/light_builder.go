package light

import "github.com/go-gl/mathgl/mgl32"

// LightSystemBuilderOption is a function that configures a LightSystem during construction.
type LightSystemBuilderOption func(*lightSystem)

// WithPosition sets the starting world-space position of the orbiting light.
//
// Parameters:
//   - x, y, z: the position components
//
// Returns:
//   - LightSystemBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) LightSystemBuilderOption {
	return func(s *lightSystem) {
		s.uniform.Position = mgl32.Vec3{x, y, z}
	}
}

// WithColor sets the linear RGB color of the light.
//
// Parameters:
//   - r, g, b: the color components
//
// Returns:
//   - LightSystemBuilderOption: a function that applies the color option
func WithColor(r, g, b float32) LightSystemBuilderOption {
	return func(s *lightSystem) {
		s.uniform.Color = mgl32.Vec3{r, g, b}
	}
}

// WithRevolutionsPerSecond sets how fast the light orbits the world Y axis.
// Zero holds the light still.
//
// Parameters:
//   - rps: full turns per second
//
// Returns:
//   - LightSystemBuilderOption: a function that applies the orbit speed option
func WithRevolutionsPerSecond(rps float32) LightSystemBuilderOption {
	return func(s *lightSystem) {
		s.revolutionsPerSecond = rps
	}
}

func defaultLightSystem() *lightSystem {
	return &lightSystem{
		uniform: GPULightUniform{
			Position: mgl32.Vec3{2, 2, 2},
			Color:    mgl32.Vec3{1, 1, 1},
		},
		revolutionsPerSecond: 1,
	}
}
