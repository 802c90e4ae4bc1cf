package canvas

import "github.com/go-gl/mathgl/mgl32"

// acesInput and acesOutput are the column-major matrices of the fitted ACES curve in
// hdr_tonemapping.wgsl.
var (
	acesInput = mgl32.Mat3{
		0.59719, 0.07600, 0.02840,
		0.35458, 0.90834, 0.13383,
		0.04823, 0.01566, 0.83777,
	}
	acesOutput = mgl32.Mat3{
		1.60475, -0.10208, -0.00327,
		-0.53108, 1.10813, -0.07276,
		-0.07367, -0.00605, 1.07602,
	}
)

// ACESToneMap maps a linear HDR color into [0, 1] the same way the tonemapping pass does.
//
// Parameters:
//   - hdr: the linear color, components may exceed 1
//
// Returns:
//   - mgl32.Vec3: the display-range color
func ACESToneMap(hdr mgl32.Vec3) mgl32.Vec3 {
	v := acesInput.Mul3x1(hdr)
	var fitted mgl32.Vec3
	for i := range 3 {
		a := v[i]*(v[i]+0.0245786) - 0.000090537
		b := v[i]*(0.983729*v[i]+0.4329510) + 0.238081
		fitted[i] = a / b
	}
	out := acesOutput.Mul3x1(fitted)
	for i := range 3 {
		out[i] = mgl32.Clamp(out[i], 0, 1)
	}
	return out
}
