package light

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPULightUniform_Layout(t *testing.T) {
	u := GPULightUniform{Position: mgl32.Vec3{2, 2, 2}, Color: mgl32.Vec3{1, 0.5, 0.25}}
	assert.Equal(t, 32, u.Size())

	buf := u.Marshal()
	assert.Len(t, buf, 32)
	readF32 := func(off int) float32 {
		return math.Float32frombits(uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24)
	}
	assert.Equal(t, float32(2), readF32(8))
	assert.Equal(t, []byte{0, 0, 0, 0}, buf[12:16])
	assert.Equal(t, float32(1), readF32(16))
	assert.Equal(t, float32(0.25), readF32(24))
	assert.Equal(t, []byte{0, 0, 0, 0}, buf[28:32])
}

func TestOrbit(t *testing.T) {
	start := mgl32.Vec3{2, 2, 2}

	tests := []struct {
		name  string
		turns float32
		want  mgl32.Vec3
	}{
		{name: "no time", turns: 0, want: start},
		{name: "full turn", turns: 1, want: start},
		{name: "half turn", turns: 0.5, want: mgl32.Vec3{-2, 2, -2}},
		{name: "quarter turn", turns: 0.25, want: mgl32.Vec3{2, 2, -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Orbit(start, tt.turns)
			assertFloatsInDelta(t, tt.want[:], got[:], 1e-4, "got %v want %v", got, tt.want)
		})
	}
}

func TestOrbit_PreservesHeightAndRadius(t *testing.T) {
	p := mgl32.Vec3{2, 2, 2}
	for range 17 {
		p = Orbit(p, 0.013)
	}
	assert.InDelta(t, 2.0, float64(p.Y()), 1e-5)
	assert.InDelta(t, math.Sqrt(8), float64(mgl32.Vec2{p.X(), p.Z()}.Len()), 1e-4)
}

func TestLightSystem_Advance(t *testing.T) {
	s := defaultLightSystem()
	WithRevolutionsPerSecond(0)(s)
	s.advance(3)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, s.uniform.Position)

	s = defaultLightSystem()
	WithPosition(1, 0, 0)(s)
	WithColor(0.5, 0.5, 0.5)(s)
	s.advance(0.5)
	assertFloatsInDelta(t, []float32{-1, 0, 0}, s.uniform.Position[:], 1e-5)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, s.uniform.Color)
}

// assertFloatsInDelta compares vectors and matrices component by component; a relative
// threshold never matches a component that should be exactly zero.
func assertFloatsInDelta(t *testing.T, want, got []float32, delta float64, msgAndArgs ...any) {
	t.Helper()
	require.Len(t, got, len(want), msgAndArgs...)
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}
