package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProjection() Projection {
	return NewProjection(common.Size2D{Width: 800, Height: 600}, mgl32.DegToRad(45), 0.1, 100)
}

func TestGPUCameraUniform_Size(t *testing.T) {
	u := NewGPUCameraUniform()
	assert.Equal(t, 272, u.Size())
	assert.Len(t, u.Marshal(), 272)
}

func TestGPUCameraUniform_UpdateIsDeterministic(t *testing.T) {
	data := DefaultCameraData()
	proj := testProjection()

	a := NewGPUCameraUniform()
	a.UpdateViewProj(data, proj)
	b := NewGPUCameraUniform()
	b.UpdateViewProj(data, proj)
	b.UpdateViewProj(data, proj)

	assert.Equal(t, a.Marshal(), b.Marshal())
}

func TestGPUCameraUniform_DerivedMatrices(t *testing.T) {
	data := CameraData{Position: mgl32.Vec3{1, 2, 3}, Yaw: 0.3, Pitch: -0.2}
	proj := testProjection()

	u := NewGPUCameraUniform()
	u.UpdateViewProj(data, proj)

	assert.Equal(t, [4]float32{1, 2, 3, 1}, u.ViewPosition)
	transposed := u.View.Transpose()
	viewProj := proj.Matrix().Mul4(u.View)
	roundTrip, ident := u.InvProj.Mul4(proj.Matrix()), mgl32.Ident4()
	assertFloatsInDelta(t, transposed[:], u.InvView[:], 1e-6)
	assertFloatsInDelta(t, viewProj[:], u.ViewProj[:], 1e-5)
	assertFloatsInDelta(t, ident[:], roundTrip[:], 1e-4)
}

func TestGPUCameraUniform_MarshalLayout(t *testing.T) {
	u := NewGPUCameraUniform()
	u.UpdateViewProj(DefaultCameraData(), testProjection())
	buf := u.Marshal()

	readF32 := func(off int) float32 {
		return math.Float32frombits(uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24)
	}
	assert.Equal(t, float32(5), readF32(4))
	assert.Equal(t, float32(1), readF32(12))
	assert.Equal(t, u.View[0], readF32(16))
	assert.Equal(t, u.ViewProj[0], readF32(80))
	assert.Equal(t, u.InvProj[0], readF32(144))
	assert.Equal(t, u.InvView[15], readF32(268))
}

func TestCameraData_Direction(t *testing.T) {
	d := CameraData{Yaw: 0, Pitch: 0}
	dir := d.Direction()
	assertFloatsInDelta(t, []float32{1, 0, 0}, dir[:], 1e-6)

	d = CameraData{Yaw: mgl32.DegToRad(-90), Pitch: 0}
	dir = d.Direction()
	assertFloatsInDelta(t, []float32{0, 0, -1}, dir[:], 1e-6)

	d = CameraData{Yaw: 0, Pitch: mgl32.DegToRad(90)}
	assert.InDelta(t, 1.0, float64(d.Direction().Y()), 1e-6)
}

func TestCameraData_MatrixLooksAlongDirection(t *testing.T) {
	d := DefaultCameraData()
	view := d.Matrix()

	// a point in front of the eye lands on the negative view-space Z axis
	target := d.Position.Add(d.Direction().Mul(5))
	p := view.Mul4x1(target.Vec4(1))
	assert.InDelta(t, 0, float64(p.X()), 1e-4)
	assert.InDelta(t, 0, float64(p.Y()), 1e-4)
	assert.InDelta(t, -5, float64(p.Z()), 1e-4)
}

func TestProjection_Resize(t *testing.T) {
	p := testProjection()
	assert.InDelta(t, 800.0/600.0, float64(p.Aspect()), 1e-6)

	before := p.Matrix()
	p.Resize(1000, 500)
	assert.InDelta(t, 2.0, float64(p.Aspect()), 1e-6)
	assert.NotEqual(t, before, p.Matrix())

	p.Resize(800, 600)
	assert.Equal(t, before, p.Matrix())
	// resizing never touches the lens
	assert.Equal(t, mgl32.DegToRad(45), p.FovY())
	assert.Equal(t, float32(0.1), p.Near())
	assert.Equal(t, float32(100), p.Far())
}

func TestProjection_DepthRange(t *testing.T) {
	p := testProjection()

	near := p.Matrix().Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := p.Matrix().Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0, float64(near.Z()/near.W()), 1e-5)
	assert.InDelta(t, 1, float64(far.Z()/far.W()), 1e-5)
}

func TestCameraData_ClampPitch(t *testing.T) {
	d := CameraData{Pitch: 10}
	d.ClampPitch()
	assert.Equal(t, SafeFracPi2, d.Pitch)

	d.Pitch = -10
	d.ClampPitch()
	assert.Equal(t, -SafeFracPi2, d.Pitch)

	d.Pitch = 0.5
	d.ClampPitch()
	assert.Equal(t, float32(0.5), d.Pitch)
}

func TestCameraController_PitchClampsAtBoundary(t *testing.T) {
	cases := []struct {
		name string
		dy   float64
		want float32
	}{
		{name: "drag down looks up", dy: -1e6, want: SafeFracPi2},
		{name: "drag up looks down", dy: 1e6, want: -SafeFracPi2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cc := NewCameraController()
			data := DefaultCameraData()

			require.True(t, cc.HandleInput(MouseInput(common.MouseButtonLeft, common.Pressed)))
			for range 3 {
				require.True(t, cc.HandleInput(MouseMotion(0, tc.dy)))
				cc.UpdateCamera(&data, 1)
				assert.Equal(t, tc.want, data.Pitch)
			}
		})
	}
}

func TestCameraController_MotionIgnoredWithoutButton(t *testing.T) {
	cc := NewCameraController()
	data := DefaultCameraData()
	start := data

	cc.HandleInput(MouseMotion(100, 100))
	cc.UpdateCamera(&data, 1)
	assert.Equal(t, start, data)
}

func TestCameraController_Keyboard(t *testing.T) {
	cc := NewCameraController(WithSpeed(2), WithSensitivity(0.5))
	assert.Equal(t, float32(2), cc.Speed())
	assert.Equal(t, float32(0.5), cc.Sensitivity())

	data := CameraData{Yaw: 0}
	require.True(t, cc.HandleInput(KeyboardInput(common.PhysicalKey{Code: common.KeyW}, common.Pressed)))
	cc.UpdateCamera(&data, 0.5)
	assertFloatsInDelta(t, []float32{1, 0, 0}, data.Position[:], 1e-5)

	require.True(t, cc.HandleInput(KeyboardInput(common.PhysicalKey{Code: common.KeyW}, common.Released)))
	require.True(t, cc.HandleInput(KeyboardInput(common.PhysicalKey{Code: common.KeySpace}, common.Pressed)))
	cc.UpdateCamera(&data, 1)
	assertFloatsInDelta(t, []float32{1, 2, 0}, data.Position[:], 1e-5)

	assert.False(t, cc.HandleInput(KeyboardInput(common.PhysicalKey{Code: common.KeyOther}, common.Pressed)))
	assert.False(t, cc.HandleInput(KeyboardInput(common.PhysicalKey{Unknown: true}, common.Pressed)))
}

func TestCameraController_ScrollIsOneShot(t *testing.T) {
	cc := NewCameraController()
	data := CameraData{Yaw: 0, Pitch: 0}

	require.True(t, cc.HandleInput(MouseWheel(common.LineDelta(0, -1))))
	cc.UpdateCamera(&data, 0.01)
	// one line is 100 pixels, scaled by speed 4, sensitivity 0.4 and dt
	assert.InDelta(t, 100*4*0.4*0.01, float64(data.Position.X()), 1e-4)

	moved := data.Position
	cc.UpdateCamera(&data, 0.01)
	assert.Equal(t, moved, data.Position)

	// pixel deltas are taken as is
	require.True(t, cc.HandleInput(MouseWheel(common.PixelDelta(0, -50))))
	cc.UpdateCamera(&data, 0.01)
	assert.InDelta(t, float64(moved.X())+50*4*0.4*0.01, float64(data.Position.X()), 1e-4)
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
