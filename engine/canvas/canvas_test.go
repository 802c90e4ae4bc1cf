package canvas

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct {
	size     common.Size2D
	released int
}

var _ texture.Texture = &fakeTexture{}

func (f *fakeTexture) Label() string { return "fake" }
func (f *fakeTexture) Size() common.Size2D { return f.size }
func (f *fakeTexture) Format() wgpu.TextureFormat { return texture.CanvasFormat }
func (f *fakeTexture) Texture() *wgpu.Texture { return nil }
func (f *fakeTexture) View() *wgpu.TextureView { return nil }
func (f *fakeTexture) Sampler() *wgpu.Sampler { return nil }
func (f *fakeTexture) Release() { f.released++ }

type fakeTargets struct {
	created  []*fakeTexture
	failNext bool
}

func (f *fakeTargets) target() *sizedTarget {
	return &sizedTarget{
		create: func(size common.Size2D) (texture.Texture, error) {
			if f.failNext {
				f.failNext = false
				return nil, errors.New("out of memory")
			}
			tex := &fakeTexture{size: size}
			f.created = append(f.created, tex)
			return tex, nil
		},
		bind: func(texture.Texture) (*wgpu.BindGroup, error) {
			return nil, nil
		},
	}
}

func TestSizedTarget_ResizeReleasesPrevious(t *testing.T) {
	f := &fakeTargets{}
	target := f.target()

	require.NoError(t, target.resize(common.Size2D{Width: 800, Height: 600}))
	require.NoError(t, target.resize(common.Size2D{Width: 800, Height: 600}))
	require.Len(t, f.created, 2)

	assert.Equal(t, 1, f.created[0].released)
	assert.Equal(t, 0, f.created[1].released)
	assert.Equal(t, f.created[0].size, f.created[1].size)
	assert.Same(t, f.created[1], target.tex)

	target.release()
	assert.Equal(t, 1, f.created[1].released)
	assert.Nil(t, target.tex)
}

func TestSizedTarget_FailedResizeKeepsOld(t *testing.T) {
	f := &fakeTargets{}
	target := f.target()
	require.NoError(t, target.resize(common.Size2D{Width: 4, Height: 4}))

	f.failNext = true
	assert.Error(t, target.resize(common.Size2D{Width: 8, Height: 8}))
	assert.Equal(t, common.Size2D{Width: 4, Height: 4}, target.size)
	assert.Same(t, f.created[0], target.tex)
	assert.Equal(t, 0, f.created[0].released)
}

func TestSizedTarget_FailedBindReleasesNew(t *testing.T) {
	f := &fakeTargets{}
	target := f.target()
	require.NoError(t, target.resize(common.Size2D{Width: 4, Height: 4}))

	target.bind = func(texture.Texture) (*wgpu.BindGroup, error) {
		return nil, errors.New("bind failed")
	}
	assert.Error(t, target.resize(common.Size2D{Width: 8, Height: 8}))
	require.Len(t, f.created, 2)
	assert.Equal(t, 1, f.created[1].released)
	assert.Same(t, f.created[0], target.tex)
}

func TestPendingResize_CommitOrDiscard(t *testing.T) {
	f := &fakeTargets{}
	target := f.target()
	require.NoError(t, target.resize(common.Size2D{Width: 4, Height: 4}))

	next, err := target.prepare(common.Size2D{Width: 8, Height: 8})
	require.NoError(t, err)
	assert.Same(t, f.created[0], target.tex, "prepare leaves the current texture in use")

	committed := &pendingResize{mu: &sync.Mutex{}, commit: func() { target.swap(next) }, discard: next.release}
	committed.Commit()
	committed.Discard()
	assert.Equal(t, common.Size2D{Width: 8, Height: 8}, target.size)
	assert.Equal(t, 1, f.created[0].released)
	assert.Equal(t, 0, f.created[1].released)

	next, err = target.prepare(common.Size2D{Width: 16, Height: 16})
	require.NoError(t, err)
	discarded := &pendingResize{mu: &sync.Mutex{}, commit: func() { target.swap(next) }, discard: next.release}
	discarded.Discard()
	discarded.Commit()
	assert.Equal(t, common.Size2D{Width: 8, Height: 8}, target.size)
	assert.Same(t, f.created[1], target.tex)
	assert.Equal(t, 1, f.created[2].released)
}

func TestToneMappingShader(t *testing.T) {
	s, err := ToneMappingShader()
	require.NoError(t, err)
	assert.Equal(t, "vs_main", s.EntryPoint(shader.StageVertex))
	assert.Equal(t, "fs_main", s.EntryPoint(shader.StageFragment))
	assert.Equal(t, []int{0, 1}, s.Bindings()[0])
}

func TestACESToneMap(t *testing.T) {
	black := ACESToneMap(mgl32.Vec3{0, 0, 0})
	for i := range 3 {
		assert.InDelta(t, 0, float64(black[i]), 1e-3)
	}

	bright := ACESToneMap(mgl32.Vec3{1000, 1000, 1000})
	for i := range 3 {
		assert.InDelta(t, 1, float64(bright[i]), 1e-3)
	}

	// monotonic in luminance and always in display range
	prev := float32(-1)
	for _, v := range []float32{0.01, 0.1, 0.5, 1, 2, 4, 16} {
		out := ACESToneMap(mgl32.Vec3{v, v, v})
		for i := range 3 {
			assert.GreaterOrEqual(t, out[i], float32(0))
			assert.LessOrEqual(t, out[i], float32(1))
		}
		assert.Greater(t, out[1], prev)
		prev = out[1]
	}
}
