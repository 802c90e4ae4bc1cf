package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/canvas"
	"github.com/Carmen-Shannon/ab3de/engine/renderer"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	redraws       int
	width, height uint32
}

func (a *fakeApp) RequestRedraw()               { a.redraws++ }
func (a *fakeApp) WindowSize() (uint32, uint32) { return a.width, a.height }

type fakeSurface struct {
	configured bool
	acquireErr error
	acquires   int
	configures []common.Size2D
}

func (s *fakeSurface) IsConfigured() bool { return s.configured }

func (s *fakeSurface) ConfigureSurface(width, height uint32) bool {
	if width == 0 || height == 0 {
		return false
	}
	s.configures = append(s.configures, common.Size2D{Width: width, Height: height})
	return true
}

func (s *fakeSurface) AcquireOutput() (*renderer.SurfaceOutput, error) {
	s.acquires++
	return nil, s.acquireErr
}

// fakeViewport records resizes; every other Viewport method is unused by these tests.
type fakeViewport struct {
	Viewport
	size    common.Size2D
	resizes []common.Size2D
}

func (v *fakeViewport) Size() common.Size2D { return v.size }

func (v *fakeViewport) Resize(_ *wgpu.Queue, width, height uint32) error {
	v.resizes = append(v.resizes, common.Size2D{Width: width, Height: height})
	v.size = common.Size2D{Width: width, Height: height}
	return nil
}

// resizeLog records the order of resize steps across the fake viewport parts.
type resizeLog struct {
	steps []string
}

func (l *resizeLog) add(step string) { l.steps = append(l.steps, step) }

type fakePending struct {
	name string
	log  *resizeLog
}

func (p *fakePending) Commit() { p.log.add(p.name + " commit") }
func (p *fakePending) Discard() { p.log.add(p.name + " discard") }

type fakeCanvas struct {
	canvas.CanvasEntry
	log  *resizeLog
	fail error
}

func (c *fakeCanvas) PrepareResize(uint32, uint32) (canvas.PendingResize, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	c.log.add("canvas prepare")
	return &fakePending{name: "canvas", log: c.log}, nil
}

type fakeDepth struct {
	canvas.DepthEntry
	log  *resizeLog
	fail error
}

func (d *fakeDepth) PrepareResize(uint32, uint32) (canvas.PendingResize, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	d.log.add("depth prepare")
	return &fakePending{name: "depth", log: d.log}, nil
}

type fakeCamera struct {
	camera.CameraEntry
	log  *resizeLog
	fail error
}

func (c *fakeCamera) Resize(*wgpu.Queue, uint32, uint32) error {
	if c.fail != nil {
		return c.fail
	}
	c.log.add("camera resize")
	return nil
}

func TestViewport_ResizeTogether(t *testing.T) {
	start := common.Size2D{Width: 800, Height: 600}
	tests := []struct {
		name       string
		canvasFail error
		depthFail  error
		cameraFail error
		want       []string
	}{
		{
			name: "all succeed",
			want: []string{"canvas prepare", "depth prepare", "camera resize", "canvas commit", "depth commit"},
		},
		{
			name:       "canvas fails",
			canvasFail: errors.New("canvas out of memory"),
		},
		{
			name:      "depth fails",
			depthFail: errors.New("depth out of memory"),
			want:      []string{"canvas prepare", "canvas discard"},
		},
		{
			name:       "camera fails",
			cameraFail: errors.New("uniform write failed"),
			want:       []string{"canvas prepare", "depth prepare", "canvas discard", "depth discard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &resizeLog{}
			v := &viewport{
				mu:     &sync.Mutex{},
				size:   start,
				canvas: &fakeCanvas{log: log, fail: tt.canvasFail},
				depth:  &fakeDepth{log: log, fail: tt.depthFail},
				camera: &fakeCamera{log: log, fail: tt.cameraFail},
			}

			err := v.Resize(nil, 1024, 768)
			assert.Equal(t, tt.want, log.steps)
			if tt.canvasFail == nil && tt.depthFail == nil && tt.cameraFail == nil {
				require.NoError(t, err)
				assert.Equal(t, common.Size2D{Width: 1024, Height: 768}, v.Size())
				return
			}
			require.Error(t, err)
			assert.Equal(t, start, v.Size())
		})
	}
}

func testEngine(app ApplicationContext) *engine {
	e := defaultEngine()
	e.app = app
	return e
}

func TestRenderToSurface_NotReady(t *testing.T) {
	app := &fakeApp{width: 800, height: 600}
	surface := &fakeSurface{}
	v := &fakeViewport{size: common.Size2D{Width: 800, Height: 600}}

	testEngine(app).RenderToSurface(surface, v)
	assert.Equal(t, 1, app.redraws)
	assert.Zero(t, surface.acquires)
	assert.Empty(t, v.resizes)
}

func TestRenderToSurface_RecoversLostAndOutdated(t *testing.T) {
	for _, sentinel := range []error{renderer.ErrSurfaceLost, renderer.ErrSurfaceOutdated} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			app := &fakeApp{width: 1024, height: 768}
			surface := &fakeSurface{
				configured: true,
				acquireErr: errors.Mark(errors.New("acquire surface texture"), sentinel),
			}
			v := &fakeViewport{size: common.Size2D{Width: 800, Height: 600}}

			testEngine(app).RenderToSurface(surface, v)
			assert.Equal(t, []common.Size2D{{Width: 1024, Height: 768}}, surface.configures)
			assert.Equal(t, []common.Size2D{{Width: 1024, Height: 768}}, v.resizes)
		})
	}
}

func TestRenderToSurface_MinimizedWindowSkipsResize(t *testing.T) {
	app := &fakeApp{width: 0, height: 0}
	surface := &fakeSurface{configured: true, acquireErr: errors.Mark(errors.New("lost"), renderer.ErrSurfaceLost)}
	v := &fakeViewport{size: common.Size2D{Width: 800, Height: 600}}

	testEngine(app).RenderToSurface(surface, v)
	assert.Empty(t, surface.configures)
	assert.Empty(t, v.resizes)
}

func TestRenderToSurface_OtherErrorDropsFrame(t *testing.T) {
	app := &fakeApp{width: 800, height: 600}
	surface := &fakeSurface{configured: true, acquireErr: errors.New("out of memory")}
	v := &fakeViewport{size: common.Size2D{Width: 800, Height: 600}}

	e := testEngine(app)
	e.RenderToSurface(surface, v)
	e.RenderToSurface(surface, v)
	assert.Equal(t, 2, surface.acquires)
	assert.Empty(t, surface.configures)
	assert.Empty(t, v.resizes)
}

func TestRenderToSurface_WithoutAppUsesViewportSize(t *testing.T) {
	surface := &fakeSurface{configured: true, acquireErr: errors.Mark(errors.New("outdated"), renderer.ErrSurfaceOutdated)}
	v := &fakeViewport{size: common.Size2D{Width: 640, Height: 480}}

	testEngine(nil).RenderToSurface(surface, v)
	assert.Equal(t, []common.Size2D{{Width: 640, Height: 480}}, surface.configures)
}

func TestResize_RejectsZero(t *testing.T) {
	e := testEngine(nil)
	v := &fakeViewport{}

	for _, size := range [][2]uint32{{0, 600}, {800, 0}, {0, 0}} {
		err := e.Resize(v, size[0], size[1])
		assert.True(t, errors.Is(err, ErrInvalidViewportSize), "%v", size)
	}
	assert.Empty(t, v.resizes)

	require.NoError(t, e.Resize(v, 800, 600))
	assert.Equal(t, []common.Size2D{{Width: 800, Height: 600}}, v.resizes)
}

func TestViewport_ResizeRejectsZero(t *testing.T) {
	v := &viewport{mu: &sync.Mutex{}, size: common.Size2D{Width: 800, Height: 600}}
	err := v.Resize(nil, 0, 10)
	assert.True(t, errors.Is(err, ErrInvalidViewportSize))
	assert.Equal(t, common.Size2D{Width: 800, Height: 600}, v.Size())
}

func TestNewViewport_RejectsZero(t *testing.T) {
	_, err := NewViewport(nil, nil, ViewportConfiguration{Size: common.Size2D{Width: 0, Height: 600}})
	assert.True(t, errors.Is(err, ErrInvalidViewportSize))

	_, err = testEngine(nil).NewViewport(common.Size2D{}, texture.CanvasFormat)
	assert.True(t, errors.Is(err, ErrInvalidViewportSize))
}

func TestStageAssets_ProceduralDefaults(t *testing.T) {
	staged, err := stageAssets(context.Background(), AssetSources{})
	require.NoError(t, err)

	assert.Equal(t, uint32(skyWidth), staged.environment.Width)
	assert.Equal(t, uint32(skyHeight), staged.environment.Height)
	assert.Len(t, staged.environment.Pixels, skyWidth*skyHeight*4)
	assert.Equal(t, uint32(checkerSize), staged.diffuse.Width)
	assert.Len(t, staged.normal.Pixels, 4*4*4)
}

func TestStageAssets_FromFiles(t *testing.T) {
	dir := t.TempDir()

	hdrPath := filepath.Join(dir, "sky.hdr")
	hdr := append([]byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n"), 128, 64, 32, 129, 0, 0, 0, 0)
	require.NoError(t, os.WriteFile(hdrPath, hdr, 0o600))

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	pngPath := filepath.Join(dir, "diffuse.png")
	require.NoError(t, os.WriteFile(pngPath, buf.Bytes(), 0o600))

	staged, err := stageAssets(context.Background(), AssetSources{EnvironmentHDR: hdrPath, Diffuse: pngPath, Normal: pngPath})
	require.NoError(t, err)

	assert.Equal(t, uint32(2), staged.environment.Width)
	assert.Equal(t, uint32(1), staged.environment.Height)
	assert.InDelta(t, 1.0, float64(staged.environment.Pixels[0]), 1e-6)
	assert.Equal(t, uint32(3), staged.diffuse.Width)
	assert.Equal(t, byte(255), staged.diffuse.Pixels[0])
	assert.Equal(t, staged.diffuse, staged.normal)
}

func TestStageAssets_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.hdr")
	require.NoError(t, os.WriteFile(bad, []byte("not an hdr"), 0o600))

	_, err := stageAssets(context.Background(), AssetSources{EnvironmentHDR: bad})
	assert.True(t, errors.Is(err, texture.ErrHDRDecode))

	_, err = stageAssets(context.Background(), AssetSources{Diffuse: filepath.Join(dir, "missing.png")})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stageAssets(ctx, AssetSources{EnvironmentHDR: bad})
	assert.Error(t, err)
}
