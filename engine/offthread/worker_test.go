package offthread

import (
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct {
	id       int
	size     common.Size2D
	mu       sync.Mutex
	released int
}

var _ texture.Texture = &fakeTexture{}

func (f *fakeTexture) Label() string { return "target" }
func (f *fakeTexture) Size() common.Size2D { return f.size }
func (f *fakeTexture) Format() wgpu.TextureFormat { return wgpu.TextureFormatRGBA8UnormSrgb }
func (f *fakeTexture) Texture() *wgpu.Texture { return nil }
func (f *fakeTexture) View() *wgpu.TextureView { return nil }
func (f *fakeTexture) Sampler() *wgpu.Sampler { return nil }

func (f *fakeTexture) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeTexture) releases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

type fakeAllocator struct {
	mu      sync.Mutex
	created []*fakeTexture
	fail    bool
}

func (a *fakeAllocator) allocate(size common.Size2D) (texture.Texture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return nil, errors.New("out of memory")
	}
	tex := &fakeTexture{id: len(a.created), size: size}
	a.created = append(a.created, tex)
	return tex, nil
}

func (a *fakeAllocator) all() []*fakeTexture {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*fakeTexture(nil), a.created...)
}

// fakeRenderer blocks each frame until released when gate is set.
type fakeRenderer struct {
	mu       sync.Mutex
	started  chan Request
	gate     chan struct{}
	resizes  []common.Size2D
	inputs   int
	fail     error
	released bool
}

func newFakeRenderer(gated bool) *fakeRenderer {
	r := &fakeRenderer{started: make(chan Request, 16)}
	if gated {
		r.gate = make(chan struct{})
	}
	return r
}

func (r *fakeRenderer) Resize(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizes = append(r.resizes, common.Size2D{Width: width, Height: height})
	return nil
}

func (r *fakeRenderer) RenderFrame(req Request, _ *wgpu.TextureView) error {
	r.started <- req
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fail
}

func (r *fakeRenderer) HandleInput(camera.ControllerInput) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs++
	return true
}

func (r *fakeRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
}

var testSize = common.Size2D{Width: 800, Height: 600}

// submitUntilAccepted retries until the worker goroutine is parked on the channel.
func submitUntilAccepted(t *testing.T, w *worker, req Request) {
	t.Helper()
	require.Eventually(t, func() bool {
		ok, err := w.Submit(req)
		require.NoError(t, err)
		return ok
	}, time.Second, time.Millisecond)
}

func TestWorker_CoalescesWhileBusy(t *testing.T) {
	r := newFakeRenderer(true)
	alloc := &fakeAllocator{}
	w, err := newWorker(r, alloc.allocate, testSize)
	require.NoError(t, err)
	defer w.Close()

	submitUntilAccepted(t, w, Request{NowMs: 1})
	<-r.started

	before := w.Dropped()
	ok, err := w.Submit(Request{NowMs: 2})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before+1, w.Dropped())

	close(r.gate)
	require.Eventually(t, func() bool { return w.Frames() == 1 }, time.Second, time.Millisecond)

	// the dropped request never ran
	select {
	case req := <-r.started:
		t.Fatalf("unexpected frame %d", req.NowMs)
	default:
	}
}

func TestWorker_DoubleBuffer(t *testing.T) {
	r := newFakeRenderer(false)
	alloc := &fakeAllocator{}
	w, err := newWorker(r, alloc.allocate, testSize)
	require.NoError(t, err)
	defer w.Close()

	_, ok := w.Front()
	assert.False(t, ok, "no frame completed yet")

	targets := alloc.all()
	require.Len(t, targets, 2)

	submitUntilAccepted(t, w, Request{NowMs: 1})
	require.Eventually(t, func() bool { return w.Frames() == 1 }, time.Second, time.Millisecond)
	front, ok := w.Front()
	require.True(t, ok)
	assert.Same(t, targets[1], front)

	submitUntilAccepted(t, w, Request{NowMs: 2})
	require.Eventually(t, func() bool { return w.Frames() == 2 }, time.Second, time.Millisecond)
	front, _ = w.Front()
	assert.Same(t, targets[0], front)
}

func TestWorker_FailedFrameKeepsFront(t *testing.T) {
	r := newFakeRenderer(false)
	alloc := &fakeAllocator{}
	w, err := newWorker(r, alloc.allocate, testSize)
	require.NoError(t, err)
	defer w.Close()

	submitUntilAccepted(t, w, Request{NowMs: 1})
	require.Eventually(t, func() bool { return w.Frames() == 1 }, time.Second, time.Millisecond)
	front, _ := w.Front()

	r.mu.Lock()
	r.fail = errors.New("device lost")
	r.mu.Unlock()

	submitUntilAccepted(t, w, Request{NowMs: 2})
	<-r.started
	<-r.started
	// the accepted request ran and failed; wait until the worker is idle again
	submitUntilAccepted(t, w, Request{NowMs: 3})
	assert.Equal(t, uint64(1), w.Frames())
	still, _ := w.Front()
	assert.Same(t, front, still)
}

func TestWorker_ResizeRetiresTargets(t *testing.T) {
	r := newFakeRenderer(false)
	alloc := &fakeAllocator{}
	w, err := newWorker(r, alloc.allocate, testSize)
	require.NoError(t, err)

	big := common.Size2D{Width: 1024, Height: 768}
	submitUntilAccepted(t, w, Request{NowMs: 1, Size: big})
	require.Eventually(t, func() bool { return w.Frames() == 1 }, time.Second, time.Millisecond)

	r.mu.Lock()
	assert.Equal(t, []common.Size2D{big}, r.resizes)
	r.mu.Unlock()

	targets := alloc.all()
	require.Len(t, targets, 4)
	front, _ := w.Front()
	assert.Equal(t, big, front.Size())
	// the first pair is retired, not yet released
	assert.Zero(t, targets[0].releases())

	// same size again is not a resize
	submitUntilAccepted(t, w, Request{NowMs: 2, Size: big})
	require.Eventually(t, func() bool { return w.Frames() == 2 }, time.Second, time.Millisecond)
	assert.Len(t, alloc.all(), 4)

	w.Close()
	for _, tex := range targets {
		assert.Equal(t, 1, tex.releases(), "target %d", tex.id)
	}
	r.mu.Lock()
	assert.True(t, r.released)
	r.mu.Unlock()
}

func TestWorker_SubmitAfterClose(t *testing.T) {
	r := newFakeRenderer(false)
	alloc := &fakeAllocator{}
	w, err := newWorker(r, alloc.allocate, testSize)
	require.NoError(t, err)

	w.Close()
	w.Close()

	ok, err := w.Submit(Request{})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrClosed))
	_, ready := w.Front()
	assert.False(t, ready)
}

func TestWorker_AllocationFailure(t *testing.T) {
	alloc := &fakeAllocator{fail: true}
	_, err := newWorker(newFakeRenderer(false), alloc.allocate, testSize)
	assert.Error(t, err)
}

func TestWorker_FrameCallbackAndInput(t *testing.T) {
	r := newFakeRenderer(false)
	alloc := &fakeAllocator{}
	frames := make(chan Request, 1)
	w, err := newWorker(r, alloc.allocate, testSize, WithFrameCallback(func(req Request, _ time.Duration) {
		frames <- req
	}))
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.HandleInput(camera.MouseMotion(1, 1)))
	submitUntilAccepted(t, w, Request{NowMs: 42})
	select {
	case req := <-frames:
		assert.Equal(t, uint64(42), req.NowMs)
	case <-time.After(time.Second):
		t.Fatal("frame callback not called")
	}
}
