package canvas

import (
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// PendingResize holds replacement resources built ahead of a resize. Commit swaps them in and
// releases the old ones; Discard releases them unused. Only the first of the two calls has an effect.
type PendingResize interface {
	Commit()
	Discard()
}

// sizedTarget is a texture and the bind group reading it, recreated together on every resize.
type sizedTarget struct {
	create func(size common.Size2D) (texture.Texture, error)
	bind   func(tex texture.Texture) (*wgpu.BindGroup, error)

	tex       texture.Texture
	bindGroup *wgpu.BindGroup
	size      common.Size2D
}

// pendingTarget is a replacement texture and bind group not yet in use.
type pendingTarget struct {
	tex       texture.Texture
	bindGroup *wgpu.BindGroup
	size      common.Size2D
}

// prepare builds the replacement resources without touching the current ones.
func (t *sizedTarget) prepare(size common.Size2D) (*pendingTarget, error) {
	tex, err := t.create(size)
	if err != nil {
		return nil, err
	}
	bindGroup, err := t.bind(tex)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &pendingTarget{tex: tex, bindGroup: bindGroup, size: size}, nil
}

// swap releases the current resources and takes over p's.
func (t *sizedTarget) swap(p *pendingTarget) {
	t.release()
	t.tex = p.tex
	t.bindGroup = p.bindGroup
	t.size = p.size
}

// resize prepares and swaps in one step, so a failed resize leaves the previous size in place.
func (t *sizedTarget) resize(size common.Size2D) error {
	p, err := t.prepare(size)
	if err != nil {
		return err
	}
	t.swap(p)
	return nil
}

func (t *sizedTarget) release() {
	if t.bindGroup != nil {
		t.bindGroup.Release()
		t.bindGroup = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

func (p *pendingTarget) release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.tex.Release()
}

// pendingResize runs commit or discard once, under the owning entry's mutex.
type pendingResize struct {
	mu      *sync.Mutex
	commit  func()
	discard func()
	done    bool
}

var _ PendingResize = &pendingResize{}

func (p *pendingResize) Commit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	p.commit()
}

func (p *pendingResize) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	p.discard()
}
