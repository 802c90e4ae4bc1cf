package canvas

import (
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

type depthEntry struct {
	mu *sync.Mutex

	layout *wgpu.BindGroupLayout
	target *sizedTarget
}

// DepthEntry is a single-sample Depth32Float buffer matched to the canvas size, readable through a
// bind group with a non-comparison sampler.
type DepthEntry interface {
	// View returns the depth view for the depth attachment.
	//
	// Returns:
	//   - *wgpu.TextureView: the current depth view
	View() *wgpu.TextureView

	// Size returns the size of the current depth texture.
	//
	// Returns:
	//   - common.Size2D: the requested size of the last successful resize
	Size() common.Size2D

	// BindGroupLayout returns the layout of the depth read bind group.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: a depth texture at binding 0 and a non-filtering sampler at binding 1
	BindGroupLayout() *wgpu.BindGroupLayout

	// BindGroup returns the bind group reading the current depth texture.
	//
	// Returns:
	//   - *wgpu.BindGroup: the depth bind group
	BindGroup() *wgpu.BindGroup

	// Resize recreates the depth texture and its bind group.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the new resources could not be created; the old ones stay in use
	Resize(width, height uint32) error

	// PrepareResize builds the resized depth texture and bind group without using them yet.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - PendingResize: swaps the new resources in on Commit, frees them on Discard
	//   - error: an error if the new resources could not be created; nothing changed
	PrepareResize(width, height uint32) (PendingResize, error)

	// Release frees the depth texture, its bind group and the layout.
	Release()
}

var _ DepthEntry = &depthEntry{}

// NewDepthEntry creates the depth buffer and its read bind group.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - label: prefixes the GPU object labels
//   - size: the depth buffer size; zero dimensions are raised to 1
//
// Returns:
//   - DepthEntry: the depth entry
//   - error: an error if any GPU object could not be created
func NewDepthEntry(device *wgpu.Device, label string, size common.Size2D) (DepthEntry, error) {
	d := &depthEntry{mu: &sync.Mutex{}}
	label = common.Coalesce(label, "Depth")

	var err error
	d.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + " Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create depth bind group layout")
	}

	d.target = &sizedTarget{
		create: func(size common.Size2D) (texture.Texture, error) {
			return texture.NewDepthTexture(device, label, size)
		},
		bind: func(tex texture.Texture) (*wgpu.BindGroup, error) {
			bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  label + " Bind Group",
				Layout: d.layout,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, TextureView: tex.View()},
					{Binding: 1, Sampler: tex.Sampler()},
				},
			})
			return bg, errors.Wrap(err, "create depth bind group")
		},
	}
	if err := d.target.resize(size); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

func (d *depthEntry) View() *wgpu.TextureView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.tex.View()
}

func (d *depthEntry) Size() common.Size2D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.size
}

func (d *depthEntry) BindGroupLayout() *wgpu.BindGroupLayout {
	return d.layout
}

func (d *depthEntry) BindGroup() *wgpu.BindGroup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.bindGroup
}

func (d *depthEntry) Resize(width, height uint32) error {
	pending, err := d.PrepareResize(width, height)
	if err != nil {
		return err
	}
	pending.Commit()
	return nil
}

func (d *depthEntry) PrepareResize(width, height uint32) (PendingResize, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := d.target.prepare(common.Size2D{Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	return &pendingResize{
		mu:      d.mu,
		commit:  func() { d.target.swap(next) },
		discard: next.release,
	}, nil
}

func (d *depthEntry) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target != nil {
		d.target.release()
	}
	if d.layout != nil {
		d.layout.Release()
		d.layout = nil
	}
}
