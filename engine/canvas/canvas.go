// Package canvas holds the per-viewport render targets: the HDR canvas every scene pass draws
// into, the pass that tonemaps it onto the output, and the matching depth buffer.
package canvas

import (
	_ "embed"
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/hdr_tonemapping.wgsl
var toneMappingSource string

// ToneMappingShader returns the parsed tonemapping shader.
func ToneMappingShader() (shader.Shader, error) {
	return shader.NewShader("hdr_tonemapping", toneMappingSource, nil)
}

// CanvasConfiguration describes the canvas of one viewport.
type CanvasConfiguration struct {
	// Size is the canvas size in pixels.
	Size common.Size2D
	// ColorFormat is the format of the output the canvas is tonemapped onto.
	ColorFormat wgpu.TextureFormat
	// Label prefixes the GPU object labels.
	Label string
}

type canvasEntry struct {
	mu *sync.Mutex

	config   CanvasConfiguration
	layout   *wgpu.BindGroupLayout
	pipeline pipeline.Pipeline
	target   *sizedTarget
}

// CanvasEntry owns an RGBA16Float canvas sized to the viewport and the pass that tonemaps it
// onto the real output.
type CanvasEntry interface {
	// Config returns the configuration, with Size tracking the last successful resize.
	//
	// Returns:
	//   - CanvasConfiguration: the canvas configuration
	Config() CanvasConfiguration

	// View returns the canvas view scene passes render into.
	//
	// Returns:
	//   - *wgpu.TextureView: the current canvas view
	View() *wgpu.TextureView

	// Resize recreates the canvas texture and the bind group reading it.
	// The previous texture is destroyed once its replacement exists.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the new resources could not be created; the old ones stay in use
	Resize(width, height uint32) error

	// PrepareResize builds the resized canvas texture and bind group without using them yet, so the
	// caller can resize several entries together.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - PendingResize: swaps the new resources in on Commit, frees them on Discard
	//   - error: an error if the new resources could not be created; nothing changed
	PrepareResize(width, height uint32) (PendingResize, error)

	// RenderAndSubmit tonemaps the canvas onto output, lets additional record more work against the
	// same output, then finishes the encoder and submits it. The output is loaded, not cleared.
	// Presenting a swapchain output is left to the caller.
	//
	// Parameters:
	//   - queue: the queue to submit to
	//   - encoder: the frame encoder holding the scene pass; released by this call
	//   - output: the output view
	//   - additional: optional extra recording against output, may be nil
	//
	// Returns:
	//   - error: an error if the encoder could not be finished
	RenderAndSubmit(queue *wgpu.Queue, encoder *wgpu.CommandEncoder, output *wgpu.TextureView, additional func(*wgpu.CommandEncoder, *wgpu.TextureView)) error

	// Release frees the canvas, its bind group, the layout and the pipeline.
	Release()
}

var _ CanvasEntry = &canvasEntry{}

// NewCanvasEntry builds the tonemapping pipeline and the first canvas.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - config: the canvas configuration; zero dimensions are raised to 1
//
// Returns:
//   - CanvasEntry: the canvas
//   - error: an error if any GPU object could not be created
func NewCanvasEntry(device *wgpu.Device, config CanvasConfiguration) (CanvasEntry, error) {
	c := &canvasEntry{mu: &sync.Mutex{}, config: config}
	label := common.Coalesce(config.Label, "Canvas")

	s, err := ToneMappingShader()
	if err != nil {
		return nil, err
	}

	c.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + " Tonemapping Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create tonemapping bind group layout")
	}

	c.pipeline, err = pipeline.NewRenderPipeline(device, label+" Tonemapping", s,
		[]*wgpu.BindGroupLayout{c.layout},
		config.ColorFormat,
		pipeline.WithoutDepth(),
	)
	if err != nil {
		c.Release()
		return nil, err
	}

	c.target = &sizedTarget{
		create: func(size common.Size2D) (texture.Texture, error) {
			return texture.NewCanvasHdrTexture(device, label+" HDR", size)
		},
		bind: func(tex texture.Texture) (*wgpu.BindGroup, error) {
			bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  label + " Tonemapping Bind Group",
				Layout: c.layout,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, TextureView: tex.View()},
					{Binding: 1, Sampler: tex.Sampler()},
				},
			})
			return bg, errors.Wrap(err, "create tonemapping bind group")
		},
	}
	if err := c.target.resize(config.Size); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

func (c *canvasEntry) Config() CanvasConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

func (c *canvasEntry) View() *wgpu.TextureView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.tex.View()
}

func (c *canvasEntry) Resize(width, height uint32) error {
	pending, err := c.PrepareResize(width, height)
	if err != nil {
		return err
	}
	pending.Commit()
	return nil
}

func (c *canvasEntry) PrepareResize(width, height uint32) (PendingResize, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := common.Size2D{Width: width, Height: height}
	next, err := c.target.prepare(size)
	if err != nil {
		return nil, err
	}
	return &pendingResize{
		mu: c.mu,
		commit: func() {
			c.target.swap(next)
			c.config.Size = size
		},
		discard: next.release,
	}, nil
}

func (c *canvasEntry) RenderAndSubmit(queue *wgpu.Queue, encoder *wgpu.CommandEncoder, output *wgpu.TextureView, additional func(*wgpu.CommandEncoder, *wgpu.TextureView)) error {
	defer encoder.Release()

	c.mu.Lock()
	bindGroup := c.target.bindGroup
	c.mu.Unlock()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "HDR Tonemapping Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    output,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(c.pipeline.Render())
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	if additional != nil {
		additional(encoder, output)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish frame encoder")
	}
	queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (c *canvasEntry) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target != nil {
		c.target.release()
	}
	if c.pipeline != nil {
		c.pipeline.Release()
		c.pipeline = nil
	}
	if c.layout != nil {
		c.layout.Release()
		c.layout = nil
	}
}
