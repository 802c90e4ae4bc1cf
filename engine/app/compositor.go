package app

import (
	_ "embed"

	"github.com/Carmen-Shannon/ab3de/engine"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/blit.wgsl
var blitSource string

// BlitShader returns the parsed shader the compositor copies frames with.
func BlitShader() (shader.Shader, error) {
	return shader.NewShader("blit", blitSource, nil)
}

// compositor copies the offthread worker's front target onto the window surface.
type compositor struct {
	device   *wgpu.Device
	queue    *wgpu.Queue
	layout   *wgpu.BindGroupLayout
	pipeline pipeline.Pipeline
}

func newCompositor(device *wgpu.Device, queue *wgpu.Queue, outputFormat wgpu.TextureFormat) (*compositor, error) {
	s, err := BlitShader()
	if err != nil {
		return nil, err
	}

	c := &compositor{device: device, queue: queue}
	c.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Compositor Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
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
		return nil, errors.Wrap(err, "create compositor bind group layout")
	}

	c.pipeline, err = pipeline.NewRenderPipeline(device, "Compositor", s,
		[]*wgpu.BindGroupLayout{c.layout},
		outputFormat,
		pipeline.WithoutDepth(),
	)
	if err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

// present draws frame onto the next surface texture and presents it. Without a frame the surface
// is cleared to engine.ClearColor.
func (c *compositor) present(surface engine.SurfaceTarget, frame texture.Texture, ok bool) error {
	output, err := surface.AcquireOutput()
	if err != nil {
		return err
	}
	defer output.Release()

	var bindGroup *wgpu.BindGroup
	if ok {
		bindGroup, err = c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Compositor Bind Group",
			Layout: c.layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: frame.View()},
				{Binding: 1, Sampler: frame.Sampler()},
			},
		})
		if err != nil {
			return errors.Wrap(err, "create compositor bind group")
		}
		defer bindGroup.Release()
	}

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return errors.Wrap(err, "create compositor encoder")
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Compositor Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       output.View,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: engine.ClearColor,
			},
		},
	})
	if bindGroup != nil {
		pass.SetPipeline(c.pipeline.Render())
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Draw(3, 1, 0, 0)
	}
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish compositor encoder")
	}
	c.queue.Submit(commandBuffer)
	commandBuffer.Release()
	output.Present()
	return nil
}

func (c *compositor) release() {
	if c.pipeline != nil {
		c.pipeline.Release()
		c.pipeline = nil
	}
	if c.layout != nil {
		c.layout.Release()
		c.layout = nil
	}
}
