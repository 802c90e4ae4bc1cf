package renderer

import (
	"log"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

type gpuContext struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	presentMode          PresentMode
	forceFallbackAdapter bool
	formatPreference     []wgpu.TextureFormat

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	size          common.Size2D
	configured    bool
}

// Context owns the GPU objects every engine system is built on: the instance, the window surface,
// the adapter, the logical device and its queue.
//
// A Context is Ready once ConfigureSurface has succeeded at least once. Before that, AcquireOutput fails.
type Context interface {
	// Device returns the logical device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the device's command queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Adapter returns the adapter the device was requested from.
	//
	// Returns:
	//   - *wgpu.Adapter: the adapter
	Adapter() *wgpu.Adapter

	// Surface returns the window surface.
	//
	// Returns:
	//   - *wgpu.Surface: the surface
	Surface() *wgpu.Surface

	// SurfaceFormat returns the color format the surface is configured with.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	SurfaceFormat() wgpu.TextureFormat

	// Size returns the size the surface was last configured at.
	//
	// Returns:
	//   - common.Size2D: the configured size, zero before the first configuration
	Size() common.Size2D

	// IsConfigured reports whether the surface has been configured at least once.
	//
	// Returns:
	//   - bool: true once the context is ready to present
	IsConfigured() bool

	// ConfigureSurface (re)configures the surface for a new size. A zero dimension is ignored,
	// which happens while a window is minimized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - bool: true if the surface was configured
	ConfigureSurface(width, height uint32) bool

	// AcquireOutput acquires the next surface texture and a view of it.
	// Lost and outdated surfaces return errors marked with ErrSurfaceLost or ErrSurfaceOutdated.
	//
	// Returns:
	//   - *SurfaceOutput: the acquired output, released after present
	//   - error: an error if no texture could be acquired
	AcquireOutput() (*SurfaceOutput, error)

	// Release frees the device, surface, adapter and instance.
	Release()
}

var _ Context = &gpuContext{}

// SurfaceOutput is a surface texture acquired for one frame.
type SurfaceOutput struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView

	surface *wgpu.Surface
}

// Present hands the texture to the display and releases the frame's references.
func (o *SurfaceOutput) Present() {
	if o.surface != nil {
		o.surface.Present()
		o.surface = nil
	}
	o.Release()
}

// Release frees the view and texture without presenting.
func (o *SurfaceOutput) Release() {
	if o.View != nil {
		o.View.Release()
		o.View = nil
	}
	if o.Texture != nil {
		o.Texture.Release()
		o.Texture = nil
	}
}

// NewContext creates the instance and surface, then requests an adapter compatible with the surface
// and a device from it. The surface is left unconfigured.
//
// A nil surfaceDescriptor creates a headless context: no surface is created, SurfaceFormat is the
// first preferred format and the context never becomes configured.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor of the window, or nil for headless rendering
//   - options: functional options configuring adapter selection and presentation
//
// Returns:
//   - Context: the GPU context
//   - error: an error marked ErrNoAdapter if no adapter or device could be acquired
func NewContext(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...ContextBuilderOption) (Context, error) {
	c := &gpuContext{
		mu:          &sync.Mutex{},
		presentMode: PresentModeVSync,
		formatPreference: []wgpu.TextureFormat{
			wgpu.TextureFormatBGRA8UnormSrgb,
			wgpu.TextureFormatRGBA8UnormSrgb,
		},
	}
	for _, option := range options {
		option(c)
	}

	c.instance = wgpu.CreateInstance(nil)
	if surfaceDescriptor != nil {
		c.surface = c.instance.CreateSurface(surfaceDescriptor)
	}

	adapter, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: c.forceFallbackAdapter,
		CompatibleSurface:    c.surface,
	})
	if err != nil {
		c.Release()
		return nil, errors.Mark(errors.Wrap(err, "request adapter"), ErrNoAdapter)
	}
	c.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		c.Release()
		return nil, errors.Mark(errors.Wrap(err, "request device"), ErrNoAdapter)
	}
	c.device = device
	c.queue = device.GetQueue()

	if c.surface == nil {
		if len(c.formatPreference) == 0 {
			c.Release()
			return nil, errors.New("headless context needs a preferred format")
		}
		c.surfaceFormat = c.formatPreference[0]
		log.Printf("[renderer] headless device ready: format=%v", c.surfaceFormat)
		return c, nil
	}

	capabilities := c.surface.GetCapabilities(c.adapter)
	if len(capabilities.Formats) == 0 {
		c.Release()
		return nil, errors.Mark(errors.New("surface reports no formats"), ErrNoAdapter)
	}
	c.surfaceFormat = pickSurfaceFormat(capabilities.Formats, c.formatPreference)
	c.alphaMode = capabilities.AlphaModes[0]

	return c, nil
}

// pickSurfaceFormat returns the first preferred format the surface supports, else the surface's first format.
func pickSurfaceFormat(supported, preference []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range preference {
		if slices.Contains(supported, f) {
			return f
		}
	}
	return supported[0]
}

func (c *gpuContext) Device() *wgpu.Device {
	return c.device
}

func (c *gpuContext) Queue() *wgpu.Queue {
	return c.queue
}

func (c *gpuContext) Adapter() *wgpu.Adapter {
	return c.adapter
}

func (c *gpuContext) Surface() *wgpu.Surface {
	return c.surface
}

func (c *gpuContext) SurfaceFormat() wgpu.TextureFormat {
	return c.surfaceFormat
}

func (c *gpuContext) Size() common.Size2D {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *gpuContext) IsConfigured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured
}

func (c *gpuContext) ConfigureSurface(width, height uint32) bool {
	if width == 0 || height == 0 || c.surface == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.surface.Configure(c.adapter, c.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      c.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: c.presentMode.wgpuPresentMode(),
		AlphaMode:   c.alphaMode,
	})
	c.size = common.Size2D{Width: width, Height: height}
	if !c.configured {
		log.Printf("[renderer] surface ready: %dx%d format=%v", width, height, c.surfaceFormat)
	}
	c.configured = true
	return true
}

func (c *gpuContext) AcquireOutput() (*SurfaceOutput, error) {
	if !c.IsConfigured() {
		return nil, errors.New("acquire output: surface not configured")
	}

	texture, err := c.surface.GetCurrentTexture()
	if err != nil {
		return nil, ClassifySurfaceError(errors.Wrap(err, "acquire surface texture"))
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, errors.Wrap(err, "create surface view")
	}

	return &SurfaceOutput{Texture: texture, View: view, surface: c.surface}, nil
}

func (c *gpuContext) Release() {
	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}
