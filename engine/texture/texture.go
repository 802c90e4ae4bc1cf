package texture

import (
	"strconv"
	"sync/atomic"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

var textureCount atomic.Uint64

// nextLabel returns label, or a numbered fallback when label is empty.
func nextLabel(label, kind string) string {
	if label != "" {
		return label
	}
	return kind + " " + strconv.FormatUint(textureCount.Add(1), 10)
}

type texture struct {
	label   string
	size    common.Size2D
	format  wgpu.TextureFormat
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// Texture is a GPU texture together with the view and sampler shaders read it through.
type Texture interface {
	// Label returns the label the GPU objects were created with.
	//
	// Returns:
	//   - string: the texture's label
	Label() string

	// Size returns the size of one layer in pixels.
	//
	// Returns:
	//   - common.Size2D: the layer size
	Size() common.Size2D

	// Format returns the texel format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the format
	Format() wgpu.TextureFormat

	// Texture returns the underlying GPU texture.
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	Texture() *wgpu.Texture

	// View returns the default view: 2D for plain textures, cube for cube textures.
	//
	// Returns:
	//   - *wgpu.TextureView: the view
	View() *wgpu.TextureView

	// Sampler returns the sampler matched to the texture's format.
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	Sampler() *wgpu.Sampler

	// Release destroys the texture and frees the view and sampler.
	Release()
}

var _ Texture = &texture{}

func (t *texture) Label() string {
	return t.label
}

func (t *texture) Size() common.Size2D {
	return t.size
}

func (t *texture) Format() wgpu.TextureFormat {
	return t.format
}

func (t *texture) Texture() *wgpu.Texture {
	return t.texture
}

func (t *texture) View() *wgpu.TextureView {
	return t.view
}

func (t *texture) Sampler() *wgpu.Sampler {
	return t.sampler
}

func (t *texture) Release() {
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Destroy()
		t.texture.Release()
		t.texture = nil
	}
}

// create2D builds a single-layer, single-mip texture with its default view and a sampler.
// Everything created is released again if a later step fails.
func create2D(device *wgpu.Device, desc *wgpu.TextureDescriptor, sampler common.SamplerStagingData) (*texture, error) {
	t := &texture{
		label:  desc.Label,
		size:   common.Size2D{Width: desc.Size.Width, Height: desc.Size.Height},
		format: desc.Format,
	}

	tex, err := device.CreateTexture(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s texture", desc.Label)
	}
	t.texture = tex

	view, err := tex.CreateView(nil)
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "create %s view", desc.Label)
	}
	t.view = view

	smp, err := device.CreateSampler(sampler.Descriptor(desc.Label + " Sampler"))
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "create %s sampler", desc.Label)
	}
	t.sampler = smp
	return t, nil
}

// descriptor2D returns the descriptor of a single-layer 2D texture.
func descriptor2D(label string, size common.Size2D, format wgpu.TextureFormat, usage wgpu.TextureUsage) *wgpu.TextureDescriptor {
	return &wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              size.Width,
			Height:             size.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	}
}

// upload writes tightly packed texel rows into layer 0 of tex.
func upload(queue *wgpu.Queue, tex *wgpu.Texture, pixels []byte, size common.Size2D, bytesPerPixel uint32) {
	queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  size.Width * bytesPerPixel,
			RowsPerImage: size.Height,
		},
		&wgpu.Extent3D{
			Width:              size.Width,
			Height:             size.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

// LinearRepeatSampler samples material textures: bilinear with repeat addressing.
var LinearRepeatSampler = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeRepeat,
	AddressModeV: wgpu.AddressModeRepeat,
	AddressModeW: wgpu.AddressModeRepeat,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
	MipmapFilter: wgpu.MipmapFilterModeNearest,
}

// LinearClampSampler samples full-screen targets: bilinear, clamped to the edge.
var LinearClampSampler = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
	MipmapFilter: wgpu.MipmapFilterModeNearest,
}

// NearestClampSampler is the non-filtering sampler used for depth and 32-bit float textures.
var NearestClampSampler = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeNearest,
	MinFilter:    wgpu.FilterModeNearest,
	MipmapFilter: wgpu.MipmapFilterModeNearest,
	LodMaxClamp:  100,
}

// NewD2Texture uploads RGBA8 pixels into a sampled 2D texture of the given format.
// Use DiffuseFormat for color and NormalFormat for normal maps.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - queue: the queue used to upload the pixels
//   - label: the label of the GPU objects, numbered when empty
//   - staging: the RGBA8 pixels
//   - format: an RGBA8 format
//
// Returns:
//   - Texture: the uploaded texture with a linear repeating sampler
//   - error: an error if the pixel data is malformed or GPU creation failed
func NewD2Texture(device *wgpu.Device, queue *wgpu.Queue, label string, staging common.TextureStagingData, format wgpu.TextureFormat) (Texture, error) {
	size := common.Size2D{Width: staging.Width, Height: staging.Height}
	if size.IsZero() || len(staging.Pixels) != int(size.Width*size.Height*4) {
		return nil, errors.Newf("d2 texture %q: %d bytes do not describe %dx%d RGBA8", label, len(staging.Pixels), size.Width, size.Height)
	}

	label = nextLabel(label, "D2 Texture")
	t, err := create2D(device, descriptor2D(label, size, format, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst), LinearRepeatSampler)
	if err != nil {
		return nil, err
	}
	upload(queue, t.texture, staging.Pixels, size, 4)
	return t, nil
}

// NewD2FloatTexture uploads RGBA32Float pixels into a sampled 2D texture. The result is not
// filterable and carries a nearest sampler.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - queue: the queue used to upload the pixels
//   - label: the label of the GPU objects, numbered when empty
//   - staging: the float pixels, four per texel
//
// Returns:
//   - Texture: the uploaded texture
//   - error: an error if the pixel data is malformed or GPU creation failed
func NewD2FloatTexture(device *wgpu.Device, queue *wgpu.Queue, label string, staging common.FloatTextureStagingData) (Texture, error) {
	size := common.Size2D{Width: staging.Width, Height: staging.Height}
	if size.IsZero() || len(staging.Pixels) != int(size.Width*size.Height*4) {
		return nil, errors.Newf("float texture %q: %d floats do not describe %dx%d RGBA", label, len(staging.Pixels), size.Width, size.Height)
	}

	label = nextLabel(label, "Float Texture")
	t, err := create2D(device, descriptor2D(label, size, CubeFormat, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst), NearestClampSampler)
	if err != nil {
		return nil, err
	}
	upload(queue, t.texture, common.SliceToBytes(staging.Pixels), size, BytesPerPixel(CubeFormat))
	return t, nil
}

// CanvasDescriptor returns the descriptor of an HDR canvas of the given size.
// Two calls with the same arguments return equal descriptors.
//
// Parameters:
//   - label: the texture label
//   - size: the canvas size, zero dimensions are raised to 1
//
// Returns:
//   - *wgpu.TextureDescriptor: the canvas descriptor
func CanvasDescriptor(label string, size common.Size2D) *wgpu.TextureDescriptor {
	return descriptor2D(label, clampSize(size), CanvasFormat, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
}

// NewCanvasHdrTexture creates an RGBA16Float render target that a later pass samples with filtering.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - label: the label of the GPU objects, numbered when empty
//   - size: the canvas size
//
// Returns:
//   - Texture: the canvas texture with a linear clamping sampler
//   - error: an error if GPU creation failed
func NewCanvasHdrTexture(device *wgpu.Device, label string, size common.Size2D) (Texture, error) {
	return create2D(device, CanvasDescriptor(nextLabel(label, "Canvas HDR Texture"), size), LinearClampSampler)
}

// DepthDescriptor returns the descriptor of a depth buffer of the given size.
// Two calls with the same arguments return equal descriptors.
//
// Parameters:
//   - label: the texture label
//   - size: the depth buffer size, zero dimensions are raised to 1
//
// Returns:
//   - *wgpu.TextureDescriptor: the depth descriptor
func DepthDescriptor(label string, size common.Size2D) *wgpu.TextureDescriptor {
	return descriptor2D(label, clampSize(size), DepthFormat, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
}

// NewDepthTexture creates a Depth32Float attachment with a nearest, non-comparison sampler.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - label: the label of the GPU objects, numbered when empty
//   - size: the depth buffer size
//
// Returns:
//   - Texture: the depth texture
//   - error: an error if GPU creation failed
func NewDepthTexture(device *wgpu.Device, label string, size common.Size2D) (Texture, error) {
	return create2D(device, DepthDescriptor(nextLabel(label, "Depth Texture"), size), NearestClampSampler)
}

// TargetDescriptor returns the descriptor of a color target that can be rendered to,
// sampled, and copied from.
//
// Parameters:
//   - label: the texture label
//   - size: the target size, zero dimensions are raised to 1
//   - format: the color format
//
// Returns:
//   - *wgpu.TextureDescriptor: the target descriptor
func TargetDescriptor(label string, size common.Size2D, format wgpu.TextureFormat) *wgpu.TextureDescriptor {
	return descriptor2D(label, clampSize(size), format,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
}

// NewTargetTexture creates an offscreen color target that replaces the swapchain when frames
// are rendered away from the window thread.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - label: the label of the GPU objects, numbered when empty
//   - size: the target size
//   - format: the color format
//
// Returns:
//   - Texture: the target texture with a linear clamping sampler
//   - error: an error if GPU creation failed
func NewTargetTexture(device *wgpu.Device, label string, size common.Size2D, format wgpu.TextureFormat) (Texture, error) {
	return create2D(device, TargetDescriptor(nextLabel(label, "Target Texture"), size, format), LinearClampSampler)
}

func clampSize(size common.Size2D) common.Size2D {
	return common.Size2D{Width: max(size.Width, 1), Height: max(size.Height, 1)}
}
