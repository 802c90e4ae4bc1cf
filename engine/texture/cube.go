package texture

import (
	_ "embed"
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed assets/equirect_to_cubemap.wgsl
var equirectToCubemapSource string

// CubeWorkgroupSize is the edge of the square workgroup the conversion shader runs with.
const CubeWorkgroupSize = 16

// CubeFaces is the layer count of every cube texture.
const CubeFaces = 6

// CubeDispatch returns the workgroup counts that cover every texel of every face.
//
// Parameters:
//   - faceSize: the edge length of one face in pixels
//
// Returns:
//   - x, y, z: workgroup counts, z is always CubeFaces
func CubeDispatch(faceSize uint32) (x, y, z uint32) {
	groups := common.CeilDiv(faceSize, CubeWorkgroupSize)
	return groups, groups, CubeFaces
}

// CubeDescriptor returns the descriptor of a cube texture that a compute pass can write.
//
// Parameters:
//   - label: the texture label
//   - faceSize: the edge length of one face in pixels
//
// Returns:
//   - *wgpu.TextureDescriptor: a 6-layer RGBA32Float descriptor
func CubeDescriptor(label string, faceSize uint32) *wgpu.TextureDescriptor {
	return &wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              faceSize,
			Height:             faceSize,
			DepthOrArrayLayers: CubeFaces,
		},
		Format:        CubeFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	}
}

// layerView returns a view over all six layers with the given dimension.
func layerView(label string, dimension wgpu.TextureViewDimension) *wgpu.TextureViewDescriptor {
	return &wgpu.TextureViewDescriptor{
		Label:           label,
		Format:          CubeFormat,
		Dimension:       dimension,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: CubeFaces,
		Aspect:          wgpu.TextureAspectAll,
	}
}

// NewCubeTexture creates an empty cube texture. Its View is a cube view and its sampler
// is the non-filtering sampler 32-bit float textures require.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - label: the label of the GPU objects, numbered when empty
//   - faceSize: the edge length of one face in pixels
//
// Returns:
//   - Texture: the cube texture
//   - error: an error if the face size is zero or GPU creation failed
func NewCubeTexture(device *wgpu.Device, label string, faceSize uint32) (Texture, error) {
	if faceSize == 0 {
		return nil, errors.New("cube texture: face size must be positive")
	}
	label = nextLabel(label, "Cube Texture")
	t := &texture{
		label:  label,
		size:   common.Size2D{Width: faceSize, Height: faceSize},
		format: CubeFormat,
	}

	tex, err := device.CreateTexture(CubeDescriptor(label, faceSize))
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", label)
	}
	t.texture = tex

	view, err := tex.CreateView(layerView(label+" Cube View", wgpu.TextureViewDimensionCube))
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "create %s cube view", label)
	}
	t.view = view

	smp, err := device.CreateSampler(NearestClampSampler.Descriptor(label + " Sampler"))
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "create %s sampler", label)
	}
	t.sampler = smp
	return t, nil
}

type cubeTextureFactory struct {
	mu *sync.Mutex

	device   *wgpu.Device
	queue    *wgpu.Queue
	layout   *wgpu.BindGroupLayout
	pipeline pipeline.Pipeline
}

// CubeTextureFactory converts equirectangular images into cube textures on the GPU.
// The source is bound as a sampled 2D texture, the destination as a write-only storage
// array, and one dispatch covers all six faces.
type CubeTextureFactory interface {
	// FromEquirect uploads staging and converts it into a cube texture.
	//
	// Parameters:
	//   - label: the label of the resulting cube texture
	//   - staging: the equirectangular image, RGBA float
	//   - faceSize: the edge length of one face in pixels
	//
	// Returns:
	//   - Texture: the finished cube texture
	//   - error: an error if the input is empty or any GPU step failed; nothing partial is returned
	FromEquirect(label string, staging common.FloatTextureStagingData, faceSize uint32) (Texture, error)

	// FromHDR decodes Radiance .hdr bytes and converts the image into a cube texture.
	//
	// Parameters:
	//   - label: the label of the resulting cube texture
	//   - data: the .hdr file contents
	//   - faceSize: the edge length of one face in pixels
	//
	// Returns:
	//   - Texture: the finished cube texture
	//   - error: an error marked ErrHDRDecode for malformed input, or a GPU error
	FromHDR(label string, data []byte, faceSize uint32) (Texture, error)

	// Release frees the conversion pipeline and layout.
	Release()
}

var _ CubeTextureFactory = &cubeTextureFactory{}

// NewCubeTextureFactory compiles the conversion compute pipeline.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - queue: the queue conversions are submitted to
//
// Returns:
//   - CubeTextureFactory: the factory
//   - error: an error if the pipeline could not be built
func NewCubeTextureFactory(device *wgpu.Device, queue *wgpu.Queue) (CubeTextureFactory, error) {
	s, err := shader.NewShader("equirect_to_cubemap", equirectToCubemapSource, nil)
	if err != nil {
		return nil, err
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Equirect To Cubemap Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        CubeFormat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create equirect to cubemap bind group layout")
	}

	p, err := pipeline.NewComputePipeline(device, "equirect_to_cubemap", s, []*wgpu.BindGroupLayout{layout})
	if err != nil {
		layout.Release()
		return nil, err
	}

	return &cubeTextureFactory{
		mu:       &sync.Mutex{},
		device:   device,
		queue:    queue,
		layout:   layout,
		pipeline: p,
	}, nil
}

func (f *cubeTextureFactory) FromHDR(label string, data []byte, faceSize uint32) (Texture, error) {
	staging, err := DecodeHDR(data)
	if err != nil {
		return nil, err
	}
	return f.FromEquirect(label, staging, faceSize)
}

func (f *cubeTextureFactory) FromEquirect(label string, staging common.FloatTextureStagingData, faceSize uint32) (Texture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	label = nextLabel(label, "Cube Texture")
	src, err := NewD2FloatTexture(f.device, f.queue, label+" Equirect", staging)
	if err != nil {
		return nil, err
	}
	defer src.Release()

	cube, err := NewCubeTexture(f.device, label, faceSize)
	if err != nil {
		return nil, err
	}
	if err := f.convert(src, cube.(*texture)); err != nil {
		cube.Release()
		return nil, err
	}
	return cube, nil
}

// convert records and submits the compute pass writing src into every face of dst.
func (f *cubeTextureFactory) convert(src Texture, dst *texture) error {
	dstView, err := dst.texture.CreateView(layerView(dst.label+" Storage View", wgpu.TextureViewDimension2DArray))
	if err != nil {
		return errors.Wrapf(err, "create %s storage view", dst.label)
	}
	defer dstView.Release()

	bindGroup, err := f.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  dst.label + " Conversion Bind Group",
		Layout: f.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: src.View()},
			{Binding: 1, TextureView: dstView},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "create %s conversion bind group", dst.label)
	}
	defer bindGroup.Release()

	encoder, err := f.device.CreateCommandEncoder(nil)
	if err != nil {
		return errors.Wrap(err, "create conversion encoder")
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(f.pipeline.Compute())
	pass.SetBindGroup(0, bindGroup, nil)
	x, y, z := CubeDispatch(dst.size.Width)
	pass.DispatchWorkgroups(x, y, z)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish conversion encoder")
	}
	defer cmd.Release()
	f.queue.Submit(cmd)
	return nil
}

func (f *cubeTextureFactory) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pipeline != nil {
		f.pipeline.Release()
		f.pipeline = nil
	}
	if f.layout != nil {
		f.layout.Release()
		f.layout = nil
	}
}

// cubeFace holds the basis the conversion shader uses for one face.
type cubeFace struct {
	forward, up, right mgl32.Vec3
}

// cubeFaces mirrors the face table in equirect_to_cubemap.wgsl.
var cubeFaces = [CubeFaces]cubeFace{
	{forward: mgl32.Vec3{1, 0, 0}, up: mgl32.Vec3{0, 1, 0}, right: mgl32.Vec3{0, 0, -1}},
	{forward: mgl32.Vec3{-1, 0, 0}, up: mgl32.Vec3{0, 1, 0}, right: mgl32.Vec3{0, 0, 1}},
	{forward: mgl32.Vec3{0, -1, 0}, up: mgl32.Vec3{0, 0, 1}, right: mgl32.Vec3{1, 0, 0}},
	{forward: mgl32.Vec3{0, 1, 0}, up: mgl32.Vec3{0, 0, -1}, right: mgl32.Vec3{1, 0, 0}},
	{forward: mgl32.Vec3{0, 0, 1}, up: mgl32.Vec3{0, 1, 0}, right: mgl32.Vec3{1, 0, 0}},
	{forward: mgl32.Vec3{0, 0, -1}, up: mgl32.Vec3{0, 1, 0}, right: mgl32.Vec3{-1, 0, 0}},
}

// CubeDirection returns the world direction texel (x, y) of a face points along.
//
// Parameters:
//   - face: the layer index, 0 through 5
//   - x, y: the texel coordinates
//   - faceSize: the edge length of one face in pixels
//
// Returns:
//   - mgl32.Vec3: the unit direction
func CubeDirection(face int, x, y, faceSize uint32) mgl32.Vec3 {
	f := cubeFaces[face]
	u := float32(x)/float32(faceSize)*2 - 1
	v := float32(y)/float32(faceSize)*2 - 1
	return f.forward.Add(f.right.Mul(u)).Add(f.up.Mul(v)).Normalize()
}

// EquirectPixel returns the source texel a direction samples in an equirectangular image,
// using the same mapping and clamping as the conversion shader.
//
// Parameters:
//   - dir: a unit direction
//   - width, height: the source image size
//
// Returns:
//   - px, py: the texel coordinates, always inside the image
func EquirectPixel(dir mgl32.Vec3, width, height uint32) (px, py uint32) {
	u := math32.Atan2(dir.Z(), dir.X())*0.1591 + 0.5
	v := math32.Asin(dir.Y())*0.3183 + 0.5
	return clampTexel(u*float32(width), width), clampTexel(v*float32(height), height)
}

func clampTexel(c float32, limit uint32) uint32 {
	if c < 0 {
		return 0
	}
	if i := uint32(c); i < limit {
		return i
	}
	return limit - 1
}

// ConvertEquirect performs the cubemap conversion on the CPU and returns the six faces as
// tightly packed RGBA floats, in layer order.
//
// Parameters:
//   - staging: the equirectangular image
//   - faceSize: the edge length of one face in pixels
//
// Returns:
//   - [CubeFaces][]float32: the face pixels
func ConvertEquirect(staging common.FloatTextureStagingData, faceSize uint32) [CubeFaces][]float32 {
	var faces [CubeFaces][]float32
	for face := range CubeFaces {
		out := make([]float32, 0, faceSize*faceSize*4)
		for y := range faceSize {
			for x := range faceSize {
				px, py := EquirectPixel(CubeDirection(face, x, y, faceSize), staging.Width, staging.Height)
				i := (py*staging.Width + px) * 4
				out = append(out, staging.Pixels[i:i+4]...)
			}
		}
		faces[face] = out
	}
	return faces
}
