package light

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

type lightSystem struct {
	mu *sync.Mutex

	uniform              GPULightUniform
	revolutionsPerSecond float32

	layout    *wgpu.BindGroupLayout
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

// LightSystem owns the single demo point light: its uniform, the bind group layout
// shaders use to read it, and the bind group built against that layout.
//
// The light orbits the world Y axis. Every Update rewrites the uniform, even when
// the position did not change.
type LightSystem interface {
	// BindGroupLayout returns the layout of the light bind group: one uniform buffer at
	// binding 0, visible to the vertex and fragment stages.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the light layout
	BindGroupLayout() *wgpu.BindGroupLayout

	// BindGroup returns the bind group holding the light uniform.
	//
	// Returns:
	//   - *wgpu.BindGroup: the light bind group
	BindGroup() *wgpu.BindGroup

	// Uniform returns a copy of the CPU-side light uniform.
	//
	// Returns:
	//   - GPULightUniform: the current position and color
	Uniform() GPULightUniform

	// Update rotates the light about the world Y axis by dt revolutions scaled by the
	// configured orbit speed and uploads the new uniform.
	//
	// Parameters:
	//   - queue: the queue used to write the uniform buffer
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - error: an error if the upload failed
	Update(queue *wgpu.Queue, dt float32) error

	// Release frees the layout, buffer, and bind group.
	Release()
}

var _ LightSystem = &lightSystem{}

// NewLightSystem creates the light layout, uniform buffer, and bind group.
// The light starts at (2, 2, 2) with white color unless options say otherwise.
//
// Parameters:
//   - device: the device used to create GPU resources
//   - options: functional options configuring the light
//
// Returns:
//   - LightSystem: the new light system
//   - error: an error if GPU resource creation failed
func NewLightSystem(device *wgpu.Device, options ...LightSystemBuilderOption) (LightSystem, error) {
	s := defaultLightSystem()
	s.mu = &sync.Mutex{}
	for _, option := range options {
		option(s)
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Light Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(s.uniform.Size()),
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create light bind group layout")
	}

	buffer, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Light Uniform Buffer",
		Contents: s.uniform.Marshal(),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		layout.Release()
		return nil, errors.Wrap(err, "create light uniform buffer")
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Light Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buffer, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		buffer.Release()
		layout.Release()
		return nil, errors.Wrap(err, "create light bind group")
	}

	s.layout = layout
	s.buffer = buffer
	s.bindGroup = bindGroup
	return s, nil
}

func (s *lightSystem) BindGroupLayout() *wgpu.BindGroupLayout {
	return s.layout
}

func (s *lightSystem) BindGroup() *wgpu.BindGroup {
	return s.bindGroup
}

func (s *lightSystem) Uniform() GPULightUniform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniform
}

func (s *lightSystem) Update(queue *wgpu.Queue, dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance(dt)
	if err := queue.WriteBuffer(s.buffer, 0, s.uniform.Marshal()); err != nil {
		return errors.Wrap(err, "write light uniform")
	}
	return nil
}

// advance orbits the light position. Caller must hold the mutex.
func (s *lightSystem) advance(dt float32) {
	s.uniform.Position = Orbit(s.uniform.Position, dt*s.revolutionsPerSecond)
}

func (s *lightSystem) Release() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
		s.bindGroup = nil
	}
	if s.buffer != nil {
		s.buffer.Destroy()
		s.buffer.Release()
		s.buffer = nil
	}
	if s.layout != nil {
		s.layout.Release()
		s.layout = nil
	}
}

// Orbit rotates position about the world Y axis by the given number of full turns.
//
// Parameters:
//   - position: the point to rotate
//   - turns: fraction of a revolution, 1 is a full circle
//
// Returns:
//   - mgl32.Vec3: the rotated point
func Orbit(position mgl32.Vec3, turns float32) mgl32.Vec3 {
	return mgl32.Rotate3DY(turns * 2 * math32.Pi).Mul3x1(position)
}
