package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// SafeFracPi2 is the largest pitch magnitude a camera may reach. Staying just short of
// π/2 keeps the look direction from becoming parallel to the up vector.
const SafeFracPi2 = float32(math.Pi/2) - 0.0001

// cameraCount is an atomic counter used to generate unique labels for each camera entry.
var cameraCount atomic.Uint64

// CameraData is the pose of a camera: where it is and which way it looks.
type CameraData struct {
	Position mgl32.Vec3
	Yaw      float32 // radians, 0 looks along +X
	Pitch    float32 // radians, positive looks up
}

// DefaultCameraData is the pose every new camera entry starts with.
func DefaultCameraData() CameraData {
	return CameraData{
		Position: mgl32.Vec3{0, 5, 10},
		Yaw:      mgl32.DegToRad(-90),
		Pitch:    mgl32.DegToRad(-20),
	}
}

// Direction returns the unit look direction (cos p·cos y, sin p, cos p·sin y).
func (d CameraData) Direction() mgl32.Vec3 {
	sinPitch, cosPitch := math.Sincos(float64(d.Pitch))
	sinYaw, cosYaw := math.Sincos(float64(d.Yaw))
	return mgl32.Vec3{
		float32(cosPitch * cosYaw),
		float32(sinPitch),
		float32(cosPitch * sinYaw),
	}.Normalize()
}

// Matrix returns the right-handed world-to-view matrix for this pose.
func (d CameraData) Matrix() mgl32.Mat4 {
	return common.LookToRH(d.Position, d.Direction(), common.WorldUp)
}

// ClampPitch clamps the pitch to ±SafeFracPi2.
func (d *CameraData) ClampPitch() {
	if d.Pitch < -SafeFracPi2 {
		d.Pitch = -SafeFracPi2
	} else if d.Pitch > SafeFracPi2 {
		d.Pitch = SafeFracPi2
	}
}

// Projection is a right-handed perspective projection tracking the viewport aspect ratio.
type Projection struct {
	aspect float32
	fovY   float32
	near   float32
	far    float32
	matrix mgl32.Mat4
}

// NewProjection builds a projection for a viewport of the given size.
//
// Parameters:
//   - size: the viewport size in pixels, both dimensions non-zero
//   - fovY: vertical field of view in radians
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - Projection: the projection with its matrix computed
func NewProjection(size common.Size2D, fovY, near, far float32) Projection {
	p := Projection{fovY: fovY, near: near, far: far}
	p.Resize(size.Width, size.Height)
	return p
}

// Resize recomputes the aspect ratio and matrix for a new viewport size.
func (p *Projection) Resize(width, height uint32) {
	p.aspect = float32(width) / float32(height)
	p.matrix = common.PerspectiveRH(p.fovY, p.aspect, p.near, p.far)
}

func (p Projection) Aspect() float32    { return p.aspect }
func (p Projection) FovY() float32      { return p.fovY }
func (p Projection) Near() float32      { return p.near }
func (p Projection) Far() float32       { return p.far }
func (p Projection) Matrix() mgl32.Mat4 { return p.matrix }

// cameraEntry is the implementation of the CameraEntry interface.
type cameraEntry struct {
	mu *sync.Mutex

	label      string
	data       CameraData
	projection Projection
	uniform    GPUCameraUniform

	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

// CameraEntry is one camera: its pose, its projection and the GPU uniform both are packed into.
// The uniform buffer always holds the packing of the current pose and projection.
type CameraEntry interface {
	// Data returns a copy of the current pose.
	//
	// Returns:
	//   - CameraData: the camera pose
	Data() CameraData

	// Projection returns a copy of the current projection.
	//
	// Returns:
	//   - Projection: the camera projection
	Projection() Projection

	// Uniform returns a copy of the uniform as last written to the GPU.
	//
	// Returns:
	//   - GPUCameraUniform: the packed uniform
	Uniform() GPUCameraUniform

	// BindGroup returns the bind group exposing the uniform buffer at binding 0.
	//
	// Returns:
	//   - *wgpu.BindGroup: the camera bind group
	BindGroup() *wgpu.BindGroup

	// UpdateCamera applies mutate to the pose, then recomputes and rewrites the whole uniform.
	//
	// Parameters:
	//   - queue: the queue used to write the uniform buffer
	//   - mutate: the in-place edit applied to the pose
	//
	// Returns:
	//   - error: an error if the uniform upload failed
	UpdateCamera(queue *wgpu.Queue, mutate func(*CameraData)) error

	// Resize recomputes the projection for a new viewport size and rewrites the uniform.
	//
	// Parameters:
	//   - queue: the queue used to write the uniform buffer
	//   - width, height: the new viewport size in pixels
	//
	// Returns:
	//   - error: an error if the uniform upload failed; the previous projection is kept
	Resize(queue *wgpu.Queue, width, height uint32) error

	// Release frees the uniform buffer and bind group.
	Release()
}

var _ CameraEntry = &cameraEntry{}

func newCameraEntry(device *wgpu.Device, layout *wgpu.BindGroupLayout, data CameraData, projection Projection) (*cameraEntry, error) {
	e := &cameraEntry{
		mu:         &sync.Mutex{},
		label:      "Camera " + strconv.FormatUint(cameraCount.Add(1), 10),
		data:       data,
		projection: projection,
		uniform:    NewGPUCameraUniform(),
	}
	e.uniform.UpdateViewProj(e.data, e.projection)

	buffer, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    e.label + " Uniform Buffer",
		Contents: e.uniform.Marshal(),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create %s uniform buffer", e.label)
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  e.label + " Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buffer, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		buffer.Release()
		return nil, errors.Wrapf(err, "create %s bind group", e.label)
	}

	e.buffer = buffer
	e.bindGroup = bindGroup
	return e, nil
}

func (e *cameraEntry) Data() CameraData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data
}

func (e *cameraEntry) Projection() Projection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.projection
}

func (e *cameraEntry) Uniform() GPUCameraUniform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uniform
}

func (e *cameraEntry) BindGroup() *wgpu.BindGroup {
	return e.bindGroup
}

func (e *cameraEntry) UpdateCamera(queue *wgpu.Queue, mutate func(*CameraData)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mutate(&e.data)
	return e.writeUniform(queue)
}

func (e *cameraEntry) Resize(queue *wgpu.Queue, width, height uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.projection
	e.projection.Resize(width, height)
	if err := e.writeUniform(queue); err != nil {
		e.projection = previous
		return err
	}
	return nil
}

func (e *cameraEntry) Release() {
	if e.bindGroup != nil {
		e.bindGroup.Release()
		e.bindGroup = nil
	}
	if e.buffer != nil {
		e.buffer.Destroy()
		e.buffer.Release()
		e.buffer = nil
	}
}

// writeUniform packs the current pose and projection and uploads the result.
// Caller must hold the mutex.
func (e *cameraEntry) writeUniform(queue *wgpu.Queue) error {
	e.uniform.UpdateViewProj(e.data, e.projection)
	if err := queue.WriteBuffer(e.buffer, 0, e.uniform.Marshal()); err != nil {
		return errors.Wrapf(err, "write %s uniform", e.label)
	}
	return nil
}
