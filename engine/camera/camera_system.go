package camera

import (
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

type cameraSystem struct {
	mu *sync.Mutex

	fovY    float32
	near    float32
	far     float32
	initial CameraData

	layout  *wgpu.BindGroupLayout
	primary *cameraEntry
	claimed bool
}

// CameraSystem owns the camera bind group layout and the camera entries built against it.
// Construction builds exactly one entry; a viewport claims it through ClaimEntry.
type CameraSystem interface {
	// BindGroupLayout returns the layout every camera bind group uses: one uniform buffer at
	// binding 0, visible to the vertex and fragment stages.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the camera layout
	BindGroupLayout() *wgpu.BindGroupLayout

	// Entry returns the entry built at construction time.
	//
	// Returns:
	//   - CameraEntry: the primary camera entry
	Entry() CameraEntry

	// ClaimEntry hands out the primary entry, resized to size, on the first call.
	// Later calls build and return fresh entries.
	//
	// Parameters:
	//   - device: the device used to create a fresh entry
	//   - queue: the queue used to rewrite the uniform
	//   - size: the viewport size the entry renders at
	//
	// Returns:
	//   - CameraEntry: the claimed entry
	//   - error: an error if a fresh entry could not be created or the uniform could not be written
	ClaimEntry(device *wgpu.Device, queue *wgpu.Queue, size common.Size2D) (CameraEntry, error)

	// MakeEntry builds a new entry with the system's projection settings and starting pose.
	//
	// Parameters:
	//   - device: the device used to create GPU resources
	//   - size: the viewport size the entry renders at
	//
	// Returns:
	//   - CameraEntry: the new entry
	//   - error: an error if GPU resources could not be created
	MakeEntry(device *wgpu.Device, size common.Size2D) (CameraEntry, error)

	// UpdateCamera applies mutate to the primary entry's pose and rewrites its uniform.
	//
	// Parameters:
	//   - queue: the queue used to write the uniform
	//   - mutate: the in-place edit applied to the pose
	//
	// Returns:
	//   - error: an error if the uniform upload failed
	UpdateCamera(queue *wgpu.Queue, mutate func(*CameraData)) error

	// Resize resizes the primary entry's projection and rewrites its uniform.
	//
	// Parameters:
	//   - queue: the queue used to write the uniform
	//   - width, height: the new viewport size in pixels
	//
	// Returns:
	//   - error: an error if the uniform upload failed
	Resize(queue *wgpu.Queue, width, height uint32) error

	// Release frees the layout and the primary entry if it was never claimed.
	Release()
}

var _ CameraSystem = &cameraSystem{}

// NewCameraSystem builds the camera bind group layout and one camera entry of the given size.
//
// Parameters:
//   - device: the device used to create GPU resources
//   - size: the initial viewport size, both dimensions non-zero
//   - options: functional options configuring projection and starting pose
//
// Returns:
//   - CameraSystem: the new camera system
//   - error: an error if the size is empty or GPU resources could not be created
func NewCameraSystem(device *wgpu.Device, size common.Size2D, options ...CameraSystemBuilderOption) (CameraSystem, error) {
	if size.IsZero() {
		return nil, errors.Newf("camera system: invalid size %dx%d", size.Width, size.Height)
	}

	s := defaultCameraSystem()
	s.mu = &sync.Mutex{}
	for _, option := range options {
		option(s)
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Camera Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64((&GPUCameraUniform{}).Size()),
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create camera bind group layout")
	}
	s.layout = layout

	primary, err := newCameraEntry(device, layout, s.initial, NewProjection(size, s.fovY, s.near, s.far))
	if err != nil {
		layout.Release()
		return nil, err
	}
	s.primary = primary

	return s, nil
}

func (s *cameraSystem) BindGroupLayout() *wgpu.BindGroupLayout {
	return s.layout
}

func (s *cameraSystem) Entry() CameraEntry {
	return s.primary
}

func (s *cameraSystem) ClaimEntry(device *wgpu.Device, queue *wgpu.Queue, size common.Size2D) (CameraEntry, error) {
	s.mu.Lock()
	claimed := s.claimed
	s.claimed = true
	s.mu.Unlock()

	if claimed {
		return s.MakeEntry(device, size)
	}
	if err := s.primary.Resize(queue, size.Width, size.Height); err != nil {
		return nil, err
	}
	return s.primary, nil
}

func (s *cameraSystem) MakeEntry(device *wgpu.Device, size common.Size2D) (CameraEntry, error) {
	if size.IsZero() {
		return nil, errors.Newf("camera entry: invalid size %dx%d", size.Width, size.Height)
	}
	return newCameraEntry(device, s.layout, s.initial, NewProjection(size, s.fovY, s.near, s.far))
}

func (s *cameraSystem) UpdateCamera(queue *wgpu.Queue, mutate func(*CameraData)) error {
	return s.primary.UpdateCamera(queue, mutate)
}

func (s *cameraSystem) Resize(queue *wgpu.Queue, width, height uint32) error {
	return s.primary.Resize(queue, width, height)
}

func (s *cameraSystem) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.claimed && s.primary != nil {
		s.primary.Release()
	}
	if s.layout != nil {
		s.layout.Release()
		s.layout = nil
	}
}
