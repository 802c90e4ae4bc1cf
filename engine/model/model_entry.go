package model

import (
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

var entryCount atomic.Uint64

// instanceBufferAllocator creates, rewrites and destroys instance buffers.
type instanceBufferAllocator interface {
	Create(label string, contents []byte) (*wgpu.Buffer, error)
	Write(buffer *wgpu.Buffer, contents []byte) error
	Destroy(buffer *wgpu.Buffer)
}

type gpuInstanceBufferAllocator struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

var _ instanceBufferAllocator = &gpuInstanceBufferAllocator{}

func (a *gpuInstanceBufferAllocator) Create(label string, contents []byte) (*wgpu.Buffer, error) {
	buffer, err := a.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", label)
	}
	return buffer, nil
}

func (a *gpuInstanceBufferAllocator) Write(buffer *wgpu.Buffer, contents []byte) error {
	return a.queue.WriteBuffer(buffer, 0, contents)
}

func (a *gpuInstanceBufferAllocator) Destroy(buffer *wgpu.Buffer) {
	buffer.Destroy()
	buffer.Release()
}

// ModelEntrySimple draws every instance an InstancesProvider produces with one shared model.
// The instance buffer always holds exactly InstanceCount records: it is rewritten in place
// while the byte length is unchanged and reallocated when it changes.
type ModelEntrySimple struct {
	label     string
	model     Model
	provider  InstancesProvider
	allocator instanceBufferAllocator

	buffer     *wgpu.Buffer
	bufferSize uint64
}

// NewModelEntrySimple takes a hold on m, updates provider for time 0 and uploads the result.
//
// Parameters:
//   - device: the device used to create the instance buffer
//   - queue: the queue used to rewrite the instance buffer
//   - m: the model to draw
//   - provider: the source of instance records
//
// Returns:
//   - *ModelEntrySimple: the entry
//   - error: an error if the instance buffer could not be created
func NewModelEntrySimple(device *wgpu.Device, queue *wgpu.Queue, m Model, provider InstancesProvider) (*ModelEntrySimple, error) {
	return newModelEntrySimple(&gpuInstanceBufferAllocator{device: device, queue: queue}, m, provider)
}

func newModelEntrySimple(allocator instanceBufferAllocator, m Model, provider InstancesProvider) (*ModelEntrySimple, error) {
	e := &ModelEntrySimple{
		label:     m.Name() + " Instance Buffer " + strconv.FormatUint(entryCount.Add(1), 10),
		model:     m,
		provider:  provider,
		allocator: allocator,
	}

	provider.Update(0)
	if err := e.upload(); err != nil {
		return nil, err
	}
	m.Retain()
	return e, nil
}

// Model returns the model the entry draws.
func (e *ModelEntrySimple) Model() Model {
	return e.model
}

// Provider returns the entry's instance source.
func (e *ModelEntrySimple) Provider() InstancesProvider {
	return e.provider
}

// BufferSize returns the current instance buffer length in bytes.
func (e *ModelEntrySimple) BufferSize() uint64 {
	return e.bufferSize
}

// upload rewrites or reallocates the instance buffer from the provider's current data.
func (e *ModelEntrySimple) upload() error {
	contents := MarshalInstances(e.provider.InstanceData())
	size := uint64(len(contents))

	if e.buffer != nil && size == e.bufferSize {
		if size == 0 {
			return nil
		}
		return errors.Wrapf(e.allocator.Write(e.buffer, contents), "write %s", e.label)
	}

	if e.buffer != nil {
		e.allocator.Destroy(e.buffer)
		e.buffer, e.bufferSize = nil, 0
	}
	if size == 0 {
		// a zero-length buffer cannot be bound; nothing is drawn until instances return
		return nil
	}
	buffer, err := e.allocator.Create(e.label, contents)
	if err != nil {
		return err
	}
	e.buffer, e.bufferSize = buffer, size
	return nil
}

// draw records one indexed, instanced draw per mesh. Each mesh binds its material at slot 0
// followed by camera, light and environment at slots 1, 2 and 3.
func (e *ModelEntrySimple) draw(pass *wgpu.RenderPassEncoder, shared [3]*wgpu.BindGroup) {
	count := uint32(e.provider.InstanceCount())
	if e.buffer == nil || count == 0 {
		return
	}

	pass.SetVertexBuffer(1, e.buffer, 0, wgpu.WholeSize)
	materials := e.model.Materials()
	for _, mesh := range e.model.Meshes() {
		mesh.Bind(pass)
		pass.SetBindGroup(0, materials[mesh.MaterialIndex()].BindGroup(), nil)
		for i, bg := range shared {
			pass.SetBindGroup(uint32(i+1), bg, nil)
		}
		pass.DrawIndexed(mesh.IndexCount(), count, 0, 0, 0)
	}
}

// Release destroys the instance buffer and drops the entry's hold on the model.
func (e *ModelEntrySimple) Release() {
	if e.buffer != nil {
		e.allocator.Destroy(e.buffer)
		e.buffer, e.bufferSize = nil, 0
	}
	if e.model != nil {
		e.model.Release()
		e.model = nil
	}
}

// LightIndicatorEntry is the small cube drawn at the light position. It has no material and
// binds camera at slot 0 and light at slot 1.
type LightIndicatorEntry struct {
	mesh *Mesh
}

// NewLightIndicatorEntry uploads an indicator cube of the given size.
//
// Parameters:
//   - device: the device used to create the buffers
//   - size: the edge length in world units
//
// Returns:
//   - *LightIndicatorEntry: the entry
//   - error: an error if the mesh could not be uploaded
func NewLightIndicatorEntry(device *wgpu.Device, size float32) (*LightIndicatorEntry, error) {
	mesh, err := NewMesh(device, IndicatorCube(size))
	if err != nil {
		return nil, err
	}
	return &LightIndicatorEntry{mesh: mesh}, nil
}

func (e *LightIndicatorEntry) draw(pass *wgpu.RenderPassEncoder) {
	e.mesh.Bind(pass)
	pass.DrawIndexed(e.mesh.IndexCount(), 1, 0, 0, 0)
}

// Release destroys the indicator mesh.
func (e *LightIndicatorEntry) Release() {
	e.mesh.Release()
}
