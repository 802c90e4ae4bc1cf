package model

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// Mesh is uploaded geometry: a vertex buffer, a uint32 index buffer and the material it draws with.
type Mesh struct {
	name          string
	vertexBuffer  *wgpu.Buffer
	indexBuffer   *wgpu.Buffer
	indexCount    uint32
	materialIndex int
}

// NewMesh uploads vertices and indices into new buffers.
//
// Parameters:
//   - device: the device used to create the buffers
//   - data: the mesh geometry
//
// Returns:
//   - *Mesh: the uploaded mesh
//   - error: an error if buffer creation failed
func NewMesh(device *wgpu.Device, data MeshData) (*Mesh, error) {
	vertexBuffer, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    data.Name + " Vertex Buffer",
		Contents: MarshalVertices(data.Vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create %s vertex buffer", data.Name)
	}

	indexBuffer, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    data.Name + " Index Buffer",
		Contents: common.SliceToBytes(data.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vertexBuffer.Release()
		return nil, errors.Wrapf(err, "create %s index buffer", data.Name)
	}

	return &Mesh{
		name:          data.Name,
		vertexBuffer:  vertexBuffer,
		indexBuffer:   indexBuffer,
		indexCount:    uint32(len(data.Indices)),
		materialIndex: data.MaterialIndex,
	}, nil
}

func (m *Mesh) Name() string       { return m.name }
func (m *Mesh) IndexCount() uint32 { return m.indexCount }
func (m *Mesh) MaterialIndex() int { return m.materialIndex }

// Bind sets the mesh's vertex buffer on slot 0 and its index buffer.
func (m *Mesh) Bind(pass *wgpu.RenderPassEncoder) {
	pass.SetVertexBuffer(0, m.vertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(m.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

// Release destroys both buffers.
func (m *Mesh) Release() {
	for _, b := range []*wgpu.Buffer{m.vertexBuffer, m.indexBuffer} {
		if b != nil {
			b.Destroy()
			b.Release()
		}
	}
	m.vertexBuffer, m.indexBuffer = nil, nil
}

// Material is one bind group exposing a diffuse texture and a normal texture with their samplers.
type Material struct {
	name      string
	diffuse   texture.Texture
	normal    texture.Texture
	bindGroup *wgpu.BindGroup
}

// NewMaterialBindGroupLayout builds the layout every material bind group uses:
// diffuse texture at 0, its sampler at 1, normal texture at 2, its sampler at 3.
//
// Parameters:
//   - device: the device used to create the layout
//
// Returns:
//   - *wgpu.BindGroupLayout: the material layout
//   - error: an error if layout creation failed
func NewMaterialBindGroupLayout(device *wgpu.Device) (*wgpu.BindGroupLayout, error) {
	textureEntry := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
				Multisampled:  false,
			},
		}
	}
	samplerEntry := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		}
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{textureEntry(0), samplerEntry(1), textureEntry(2), samplerEntry(3)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create material bind group layout")
	}
	return layout, nil
}

// NewMaterial uploads the material textures and builds its bind group. The material owns
// both textures.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - queue: the queue used to upload texture data
//   - layout: the material bind group layout
//   - data: the material textures
//
// Returns:
//   - *Material: the material
//   - error: an error if any upload or GPU creation failed
func NewMaterial(device *wgpu.Device, queue *wgpu.Queue, layout *wgpu.BindGroupLayout, data MaterialData) (*Material, error) {
	diffuse, err := texture.NewD2Texture(device, queue, data.Name+" Diffuse", data.Diffuse, texture.DiffuseFormat)
	if err != nil {
		return nil, err
	}
	normal, err := texture.NewD2Texture(device, queue, data.Name+" Normal", data.Normal, texture.NormalFormat)
	if err != nil {
		diffuse.Release()
		return nil, err
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  data.Name + " Material Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: diffuse.View()},
			{Binding: 1, Sampler: diffuse.Sampler()},
			{Binding: 2, TextureView: normal.View()},
			{Binding: 3, Sampler: normal.Sampler()},
		},
	})
	if err != nil {
		diffuse.Release()
		normal.Release()
		return nil, errors.Wrapf(err, "create %s material bind group", data.Name)
	}

	return &Material{name: data.Name, diffuse: diffuse, normal: normal, bindGroup: bindGroup}, nil
}

func (m *Material) Name() string              { return m.name }
func (m *Material) BindGroup() *wgpu.BindGroup { return m.bindGroup }

// Release frees the bind group and both textures.
func (m *Material) Release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	if m.diffuse != nil {
		m.diffuse.Release()
		m.diffuse = nil
	}
	if m.normal != nil {
		m.normal.Release()
		m.normal = nil
	}
}

type model struct {
	name      string
	meshes    []*Mesh
	materials []*Material
	refs      atomic.Int32
}

// Model is an immutable set of meshes and the materials they draw with. Several entries
// may share one model; the GPU objects are released when the last holder releases it.
type Model interface {
	// Name returns the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Meshes returns the meshes in draw order.
	//
	// Returns:
	//   - []*Mesh: the meshes
	Meshes() []*Mesh

	// Materials returns the materials meshes index into.
	//
	// Returns:
	//   - []*Material: the materials
	Materials() []*Material

	// Retain registers another holder and returns the model.
	//
	// Returns:
	//   - Model: the same model
	Retain() Model

	// Release drops one holder; the last release frees every mesh and material.
	Release()
}

var _ Model = &model{}

// Upload validates data and uploads every mesh and material. The returned model has one holder.
//
// Parameters:
//   - device: the device used to create GPU objects
//   - queue: the queue used to upload texture data
//   - layout: the material bind group layout
//   - data: the loaded model
//
// Returns:
//   - Model: the uploaded model
//   - error: an error if data is invalid or any upload failed; nothing is leaked on failure
func Upload(device *wgpu.Device, queue *wgpu.Queue, layout *wgpu.BindGroupLayout, data ModelData) (Model, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	m := &model{name: data.Name}
	m.refs.Store(1)
	for _, md := range data.Materials {
		mat, err := NewMaterial(device, queue, layout, md)
		if err != nil {
			m.free()
			return nil, errors.Wrapf(err, "upload model %q", data.Name)
		}
		m.materials = append(m.materials, mat)
	}
	for _, md := range data.Meshes {
		mesh, err := NewMesh(device, md)
		if err != nil {
			m.free()
			return nil, errors.Wrapf(err, "upload model %q", data.Name)
		}
		m.meshes = append(m.meshes, mesh)
	}
	return m, nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Meshes() []*Mesh {
	return m.meshes
}

func (m *model) Materials() []*Material {
	return m.materials
}

func (m *model) Retain() Model {
	m.refs.Add(1)
	return m
}

func (m *model) Release() {
	if m.refs.Add(-1) == 0 {
		m.free()
	}
}

func (m *model) free() {
	for _, mesh := range m.meshes {
		mesh.Release()
	}
	for _, mat := range m.materials {
		mat.Release()
	}
	m.meshes, m.materials = nil, nil
}
