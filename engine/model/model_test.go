package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/ab3de/engine/renderer/shader"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUTypes_Sizes(t *testing.T) {
	assert.Equal(t, 56, (&ModelVertex{}).Size())
	assert.Equal(t, 112, (&InstanceData{}).Size())
	assert.Len(t, MarshalVertices(make([]ModelVertex, 3)), 3*56)
	assert.Len(t, MarshalInstances(make([]InstanceData, 2)), 2*112)
	assert.Equal(t, uint64(100*112), InstanceBufferSize(100))
}

func TestVertexLayouts(t *testing.T) {
	vertex := ModelVertexLayout()
	assert.Equal(t, uint64(56), vertex.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, vertex.StepMode)
	require.Len(t, vertex.Attributes, 5)
	for i, attr := range vertex.Attributes {
		assert.Equal(t, uint32(i), attr.ShaderLocation)
	}

	instance := InstanceDataLayout()
	assert.Equal(t, uint64(112), instance.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeInstance, instance.StepMode)
	require.Len(t, instance.Attributes, 8)
	for i, attr := range instance.Attributes {
		assert.Equal(t, uint32(i+5), attr.ShaderLocation)
	}
	assert.Equal(t, uint64(100), instance.Attributes[7].Offset)
}

func TestNewInstanceData(t *testing.T) {
	d := NewInstanceData(mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent(), mgl32.Vec3{2, 2, 2})
	translate, ident := mgl32.Translate3D(1, 2, 3), mgl32.Ident3()
	assertFloatsInDelta(t, translate[:], d.Model[:], 1e-6)
	assertFloatsInDelta(t, ident[:], d.Normal[:], 1e-6)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, d.Scale)

	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	d = NewInstanceData(mgl32.Vec3{}, rot.Scale(3), mgl32.Vec3{1, 1, 1})
	// the rotation is normalized, so x maps to -z without scaling
	got := d.Normal.Mul3x1(mgl32.Vec3{1, 0, 0})
	assertFloatsInDelta(t, []float32{0, 0, -1}, got[:], 1e-6)
}

func TestMarshalInstances_Layout(t *testing.T) {
	d := NewInstanceData(mgl32.Vec3{4, 5, 6}, mgl32.QuatIdent(), mgl32.Vec3{7, 8, 9})
	buf := MarshalInstances([]InstanceData{d})

	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	assert.Equal(t, float32(4), f32(48))
	assert.Equal(t, float32(6), f32(56))
	assert.Equal(t, float32(1), f32(64))
	assert.Equal(t, float32(7), f32(100))
	assert.Equal(t, float32(9), f32(108))
}

func TestGridInstancesProvider_Layout(t *testing.T) {
	g := NewGridInstancesProvider(10)
	require.Equal(t, 100, g.InstanceCount())
	data := g.InstanceData()
	require.Len(t, data, 100)

	// spacing 3, shifted by half a grid and then by N/2 on X and Z
	first := data[0].Model.Col(3)
	assert.InDelta(t, -20, float64(first.X()), 1e-5)
	assert.InDelta(t, 0, float64(first.Y()), 1e-5)
	assert.InDelta(t, -20, float64(first.Z()), 1e-5)
	assert.InDelta(t, 0.6*0.8, float64(data[0].Scale.X()), 1e-5)

	last := data[99].Model.Col(3)
	assert.InDelta(t, 7, float64(last.X()), 1e-5)
	assert.InDelta(t, 7, float64(last.Z()), 1e-5)
}

func TestGridInstancesProvider_Animation(t *testing.T) {
	g := NewGridInstancesProvider(4, WithSpacing(2), WithGlobalScale(1))
	start := append([]InstanceData(nil), g.InstanceData()...)

	g.Update(500)
	moved := g.InstanceData()
	assert.NotEqual(t, start[0].Model, moved[0].Model)
	for _, d := range moved {
		s := d.Scale.X()
		assert.GreaterOrEqual(t, s, float32(pulseMin))
		assert.LessOrEqual(t, s, float32(pulseMax)+1e-6)
	}

	// every period divides 210000 ms
	g.Update(210000)
	for i, d := range g.InstanceData() {
		assertFloatsInDelta(t, start[i].Model[:], d.Model[:], 1e-4, "instance %d", i)
	}
}

func TestGridInstancesProvider_PhaseOffsets(t *testing.T) {
	g := NewGridInstancesProvider(3)
	data := g.InstanceData()
	assert.NotEqual(t, data[0].Model.Col(3).Y(), data[1].Model.Col(3).Y())
	assert.NotEqual(t, data[0].Scale, data[1].Scale)
}

func TestGridInstancesProvider_Empty(t *testing.T) {
	g := NewGridInstancesProvider(0)
	assert.Equal(t, 0, g.InstanceCount())
	assert.Empty(t, g.InstanceData())
}

type fakeModel struct {
	refs int
}

func (m *fakeModel) Name() string           { return "fake" }
func (m *fakeModel) Meshes() []*Mesh        { return nil }
func (m *fakeModel) Materials() []*Material { return nil }
func (m *fakeModel) Retain() Model          { m.refs++; return m }
func (m *fakeModel) Release()               { m.refs-- }

type fakeProvider struct {
	count   int
	updates []uint64
}

func (p *fakeProvider) Update(nowMs uint64) { p.updates = append(p.updates, nowMs) }
func (p *fakeProvider) InstanceData() []InstanceData {
	return make([]InstanceData, p.count)
}
func (p *fakeProvider) InstanceCount() int { return p.count }

type fakeAllocator struct {
	creates   []int
	writes    []int
	destroyed int
	failNext  bool
}

func (a *fakeAllocator) Create(label string, contents []byte) (*wgpu.Buffer, error) {
	if a.failNext {
		a.failNext = false
		return nil, errors.New("out of memory")
	}
	a.creates = append(a.creates, len(contents))
	return new(wgpu.Buffer), nil
}

func (a *fakeAllocator) Write(buffer *wgpu.Buffer, contents []byte) error {
	a.writes = append(a.writes, len(contents))
	return nil
}

func (a *fakeAllocator) Destroy(buffer *wgpu.Buffer) {
	a.destroyed++
}

func TestModelEntrySimple_BufferPolicy(t *testing.T) {
	alloc := &fakeAllocator{}
	provider := &fakeProvider{count: 4}
	m := &fakeModel{refs: 1}

	entry, err := newModelEntrySimple(alloc, m, provider)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, provider.updates)
	assert.Equal(t, []int{4 * 112}, alloc.creates)
	assert.Equal(t, uint64(4*112), entry.BufferSize())
	assert.Equal(t, 2, m.refs)

	// same length rewrites in place
	require.NoError(t, entry.upload())
	assert.Equal(t, []int{4 * 112}, alloc.writes)
	assert.Len(t, alloc.creates, 1)

	// a different length reallocates
	provider.count = 6
	require.NoError(t, entry.upload())
	assert.Equal(t, 1, alloc.destroyed)
	assert.Equal(t, []int{4 * 112, 6 * 112}, alloc.creates)
	assert.Equal(t, InstanceBufferSize(6), entry.BufferSize())

	// shrinking to nothing frees the buffer without creating a new one
	provider.count = 0
	require.NoError(t, entry.upload())
	assert.Equal(t, 2, alloc.destroyed)
	assert.Len(t, alloc.creates, 2)
	assert.Zero(t, entry.BufferSize())

	provider.count = 1
	require.NoError(t, entry.upload())
	assert.Equal(t, InstanceBufferSize(1), entry.BufferSize())

	entry.Release()
	assert.Equal(t, 3, alloc.destroyed)
	assert.Equal(t, 1, m.refs)
}

func TestModelEntrySimple_CreateFailure(t *testing.T) {
	alloc := &fakeAllocator{failNext: true}
	m := &fakeModel{refs: 1}

	_, err := newModelEntrySimple(alloc, m, &fakeProvider{count: 2})
	require.Error(t, err)
	assert.Equal(t, 1, m.refs)
}

func TestModelData_Validate(t *testing.T) {
	cube := TexturedCube(1)
	valid := ModelData{Name: "ok", Meshes: []MeshData{cube}, Materials: []MaterialData{{}}}
	require.NoError(t, valid.Validate())

	cases := map[string]ModelData{
		"no meshes":        {Name: "empty"},
		"material missing": {Name: "m", Meshes: []MeshData{cube}},
		"negative material": {Name: "m", Meshes: []MeshData{{Vertices: cube.Vertices, Indices: cube.Indices, MaterialIndex: -1}},
			Materials: []MaterialData{{}}},
		"index range": {Name: "m", Meshes: []MeshData{{Vertices: cube.Vertices[:3], Indices: []uint32{0, 1, 5}}},
			Materials: []MaterialData{{}}},
		"partial triangle": {Name: "m", Meshes: []MeshData{{Vertices: cube.Vertices, Indices: []uint32{0, 1}}},
			Materials: []MaterialData{{}}},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, data.Validate())
		})
	}
}

// assertOutwardTriangles checks every triangle of a convex mesh centered on the origin winds
// counter-clockwise when seen from outside.
func assertOutwardTriangles(t *testing.T, mesh MeshData) {
	t.Helper()
	for i := 0; i < len(mesh.Indices); i += 3 {
		p0 := mesh.Vertices[mesh.Indices[i]].Position
		p1 := mesh.Vertices[mesh.Indices[i+1]].Position
		p2 := mesh.Vertices[mesh.Indices[i+2]].Position
		normal := p1.Sub(p0).Cross(p2.Sub(p0))
		centroid := p0.Add(p1).Add(p2).Mul(1.0 / 3)
		assert.Greater(t, normal.Dot(centroid), float32(0), "triangle %d", i/3)
	}
}

func TestTexturedCube(t *testing.T) {
	cube := TexturedCube(2)
	require.Len(t, cube.Vertices, 24)
	require.Len(t, cube.Indices, 36)
	assertOutwardTriangles(t, cube)

	for i, v := range cube.Vertices {
		for _, c := range v.Position {
			assert.InDelta(t, 1, float64(c*c), 1e-6, "vertex %d", i)
		}
		assert.GreaterOrEqual(t, v.TexCoords.X(), float32(0))
		assert.LessOrEqual(t, v.TexCoords.Y(), float32(1))
		// tangent frame is orthogonal to the face normal
		assert.InDelta(t, 0, float64(v.Tangent.Dot(v.Normal)), 1e-5)
		assert.InDelta(t, 0, float64(v.Bitangent.Dot(v.Normal)), 1e-5)
		frame := v.Tangent.Cross(v.Bitangent).Normalize()
		assertFloatsInDelta(t, v.Normal[:], frame[:], 1e-5, "vertex %d", i)
	}
}

func TestIndicatorCube(t *testing.T) {
	cube := IndicatorCube(0.25)
	require.Len(t, cube.Vertices, 8)
	require.Len(t, cube.Indices, 36)
	assertOutwardTriangles(t, cube)
	for _, v := range cube.Vertices {
		assert.InDelta(t, 0.125, float64(mgl32.Abs(v.Position.X())), 1e-6)
	}
}

func TestComputeTangents_SkipsDegenerateUV(t *testing.T) {
	vertices := []ModelVertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}
	ComputeTangents(vertices, []uint32{0, 1, 2})
	for _, v := range vertices {
		assert.Equal(t, mgl32.Vec3{}, v.Tangent)
	}
}

func TestVirtualLoader(t *testing.T) {
	l := NewVirtualLoader(WithCubeSize(3))
	data, err := l.LoadModel(CubeModelName)
	require.NoError(t, err)
	require.NoError(t, data.Validate())
	assert.Equal(t, float32(1.5), mgl32.Abs(data.Meshes[0].Vertices[0].Position.X()))
	assert.NotEmpty(t, data.Materials[0].Diffuse.Pixels)
	assert.NotEmpty(t, data.Materials[0].Normal.Pixels)

	_, err = l.LoadModel("teapot")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestModelShaders_Parse(t *testing.T) {
	for key, src := range map[string]string{"model": modelShaderSource, "light_indicator": lightIndicatorShaderSource} {
		s, err := shader.NewShader(key, src, shaderIncludes())
		require.NoError(t, err, key)
		assert.Equal(t, "vs_main", s.EntryPoint(shader.StageVertex))
		assert.Equal(t, "fs_main", s.EntryPoint(shader.StageFragment))
		assert.Contains(t, s.Source(), "struct CameraUniform")
		assert.Contains(t, s.Source(), "struct LightUniform")
	}
}

// assertFloatsInDelta compares vectors and matrices component by component; a relative
// threshold never matches a component that should be exactly zero.
func assertFloatsInDelta(t *testing.T, want, got []float32, delta float64, msgAndArgs ...any) {
	t.Helper()
	require.Len(t, got, len(want), msgAndArgs...)
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}
