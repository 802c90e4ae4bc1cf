package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/ab3de/engine/model"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// triangleBin holds three positions, three texcoords and three uint16 indices, padded to 68 bytes.
func triangleBin(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	values := []any{
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]float32{0, 0, 1, 0, 0, 1},
		[]uint16{0, 1, 2, 0},
	}
	for _, v := range values {
		require.NoError(t, binary.Write(&b, binary.LittleEndian, v))
	}
	return b.Bytes()
}

func triangleDocument(bufferURI string) gltfDocument {
	return gltfDocument{
		Asset: gltfAsset{Version: "2.0"},
		Meshes: []gltfMesh{{
			Name: "tri",
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0, "TEXCOORD_0": 1},
				Indices:    intPtr(2),
			}},
		}},
		Accessors: []gltfAccessor{
			{BufferView: intPtr(0), ComponentType: gltfComponentTypeFloat, Count: 3, Type: gltfAccessorTypeVec3},
			{BufferView: intPtr(1), ComponentType: gltfComponentTypeFloat, Count: 3, Type: gltfAccessorTypeVec2},
			{BufferView: intPtr(2), ComponentType: gltfComponentTypeUnsignedShort, Count: 3, Type: gltfAccessorTypeScalar},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 24},
			{Buffer: 0, ByteOffset: 60, ByteLength: 6},
		},
		Buffers: []gltfBuffer{{URI: bufferURI, ByteLength: 68}},
	}
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func marshal(t *testing.T, doc gltfDocument) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func buildGLB(t *testing.T, jsonData, bin []byte) []byte {
	t.Helper()
	pad := func(b []byte, fill byte) []byte {
		b = append([]byte(nil), b...)
		for len(b)%4 != 0 {
			b = append(b, fill)
		}
		return b
	}
	jsonData = pad(jsonData, ' ')
	bin = pad(bin, 0)

	var out bytes.Buffer
	total := gltfGLBHeaderSize + 8 + len(jsonData) + 8 + len(bin)
	for _, v := range []uint32{gltfGLBMagic, gltfGLBVersion, uint32(total), uint32(len(jsonData)), gltfGLBChunkJSON} {
		require.NoError(t, binary.Write(&out, binary.LittleEndian, v))
	}
	out.Write(jsonData)
	for _, v := range []uint32{uint32(len(bin)), gltfGLBChunkBIN} {
		require.NoError(t, binary.Write(&out, binary.LittleEndian, v))
	}
	out.Write(bin)
	return out.Bytes()
}

func encodePNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := range 2 {
		for y := range 2 {
			img.SetRGBA(x, y, c)
		}
	}
	var b bytes.Buffer
	require.NoError(t, png.Encode(&b, img))
	return b.Bytes()
}

func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestLoadModel_EmbeddedBuffer(t *testing.T) {
	doc := triangleDocument(dataURI("application/octet-stream", triangleBin(t)))
	fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}

	data, err := NewGLTFLoader(fsys).LoadModel("tri")
	require.NoError(t, err)

	assert.Equal(t, "tri", data.Name)
	require.Len(t, data.Meshes, 1)
	mesh := data.Meshes[0]
	assert.Equal(t, "tri", mesh.Name)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	require.Len(t, mesh.Vertices, 3)
	assertVec3(t, mgl32.Vec3{1, 0, 0}, mesh.Vertices[1].Position)
	assert.Equal(t, mgl32.Vec2{0, 1}, mesh.Vertices[2].TexCoords)

	// generated from the counter-clockwise winding
	for _, v := range mesh.Vertices {
		assertVec3(t, mgl32.Vec3{0, 0, 1}, v.Normal)
		assertVec3(t, mgl32.Vec3{1, 0, 0}, v.Tangent)
	}

	// no materials in the document: one default material from the fallbacks
	require.Len(t, data.Materials, 1)
	assert.Equal(t, 0, mesh.MaterialIndex)
	assert.Equal(t, uint32(256), data.Materials[0].Diffuse.Width)
	assert.Equal(t, uint32(4), data.Materials[0].Normal.Width)
}

func TestLoadModel_ExternalBuffer(t *testing.T) {
	doc := triangleDocument("tri%20data.bin")
	fsys := fstest.MapFS{
		"models/tri.gltf":     {Data: marshal(t, doc)},
		"models/tri data.bin": {Data: triangleBin(t)},
	}

	data, err := NewGLTFLoader(fsys).LoadModel("models/tri.gltf")
	require.NoError(t, err)
	require.Len(t, data.Meshes, 1)
	assert.Len(t, data.Meshes[0].Vertices, 3)
}

func TestLoadModel_GLB(t *testing.T) {
	doc := triangleDocument("")
	fsys := fstest.MapFS{"tri.glb": {Data: buildGLB(t, marshal(t, doc), triangleBin(t))}}
	l := NewGLTFLoader(fsys)

	data, err := l.LoadModel("tri")
	require.NoError(t, err)
	require.Len(t, data.Meshes, 1)
	assertVec3(t, mgl32.Vec3{0, 1, 0}, data.Meshes[0].Vertices[2].Position)

	_, err = l.LoadModel("tri.glb")
	require.NoError(t, err)
}

func TestLoadModel_NodeTransforms(t *testing.T) {
	bin := triangleBin(t)

	t.Run("translation", func(t *testing.T) {
		doc := triangleDocument(dataURI("application/octet-stream", bin))
		doc.Nodes = []gltfNode{{Name: "root", Children: []int{1}, Translation: &[3]float32{0, 0, 5}}, {Mesh: intPtr(0), Scale: &[3]float32{2, 2, 2}}}
		doc.Scenes = []gltfScene{{Nodes: []int{0}}}
		fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}

		data, err := NewGLTFLoader(fsys).LoadModel("tri")
		require.NoError(t, err)
		require.Len(t, data.Meshes, 1)
		assertVec3(t, mgl32.Vec3{2, 0, 5}, data.Meshes[0].Vertices[1].Position)
		assertVec3(t, mgl32.Vec3{0, 0, 1}, data.Meshes[0].Vertices[1].Normal)
	})

	t.Run("mirror reverses winding", func(t *testing.T) {
		doc := triangleDocument(dataURI("application/octet-stream", bin))
		doc.Nodes = []gltfNode{{Mesh: intPtr(0), Scale: &[3]float32{-1, 1, 1}}}
		fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}

		data, err := NewGLTFLoader(fsys).LoadModel("tri")
		require.NoError(t, err)
		mesh := data.Meshes[0]
		assert.Equal(t, []uint32{0, 2, 1}, mesh.Indices)
		assertVec3(t, mgl32.Vec3{-1, 0, 0}, mesh.Vertices[1].Position)
		assertVec3(t, mgl32.Vec3{0, 0, 1}, mesh.Vertices[0].Normal)
	})

	t.Run("mesh drawn twice", func(t *testing.T) {
		doc := triangleDocument(dataURI("application/octet-stream", bin))
		doc.Nodes = []gltfNode{{Mesh: intPtr(0)}, {Name: "copy", Mesh: intPtr(0), Translation: &[3]float32{3, 0, 0}}}
		fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}

		data, err := NewGLTFLoader(fsys).LoadModel("tri")
		require.NoError(t, err)
		require.Len(t, data.Meshes, 2)
		assert.Equal(t, "copy/tri", data.Meshes[1].Name)
		assertVec3(t, mgl32.Vec3{3, 0, 0}, data.Meshes[1].Vertices[0].Position)
	})
}

func TestLoadModel_Materials(t *testing.T) {
	bin := triangleBin(t)
	doc := triangleDocument(dataURI("application/octet-stream", bin))
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, doc.Meshes[0].Primitives[0], doc.Meshes[0].Primitives[0], doc.Meshes[0].Primitives[0])
	doc.Meshes[0].Primitives[0].Material = intPtr(0)
	doc.Meshes[0].Primitives[1].Material = intPtr(1)
	doc.Meshes[0].Primitives[2].Material = intPtr(2)
	doc.Materials = []gltfMaterial{
		{Name: "red", PbrMetallicRoughness: &gltfPbrMetallicRoughness{BaseColorFactor: &[4]float32{1, 0, 0, 1}}},
		{Name: "textured", PbrMetallicRoughness: &gltfPbrMetallicRoughness{BaseColorTexture: &gltfTextureInfo{Index: 0}}, NormalTexture: &gltfTextureInfo{Index: 0}},
		{PbrMetallicRoughness: &gltfPbrMetallicRoughness{BaseColorTexture: &gltfTextureInfo{Index: 1}}},
	}
	doc.Textures = []gltfTexture{{Source: intPtr(0)}, {Source: intPtr(1)}}
	doc.Images = []gltfImage{
		{URI: dataURI("image/png", encodePNG(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}))},
		{URI: dataURI("image/png", []byte("not a png"))},
	}
	fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}

	data, err := NewGLTFLoader(fsys).LoadModel("tri")
	require.NoError(t, err)

	require.Len(t, data.Meshes, 4)
	assert.Equal(t, "tri_3", data.Meshes[3].Name)
	// the fourth primitive names no material
	assert.Equal(t, 3, data.Meshes[3].MaterialIndex)
	require.Len(t, data.Materials, 4)

	red := data.Materials[0]
	assert.Equal(t, "red", red.Name)
	assert.Equal(t, []byte{255, 0, 0, 255}, red.Diffuse.Pixels)

	textured := data.Materials[1]
	assert.Equal(t, uint32(2), textured.Diffuse.Width)
	assert.Equal(t, []byte{10, 20, 30, 255}, textured.Diffuse.Pixels[:4])
	assert.Equal(t, uint32(2), textured.Normal.Width)

	broken := data.Materials[2]
	assert.Equal(t, "material_2", broken.Name)
	assert.Equal(t, uint32(256), broken.Diffuse.Width, "undecodable texture falls back")

	assert.Equal(t, "tri_default", data.Materials[3].Name)
}

func TestLoadModel_Options(t *testing.T) {
	doc := triangleDocument(dataURI("application/octet-stream", triangleBin(t)))
	fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}
	diffuse := solidTexture([4]float32{0, 1, 0, 1})
	normal := solidTexture([4]float32{0.5, 0.5, 1, 1})

	data, err := NewGLTFLoader(fsys, WithFallbackTextures(diffuse, normal), WithMaxTextureEdge(1)).LoadModel("tri")
	require.NoError(t, err)
	assert.Equal(t, diffuse, data.Materials[0].Diffuse)
	assert.Equal(t, normal, data.Materials[0].Normal)
}

func TestLoadModel_Cached(t *testing.T) {
	doc := triangleDocument(dataURI("application/octet-stream", triangleBin(t)))
	fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}
	l := NewGLTFLoader(fsys)

	first, err := l.LoadModel("tri")
	require.NoError(t, err)
	delete(fsys, "tri.gltf")

	second, err := l.LoadModel("tri")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadModel_Errors(t *testing.T) {
	bin := dataURI("application/octet-stream", triangleBin(t))

	tests := []struct {
		name   string
		mutate func(doc *gltfDocument)
		target error
	}{
		{name: "version", mutate: func(doc *gltfDocument) { doc.Asset.Version = "1.0" }, target: errInvalidGLTFVersion},
		{name: "missing position", mutate: func(doc *gltfDocument) { delete(doc.Meshes[0].Primitives[0].Attributes, "POSITION") }},
		{name: "lines", mutate: func(doc *gltfDocument) { doc.Meshes[0].Primitives[0].Mode = intPtr(1) }},
		{name: "accessor overruns view", mutate: func(doc *gltfDocument) { doc.Accessors[0].Count = 10 }, target: errOutOfRange},
		{name: "index out of range", mutate: func(doc *gltfDocument) {
			doc.Accessors[0].Count = 2
			doc.Accessors[1].Count = 2
		}, target: errOutOfRange},
		{name: "bad data uri", mutate: func(doc *gltfDocument) { doc.Buffers[0].URI = "data:application/octet-stream,abc" }, target: errInvalidDataURI},
		{name: "missing buffer file", mutate: func(doc *gltfDocument) { doc.Buffers[0].URI = "missing.bin" }},
		{name: "required extension", mutate: func(doc *gltfDocument) { doc.ExtensionsRequired = []string{"KHR_draco_mesh_compression"} }},
		{name: "node cycle", mutate: func(doc *gltfDocument) {
			doc.Nodes = []gltfNode{{Children: []int{1}}, {Children: []int{0}}}
			doc.Scenes = []gltfScene{{Nodes: []int{0}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := triangleDocument(bin)
			tt.mutate(&doc)
			fsys := fstest.MapFS{"tri.gltf": {Data: marshal(t, doc)}}

			_, err := NewGLTFLoader(fsys).LoadModel("tri")
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "%v", err)
			}
			assert.False(t, errors.Is(err, model.ErrUnknownModel))
		})
	}
}

func TestLoadModel_Unknown(t *testing.T) {
	l := NewGLTFLoader(fstest.MapFS{})

	for _, name := range []string{"missing", "missing.gltf", "../escape.glb"} {
		_, err := l.LoadModel(name)
		assert.True(t, errors.Is(err, model.ErrUnknownModel), "%s: %v", name, err)
	}
}

func TestSplitGLB_Invalid(t *testing.T) {
	valid := buildGLB(t, []byte(`{"asset":{"version":"2.0"}}`), nil)

	_, _, err := splitGLB(valid[:8])
	assert.True(t, errors.Is(err, errInvalidGLB))

	badVersion := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badVersion[4:], 1)
	_, _, err = splitGLB(badVersion)
	assert.True(t, errors.Is(err, errInvalidGLB))

	truncated := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(truncated[12:], 4096)
	_, _, err = splitGLB(truncated)
	assert.True(t, errors.Is(err, errInvalidGLB))
}

func TestReadFloats_NormalizedAndStrided(t *testing.T) {
	// two interleaved elements: a normalized ubyte vec2 followed by two bytes of padding
	f := &gltfFile{doc: gltfDocument{
		Accessors: []gltfAccessor{{
			BufferView:    intPtr(0),
			ComponentType: gltfComponentTypeUnsignedByte,
			Normalized:    true,
			Count:         2,
			Type:          gltfAccessorTypeVec2,
		}},
		BufferViews: []gltfBufferView{{Buffer: 0, ByteLength: 8, ByteStride: intPtr(4)}},
		Buffers:     []gltfBuffer{{ByteLength: 8, data: []byte{0, 255, 9, 9, 255, 0, 9, 9}}},
	}}

	values, err := f.readFloats(0, gltfAccessorTypeVec2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 1, 0}, values)

	_, err = f.readFloats(0, gltfAccessorTypeVec3)
	assert.Error(t, err)

	f.doc.Accessors[0].Normalized = false
	_, err = f.readFloats(0, gltfAccessorTypeVec2)
	assert.Error(t, err)
}
