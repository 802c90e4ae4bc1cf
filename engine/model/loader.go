package model

import (
	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// CubeModelName is the model name VirtualLoader generates a textured cube for.
const CubeModelName = "cube"

// ErrUnknownModel is returned by a loader asked for a name it cannot produce.
var ErrUnknownModel = errors.New("unknown model")

// Loader produces model data by name. Implementations do no GPU work.
type Loader interface {
	// LoadModel returns the data of the named model.
	//
	// Parameters:
	//   - name: the model name
	//
	// Returns:
	//   - ModelData: the loaded model
	//   - error: an error marked ErrUnknownModel if the name is unknown, or a decode error
	LoadModel(name string) (ModelData, error)
}

type virtualLoader struct {
	cubeSize float32
	diffuse  common.TextureStagingData
	normal   common.TextureStagingData
}

var _ Loader = &virtualLoader{}

// NewVirtualLoader creates a loader that generates geometry instead of reading files.
// Without options the cube is 1 unit wide with a checker diffuse and a flat normal map.
//
// Parameters:
//   - options: functional options replacing the cube size or textures
//
// Returns:
//   - Loader: the virtual loader
func NewVirtualLoader(options ...VirtualLoaderOption) Loader {
	l := &virtualLoader{
		cubeSize: 1,
		diffuse:  texture.CheckerTexture(256, 8),
		normal:   texture.FlatNormalTexture(4),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *virtualLoader) LoadModel(name string) (ModelData, error) {
	if name != CubeModelName {
		return ModelData{}, errors.Mark(errors.Newf("virtual loader: model %q", name), ErrUnknownModel)
	}

	mesh := TexturedCube(l.cubeSize)
	mesh.Name = name
	return ModelData{
		Name:   name,
		Meshes: []MeshData{mesh},
		Materials: []MaterialData{{
			Name:    name,
			Diffuse: l.diffuse,
			Normal:  l.normal,
		}},
	}, nil
}

// cubeFace is the outward normal of one face and the in-plane axes texture u and v run along.
type cubeFace struct {
	normal, u, up mgl32.Vec3
}

// cubeFaces lists the faces so that u × up is the outward normal, giving counter-clockwise triangles.
var cubeFaces = [6]cubeFace{
	{normal: mgl32.Vec3{1, 0, 0}, u: mgl32.Vec3{0, 0, -1}, up: mgl32.Vec3{0, 1, 0}},
	{normal: mgl32.Vec3{-1, 0, 0}, u: mgl32.Vec3{0, 0, 1}, up: mgl32.Vec3{0, 1, 0}},
	{normal: mgl32.Vec3{0, 1, 0}, u: mgl32.Vec3{1, 0, 0}, up: mgl32.Vec3{0, 0, -1}},
	{normal: mgl32.Vec3{0, -1, 0}, u: mgl32.Vec3{1, 0, 0}, up: mgl32.Vec3{0, 0, 1}},
	{normal: mgl32.Vec3{0, 0, 1}, u: mgl32.Vec3{1, 0, 0}, up: mgl32.Vec3{0, 1, 0}},
	{normal: mgl32.Vec3{0, 0, -1}, u: mgl32.Vec3{-1, 0, 0}, up: mgl32.Vec3{0, 1, 0}},
}

// TexturedCube generates a cube centered on the origin with four vertices per face, so every
// face carries its own normal and full [0, 1] texture coordinates.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - MeshData: 24 vertices and 36 indices using material 0
func TexturedCube(size float32) MeshData {
	half := size / 2
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	vertices := make([]ModelVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range cubeFaces {
		base := uint32(len(vertices))
		for _, c := range corners {
			pos := f.normal.Add(f.u.Mul(c[0])).Add(f.up.Mul(c[1])).Mul(half)
			vertices = append(vertices, ModelVertex{
				Position:  pos,
				TexCoords: mgl32.Vec2{(c[0] + 1) / 2, (1 - c[1]) / 2},
				Normal:    f.normal,
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	ComputeTangents(vertices, indices)

	return MeshData{Name: "Textured Cube", Vertices: vertices, Indices: indices}
}

// IndicatorCube generates the light indicator: a cube with shared corners and only positions set.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - MeshData: 8 vertices and 36 indices
func IndicatorCube(size float32) MeshData {
	h := size / 2
	positions := [8]mgl32.Vec3{
		{-h, h, h}, {-h, h, -h}, {h, h, -h}, {h, h, h},
		{-h, -h, h}, {-h, -h, -h}, {h, -h, -h}, {h, -h, h},
	}
	vertices := make([]ModelVertex, len(positions))
	for i, p := range positions {
		vertices[i] = ModelVertex{Position: p}
	}

	return MeshData{
		Name:     "Light Indicator",
		Vertices: vertices,
		Indices: []uint32{
			0, 2, 1, 0, 3, 2, // top
			5, 7, 4, 5, 6, 7, // bottom
			1, 4, 0, 1, 5, 4, // west
			3, 6, 2, 3, 7, 6, // east
			2, 5, 1, 2, 6, 5, // south
			0, 7, 3, 0, 4, 7, // north
		},
	}
}
