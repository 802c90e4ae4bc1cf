package model

import (
	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is a mesh before upload: triangle-list geometry plus the material it draws with.
type MeshData struct {
	// Name labels the GPU buffers.
	Name string

	// Vertices are the mesh vertices.
	Vertices []ModelVertex

	// Indices are the triangle indices into Vertices, three per triangle, counter-clockwise.
	Indices []uint32

	// MaterialIndex references ModelData.Materials.
	MaterialIndex int
}

// MaterialData is a material before upload.
type MaterialData struct {
	Name    string
	Diffuse common.TextureStagingData
	Normal  common.TextureStagingData
}

// ModelData is everything a Loader produces for one model. It holds no GPU objects, so
// loading can happen on any goroutine.
type ModelData struct {
	Name      string
	Meshes    []MeshData
	Materials []MaterialData
}

// Validate checks the invariants Upload relies on.
//
// Returns:
//   - error: an error naming the first mesh that breaks an invariant
func (d ModelData) Validate() error {
	if len(d.Meshes) == 0 {
		return errors.Newf("model %q: no meshes", d.Name)
	}
	for _, m := range d.Meshes {
		if m.MaterialIndex < 0 || m.MaterialIndex >= len(d.Materials) {
			return errors.Newf("model %q mesh %q: material index %d out of range [0, %d)", d.Name, m.Name, m.MaterialIndex, len(d.Materials))
		}
		if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
			return errors.Newf("model %q mesh %q: %d indices do not form triangles", d.Name, m.Name, len(m.Indices))
		}
		for _, idx := range m.Indices {
			if int(idx) >= len(m.Vertices) {
				return errors.Newf("model %q mesh %q: index %d out of range for %d vertices", d.Name, m.Name, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

// ComputeTangents fills Tangent and Bitangent of every vertex from the triangle positions
// and texture coordinates, averaging over the triangles that share the vertex.
// Triangles with degenerate texture coordinates contribute nothing.
//
// Parameters:
//   - vertices: the vertices to update in place
//   - indices: the triangle indices
func ComputeTangents(vertices []ModelVertex, indices []uint32) {
	counts := make([]int, len(vertices))
	for i := range vertices {
		vertices[i].Tangent = mgl32.Vec3{}
		vertices[i].Bitangent = mgl32.Vec3{}
	}

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]

		dPos1 := v1.Position.Sub(v0.Position)
		dPos2 := v2.Position.Sub(v0.Position)
		dUV1 := v1.TexCoords.Sub(v0.TexCoords)
		dUV2 := v2.TexCoords.Sub(v0.TexCoords)

		det := dUV1.X()*dUV2.Y() - dUV1.Y()*dUV2.X()
		if det == 0 {
			continue
		}
		r := 1 / det
		tangent := dPos1.Mul(dUV2.Y()).Sub(dPos2.Mul(dUV1.Y())).Mul(r)
		// texture v grows downward, the bitangent points up the texture
		bitangent := dPos2.Mul(dUV1.X()).Sub(dPos1.Mul(dUV2.X())).Mul(-r)

		for _, i := range [3]uint32{i0, i1, i2} {
			vertices[i].Tangent = vertices[i].Tangent.Add(tangent)
			vertices[i].Bitangent = vertices[i].Bitangent.Add(bitangent)
			counts[i]++
		}
	}

	for i, n := range counts {
		if n == 0 {
			continue
		}
		vertices[i].Tangent = vertices[i].Tangent.Mul(1 / float32(n))
		vertices[i].Bitangent = vertices[i].Bitangent.Mul(1 / float32(n))
	}
}
