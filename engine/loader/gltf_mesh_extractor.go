package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/ab3de/engine/model"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// maxNodeDepth bounds the node hierarchy walk; deeper documents are treated as cyclic.
const maxNodeDepth = 64

// meshExtractor flattens the node hierarchy of a document into world-space meshes.
type meshExtractor struct {
	file *gltfFile
	// defaultMaterial is the material index for primitives that name none.
	defaultMaterial int
	meshes          []model.MeshData
}

// extractMeshes returns one MeshData per triangle primitive drawn by the default scene, with node
// transforms baked into positions and normals. A document without nodes yields every mesh untransformed.
//
// Parameters:
//   - f: the parsed document
//   - defaultMaterial: the material index used by primitives without a material
//
// Returns:
//   - []model.MeshData: the flattened meshes
//   - error: an error if any primitive is malformed
func extractMeshes(f *gltfFile, defaultMaterial int) ([]model.MeshData, error) {
	e := &meshExtractor{file: f, defaultMaterial: defaultMaterial}

	if len(f.doc.Nodes) == 0 {
		for i := range f.doc.Meshes {
			if err := e.extractMesh(i, "", mgl32.Ident4()); err != nil {
				return nil, err
			}
		}
		return e.meshes, nil
	}

	roots, err := f.rootNodes()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if err := e.walk(root, mgl32.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	return e.meshes, nil
}

// rootNodes returns the nodes of the default scene, or the nodes no other node parents when the
// document has no scenes.
func (f *gltfFile) rootNodes() ([]int, error) {
	if len(f.doc.Scenes) > 0 {
		scene := 0
		if f.doc.Scene != nil {
			scene = *f.doc.Scene
		}
		if scene < 0 || scene >= len(f.doc.Scenes) {
			return nil, errors.Wrapf(errOutOfRange, "scene %d", scene)
		}
		return f.doc.Scenes[scene].Nodes, nil
	}

	parented := make([]bool, len(f.doc.Nodes))
	for _, n := range f.doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(parented) {
				parented[c] = true
			}
		}
	}
	var roots []int
	for i, p := range parented {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func (e *meshExtractor) walk(index int, parent mgl32.Mat4, depth int) error {
	if depth > maxNodeDepth {
		return errors.Newf("node %d: hierarchy deeper than %d", index, maxNodeDepth)
	}
	if index < 0 || index >= len(e.file.doc.Nodes) {
		return errors.Wrapf(errOutOfRange, "node %d", index)
	}

	node := &e.file.doc.Nodes[index]
	world := parent.Mul4(node.localMatrix())
	if node.Mesh != nil {
		if err := e.extractMesh(*node.Mesh, node.Name, world); err != nil {
			return errors.Wrapf(err, "node %d", index)
		}
	}
	for _, child := range node.Children {
		if err := e.walk(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// localMatrix returns the node transform: Matrix when present, otherwise T * R * S.
func (n *gltfNode) localMatrix() mgl32.Mat4 {
	if n.Matrix != nil {
		// both glTF and mgl32 are column-major
		return mgl32.Mat4(*n.Matrix)
	}

	m := mgl32.Ident4()
	if t := n.Translation; t != nil {
		m = mgl32.Translate3D(t[0], t[1], t[2])
	}
	if r := n.Rotation; r != nil {
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		if q.Len() > 0 {
			m = m.Mul4(q.Normalize().Mat4())
		}
	}
	if s := n.Scale; s != nil {
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

func (e *meshExtractor) extractMesh(index int, nodeName string, world mgl32.Mat4) error {
	doc := &e.file.doc
	if index < 0 || index >= len(doc.Meshes) {
		return errors.Wrapf(errOutOfRange, "mesh %d", index)
	}
	mesh := &doc.Meshes[index]

	name := mesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", index)
	}
	if nodeName != "" && nodeName != name {
		name = nodeName + "/" + name
	}

	for p := range mesh.Primitives {
		data, err := e.extractPrimitive(&mesh.Primitives[p], world)
		if err != nil {
			return errors.Wrapf(err, "mesh %q primitive %d", name, p)
		}
		data.Name = name
		if len(mesh.Primitives) > 1 {
			data.Name = fmt.Sprintf("%s_%d", name, p)
		}
		e.meshes = append(e.meshes, data)
	}
	return nil
}

func (e *meshExtractor) extractPrimitive(prim *gltfPrimitive, world mgl32.Mat4) (model.MeshData, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return model.MeshData{}, errors.Newf("primitive mode %d: only triangles are supported", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return model.MeshData{}, errors.New("no POSITION attribute")
	}
	positions, err := e.file.readFloats(posAccessor, gltfAccessorTypeVec3)
	if err != nil {
		return model.MeshData{}, errors.Wrap(err, "positions")
	}

	vertices := make([]model.ModelVertex, len(positions)/3)
	for i := range vertices {
		vertices[i].Position = mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}

	hasNormals := false
	if accessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.file.readFloats(accessor, gltfAccessorTypeVec3)
		if err != nil {
			return model.MeshData{}, errors.Wrap(err, "normals")
		}
		if len(normals) != len(positions) {
			return model.MeshData{}, errors.Newf("%d normals for %d vertices", len(normals)/3, len(vertices))
		}
		for i := range vertices {
			vertices[i].Normal = mgl32.Vec3{normals[i*3], normals[i*3+1], normals[i*3+2]}
		}
		hasNormals = true
	}

	if accessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := e.file.readFloats(accessor, gltfAccessorTypeVec2)
		if err != nil {
			return model.MeshData{}, errors.Wrap(err, "texcoords")
		}
		if len(uvs)/2 != len(vertices) {
			return model.MeshData{}, errors.Newf("%d texcoords for %d vertices", len(uvs)/2, len(vertices))
		}
		for i := range vertices {
			vertices[i].TexCoords = mgl32.Vec2{uvs[i*2], uvs[i*2+1]}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.file.readIndices(*prim.Indices); err != nil {
			return model.MeshData{}, errors.Wrap(err, "indices")
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return model.MeshData{}, errors.Newf("%d indices do not form triangles", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return model.MeshData{}, errors.Wrapf(errOutOfRange, "vertex index %d of %d", idx, len(vertices))
		}
	}

	bakeTransform(vertices, indices, world)
	if !hasNormals {
		generateNormals(vertices, indices)
	}
	model.ComputeTangents(vertices, indices)

	materialIndex := e.defaultMaterial
	if prim.Material != nil {
		materialIndex = *prim.Material
	}
	return model.MeshData{
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
	}, nil
}

// bakeTransform moves vertices into world space. Normals use the inverse transpose so non-uniform
// scale keeps them perpendicular, and a mirroring transform reverses the winding to stay
// counter-clockwise.
func bakeTransform(vertices []model.ModelVertex, indices []uint32, world mgl32.Mat4) {
	if world == mgl32.Ident4() {
		return
	}

	linear := world.Mat3()
	normalMatrix := linear
	if linear.Det() != 0 {
		normalMatrix = linear.Inv().Transpose()
	}
	for i := range vertices {
		v := &vertices[i]
		v.Position = world.Mul4x1(v.Position.Vec4(1)).Vec3()
		if n := normalMatrix.Mul3x1(v.Normal); n.Len() > 0 {
			v.Normal = n.Normalize()
		}
	}

	if linear.Det() < 0 {
		for t := 0; t+2 < len(indices); t += 3 {
			indices[t+1], indices[t+2] = indices[t+2], indices[t+1]
		}
	}
}

// generateNormals fills smooth vertex normals by accumulating the area-weighted face normal of
// every triangle onto its vertices. Vertices no triangle covers point up.
func generateNormals(vertices []model.ModelVertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		p0 := vertices[i0].Position
		face := vertices[i1].Position.Sub(p0).Cross(vertices[i2].Position.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}

	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = mgl32.Vec3{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}
