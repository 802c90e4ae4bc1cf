// Package loader reads static glTF 2.0 models (.gltf with external or embedded buffers, or .glb)
// into model.ModelData.
package loader

import (
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/model"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/cockroachdb/errors"
)

// defaultMaxTextureEdge caps decoded material textures unless WithMaxTextureEdge overrides it.
const defaultMaxTextureEdge = 2048

// modelExtensions are tried in order when a model name carries no extension.
var modelExtensions = []string{".glb", ".gltf"}

type gltfLoader struct {
	mu    *sync.RWMutex
	fsys  fs.FS
	cache map[string]model.ModelData

	maxTextureEdge uint32
	diffuse        common.TextureStagingData
	normal         common.TextureStagingData
}

var _ model.Loader = &gltfLoader{}

// NewGLTFLoader creates a loader that resolves model names to glTF files in fsys. A name with a
// .gltf or .glb extension is read as is; a bare name tries name.glb, then name.gltf. Loaded models
// are cached by name.
//
// Parameters:
//   - fsys: the file system holding the models and the files they reference
//   - options: functional options for texture size and fallbacks
//
// Returns:
//   - model.Loader: the glTF loader
func NewGLTFLoader(fsys fs.FS, options ...LoaderBuilderOption) model.Loader {
	l := &gltfLoader{
		mu:             &sync.RWMutex{},
		fsys:           fsys,
		cache:          make(map[string]model.ModelData),
		maxTextureEdge: defaultMaxTextureEdge,
		diffuse:        texture.CheckerTexture(256, 8),
		normal:         texture.FlatNormalTexture(4),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *gltfLoader) LoadModel(name string) (model.ModelData, error) {
	l.mu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	file, err := l.resolve(name)
	if err != nil {
		return model.ModelData{}, err
	}
	f, err := parseGLTF(l.fsys, file)
	if err != nil {
		return model.ModelData{}, errors.Wrapf(err, "load model %q", name)
	}

	data, err := l.build(name, f)
	if err != nil {
		return model.ModelData{}, errors.Wrapf(err, "load model %q", name)
	}
	log.Printf("[loader] loaded %q from %s: %d meshes, %d materials", name, file, len(data.Meshes), len(data.Materials))

	l.mu.Lock()
	l.cache[name] = data
	l.mu.Unlock()
	return data, nil
}

// resolve maps a model name to a file in fsys. A name that matches no file is marked
// model.ErrUnknownModel.
func (l *gltfLoader) resolve(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", errors.Mark(errors.Newf("gltf loader: invalid model path %q", name), model.ErrUnknownModel)
	}

	candidates := []string{name}
	switch strings.ToLower(path.Ext(name)) {
	case ".gltf", ".glb":
	default:
		candidates = candidates[:0]
		for _, ext := range modelExtensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, c := range candidates {
		if _, err := fs.Stat(l.fsys, c); err == nil {
			return c, nil
		}
	}
	return "", errors.Mark(errors.Newf("gltf loader: model %q not found", name), model.ErrUnknownModel)
}

// build converts a parsed document into model data. Primitives without a material, or a document
// without materials, draw with an appended default material made of the fallback textures.
func (l *gltfLoader) build(name string, f *gltfFile) (model.ModelData, error) {
	materials := l.extractMaterials(f)
	defaultMaterial := len(materials)

	meshes, err := extractMeshes(f, defaultMaterial)
	if err != nil {
		return model.ModelData{}, err
	}

	for _, m := range meshes {
		if m.MaterialIndex == defaultMaterial {
			materials = append(materials, model.MaterialData{Name: name + "_default", Diffuse: l.diffuse, Normal: l.normal})
			break
		}
	}

	data := model.ModelData{Name: name, Meshes: meshes, Materials: materials}
	if err := data.Validate(); err != nil {
		return model.ModelData{}, err
	}
	return data, nil
}
