package loader

import (
	"bytes"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/model"
	"github.com/Carmen-Shannon/ab3de/engine/texture"
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
)

// extractMaterials decodes the base color and normal texture of every material. A texture that
// is missing or fails to decode is replaced by the loader's fallback; an untextured base color
// becomes a single pixel of its factor.
func (l *gltfLoader) extractMaterials(f *gltfFile) []model.MaterialData {
	materials := make([]model.MaterialData, len(f.doc.Materials))
	for i := range f.doc.Materials {
		mat := &f.doc.Materials[i]

		name := mat.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		data := model.MaterialData{Name: name, Diffuse: l.diffuse, Normal: l.normal}

		if pbr := mat.PbrMetallicRoughness; pbr != nil {
			switch {
			case pbr.BaseColorTexture != nil:
				data.Diffuse = l.decodeTexture(f, pbr.BaseColorTexture.Index, name, l.diffuse)
			case pbr.BaseColorFactor != nil:
				data.Diffuse = solidTexture(*pbr.BaseColorFactor)
			}
		}
		if mat.NormalTexture != nil {
			data.Normal = l.decodeTexture(f, mat.NormalTexture.Index, name, l.normal)
		}
		materials[i] = data
	}
	return materials
}

func (l *gltfLoader) decodeTexture(f *gltfFile, index int, material string, fallback common.TextureStagingData) common.TextureStagingData {
	data, err := f.textureBytes(index)
	if err == nil {
		var staging common.TextureStagingData
		if staging, err = texture.DecodeImage(bytes.NewReader(data), l.maxTextureEdge); err == nil {
			return staging
		}
	}
	log.Printf("[loader] material %q: texture %d: %v, using fallback", material, index, err)
	return fallback
}

// textureBytes returns the encoded image behind a texture.
func (f *gltfFile) textureBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(f.doc.Textures) {
		return nil, errors.Wrapf(errOutOfRange, "texture %d", index)
	}
	source := f.doc.Textures[index].Source
	if source == nil {
		return nil, errors.Newf("texture %d has no source image", index)
	}
	return f.imageBytes(*source)
}

// solidTexture returns a 1x1 RGBA8 texture of a linear color factor.
func solidTexture(factor [4]float32) common.TextureStagingData {
	pixel := make([]byte, 4)
	for i, c := range factor {
		pixel[i] = uint8(math32.Round(math32.Max(0, math32.Min(1, c)) * 255))
	}
	return common.TextureStagingData{Pixels: pixel, Width: 1, Height: 1}
}
